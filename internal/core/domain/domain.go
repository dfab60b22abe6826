package domain

import "time"

// Article is a collected legal news document.
type Article struct {
	ID        int64
	URL       string
	Title     string
	Content   string
	Summary   string
	Source    string
	Category  string
	Published string // free-form; RFC 3339 when the source date could be parsed
	FetchedAt time.Time
	Processed bool
}

// Topic is a node in the two-level taxonomy.
type Topic struct {
	ID             int64
	Name           string
	Category       string
	KeyEntity      string
	RelevanceScore int
	IsParent       bool
	ParentID       *int64
	CreatedAt      time.Time
}

// TopicInput carries the attributes used by find-or-create.
type TopicInput struct {
	Name           string
	Category       string
	KeyEntity      string
	RelevanceScore int
	ParentID       *int64
	IsParent       bool
}

// TopicSummary is a topic annotated with coverage aggregates.
type TopicSummary struct {
	Topic
	ArticleCount    int
	EarliestArticle string
	LatestArticle   string
}

// TaggedTopic is a topic as seen from one linked article.
type TaggedTopic struct {
	Topic
	ArticleTag string
}

// Generation records one synthesis run for a topic.
type Generation struct {
	ID          int64
	TopicID     int64
	TopicName   string
	GeneratedAt time.Time
	OutputPath  string
	Model       string
	SourceCount int
	WordCount   int
}

// Stats is an aggregate snapshot of the store.
type Stats struct {
	TotalArticles       int
	UnprocessedArticles int
	TotalTopics         int
	TotalLinks          int
	TotalGenerations    int
}

// Relevance score bounds.
const (
	MinRelevanceScore     = 0
	MaxRelevanceScore     = 10
	DefaultRelevanceScore = 5
)
