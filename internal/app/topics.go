package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/lueurxax/legal-digest/internal/core/domain"
)

const (
	treeBranch = "├──"
	treeLast   = "└──"
	generated  = " [generated]"
	dateLen    = len("2006-01-02")
	summaryLen = 200
)

type topicReader interface {
	GetParentTopics(ctx context.Context) ([]domain.TopicSummary, error)
	GetSubtopicsForParent(ctx context.Context, parentID int64) ([]domain.TopicSummary, error)
	GetGeneratedTopics(ctx context.Context) ([]domain.Generation, error)
}

type articleReader interface {
	GetTopicByID(ctx context.Context, id int64) (*domain.Topic, error)
	GetArticlesForTopic(ctx context.Context, topicID int64) ([]domain.Article, error)
}

// WriteTopics prints the parent/subtopic hierarchy with coverage and
// generation markers.
func (a *App) WriteTopics(ctx context.Context, w io.Writer) error {
	return writeTopicTree(ctx, a.database, w)
}

// WriteTopicArticles prints the articles linked to one topic.
func (a *App) WriteTopicArticles(ctx context.Context, w io.Writer, topicID int64) error {
	return writeTopicArticles(ctx, a.database, w, topicID)
}

func writeTopicTree(ctx context.Context, r topicReader, w io.Writer) error {
	parents, err := r.GetParentTopics(ctx)
	if err != nil {
		return fmt.Errorf("get parent topics: %w", err)
	}

	if len(parents) == 0 {
		fmt.Fprintln(w, "No topics yet. Run the classify stage first.")

		return nil
	}

	gens, err := r.GetGeneratedTopics(ctx)
	if err != nil {
		return fmt.Errorf("get generated topics: %w", err)
	}

	done := make(map[int64]bool, len(gens))
	for _, g := range gens {
		done[g.TopicID] = true
	}

	for _, p := range parents {
		fmt.Fprintf(w, "%s (%d/10 SMB) - %d articles [ID: %d]\n", p.Name, p.RelevanceScore, p.ArticleCount, p.ID)

		subs, err := r.GetSubtopicsForParent(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("get subtopics for %d: %w", p.ID, err)
		}

		for i, s := range subs {
			branch := treeBranch
			if i == len(subs)-1 {
				branch = treeLast
			}

			marker := ""
			if done[s.ID] {
				marker = generated
			}

			fmt.Fprintf(w, "  %s %s (%d/10) - %d articles [ID: %d]%s\n", branch, s.Name, s.RelevanceScore, s.ArticleCount, s.ID, marker)
		}

		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total: %d parent categories\n", len(parents))

	return nil
}

func writeTopicArticles(ctx context.Context, r articleReader, w io.Writer, topicID int64) error {
	topic, err := r.GetTopicByID(ctx, topicID)
	if err != nil {
		return fmt.Errorf("get topic %d: %w", topicID, err)
	}

	articles, err := r.GetArticlesForTopic(ctx, topicID)
	if err != nil {
		return fmt.Errorf("get articles for topic %d: %w", topicID, err)
	}

	fmt.Fprintf(w, "Articles for: %s (%d articles)\n\n", topic.Name, len(articles))

	if len(articles) == 0 {
		fmt.Fprintln(w, "No articles found for this topic.")

		return nil
	}

	for i, art := range articles {
		fmt.Fprintf(w, "%d. %s\n", i+1, art.Title)
		fmt.Fprintf(w, "   Source: %s | Published: %s\n", art.Source, publishedDay(art.Published))
		fmt.Fprintf(w, "   URL: %s\n", art.URL)

		if summary := strings.TrimSpace(art.Summary); summary != "" {
			fmt.Fprintf(w, "   Summary: %s\n", truncateRunes(summary, summaryLen))
		}

		fmt.Fprintln(w)
	}

	return nil
}

func publishedDay(s string) string {
	if s == "" {
		return "Unknown"
	}

	if len(s) > dateLen {
		return s[:dateLen]
	}

	return s
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[:n]) + "..."
}
