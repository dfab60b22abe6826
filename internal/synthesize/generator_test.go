package synthesize

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/lueurxax/legal-digest/internal/core/domain"
	apperrors "github.com/lueurxax/legal-digest/internal/core/errors"
	"github.com/lueurxax/legal-digest/internal/core/llm"
)

type memRepo struct {
	topics      map[int64]domain.Topic
	articles    map[int64]domain.Article
	links       map[int64][]int64
	ungenerated []domain.TopicSummary
	generations []domain.Generation
	trackErr    error
}

func newMemRepo() *memRepo {
	return &memRepo{
		topics:   make(map[int64]domain.Topic),
		articles: make(map[int64]domain.Article),
		links:    make(map[int64][]int64),
	}
}

func (m *memRepo) addTopic(id int64, name string, parentID int64) {
	t := domain.Topic{ID: id, Name: name, RelevanceScore: 8}
	if parentID == 0 {
		t.IsParent = true
		t.RelevanceScore = 10
	} else {
		t.ParentID = &parentID
	}

	m.topics[id] = t
}

func (m *memRepo) addArticle(id int64, url, content string, topicIDs ...int64) {
	m.articles[id] = domain.Article{
		ID:      id,
		URL:     url,
		Title:   fmt.Sprintf("Article %d", id),
		Source:  "Slaw",
		Content: content,
	}

	for _, tid := range topicIDs {
		m.links[tid] = append(m.links[tid], id)
	}
}

func (m *memRepo) GetTopicByID(_ context.Context, id int64) (*domain.Topic, error) {
	t, ok := m.topics[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}

	return &t, nil
}

func (m *memRepo) GetSubtopicsForParent(_ context.Context, parentID int64) ([]domain.TopicSummary, error) {
	var out []domain.TopicSummary

	for id, t := range m.topics {
		if t.ParentID != nil && *t.ParentID == parentID {
			out = append(out, domain.TopicSummary{Topic: t, ArticleCount: len(m.links[id])})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

func (m *memRepo) GetArticlesForTopic(_ context.Context, topicID int64) ([]domain.Article, error) {
	var out []domain.Article
	for _, id := range m.links[topicID] {
		out = append(out, m.articles[id])
	}

	return out, nil
}

func (m *memRepo) GetArticlesByIDs(_ context.Context, ids []int64) ([]domain.Article, error) {
	var out []domain.Article

	for _, id := range ids {
		if a, ok := m.articles[id]; ok {
			out = append(out, a)
		}
	}

	return out, nil
}

func (m *memRepo) GetUngeneratedSubtopics(context.Context, int, int) ([]domain.TopicSummary, error) {
	return m.ungenerated, nil
}

func (m *memRepo) TrackGeneration(_ context.Context, g *domain.Generation) (int64, error) {
	if m.trackErr != nil {
		return 0, m.trackErr
	}

	m.generations = append(m.generations, *g)

	return int64(len(m.generations)), nil
}

func (m *memRepo) generatedTopics() []int64 {
	var ids []int64
	for _, g := range m.generations {
		ids = append(ids, g.TopicID)
	}

	return ids
}

const articleBody = "# Employment Law Essentials\n\nSmall employers in Ontario face new termination rules this year."

var long = strings.Repeat("Substantial legal analysis. ", 10)

func newClient(t *testing.T, replies ...llm.MockReply) (*llm.Registry, *llm.MockProvider) {
	t.Helper()

	logger := zerolog.Nop()
	provider := llm.NewMockProvider(llm.ProviderAnthropic, replies...)

	r := llm.NewRegistry(&logger, llm.WithRetry(llm.RetryConfig{MaxAttempts: 1, MinWait: time.Millisecond, MaxWait: time.Millisecond}))
	r.Register(provider, llm.CircuitBreakerConfig{Threshold: 100, ResetAfter: time.Minute})

	return r, provider
}

func newTestGenerator(t *testing.T, repo Repository, client Client, mirror Sink, opts Options) (*Generator, string) {
	t.Helper()

	logger := zerolog.Nop()
	dir := t.TempDir()

	g := New(repo, client, NewFileSink(dir), mirror, opts, &logger)
	g.now = func() time.Time { return time.Date(2026, 1, 20, 9, 30, 0, 0, time.UTC) }

	return g, dir
}

func readFrontMatter(t *testing.T, path string) (frontMatter, string) {
	t.Helper()

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	parts := strings.SplitN(string(raw), "---\n", 3)
	require.Len(t, parts, 3)
	require.Empty(t, parts[0])

	var fm frontMatter
	require.NoError(t, yaml.Unmarshal([]byte(parts[1]), &fm))

	return fm, parts[2]
}

func TestGenerateCombinedSubtopics(t *testing.T) {
	repo := newMemRepo()
	repo.addTopic(1, "Employment Law", 0)
	repo.addTopic(2, "Wrongful Dismissal", 1)
	repo.addTopic(3, "Workplace Harassment", 1)
	repo.addArticle(10, "https://slaw.ca/a", long, 2)
	repo.addArticle(11, "https://slaw.ca/b", long, 2, 3)
	repo.addArticle(12, "https://slaw.ca/c", "too short", 3)

	client, provider := newClient(t, llm.MockReply{Text: articleBody})
	g, dir := newTestGenerator(t, repo, client, nil, Options{})

	res, err := g.Generate(context.Background(), Request{TopicIDs: []int64{2, 3}})
	require.NoError(t, err)

	assert.Equal(t, "Wrongful Dismissal & Workplace Harassment", res.Title)
	assert.Equal(t, filepath.Join(dir, "wrongful_dismissal_workplace_harassment_2026_01_20.md"), res.Path)
	assert.Equal(t, 2, res.SourceCount, "shared article counted once, short article dropped")
	assert.Equal(t, WordCount(articleBody), res.WordCount)
	assert.Equal(t, llm.ModelClaudeSonnet, res.Model)

	fm, body := readFrontMatter(t, res.Path)
	assert.Equal(t, "Wrongful Dismissal & Workplace Harassment", fm.Topic)
	assert.Equal(t, "2026-01-20T09:30:00Z", fm.GeneratedDate)
	assert.Equal(t, 2, fm.SourceCount)
	assert.Equal(t, llm.ModelClaudeSonnet, fm.Model)
	assert.Equal(t, []sourceRef{
		{Title: "Article 10", Source: "Slaw", URL: "https://slaw.ca/a"},
		{Title: "Article 11", Source: "Slaw", URL: "https://slaw.ca/b"},
	}, fm.Sources)
	assert.Equal(t, "\n"+articleBody+"\n", body)

	assert.Equal(t, []int64{2, 3}, repo.generatedTopics())

	for _, gen := range repo.generations {
		assert.Equal(t, res.Path, gen.OutputPath)
		assert.Equal(t, 2, gen.SourceCount)
	}

	prompt := provider.Requests()[0].Prompt
	assert.Contains(t, prompt, `about "Wrongful Dismissal & Workplace Harassment"`)
	assert.Contains(t, prompt, "SOURCE ARTICLE 2")
	assert.NotContains(t, prompt, "SOURCE ARTICLE 3")
	assert.Equal(t, int64(defaultMaxTokens), provider.Requests()[0].MaxTokens)
}

func TestGenerateParentExpandsToSubtopics(t *testing.T) {
	repo := newMemRepo()
	repo.addTopic(1, "Employment Law", 0)
	repo.addTopic(2, "Wrongful Dismissal", 1)
	repo.addTopic(3, "Workplace Harassment", 1)
	repo.addTopic(4, "Payroll Tax", 99)
	repo.addArticle(10, "https://slaw.ca/a", long, 2)
	repo.addArticle(11, "https://slaw.ca/b", long, 3)
	repo.addArticle(12, "https://slaw.ca/c", long, 4)

	client, _ := newClient(t, llm.MockReply{Text: articleBody})
	g, _ := newTestGenerator(t, repo, client, nil, Options{Model: llm.AliasHaiku})

	res, err := g.Generate(context.Background(), Request{TopicIDs: []int64{1, 404}})
	require.NoError(t, err)

	assert.Equal(t, "Employment Law", res.Title)
	assert.Equal(t, 2, res.SourceCount)
	assert.Equal(t, llm.ModelClaudeHaiku, res.Model)
	assert.ElementsMatch(t, []int64{1, 2, 3}, repo.generatedTopics())
}

func TestGenerateCustomArticles(t *testing.T) {
	repo := newMemRepo()
	repo.addArticle(10, "https://slaw.ca/a", long)
	repo.addArticle(11, "https://slaw.ca/b", long)

	client, _ := newClient(t, llm.MockReply{Text: articleBody})
	g, dir := newTestGenerator(t, repo, client, nil, Options{})

	res, err := g.Generate(context.Background(), Request{ArticleIDs: []int64{10, 11, 12}, Title: "Hiring in Québec"})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "hiring_in_quebec_2026_01_20.md"), res.Path)
	assert.Equal(t, 2, res.SourceCount)
	assert.Empty(t, repo.generations, "custom selections are not tracked")
}

func TestGenerateNoUsableArticles(t *testing.T) {
	repo := newMemRepo()
	repo.addTopic(2, "Wrongful Dismissal", 1)
	repo.addArticle(10, "https://slaw.ca/a", "short", 2)

	client, provider := newClient(t, llm.MockReply{Text: articleBody})
	g, dir := newTestGenerator(t, repo, client, nil, Options{})

	_, err := g.Generate(context.Background(), Request{TopicIDs: []int64{2}})
	require.ErrorIs(t, err, apperrors.ErrNoUsableArticles)

	assert.Empty(t, provider.Requests())
	assert.Empty(t, repo.generations)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUsableRequiresContentLongerThanMinimum(t *testing.T) {
	client, _ := newClient(t)
	g, _ := newTestGenerator(t, newMemRepo(), client, nil, Options{})

	exact := strings.Repeat("é", defaultMinContentChars)
	longer := exact + "x"

	got := g.usable([]domain.Article{
		{ID: 1, URL: "https://slaw.ca/exact", Content: "  " + exact + "\n"},
		{ID: 2, URL: "https://slaw.ca/longer", Content: longer},
		{ID: 3, URL: "https://slaw.ca/longer", Content: longer},
	})

	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)
}

func TestGenerateServiceFailurePersistsNothing(t *testing.T) {
	repo := newMemRepo()
	repo.addTopic(2, "Wrongful Dismissal", 1)
	repo.addArticle(10, "https://slaw.ca/a", long, 2)

	client, _ := newClient(t, llm.MockReply{Err: errors.New("overloaded")})
	g, dir := newTestGenerator(t, repo, client, nil, Options{})

	_, err := g.Generate(context.Background(), Request{TopicIDs: []int64{2}})
	require.Error(t, err)
	assert.Empty(t, repo.generations)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGenerateEmptyTextIsAnError(t *testing.T) {
	repo := newMemRepo()
	repo.addTopic(2, "Wrongful Dismissal", 1)
	repo.addArticle(10, "https://slaw.ca/a", long, 2)

	client, _ := newClient(t, llm.MockReply{Text: "  "})
	g, _ := newTestGenerator(t, repo, client, nil, Options{})

	_, err := g.Generate(context.Background(), Request{TopicIDs: []int64{2}})
	require.ErrorIs(t, err, apperrors.ErrEmptyResponse)
	assert.Empty(t, repo.generations)
}

func TestGenerateRejectsEmptyRequest(t *testing.T) {
	client, _ := newClient(t)
	g, _ := newTestGenerator(t, newMemRepo(), client, nil, Options{})

	_, err := g.Generate(context.Background(), Request{})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestGenerateMissingCredentials(t *testing.T) {
	client, provider := newClient(t)
	provider.SetAvailable(false)

	g, _ := newTestGenerator(t, newMemRepo(), client, nil, Options{})

	_, err := g.Generate(context.Background(), Request{TopicIDs: []int64{1}})
	require.ErrorIs(t, err, apperrors.ErrMissingCredentials)
}

type recordingSink struct {
	names []string
	err   error
}

func (s *recordingSink) Put(_ context.Context, name string, _ []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}

	s.names = append(s.names, name)

	return "s3://bucket/" + name, nil
}

func TestGenerateMirrorsArtifact(t *testing.T) {
	repo := newMemRepo()
	repo.addTopic(2, "Wrongful Dismissal", 1)
	repo.addArticle(10, "https://slaw.ca/a", long, 2)

	client, _ := newClient(t, llm.MockReply{Text: articleBody})
	mirror := &recordingSink{}
	g, _ := newTestGenerator(t, repo, client, mirror, Options{})

	res, err := g.Generate(context.Background(), Request{TopicIDs: []int64{2}})
	require.NoError(t, err)

	assert.Equal(t, []string{"wrongful_dismissal_2026_01_20.md"}, mirror.names)
	assert.Equal(t, "s3://bucket/wrongful_dismissal_2026_01_20.md", res.MirrorURI)
}

func TestGenerateMirrorFailureIsNotFatal(t *testing.T) {
	repo := newMemRepo()
	repo.addTopic(2, "Wrongful Dismissal", 1)
	repo.addArticle(10, "https://slaw.ca/a", long, 2)

	client, _ := newClient(t, llm.MockReply{Text: articleBody})
	g, _ := newTestGenerator(t, repo, client, &recordingSink{err: errors.New("access denied")}, Options{})

	res, err := g.Generate(context.Background(), Request{TopicIDs: []int64{2}})
	require.NoError(t, err)
	assert.Empty(t, res.MirrorURI)
	assert.Len(t, repo.generations, 1)
}

func TestAutoGenerate(t *testing.T) {
	repo := newMemRepo()
	repo.addTopic(2, "Wrongful Dismissal", 1)
	repo.addTopic(3, "Workplace Harassment", 1)
	repo.addTopic(4, "Payroll Tax", 9)
	repo.addArticle(10, "https://slaw.ca/a", long, 2)
	repo.addArticle(11, "https://slaw.ca/b", "short", 3)
	repo.addArticle(12, "https://slaw.ca/c", long, 4)
	repo.ungenerated = []domain.TopicSummary{
		{Topic: repo.topics[2], ArticleCount: 5},
		{Topic: repo.topics[3], ArticleCount: 4},
		{Topic: repo.topics[4], ArticleCount: 3},
	}

	client, provider := newClient(t, llm.MockReply{Text: articleBody})
	g, _ := newTestGenerator(t, repo, client, nil, Options{})

	res, err := g.AutoGenerate(context.Background(), Policy{MinScore: 7, MinArticles: 3, MaxTopics: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Candidates)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 1, res.Failed, "thin topic fails without stopping the pass")
	assert.False(t, res.StoppedEarly)
	assert.Len(t, provider.Requests(), 1)
	assert.Equal(t, []int64{2}, repo.generatedTopics())
}

func TestAutoGenerateStopsOnQuota(t *testing.T) {
	repo := newMemRepo()
	repo.addTopic(2, "Wrongful Dismissal", 1)
	repo.addTopic(3, "Workplace Harassment", 1)
	repo.addArticle(10, "https://slaw.ca/a", long, 2)
	repo.addArticle(11, "https://slaw.ca/b", long, 3)
	repo.ungenerated = []domain.TopicSummary{{Topic: repo.topics[2]}, {Topic: repo.topics[3]}}

	client, provider := newClient(t, llm.MockReply{Err: fmt.Errorf("%w: 429", apperrors.ErrRateLimited)})
	g, _ := newTestGenerator(t, repo, client, nil, Options{})

	res, err := g.AutoGenerate(context.Background(), Policy{})
	require.NoError(t, err)

	assert.True(t, res.StoppedEarly)
	assert.Equal(t, 1, res.Failed)
	assert.Len(t, provider.Requests(), 1)
	assert.Empty(t, repo.generations)
}

func TestGenerateTrackFailureReturnsArtifact(t *testing.T) {
	repo := newMemRepo()
	repo.addTopic(2, "Wrongful Dismissal", 1)
	repo.addArticle(10, "https://slaw.ca/a", long, 2)
	repo.trackErr = errors.New("connection reset")

	client, _ := newClient(t, llm.MockReply{Text: articleBody})
	g, _ := newTestGenerator(t, repo, client, nil, Options{})

	res, err := g.Generate(context.Background(), Request{TopicIDs: []int64{2}})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.FileExists(t, res.Path)
}
