package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/legal-digest/internal/core/domain"
	apperrors "github.com/lueurxax/legal-digest/internal/core/errors"
	db "github.com/lueurxax/legal-digest/internal/storage"
)

type mockRepo struct {
	mu         sync.Mutex
	pingErr    error
	missingErr error
	byURL      map[string]domain.Article
	order      []string
}

func newMockRepo() *mockRepo {
	return &mockRepo{byURL: make(map[string]domain.Article)}
}

func (m *mockRepo) Ping(context.Context) error {
	return m.pingErr
}

func (m *mockRepo) InsertArticlesBatch(_ context.Context, articles []domain.Article) db.BatchResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res db.BatchResult

	for _, a := range articles {
		if _, ok := m.byURL[a.URL]; ok {
			res.Skipped++

			continue
		}

		a.ID = int64(len(m.order) + 1)
		m.byURL[a.URL] = a
		m.order = append(m.order, a.URL)
		res.Inserted++
	}

	return res
}

func (m *mockRepo) GetArticlesMissingContent(_ context.Context, limit int) ([]domain.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.missingErr != nil {
		return nil, m.missingErr
	}

	var out []domain.Article

	for _, u := range m.order {
		if a := m.byURL[u]; a.Content == "" {
			out = append(out, a)
		}

		if limit > 0 && len(out) == limit {
			break
		}
	}

	return out, nil
}

func (m *mockRepo) UpdateArticleContent(_ context.Context, id int64, content string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for u, a := range m.byURL {
		if a.ID != id || a.Content != "" {
			continue
		}

		a.Content = content
		m.byURL[u] = a

		return true, nil
	}

	return false, nil
}

type stubCollector struct {
	articles map[string][]domain.Article
	errs     map[string]error
	calls    []string
}

func (s *stubCollector) Collect(_ context.Context, src Source) ([]domain.Article, error) {
	s.calls = append(s.calls, src.Name)

	if err := s.errs[src.Name]; err != nil {
		return nil, err
	}

	out := make([]domain.Article, len(s.articles[src.Name]))
	copy(out, s.articles[src.Name])

	return out, nil
}

type stubContent struct {
	bodies map[string]string
	calls  []string
}

func (s *stubContent) FetchContent(_ context.Context, rawURL string) string {
	s.calls = append(s.calls, rawURL)

	return s.bodies[rawURL]
}

func testSource(name string, kind Kind) Source {
	src := Source{Name: name, Kind: kind, URL: "https://" + name + ".example.ca/feed", Category: "employment_law"}
	if kind == KindScrape {
		src.Selectors = Selectors{Container: "div", Title: "h3", Link: "a"}
	}

	return src
}

func article(src, url, content string) domain.Article {
	return domain.Article{URL: url, Title: "t " + url, Source: src, Content: content}
}

func TestIngesterRun(t *testing.T) {
	logger := zerolog.Nop()
	repo := newMockRepo()

	rss := &stubCollector{
		articles: map[string][]domain.Article{
			"slaw":  {article("slaw", "https://a/1", "body one"), article("slaw", "https://a/2", "")},
			"geist": {article("geist", "https://a/1", "dup body"), article("geist", "https://b/1", "body b")},
		},
		errs: map[string]error{"broken": errors.New("feed unreachable")},
	}
	api := &stubCollector{errs: map[string]error{
		"canlii": fmt.Errorf("%w: CanLII API key not set", apperrors.ErrMissingCredentials),
	}}
	content := &stubContent{bodies: map[string]string{"https://a/2": "fetched body"}}

	sources := []Source{
		testSource("slaw", KindRSS),
		testSource("broken", KindRSS),
		testSource("canlii", KindAPI),
		testSource("geist", KindRSS),
	}

	ing := NewIngester(repo, sources, map[Kind]Collector{KindRSS: rss, KindAPI: api}, content, &logger)

	res, err := ing.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, res.Inserted)
	assert.Equal(t, 1, res.Skipped, "duplicate URL across sources is skipped")
	assert.Equal(t, 4, res.Collected())
	assert.Equal(t, []string{"broken"}, res.FailedSources)
	assert.Equal(t, []string{"canlii"}, res.SkippedSources)
	require.Len(t, res.Sources, 4)
	assert.Equal(t, []string{"slaw", "broken", "geist"}, rss.calls, "a failing source does not stop later sources")

	assert.Equal(t, []string{"https://a/2"}, content.calls, "only empty bodies are backfilled")
	assert.Equal(t, "fetched body", repo.byURL["https://a/2"].Content)
	assert.Equal(t, "body one", repo.byURL["https://a/1"].Content, "first writer wins")
	assert.False(t, repo.byURL["https://a/1"].FetchedAt.IsZero())
}

func TestIngesterRunIsIdempotent(t *testing.T) {
	logger := zerolog.Nop()
	repo := newMockRepo()

	rss := &stubCollector{articles: map[string][]domain.Article{
		"slaw": {article("slaw", "https://a/1", "x"), article("slaw", "https://a/2", "y")},
	}}

	ing := NewIngester(repo, []Source{testSource("slaw", KindRSS)}, map[Kind]Collector{KindRSS: rss}, nil, &logger)

	first, err := ing.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Inserted)

	second, err := ing.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 2, second.Skipped)
	assert.Len(t, repo.order, 2)
}

func TestIngesterStoreNotReady(t *testing.T) {
	logger := zerolog.Nop()
	repo := newMockRepo()
	repo.pingErr = errors.New("connection refused")

	rss := &stubCollector{}
	ing := NewIngester(repo, []Source{testSource("slaw", KindRSS)}, map[Kind]Collector{KindRSS: rss}, nil, &logger)

	_, err := ing.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, rss.calls)
}

func TestIngesterUnknownKindAndInvalidSource(t *testing.T) {
	logger := zerolog.Nop()

	sources := []Source{
		testSource("scraper", KindScrape),
		{Name: "bad", Kind: KindRSS, URL: "not a url"},
	}

	ing := NewIngester(newMockRepo(), sources, map[Kind]Collector{}, nil, &logger)

	res, err := ing.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"scraper", "bad"}, res.FailedSources)
	assert.ErrorIs(t, res.Sources[0].Err, apperrors.ErrInvalidInput)
}

func TestIngesterCancelled(t *testing.T) {
	logger := zerolog.Nop()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ing := NewIngester(newMockRepo(), []Source{testSource("slaw", KindRSS)}, map[Kind]Collector{KindRSS: &stubCollector{}}, nil, &logger)

	_, err := ing.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestIngesterRefillsStoredContent(t *testing.T) {
	logger := zerolog.Nop()
	repo := newMockRepo()
	repo.InsertArticlesBatch(context.Background(), []domain.Article{
		article("slaw", "https://a/1", ""),
		article("slaw", "https://a/2", ""),
		article("slaw", "https://a/3", "already stored"),
	})

	content := &stubContent{bodies: map[string]string{"https://a/1": "late body"}}

	ing := NewIngester(repo, nil, map[Kind]Collector{}, content, &logger)

	res, err := ing.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Refilled)
	assert.Equal(t, []string{"https://a/1", "https://a/2"}, content.calls)
	assert.Equal(t, "late body", repo.byURL["https://a/1"].Content)
	assert.Empty(t, repo.byURL["https://a/2"].Content, "a fetch miss leaves the row for the next run")
	assert.Equal(t, "already stored", repo.byURL["https://a/3"].Content)

	second, err := ing.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Refilled)
	assert.Equal(t, []string{"https://a/1", "https://a/2", "https://a/2"}, content.calls)
}

func TestIngesterRefillStoreError(t *testing.T) {
	logger := zerolog.Nop()
	repo := newMockRepo()
	repo.missingErr = errors.New("relation does not exist")

	rss := &stubCollector{}
	ing := NewIngester(repo, []Source{testSource("slaw", KindRSS)}, map[Kind]Collector{KindRSS: rss}, &stubContent{}, &logger)

	_, err := ing.Run(context.Background())
	require.ErrorContains(t, err, "load articles missing content")
	assert.Empty(t, rss.calls)
}
