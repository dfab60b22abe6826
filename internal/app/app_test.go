package app

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/legal-digest/internal/core/domain"
	"github.com/lueurxax/legal-digest/internal/ingest"
	"github.com/lueurxax/legal-digest/internal/pipeline"
	"github.com/lueurxax/legal-digest/internal/platform/config"
)

type fakeTopics struct {
	parents []domain.TopicSummary
	subs    map[int64][]domain.TopicSummary
	gens    []domain.Generation
	topic   *domain.Topic
	arts    []domain.Article
	err     error
}

func (f *fakeTopics) GetParentTopics(context.Context) ([]domain.TopicSummary, error) {
	return f.parents, f.err
}

func (f *fakeTopics) GetSubtopicsForParent(_ context.Context, id int64) ([]domain.TopicSummary, error) {
	return f.subs[id], nil
}

func (f *fakeTopics) GetGeneratedTopics(context.Context) ([]domain.Generation, error) {
	return f.gens, nil
}

func (f *fakeTopics) GetTopicByID(context.Context, int64) (*domain.Topic, error) {
	return f.topic, f.err
}

func (f *fakeTopics) GetArticlesForTopic(context.Context, int64) ([]domain.Article, error) {
	return f.arts, nil
}

func TestWriteTopicTree(t *testing.T) {
	f := &fakeTopics{
		parents: []domain.TopicSummary{
			{Topic: domain.Topic{ID: 1, Name: "Employment & Labour Law", RelevanceScore: 10, IsParent: true}, ArticleCount: 4},
		},
		subs: map[int64][]domain.TopicSummary{
			1: {
				{Topic: domain.Topic{ID: 2, Name: "Wrongful Dismissal", RelevanceScore: 9}, ArticleCount: 3},
				{Topic: domain.Topic{ID: 3, Name: "Pay Equity", RelevanceScore: 7}, ArticleCount: 1},
			},
		},
		gens: []domain.Generation{{TopicID: 2}},
	}

	var buf bytes.Buffer
	require.NoError(t, writeTopicTree(context.Background(), f, &buf))

	out := buf.String()
	assert.Contains(t, out, "Employment & Labour Law (10/10 SMB) - 4 articles [ID: 1]")
	assert.Contains(t, out, "├── Wrongful Dismissal (9/10) - 3 articles [ID: 2] [generated]")
	assert.Contains(t, out, "└── Pay Equity (7/10) - 1 articles [ID: 3]\n")
	assert.Contains(t, out, "Total: 1 parent categories")
}

func TestWriteTopicTreeEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeTopicTree(context.Background(), &fakeTopics{}, &buf))
	assert.Contains(t, buf.String(), "No topics yet")
}

func TestWriteTopicTreeError(t *testing.T) {
	var buf bytes.Buffer
	err := writeTopicTree(context.Background(), &fakeTopics{err: errors.New("connection refused")}, &buf)
	require.ErrorContains(t, err, "get parent topics")
}

func TestWriteTopicArticles(t *testing.T) {
	f := &fakeTopics{
		topic: &domain.Topic{ID: 2, Name: "Wrongful Dismissal"},
		arts: []domain.Article{
			{Title: "Court awards damages", Source: "Slaw", URL: "https://slaw.ca/a", Published: "2026-01-15T09:00:00Z", Summary: "  A short summary.  "},
			{Title: "Undated", Source: "CanLII", URL: "https://canlii.org/b"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, writeTopicArticles(context.Background(), f, &buf, 2))

	out := buf.String()
	assert.Contains(t, out, "Articles for: Wrongful Dismissal (2 articles)")
	assert.Contains(t, out, "Source: Slaw | Published: 2026-01-15\n")
	assert.Contains(t, out, "Source: CanLII | Published: Unknown\n")
	assert.Contains(t, out, "Summary: A short summary.\n")
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abc", 5))
	assert.Equal(t, "éé...", truncateRunes("éééé", 2))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, statusError, statusFor(nil, errors.New("boom")))
	assert.Equal(t, pipeline.StatusPartial, statusFor(nil, context.Canceled))
	assert.Equal(t, statusSkipped, statusFor(nil, nil))
	assert.Equal(t, pipeline.StatusPartial, statusFor(&pipeline.Result{Fetch: &ingest.Result{FailedSources: []string{"Slaw"}}}, nil))
	assert.Equal(t, pipeline.StatusPartial, statusFor(&pipeline.Result{GenerateStoppedEarly: true}, nil))
	assert.Equal(t, pipeline.StatusSuccess, statusFor(&pipeline.Result{}, nil))
}

func TestDefaultPolicy(t *testing.T) {
	a := New(&config.Config{AutoMinScore: 8, AutoMinArticles: 3, AutoMaxTopics: 5}, nil, nil)

	p := a.DefaultPolicy()
	assert.Equal(t, 8, p.MinScore)
	assert.Equal(t, 3, p.MinArticles)
	assert.Equal(t, 5, p.MaxTopics)
	assert.Empty(t, p.Model)
}

func TestIsCleanStop(t *testing.T) {
	assert.True(t, IsCleanStop(nil))
	assert.True(t, IsCleanStop(context.Canceled))
	assert.False(t, IsCleanStop(errors.New("boom")))
}
