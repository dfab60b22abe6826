package synthesize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/lueurxax/legal-digest/internal/core/domain"
	apperrors "github.com/lueurxax/legal-digest/internal/core/errors"
	"github.com/lueurxax/legal-digest/internal/core/llm"
	"github.com/lueurxax/legal-digest/internal/platform/observability"
	db "github.com/lueurxax/legal-digest/internal/storage"
)

// Repository is the slice of the store the generator reads and writes.
type Repository interface {
	GetTopicByID(ctx context.Context, id int64) (*domain.Topic, error)
	GetSubtopicsForParent(ctx context.Context, parentID int64) ([]domain.TopicSummary, error)
	GetArticlesForTopic(ctx context.Context, topicID int64) ([]domain.Article, error)
	GetArticlesByIDs(ctx context.Context, ids []int64) ([]domain.Article, error)
	GetUngeneratedSubtopics(ctx context.Context, minScore, minArticles int) ([]domain.TopicSummary, error)
	TrackGeneration(ctx context.Context, g *domain.Generation) (int64, error)
}

// Client is the LLM surface the generator needs.
type Client interface {
	llm.Client
	HasAvailable(task llm.TaskType) bool
}

// Options tunes a Generator.
type Options struct {
	Model           string
	MaxTokens       int64
	MinContentChars int
}

// Request selects the source material for one synthesized article.
type Request struct {
	// TopicIDs are expanded: a parent contributes all of its subtopics.
	TopicIDs []int64
	// ArticleIDs are a hand-picked selection, tracked against no topic.
	ArticleIDs []int64
	// Model overrides Options.Model. Accepts the sonnet/haiku aliases.
	Model string
	// Title overrides the combined topic title.
	Title string
}

// Result describes a stored artifact.
type Result struct {
	Title       string
	Path        string
	MirrorURI   string
	Model       string
	SourceCount int
	WordCount   int
	TopicIDs    []int64
}

// Policy selects topics for automatic generation.
type Policy struct {
	MinScore    int
	MinArticles int
	MaxTopics   int
	// Model overrides Options.Model for every article in the pass.
	Model string
}

// AutoResult summarizes one AutoGenerate pass.
type AutoResult struct {
	Candidates   int
	Succeeded    int
	Failed       int
	StoppedEarly bool
	Artifacts    []*Result
}

// Generator turns topic coverage into long-form Markdown articles.
type Generator struct {
	repo   Repository
	client Client
	local  Sink
	mirror Sink
	opts   Options
	now    func() time.Time
	logger *zerolog.Logger
}

// New creates a Generator. mirror may be nil.
func New(repo Repository, client Client, local, mirror Sink, opts Options, logger *zerolog.Logger) *Generator {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}

	if opts.MinContentChars <= 0 {
		opts.MinContentChars = defaultMinContentChars
	}

	return &Generator{
		repo:   repo,
		client: client,
		local:  local,
		mirror: mirror,
		opts:   opts,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// ResolveModel maps the sonnet/haiku aliases to pinned model ids.
func ResolveModel(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case llm.AliasSonnet:
		return llm.ModelClaudeSonnet
	case llm.AliasHaiku:
		return llm.ModelClaudeHaiku
	default:
		return name
	}
}

type selection struct {
	title    string
	articles []domain.Article
	topicIDs []int64
}

// Generate synthesizes one article from the requested topics and articles.
// Nothing is written or recorded unless the model returns text.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	defer func() {
		observability.StageDurationSeconds.WithLabelValues(observability.StageSynthesize).Observe(time.Since(start).Seconds())
	}()

	if len(req.TopicIDs) == 0 && len(req.ArticleIDs) == 0 {
		return nil, fmt.Errorf("%w: no topics or articles selected", apperrors.ErrInvalidInput)
	}

	if !g.client.HasAvailable(llm.TaskTypeSynthesize) {
		return nil, fmt.Errorf("%w: no synthesis provider configured", apperrors.ErrMissingCredentials)
	}

	sel, err := g.selectArticles(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(sel.articles) == 0 {
		observability.Syntheses.WithLabelValues(statusEmpty).Inc()
		g.logger.Warn().Str(logKeyTitle, sel.title).Msg("no articles with substantial content")

		return nil, fmt.Errorf("synthesize %q: %w", sel.title, apperrors.ErrNoUsableArticles)
	}

	model := req.Model
	if model == "" {
		model = g.opts.Model
	}

	model = ResolveModel(model)

	g.logger.Info().
		Str(logKeyTitle, sel.title).
		Int(logKeySources, len(sel.articles)).
		Str(logKeyModel, model).
		Msg("synthesizing article")

	resp, err := g.client.Complete(ctx, llm.Request{
		Task:      llm.TaskTypeSynthesize,
		Prompt:    BuildPrompt(sel.title, sel.articles),
		Model:     model,
		MaxTokens: g.opts.MaxTokens,
	})
	if err != nil {
		status := statusError
		if llm.IsQuota(err) {
			status = statusQuota
		}

		observability.Syntheses.WithLabelValues(status).Inc()

		return nil, fmt.Errorf("synthesize %q: %w", sel.title, err)
	}

	if strings.TrimSpace(resp.Text) == "" {
		observability.Syntheses.WithLabelValues(statusError).Inc()

		return nil, fmt.Errorf("synthesize %q: %w", sel.title, apperrors.ErrEmptyResponse)
	}

	if resp.Model != "" {
		model = resp.Model
	}

	res, err := g.store(ctx, sel, resp.Text, model)
	if err != nil {
		observability.Syntheses.WithLabelValues(statusError).Inc()

		return res, err
	}

	observability.Syntheses.WithLabelValues(statusSuccess).Inc()

	g.logger.Info().
		Str(logKeyTitle, res.Title).
		Str(logKeyPath, res.Path).
		Int("word_count", res.WordCount).
		Msg("article generated")

	return res, nil
}

func (g *Generator) store(ctx context.Context, sel selection, text, model string) (*Result, error) {
	art := &Artifact{
		Title:       sel.title,
		Body:        text,
		Model:       model,
		Sources:     sel.articles,
		GeneratedAt: g.now(),
		WordCount:   WordCount(text),
	}

	body, err := art.Render()
	if err != nil {
		return nil, err
	}

	path, err := g.local.Put(ctx, art.FileName(), body)
	if err != nil {
		return nil, fmt.Errorf("save artifact: %w", err)
	}

	res := &Result{
		Title:       art.Title,
		Path:        path,
		Model:       model,
		SourceCount: len(sel.articles),
		WordCount:   art.WordCount,
		TopicIDs:    sel.topicIDs,
	}

	if g.mirror != nil {
		uri, err := g.mirror.Put(ctx, art.FileName(), body)
		if err != nil {
			g.logger.Warn().Err(err).Str(logKeyPath, path).Msg("artifact mirror failed")
		} else {
			res.MirrorURI = uri
		}
	}

	for _, id := range sel.topicIDs {
		if _, err := g.repo.TrackGeneration(ctx, &domain.Generation{
			TopicID:     id,
			GeneratedAt: art.GeneratedAt,
			OutputPath:  path,
			Model:       model,
			SourceCount: res.SourceCount,
			WordCount:   res.WordCount,
		}); err != nil {
			return res, fmt.Errorf("track generation for topic %d: %w", id, err)
		}
	}

	return res, nil
}

func (g *Generator) selectArticles(ctx context.Context, req Request) (selection, error) {
	var (
		sel       selection
		names     []string
		candidate []domain.Article
	)

	seenTopics := make(map[int64]bool)
	addTopic := func(id int64) bool {
		if seenTopics[id] {
			return false
		}

		seenTopics[id] = true
		sel.topicIDs = append(sel.topicIDs, id)

		return true
	}

	for _, id := range req.TopicIDs {
		topic, err := g.repo.GetTopicByID(ctx, id)
		if errors.Is(err, apperrors.ErrNotFound) {
			g.logger.Warn().Int64(logKeyTopicID, id).Msg("topic not found, skipping")

			continue
		}

		if err != nil {
			return sel, fmt.Errorf("load topic %d: %w", id, err)
		}

		if !addTopic(topic.ID) {
			continue
		}

		names = append(names, topic.Name)

		ids := []int64{topic.ID}

		if topic.IsParent {
			subs, err := g.repo.GetSubtopicsForParent(ctx, topic.ID)
			if err != nil {
				return sel, fmt.Errorf("load subtopics of %d: %w", topic.ID, err)
			}

			for _, s := range subs {
				if addTopic(s.ID) {
					ids = append(ids, s.ID)
				}
			}
		}

		for _, tid := range ids {
			articles, err := g.repo.GetArticlesForTopic(ctx, tid)
			if err != nil {
				return sel, fmt.Errorf("load articles for topic %d: %w", tid, err)
			}

			candidate = append(candidate, articles...)
		}
	}

	if len(req.ArticleIDs) > 0 {
		articles, err := g.repo.GetArticlesByIDs(ctx, req.ArticleIDs)
		if err != nil {
			return sel, fmt.Errorf("load selected articles: %w", err)
		}

		if len(articles) < len(req.ArticleIDs) {
			g.logger.Warn().
				Int("requested", len(req.ArticleIDs)).
				Int("found", len(articles)).
				Msg("some selected articles were not found")
		}

		candidate = append(candidate, articles...)
	}

	sel.title = req.Title
	if sel.title == "" {
		sel.title = CombinedTitle(names)
	}

	sel.articles = g.usable(candidate)

	return sel, nil
}

// usable drops repeated URLs and articles too thin to synthesize from.
// Content must be strictly longer than MinContentChars.
func (g *Generator) usable(articles []domain.Article) []domain.Article {
	seen := make(map[string]bool, len(articles))
	out := make([]domain.Article, 0, len(articles))

	for _, a := range articles {
		if seen[a.URL] {
			continue
		}

		seen[a.URL] = true

		if utf8.RuneCountInString(strings.TrimSpace(a.Content)) <= g.opts.MinContentChars {
			continue
		}

		out = append(out, a)
	}

	return out
}

// AutoGenerate synthesizes the best-covered subtopics that have never been
// generated, one article per subtopic. Quota exhaustion ends the pass early
// without an error.
func (g *Generator) AutoGenerate(ctx context.Context, p Policy) (AutoResult, error) {
	var res AutoResult

	candidates, err := g.repo.GetUngeneratedSubtopics(ctx, p.MinScore, p.MinArticles)
	if err != nil {
		return res, fmt.Errorf("select topics: %w", err)
	}

	if p.MaxTopics > 0 && len(candidates) > p.MaxTopics {
		candidates = candidates[:p.MaxTopics]
	}

	res.Candidates = len(candidates)

	for _, t := range candidates {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, fmt.Errorf("generation interrupted: %w", ctxErr)
		}

		art, err := g.Generate(ctx, Request{TopicIDs: []int64{t.ID}, Model: p.Model})
		if err != nil {
			res.Failed++

			g.logger.Error().Err(err).Int64(logKeyTopicID, t.ID).Str(logKeyTitle, t.Name).Msg("auto-generation failed")

			if llm.IsQuota(err) {
				res.StoppedEarly = true

				g.logger.Warn().Msg("synthesis quota exhausted, stopping auto-generation")

				return res, nil
			}

			if errors.Is(err, apperrors.ErrMissingCredentials) {
				return res, err
			}

			continue
		}

		res.Succeeded++
		res.Artifacts = append(res.Artifacts, art)
	}

	return res, nil
}

var (
	_ Repository = (*db.DB)(nil)
	_ Client     = (*llm.Registry)(nil)
	_ Sink       = (*FileSink)(nil)
	_ Sink       = (*S3Sink)(nil)
)
