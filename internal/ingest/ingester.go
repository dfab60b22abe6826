package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/legal-digest/internal/core/domain"
	apperrors "github.com/lueurxax/legal-digest/internal/core/errors"
	"github.com/lueurxax/legal-digest/internal/platform/config"
	"github.com/lueurxax/legal-digest/internal/platform/observability"
	db "github.com/lueurxax/legal-digest/internal/storage"
)

// Repository is the slice of the store the ingester writes to.
type Repository interface {
	Ping(ctx context.Context) error
	InsertArticlesBatch(ctx context.Context, articles []domain.Article) db.BatchResult
	GetArticlesMissingContent(ctx context.Context, limit int) ([]domain.Article, error)
	UpdateArticleContent(ctx context.Context, id int64, content string) (bool, error)
}

// ContentSource fills in article bodies that collectors left empty.
type ContentSource interface {
	FetchContent(ctx context.Context, rawURL string) string
}

// SourceResult is the per-source outcome of one ingestion run.
type SourceResult struct {
	Name      string
	Kind      Kind
	Collected int
	Inserted  int
	Skipped   int
	Failed    int
	Err       error
}

// Result summarizes an ingestion run.
type Result struct {
	Sources        []SourceResult
	Inserted       int
	Skipped        int
	Refilled       int
	FailedSources  []string
	SkippedSources []string
	Duration       time.Duration
}

// Collected returns the number of candidate articles across all sources.
func (r Result) Collected() int {
	total := 0
	for _, s := range r.Sources {
		total += s.Collected
	}

	return total
}

// Ingester runs every configured source through its collector and stores the
// results. Source failures are contained; only store failures abort.
type Ingester struct {
	repo       Repository
	sources    []Source
	collectors map[Kind]Collector
	content    ContentSource
	logger     *zerolog.Logger
}

func NewIngester(repo Repository, sources []Source, collectors map[Kind]Collector, content ContentSource, logger *zerolog.Logger) *Ingester {
	return &Ingester{
		repo:       repo,
		sources:    sources,
		collectors: collectors,
		content:    content,
		logger:     logger,
	}
}

// NewDefaultIngester wires the standard collectors over one shared fetcher.
func NewDefaultIngester(repo Repository, sources []Source, cfg config.FetchConfig, logger *zerolog.Logger) *Ingester {
	fetcher := NewWebFetcher(cfg)

	maxPerSource := cfg.MaxPerSource
	if maxPerSource <= 0 {
		maxPerSource = defaultMaxPerSource
	}

	collectors := map[Kind]Collector{
		KindRSS:    NewRSSCollector(fetcher, maxPerSource, cfg.ContentMaxChars),
		KindAPI:    NewCanLIIDecisionCollector(fetcher, cfg.CanLIIAPIKey, maxPerSource),
		KindScrape: NewScrapeCollector(fetcher, maxPerSource),
	}

	content := NewContentFetcher(fetcher, NewContentExtractor(cfg.ContentMaxChars), logger)

	return NewIngester(repo, sources, collectors, content, logger)
}

// Run collects from every source in order. It returns an error only when the
// store is unusable or the context is cancelled; the partial result is kept.
func (i *Ingester) Run(ctx context.Context) (res Result, err error) {
	start := time.Now()

	defer func() {
		res.Duration = time.Since(start)
		observability.StageDurationSeconds.WithLabelValues(observability.StageFetch).Observe(res.Duration.Seconds())
	}()

	if err := i.repo.Ping(ctx); err != nil {
		return res, fmt.Errorf("store not ready: %w", err)
	}

	refilled, err := i.refillStored(ctx)
	if err != nil {
		return res, err
	}

	res.Refilled = refilled

	for _, src := range i.sources {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("fetch interrupted: %w", err)
		}

		sr := i.runSource(ctx, src)
		res.Sources = append(res.Sources, sr)
		res.Inserted += sr.Inserted
		res.Skipped += sr.Skipped

		switch {
		case sr.Err == nil:
		case errors.Is(sr.Err, apperrors.ErrMissingCredentials):
			res.SkippedSources = append(res.SkippedSources, src.Name)
		default:
			res.FailedSources = append(res.FailedSources, src.Name)
		}
	}

	i.logger.Info().
		Int(logKeyCount, res.Collected()).
		Int(logKeyInserted, res.Inserted).
		Int(logKeySkipped, res.Skipped).
		Int(logKeyRefilled, res.Refilled).
		Int(logKeyFailed, len(res.FailedSources)).
		Msg("fetch complete")

	return res, nil
}

func (i *Ingester) runSource(ctx context.Context, src Source) SourceResult {
	sr := SourceResult{Name: src.Name, Kind: src.Kind}
	logger := i.logger.With().Str(logKeySource, src.Name).Str(logKeyKind, string(src.Kind)).Logger()

	articles, err := i.collect(ctx, src)
	if err != nil {
		sr.Err = err

		if errors.Is(err, apperrors.ErrMissingCredentials) {
			logger.Warn().Err(err).Msg("source skipped")

			return sr
		}

		observability.CollectorFailures.WithLabelValues(src.Name, string(src.Kind)).Inc()
		logger.Error().Err(err).Msg("source failed")

		return sr
	}

	sr.Collected = len(articles)

	i.backfillContent(ctx, articles)

	now := time.Now().UTC()
	for idx := range articles {
		articles[idx].FetchedAt = now
	}

	batch := i.repo.InsertArticlesBatch(ctx, articles)
	sr.Inserted = batch.Inserted
	sr.Skipped = batch.Skipped
	sr.Failed = batch.Failed

	observability.ArticlesIngested.WithLabelValues(src.Name, outcomeInserted).Add(float64(batch.Inserted))
	observability.ArticlesIngested.WithLabelValues(src.Name, outcomeSkipped).Add(float64(batch.Skipped))

	logger.Info().
		Int(logKeyCount, sr.Collected).
		Int(logKeyInserted, sr.Inserted).
		Int(logKeySkipped, sr.Skipped).
		Msg("source collected")

	return sr
}

func (i *Ingester) collect(ctx context.Context, src Source) ([]domain.Article, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}

	c, ok := i.collectors[src.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: no collector for source type %q", apperrors.ErrInvalidInput, src.Kind)
	}

	return c.Collect(ctx, src)
}

// backfillContent fetches full text for articles that arrived without a body.
func (i *Ingester) backfillContent(ctx context.Context, articles []domain.Article) {
	if i.content == nil {
		return
	}

	for idx := range articles {
		if articles[idx].Content != "" || articles[idx].URL == "" {
			continue
		}

		if ctx.Err() != nil {
			return
		}

		articles[idx].Content = i.content.FetchContent(ctx, articles[idx].URL)
	}
}

// refillStored retries the body fetch for rows stored by earlier runs without
// content. Fetch misses leave the row as is for the next run.
func (i *Ingester) refillStored(ctx context.Context) (int, error) {
	if i.content == nil {
		return 0, nil
	}

	pending, err := i.repo.GetArticlesMissingContent(ctx, refillBatchSize)
	if err != nil {
		return 0, fmt.Errorf("load articles missing content: %w", err)
	}

	refilled := 0

	for _, a := range pending {
		if err := ctx.Err(); err != nil {
			return refilled, fmt.Errorf("refill interrupted: %w", err)
		}

		content := i.content.FetchContent(ctx, a.URL)
		if content == "" {
			continue
		}

		updated, err := i.repo.UpdateArticleContent(ctx, a.ID, content)
		if err != nil {
			i.logger.Error().Err(err).Int64(logKeyArticleID, a.ID).Str(logKeyURL, a.URL).Msg("failed to refill article content")

			continue
		}

		if updated {
			refilled++
		}
	}

	if len(pending) > 0 {
		i.logger.Info().Int(logKeyCount, len(pending)).Int(logKeyRefilled, refilled).Msg("stored content refill complete")
	}

	return refilled, nil
}

var _ Repository = (*db.DB)(nil)
