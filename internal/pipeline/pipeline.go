package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lueurxax/legal-digest/internal/classify"
	"github.com/lueurxax/legal-digest/internal/core/domain"
	"github.com/lueurxax/legal-digest/internal/core/llm"
	"github.com/lueurxax/legal-digest/internal/ingest"
	"github.com/lueurxax/legal-digest/internal/platform/observability"
	db "github.com/lueurxax/legal-digest/internal/storage"
	"github.com/lueurxax/legal-digest/internal/synthesize"
)

// Repository is the read side used for the end-of-run report.
type Repository interface {
	GetStats(ctx context.Context) (domain.Stats, error)
	GetTopicsWithMetadata(ctx context.Context) ([]domain.TopicSummary, error)
}

// Fetcher runs the ingestion stage.
type Fetcher interface {
	Run(ctx context.Context) (ingest.Result, error)
}

// Classifier runs the classification stage.
type Classifier interface {
	Run(ctx context.Context) (classify.Result, error)
}

// Generator runs policy-driven synthesis.
type Generator interface {
	AutoGenerate(ctx context.Context, p synthesize.Policy) (synthesize.AutoResult, error)
}

// Options selects which stages run.
type Options struct {
	SkipFetch    bool
	SkipClassify bool
	SkipGenerate bool
	// AutoGenerate enables synthesis; nil skips the stage.
	AutoGenerate *synthesize.Policy
	// Model overrides the synthesis model.
	Model string
}

// Result collects what each stage did plus the final store snapshot.
type Result struct {
	RunID                string
	Fetch                *ingest.Result
	Classify             *classify.Result
	ClassifyStoppedEarly bool
	Generate             *synthesize.AutoResult
	GenerateStoppedEarly bool
	Stats                domain.Stats
	TopTopics            []domain.TopicSummary
	Artifacts            []string
	Duration             time.Duration
}

// Pipeline runs fetch, classify and generate in order. Every stage commits
// per unit of work, so a rerun resumes where the last one stopped.
type Pipeline struct {
	repo       Repository
	fetcher    Fetcher
	classifier Classifier
	generator  Generator
	logger     *zerolog.Logger
}

func New(repo Repository, fetcher Fetcher, classifier Classifier, generator Generator, logger *zerolog.Logger) *Pipeline {
	return &Pipeline{
		repo:       repo,
		fetcher:    fetcher,
		classifier: classifier,
		generator:  generator,
		logger:     logger,
	}
}

// Run executes one pass. A fetch failure halts the run. Quota exhaustion in
// classification or synthesis is recorded on the result and the run
// continues; any other stage error halts it. The partial result is always
// returned.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: uuid.New().String()}
	logger := p.logger.With().Str(LogFieldRunID, res.RunID).Logger()

	logger.Info().
		Bool("skip_fetch", opts.SkipFetch).
		Bool("skip_classify", opts.SkipClassify).
		Bool("auto_generate", opts.AutoGenerate != nil && !opts.SkipGenerate).
		Msg("starting pipeline run")

	err := p.runStages(ctx, opts, res, &logger)

	if statsErr := p.collectReport(ctx, res); statsErr != nil {
		logger.Warn().Err(statsErr).Msg("failed to collect pipeline summary")

		if err == nil {
			err = statsErr
		}
	}

	res.Duration = time.Since(start)
	observability.StageDurationSeconds.WithLabelValues(observability.StagePipeline).Observe(res.Duration.Seconds())
	observability.LastRunTimestamp.WithLabelValues(res.status(err)).SetToCurrentTime()

	if err != nil {
		logger.Error().Err(err).Dur("duration", res.Duration).Msg("pipeline run failed")

		return res, err
	}

	logger.Info().Dur("duration", res.Duration).Msg("pipeline run complete")

	return res, nil
}

func (p *Pipeline) runStages(ctx context.Context, opts Options, res *Result, logger *zerolog.Logger) error {
	if !opts.SkipFetch {
		logger.Info().Str(LogFieldStage, stageFetch).Msg("stage started")

		fetched, err := p.fetcher.Run(ctx)
		res.Fetch = &fetched

		if err != nil {
			return fmt.Errorf("%s stage: %w", stageFetch, err)
		}
	}

	if !opts.SkipClassify {
		logger.Info().Str(LogFieldStage, stageClassify).Msg("stage started")

		classified, err := p.classifier.Run(ctx)
		res.Classify = &classified

		switch {
		case err == nil:
		case classify.IsQuotaStop(err) || llm.IsQuota(err):
			res.ClassifyStoppedEarly = true

			logger.Warn().Err(err).Int("remaining", classified.Remaining).Msg("classification stopped on quota, continuing")
		default:
			return fmt.Errorf("%s stage: %w", stageClassify, err)
		}
	}

	if opts.SkipGenerate || opts.AutoGenerate == nil {
		return nil
	}

	logger.Info().Str(LogFieldStage, stageGenerate).Msg("stage started")

	policy := *opts.AutoGenerate
	if opts.Model != "" {
		policy.Model = opts.Model
	}

	generated, err := p.generator.AutoGenerate(ctx, policy)
	res.Generate = &generated
	res.GenerateStoppedEarly = generated.StoppedEarly

	for _, a := range generated.Artifacts {
		res.Artifacts = append(res.Artifacts, a.Path)
	}

	switch {
	case err == nil:
		return nil
	case llm.IsQuota(err):
		res.GenerateStoppedEarly = true

		logger.Warn().Err(err).Msg("synthesis stopped on quota")

		return nil
	default:
		return fmt.Errorf("%s stage: %w", stageGenerate, err)
	}
}

func (p *Pipeline) collectReport(ctx context.Context, res *Result) error {
	// The report must survive a cancelled run.
	ctx = context.WithoutCancel(ctx)

	stats, err := p.repo.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	res.Stats = stats

	topics, err := p.repo.GetTopicsWithMetadata(ctx)
	if err != nil {
		return fmt.Errorf("get topics: %w", err)
	}

	res.TopTopics = TopTopics(topics, topTopicsLimit)

	return nil
}

// TopTopics returns the n best-covered topics, ties broken by id.
func TopTopics(topics []domain.TopicSummary, n int) []domain.TopicSummary {
	sorted := make([]domain.TopicSummary, len(topics))
	copy(sorted, topics)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ArticleCount != sorted[j].ArticleCount {
			return sorted[i].ArticleCount > sorted[j].ArticleCount
		}

		return sorted[i].ID < sorted[j].ID
	})

	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}

	return sorted
}

func (r *Result) status(err error) string {
	switch {
	case err != nil && !errors.Is(err, context.Canceled):
		return StatusError
	case err != nil, r.ClassifyStoppedEarly, r.GenerateStoppedEarly:
		return StatusPartial
	case r.Fetch != nil && len(r.Fetch.FailedSources) > 0:
		return StatusPartial
	default:
		return StatusSuccess
	}
}

var _ Repository = (*db.DB)(nil)
