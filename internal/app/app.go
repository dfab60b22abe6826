// Package app provides the main application bootstrap and runtime orchestration.
//
// The App type wires together all dependencies and exposes methods to run
// different operational modes:
//
//   - Run mode: one pipeline pass (fetch, classify, optional synthesis)
//   - Stage modes: fetch, classify or generate on their own
//   - Schedule mode: the pipeline on a cron expression, with a health server
//   - Report modes: store statistics and the topic hierarchy
//
// Each mode is a single method so the command layer stays a flag switch.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/legal-digest/internal/classify"
	"github.com/lueurxax/legal-digest/internal/core/llm"
	"github.com/lueurxax/legal-digest/internal/ingest"
	"github.com/lueurxax/legal-digest/internal/pipeline"
	"github.com/lueurxax/legal-digest/internal/platform/config"
	"github.com/lueurxax/legal-digest/internal/platform/observability"
	"github.com/lueurxax/legal-digest/internal/platform/schedule"
	db "github.com/lueurxax/legal-digest/internal/storage"
	"github.com/lueurxax/legal-digest/internal/synthesize"
)

const (
	logFieldStatus  = "status"
	logFieldSources = "sources"
	logFieldBucket  = "bucket"

	statusSkipped = "skipped"
	statusError   = "error"

	topTopicsLimit = 10
)

// App holds the application dependencies and provides methods to run different modes.
type App struct {
	cfg      *config.Config
	database *db.DB
	logger   *zerolog.Logger
}

// New creates a new App instance with the given dependencies.
func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) *App {
	return &App{
		cfg:      cfg,
		database: database,
		logger:   logger,
	}
}

// DefaultPolicy returns the auto-generation policy from configuration.
func (a *App) DefaultPolicy() synthesize.Policy {
	sc := a.cfg.SynthesisCfg()

	return synthesize.Policy{
		MinScore:    sc.AutoMinScore,
		MinArticles: sc.AutoMinArticles,
		MaxTopics:   sc.AutoMaxTopics,
	}
}

// RunPipeline executes one full pass and returns its report.
func (a *App) RunPipeline(ctx context.Context, opts pipeline.Options) (*pipeline.Result, error) {
	p, closeFn, err := a.newPipeline(ctx)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	return p.Run(ctx, opts)
}

// RunFetch runs the ingestion stage only.
func (a *App) RunFetch(ctx context.Context) (ingest.Result, error) {
	ingester, err := a.newIngester()
	if err != nil {
		return ingest.Result{}, err
	}

	return ingester.Run(ctx)
}

// RunClassify runs the classification stage only.
func (a *App) RunClassify(ctx context.Context) (classify.Result, error) {
	reg, closeFn, err := a.newLLMRegistry(ctx)
	if err != nil {
		return classify.Result{}, err
	}
	defer closeFn()

	return a.newClassifier(reg).Run(ctx)
}

// RunGenerate synthesizes one article from explicit topics or articles.
func (a *App) RunGenerate(ctx context.Context, req synthesize.Request) (*synthesize.Result, error) {
	gen, closeFn, err := a.newGenerator(ctx)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	return gen.Generate(ctx, req)
}

// RunAutoGenerate synthesizes every topic the policy selects.
func (a *App) RunAutoGenerate(ctx context.Context, policy synthesize.Policy) (synthesize.AutoResult, error) {
	gen, closeFn, err := a.newGenerator(ctx)
	if err != nil {
		return synthesize.AutoResult{}, err
	}
	defer closeFn()

	return gen.AutoGenerate(ctx, policy)
}

// RunSchedule runs the pipeline on the configured cron expression until ctx
// is cancelled. Overlapping runs across processes are prevented with a
// database advisory lock.
func (a *App) RunSchedule(ctx context.Context) error {
	sched, err := schedule.New(a.cfg.ScheduleCron, a.cfg.ScheduleTimezone, a.logger)
	if err != nil {
		return fmt.Errorf("schedule init: %w", err)
	}

	p, closeFn, err := a.newPipeline(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	health := observability.NewServer(a.database, a.cfg.HealthPort, a.logger)

	go func() {
		if err := health.Start(ctx); err != nil {
			a.logger.Error().Err(err).Msg("health server stopped")
		}
	}()

	opts := pipeline.Options{}
	if a.cfg.ScheduleAutoGenerate {
		policy := a.DefaultPolicy()
		opts.AutoGenerate = &policy
	}

	return sched.Run(ctx, func(ctx context.Context) error {
		return a.scheduledRun(ctx, p, health, opts)
	})
}

func (a *App) scheduledRun(ctx context.Context, p *pipeline.Pipeline, health *observability.Server, opts pipeline.Options) error {
	started := time.Now()
	health.SetStatus(observability.RunStatus{Running: true, LastRunAt: started, LastStatus: health.Status().LastStatus})

	var res *pipeline.Result

	acquired, err := a.database.WithAdvisoryLock(ctx, db.RunLockID, func(ctx context.Context) error {
		var runErr error

		res, runErr = p.Run(ctx, opts)

		return runErr
	})

	status := statusFor(res, err)
	if !acquired && err == nil {
		status = statusSkipped

		a.logger.Info().Msg("another pipeline run holds the lock, skipping")
	}

	health.SetStatus(observability.RunStatus{Running: false, LastRunAt: started, LastStatus: status})
	a.logger.Info().Str(logFieldStatus, status).Msg("scheduled run finished")

	return err
}

func statusFor(res *pipeline.Result, err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return pipeline.StatusPartial
	case err != nil:
		return statusError
	case res == nil:
		return statusSkipped
	case res.ClassifyStoppedEarly || res.GenerateStoppedEarly:
		return pipeline.StatusPartial
	case res.Fetch != nil && len(res.Fetch.FailedSources) > 0:
		return pipeline.StatusPartial
	default:
		return pipeline.StatusSuccess
	}
}

// WriteStats prints a store snapshot.
func (a *App) WriteStats(ctx context.Context, w io.Writer) error {
	stats, err := a.database.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	topics, err := a.database.GetTopicsWithMetadata(ctx)
	if err != nil {
		return fmt.Errorf("get topics: %w", err)
	}

	fmt.Fprintf(w, "Articles:     %d total, %d unprocessed\n", stats.TotalArticles, stats.UnprocessedArticles)
	fmt.Fprintf(w, "Topics:       %d\n", stats.TotalTopics)
	fmt.Fprintf(w, "Links:        %d\n", stats.TotalLinks)
	fmt.Fprintf(w, "Generations:  %d\n", stats.TotalGenerations)

	top := pipeline.TopTopics(topics, topTopicsLimit)
	if len(top) == 0 {
		return nil
	}

	fmt.Fprintln(w, "\nTop topics:")

	for i, t := range top {
		fmt.Fprintf(w, "  %d. %s - %d articles (SMB: %d/10)\n", i+1, t.Name, t.ArticleCount, t.RelevanceScore)
	}

	return nil
}

// ResetTopics clears classification output so the next run reclassifies
// every article.
func (a *App) ResetTopics(ctx context.Context) (db.ResetResult, error) {
	res, err := a.database.ResetTopics(ctx)
	if err != nil {
		return res, fmt.Errorf("reset topics: %w", err)
	}

	a.logger.Info().
		Int64("generations", res.GenerationsDeleted).
		Int64("links", res.LinksDeleted).
		Int64("topics", res.TopicsDeleted).
		Int64("articles", res.ArticlesReset).
		Msg("topics reset")

	return res, nil
}

// ResetAll removes every row from the store.
func (a *App) ResetAll(ctx context.Context) error {
	if err := a.database.ResetAll(ctx); err != nil {
		return fmt.Errorf("reset all: %w", err)
	}

	a.logger.Warn().Msg("store wiped")

	return nil
}

func (a *App) newPipeline(ctx context.Context) (*pipeline.Pipeline, func(), error) {
	ingester, err := a.newIngester()
	if err != nil {
		return nil, nil, err
	}

	reg, closeFn, err := a.newLLMRegistry(ctx)
	if err != nil {
		return nil, nil, err
	}

	gen, err := a.buildGenerator(ctx, reg)
	if err != nil {
		closeFn()

		return nil, nil, err
	}

	return pipeline.New(a.database, ingester, a.newClassifier(reg), gen, a.logger), closeFn, nil
}

func (a *App) newIngester() (*ingest.Ingester, error) {
	fc := a.cfg.FetchCfg()

	sources, err := ingest.LoadSources(fc.SourcesFile)
	if err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}

	a.logger.Debug().Int(logFieldSources, len(sources)).Msg("sources loaded")

	return ingest.NewDefaultIngester(a.database, sources, fc, a.logger), nil
}

func (a *App) newClassifier(reg *llm.Registry) *classify.Classifier {
	return classify.New(a.database, reg, classify.Options{
		MaxContentChars: a.cfg.ContentMaxChars,
		QuotaStopAfter:  a.cfg.QuotaStopAfter,
	}, a.logger)
}

func (a *App) newGenerator(ctx context.Context) (*synthesize.Generator, func(), error) {
	reg, closeFn, err := a.newLLMRegistry(ctx)
	if err != nil {
		return nil, nil, err
	}

	gen, err := a.buildGenerator(ctx, reg)
	if err != nil {
		closeFn()

		return nil, nil, err
	}

	return gen, closeFn, nil
}

func (a *App) buildGenerator(ctx context.Context, reg *llm.Registry) (*synthesize.Generator, error) {
	sc := a.cfg.SynthesisCfg()
	lc := a.cfg.LLMCfg()

	local := synthesize.NewFileSink(sc.OutputDir)

	var mirror synthesize.Sink

	if s3cfg := a.cfg.S3Cfg(); s3cfg.Enabled() {
		s3Sink, err := synthesize.NewS3Sink(ctx, s3cfg)
		if err != nil {
			return nil, fmt.Errorf("s3 mirror: %w", err)
		}

		mirror = s3Sink

		a.logger.Info().Str(logFieldBucket, s3cfg.Bucket).Msg("mirroring artifacts to S3")
	}

	return synthesize.New(a.database, reg, local, mirror, synthesize.Options{
		Model:           lc.SynthModel,
		MaxTokens:       lc.SynthMaxTokens,
		MinContentChars: sc.MinContentChars,
	}, a.logger), nil
}

// newLLMRegistry registers every provider. Providers without a key stay
// registered but report unavailable, so the task chains skip them.
func (a *App) newLLMRegistry(ctx context.Context) (*llm.Registry, func(), error) {
	lc := a.cfg.LLMCfg()

	reg := llm.NewRegistry(a.logger,
		llm.WithTaskConfig(llm.TaskConfigFromModels(
			lc.ClassifyModel, lc.ClassifyFallbackModel,
			lc.SynthModel, lc.SynthFallbackModel,
		)),
		llm.WithRetry(llm.RetryConfig{
			MaxAttempts: lc.RetryMaxAttempts,
			MinWait:     lc.RetryMinWait,
			MaxWait:     lc.RetryMaxWait,
		}),
		llm.WithTimeout(lc.Timeout),
	)

	breaker := llm.CircuitBreakerConfig{Threshold: lc.CircuitThreshold, ResetAfter: lc.CircuitResetAfter}

	google, err := llm.NewGoogleProvider(ctx, lc, a.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("google provider: %w", err)
	}

	reg.Register(google, breaker)
	reg.Register(llm.NewAnthropicProvider(lc, a.logger), breaker)
	reg.Register(llm.NewOpenAIProvider(lc, a.logger), breaker)

	closeFn := func() {
		if err := google.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("failed to close google client")
		}
	}

	return reg, closeFn, nil
}

// IsCleanStop reports whether err only signals shutdown.
func IsCleanStop(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}
