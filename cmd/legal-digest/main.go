package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/legal-digest/internal/app"
	"github.com/lueurxax/legal-digest/internal/pipeline"
	"github.com/lueurxax/legal-digest/internal/platform/config"
	db "github.com/lueurxax/legal-digest/internal/storage"
	"github.com/lueurxax/legal-digest/internal/synthesize"
)

const usage = "Usage: %s -mode=[run|fetch|classify|generate|stats|topics|reset-topics|reset-all|schedule|migrate]"

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

var (
	errConfirmRequired = errors.New("destructive mode requires -yes")
	errUnknownMode     = errors.New("unknown mode")
)

type flags struct {
	mode         string
	skipFetch    bool
	skipClassify bool
	skipGenerate bool
	autoGenerate bool
	minScore     int
	minArticles  int
	maxTopics    int
	model        string
	topics       string
	articles     string
	title        string
	topicID      int64
	yes          bool
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run owns every deferred cleanup so os.Exit is only reached after they ran.
func run(args []string) int {
	f, err := parseFlags(args)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}

	if err != nil {
		if errors.Is(err, errUnknownMode) {
			fmt.Fprintln(os.Stderr, err)
		}

		fmt.Fprintf(os.Stderr, usage+"\n", os.Args[0])

		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)

		return exitFailure
	}

	logger := newLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbCfg := cfg.DatabaseCfg()
	poolOpts := db.PoolOptions{
		MaxConns:          dbCfg.MaxConnections,
		MinConns:          dbCfg.MinConnections,
		MaxConnIdleTime:   dbCfg.MaxConnIdleTime,
		MaxConnLifetime:   dbCfg.MaxConnLifetime,
		HealthCheckPeriod: dbCfg.HealthCheckPeriod,
	}

	database, err := db.NewWithOptions(ctx, dbCfg.PostgresDSN, poolOpts, &logger)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")

		return exitFailure
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to run migrations")

		return exitFailure
	}

	application := app.New(cfg, database, &logger)

	if err := runMode(ctx, application, f); err != nil {
		if app.IsCleanStop(err) {
			logger.Info().Msg("application stopped")

			return exitOK
		}

		logger.Error().Err(err).Msg("application error")

		return exitFailure
	}

	return exitOK
}

func parseFlags(args []string) (flags, error) {
	f := flags{}
	fs := flag.NewFlagSet("legal-digest", flag.ContinueOnError)

	fs.StringVar(&f.mode, "mode", "run", "Service mode (run, fetch, classify, generate, stats, topics, reset-topics, reset-all, schedule, migrate)")
	fs.BoolVar(&f.skipFetch, "skip-fetch", false, "Skip the fetch stage (run mode)")
	fs.BoolVar(&f.skipClassify, "skip-classify", false, "Skip the classify stage (run mode)")
	fs.BoolVar(&f.skipGenerate, "skip-generate", false, "Skip synthesis even with -auto-generate (run mode)")
	fs.BoolVar(&f.autoGenerate, "auto-generate", false, "Synthesize articles for top ungenerated subtopics")
	fs.IntVar(&f.minScore, "min-score", -1, "Minimum SMB relevance for auto-generation (default from config)")
	fs.IntVar(&f.minArticles, "min-articles", -1, "Minimum linked articles for auto-generation (default from config)")
	fs.IntVar(&f.maxTopics, "max-topics", -1, "Maximum topics per auto-generation run (default from config)")
	fs.StringVar(&f.model, "model", "", "Synthesis model or alias (sonnet, haiku)")
	fs.StringVar(&f.topics, "topics", "", "Comma-separated topic ids to synthesize (generate mode)")
	fs.StringVar(&f.articles, "articles", "", "Comma-separated article ids to synthesize (generate mode)")
	fs.StringVar(&f.title, "title", "", "Title for a custom synthesis (generate mode)")
	fs.Int64Var(&f.topicID, "topic", 0, "List the articles of one topic (topics mode)")
	fs.BoolVar(&f.yes, "yes", false, "Confirm destructive reset modes")

	if err := fs.Parse(args); err != nil {
		return f, err
	}

	if !validMode(f.mode) {
		return f, fmt.Errorf("%w: %q", errUnknownMode, f.mode)
	}

	return f, nil
}

func newLogger(appEnv, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(lvl)

	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func runMode(ctx context.Context, application *app.App, f flags) error {
	switch f.mode {
	case "run":
		return runPipeline(ctx, application, f)
	case "fetch":
		res, err := application.RunFetch(ctx)
		fmt.Printf("Fetch: %d collected, %d new, %d duplicates, %d refilled\n", res.Collected(), res.Inserted, res.Skipped, res.Refilled)

		return err
	case "classify":
		res, err := application.RunClassify(ctx)
		fmt.Printf("Classify: %d classified, %d failed, %d remaining\n", res.Succeeded, res.Failed, res.Remaining)

		return err
	case "generate":
		return runGenerate(ctx, application, f)
	case "stats":
		return application.WriteStats(ctx, os.Stdout)
	case "topics":
		if f.topicID > 0 {
			return application.WriteTopicArticles(ctx, os.Stdout, f.topicID)
		}

		return application.WriteTopics(ctx, os.Stdout)
	case "reset-topics":
		if !f.yes {
			return errConfirmRequired
		}

		res, err := application.ResetTopics(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("Deleted %d generations, %d links, %d topics; %d articles marked unprocessed\n",
			res.GenerationsDeleted, res.LinksDeleted, res.TopicsDeleted, res.ArticlesReset)

		return nil
	case "reset-all":
		if !f.yes {
			return errConfirmRequired
		}

		return application.ResetAll(ctx)
	case "schedule":
		return application.RunSchedule(ctx)
	case "migrate":
		return nil
	default:
		return fmt.Errorf("%w: %q", errUnknownMode, f.mode)
	}
}

func validMode(mode string) bool {
	switch mode {
	case "run", "fetch", "classify", "generate", "stats", "topics", "reset-topics", "reset-all", "schedule", "migrate":
		return true
	default:
		return false
	}
}

func runPipeline(ctx context.Context, application *app.App, f flags) error {
	opts := pipeline.Options{
		SkipFetch:    f.skipFetch,
		SkipClassify: f.skipClassify,
		SkipGenerate: f.skipGenerate,
		Model:        f.model,
	}

	if f.autoGenerate {
		policy := overridePolicy(application.DefaultPolicy(), f)
		opts.AutoGenerate = &policy
	}

	res, err := application.RunPipeline(ctx, opts)
	if res != nil {
		fmt.Print(res.Summary())
	}

	return err
}

func runGenerate(ctx context.Context, application *app.App, f flags) error {
	if f.autoGenerate {
		policy := overridePolicy(application.DefaultPolicy(), f)
		policy.Model = f.model

		res, err := application.RunAutoGenerate(ctx, policy)
		fmt.Printf("Generate: %d of %d topics synthesized\n", res.Succeeded, res.Candidates)

		for _, a := range res.Artifacts {
			fmt.Printf("  - %s\n", a.Path)
		}

		return err
	}

	topicIDs, err := parseIDs(f.topics)
	if err != nil {
		return fmt.Errorf("-topics: %w", err)
	}

	articleIDs, err := parseIDs(f.articles)
	if err != nil {
		return fmt.Errorf("-articles: %w", err)
	}

	res, err := application.RunGenerate(ctx, synthesize.Request{
		TopicIDs:   topicIDs,
		ArticleIDs: articleIDs,
		Model:      f.model,
		Title:      f.title,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Generated %q from %d sources (%d words): %s\n", res.Title, res.SourceCount, res.WordCount, res.Path)

	return nil
}

func overridePolicy(p synthesize.Policy, f flags) synthesize.Policy {
	if f.minScore >= 0 {
		p.MinScore = f.minScore
	}

	if f.minArticles >= 0 {
		p.MinArticles = f.minArticles
	}

	if f.maxTopics >= 0 {
		p.MaxTopics = f.maxTopics
	}

	return p
}
