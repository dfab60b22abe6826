package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Synthesis model aliases accepted by SYNTH_MODEL and the -model flag.
const (
	ModelAliasSonnet = "sonnet"
	ModelAliasHaiku  = "haiku"
)

type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"local"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	PostgresDSN          string        `env:"POSTGRES_DSN,required"`
	DBMaxConnections     int32         `env:"DB_MAX_CONNECTIONS" envDefault:"10"`
	DBMinConnections     int32         `env:"DB_MIN_CONNECTIONS" envDefault:"1"`
	DBMaxConnIdleTime    time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBMaxConnLifetime    time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBHealthCheckPeriod  time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
	HealthPort           int           `env:"HEALTH_PORT" envDefault:"8080"`
	ScheduleCron         string        `env:"SCHEDULE_CRON" envDefault:"0 6 * * *"`
	ScheduleAutoGenerate bool          `env:"SCHEDULE_AUTO_GENERATE" envDefault:"true"`
	ScheduleTimezone     string        `env:"SCHEDULE_TIMEZONE" envDefault:"America/Toronto"`

	GoogleAPIKey          string        `env:"GOOGLE_API_KEY"`
	AnthropicAPIKey       string        `env:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey          string        `env:"OPENAI_API_KEY"`
	ClassifyModel         string        `env:"CLASSIFY_MODEL" envDefault:"gemini-2.5-flash"`
	ClassifyFallbackModel string        `env:"CLASSIFY_FALLBACK_MODEL" envDefault:"gpt-4o-mini"`
	SynthModel            string        `env:"SYNTH_MODEL" envDefault:"sonnet"`
	SynthFallbackModel    string        `env:"SYNTH_FALLBACK_MODEL" envDefault:"gpt-4o"`
	SynthMaxTokens        int64         `env:"SYNTH_MAX_TOKENS" envDefault:"4096"`
	LLMRateLimitRPS       float64       `env:"LLM_RATE_LIMIT_RPS" envDefault:"1"`
	LLMTimeout            time.Duration `env:"LLM_TIMEOUT" envDefault:"5m"`
	LLMRetryMaxAttempts   int           `env:"LLM_RETRY_MAX_ATTEMPTS" envDefault:"5"`
	LLMRetryMinWait       time.Duration `env:"LLM_RETRY_MIN_WAIT" envDefault:"2s"`
	LLMRetryMaxWait       time.Duration `env:"LLM_RETRY_MAX_WAIT" envDefault:"60s"`
	LLMCircuitThreshold   int           `env:"LLM_CIRCUIT_THRESHOLD" envDefault:"5"`
	LLMCircuitResetAfter  time.Duration `env:"LLM_CIRCUIT_RESET_AFTER" envDefault:"1m"`
	QuotaStopAfter        int           `env:"QUOTA_STOP_AFTER" envDefault:"3"`

	CanLIIAPIKey       string        `env:"CANLII_API_KEY"`
	SourcesFile        string        `env:"SOURCES_FILE"`
	FetchTimeout       time.Duration `env:"FETCH_TIMEOUT" envDefault:"30s"`
	FetchUserAgent     string        `env:"FETCH_USER_AGENT" envDefault:"CanadianLegalNewsPipeline/1.0 (Educational Research Bot)"`
	FetchDelay         time.Duration `env:"FETCH_DELAY" envDefault:"500ms"`
	FetchMaxPerSource  int           `env:"FETCH_MAX_PER_SOURCE" envDefault:"50"`
	FetchMaxBodyBytes  int64         `env:"FETCH_MAX_BODY_BYTES" envDefault:"5242880"`
	ContentMaxChars    int           `env:"CONTENT_MAX_CHARS" envDefault:"10000"`
	ContentCacheTTL    time.Duration `env:"CONTENT_CACHE_TTL" envDefault:"1h"`

	OutputDir            string `env:"OUTPUT_DIR" envDefault:"output/generated_articles"`
	SynthMinContentChars int    `env:"SYNTH_MIN_CONTENT_CHARS" envDefault:"100"`
	AutoMinScore         int    `env:"AUTO_MIN_SCORE" envDefault:"8"`
	AutoMinArticles      int    `env:"AUTO_MIN_ARTICLES" envDefault:"3"`
	AutoMaxTopics        int    `env:"AUTO_MAX_TOPICS" envDefault:"5"`

	S3Bucket       string `env:"S3_BUCKET"`
	S3Prefix       string `env:"S3_PREFIX" envDefault:"generated_articles"`
	S3Region       string `env:"S3_REGION"`
	S3Profile      string `env:"S3_PROFILE"`
	S3UsePathStyle bool   `env:"S3_USE_PATH_STYLE" envDefault:"false"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	applyAliases(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks value ranges that struct tags cannot express.
func (c *Config) Validate() error {
	switch {
	case c.AutoMinScore < 0 || c.AutoMinScore > 10:
		return fmt.Errorf("%w: AUTO_MIN_SCORE must be within 0..10, got %d", ErrInvalidConfig, c.AutoMinScore)
	case c.AutoMinArticles < 1:
		return fmt.Errorf("%w: AUTO_MIN_ARTICLES must be positive, got %d", ErrInvalidConfig, c.AutoMinArticles)
	case c.AutoMaxTopics < 1:
		return fmt.Errorf("%w: AUTO_MAX_TOPICS must be positive, got %d", ErrInvalidConfig, c.AutoMaxTopics)
	case c.LLMRetryMaxAttempts < 1:
		return fmt.Errorf("%w: LLM_RETRY_MAX_ATTEMPTS must be positive, got %d", ErrInvalidConfig, c.LLMRetryMaxAttempts)
	case c.LLMRetryMaxWait < c.LLMRetryMinWait:
		return fmt.Errorf("%w: LLM_RETRY_MAX_WAIT is below LLM_RETRY_MIN_WAIT", ErrInvalidConfig)
	case c.ContentMaxChars < 1:
		return fmt.Errorf("%w: CONTENT_MAX_CHARS must be positive, got %d", ErrInvalidConfig, c.ContentMaxChars)
	}

	return nil
}

// applyAliases honors the key names used by earlier deployments of the pipeline.
func applyAliases(cfg *Config) {
	if !hasEnv("GOOGLE_API_KEY") {
		setStringFromEnv("GEMINI_API_KEY", &cfg.GoogleAPIKey)
	}

	if !hasEnv("ANTHROPIC_API_KEY") {
		setStringFromEnv("CLAUDE_API_KEY", &cfg.AnthropicAPIKey)
	}

	if !hasEnv("FETCH_MAX_PER_SOURCE") {
		setIntFromEnv("MAX_ARTICLES_PER_SOURCE", &cfg.FetchMaxPerSource)
	}
}

func hasEnv(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}

func setStringFromEnv(key string, target *string) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	val = strings.TrimSpace(val)
	if val == "" {
		return
	}

	*target = val
}

func setIntFromEnv(key string, target *int) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	parsed, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return
	}

	*target = parsed
}
