package config

import (
	"errors"
	"time"
)

// ErrInvalidConfig indicates a configuration value is out of range.
var ErrInvalidConfig = errors.New("invalid config")

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	PostgresDSN       string
	MaxConnections    int32
	MinConnections    int32
	MaxConnIdleTime   time.Duration
	MaxConnLifetime   time.Duration
	HealthCheckPeriod time.Duration
}

// LLMConfig holds credentials and policy for both model services.
type LLMConfig struct {
	GoogleAPIKey          string
	AnthropicAPIKey       string
	OpenAIAPIKey          string
	ClassifyModel         string
	ClassifyFallbackModel string
	SynthModel            string
	SynthFallbackModel    string
	SynthMaxTokens        int64
	RateLimitRPS          float64
	Timeout               time.Duration
	RetryMaxAttempts      int
	RetryMinWait          time.Duration
	RetryMaxWait          time.Duration
	CircuitThreshold      int
	CircuitResetAfter     time.Duration
}

// FetchConfig holds HTTP collection settings.
type FetchConfig struct {
	UserAgent       string
	Timeout         time.Duration
	Delay           time.Duration
	MaxPerSource    int
	MaxBodyBytes    int64
	ContentMaxChars int
	CacheTTL        time.Duration
	CanLIIAPIKey    string
	SourcesFile     string
}

// SynthesisConfig holds artifact and selection settings.
type SynthesisConfig struct {
	OutputDir       string
	MinContentChars int
	AutoMinScore    int
	AutoMinArticles int
	AutoMaxTopics   int
}

// S3Config holds the optional artifact mirror settings.
type S3Config struct {
	Bucket       string
	Prefix       string
	Region       string
	Profile      string
	UsePathStyle bool
}

// Enabled reports whether artifacts should be mirrored to S3.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

func (c *Config) DatabaseCfg() DatabaseConfig {
	return DatabaseConfig{
		PostgresDSN:       c.PostgresDSN,
		MaxConnections:    c.DBMaxConnections,
		MinConnections:    c.DBMinConnections,
		MaxConnIdleTime:   c.DBMaxConnIdleTime,
		MaxConnLifetime:   c.DBMaxConnLifetime,
		HealthCheckPeriod: c.DBHealthCheckPeriod,
	}
}

func (c *Config) LLMCfg() LLMConfig {
	return LLMConfig{
		GoogleAPIKey:          c.GoogleAPIKey,
		AnthropicAPIKey:       c.AnthropicAPIKey,
		OpenAIAPIKey:          c.OpenAIAPIKey,
		ClassifyModel:         c.ClassifyModel,
		ClassifyFallbackModel: c.ClassifyFallbackModel,
		SynthModel:            c.SynthModel,
		SynthFallbackModel:    c.SynthFallbackModel,
		SynthMaxTokens:        c.SynthMaxTokens,
		RateLimitRPS:          c.LLMRateLimitRPS,
		Timeout:               c.LLMTimeout,
		RetryMaxAttempts:      c.LLMRetryMaxAttempts,
		RetryMinWait:          c.LLMRetryMinWait,
		RetryMaxWait:          c.LLMRetryMaxWait,
		CircuitThreshold:      c.LLMCircuitThreshold,
		CircuitResetAfter:     c.LLMCircuitResetAfter,
	}
}

func (c *Config) FetchCfg() FetchConfig {
	return FetchConfig{
		UserAgent:       c.FetchUserAgent,
		Timeout:         c.FetchTimeout,
		Delay:           c.FetchDelay,
		MaxPerSource:    c.FetchMaxPerSource,
		MaxBodyBytes:    c.FetchMaxBodyBytes,
		ContentMaxChars: c.ContentMaxChars,
		CacheTTL:        c.ContentCacheTTL,
		CanLIIAPIKey:    c.CanLIIAPIKey,
		SourcesFile:     c.SourcesFile,
	}
}

func (c *Config) SynthesisCfg() SynthesisConfig {
	return SynthesisConfig{
		OutputDir:       c.OutputDir,
		MinContentChars: c.SynthMinContentChars,
		AutoMinScore:    c.AutoMinScore,
		AutoMinArticles: c.AutoMinArticles,
		AutoMaxTopics:   c.AutoMaxTopics,
	}
}

func (c *Config) S3Cfg() S3Config {
	return S3Config{
		Bucket:       c.S3Bucket,
		Prefix:       c.S3Prefix,
		Region:       c.S3Region,
		Profile:      c.S3Profile,
		UsePathStyle: c.S3UsePathStyle,
	}
}
