package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test environment variable keys.
const (
	testEnvPostgresDSN = "POSTGRES_DSN"
	testPostgresDSN    = "postgres://localhost/test"
)

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv(testEnvPostgresDSN, "")
	os.Unsetenv(testEnvPostgresDSN)

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(testEnvPostgresDSN, testPostgresDSN)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, testPostgresDSN, cfg.PostgresDSN)
	assert.Equal(t, "local", cfg.AppEnv)
	assert.Equal(t, "gemini-2.5-flash", cfg.ClassifyModel)
	assert.Equal(t, ModelAliasSonnet, cfg.SynthModel)
	assert.Equal(t, int64(4096), cfg.SynthMaxTokens)
	assert.Equal(t, 5, cfg.LLMRetryMaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.LLMRetryMinWait)
	assert.Equal(t, time.Minute, cfg.LLMRetryMaxWait)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.FetchDelay)
	assert.Equal(t, 50, cfg.FetchMaxPerSource)
	assert.Equal(t, 10000, cfg.ContentMaxChars)
	assert.Equal(t, 100, cfg.SynthMinContentChars)
	assert.Equal(t, 8, cfg.AutoMinScore)
	assert.Equal(t, 3, cfg.AutoMinArticles)
	assert.Equal(t, 5, cfg.AutoMaxTopics)
	assert.False(t, cfg.S3Cfg().Enabled())
	assert.Equal(t, "0 6 * * *", cfg.ScheduleCron)
	assert.Equal(t, "America/Toronto", cfg.ScheduleTimezone)
	assert.True(t, cfg.ScheduleAutoGenerate)
}

func TestLoad_Aliases(t *testing.T) {
	t.Setenv(testEnvPostgresDSN, testPostgresDSN)
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("CLAUDE_API_KEY", "claude-key")
	t.Setenv("MAX_ARTICLES_PER_SOURCE", "12")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gem-key", cfg.GoogleAPIKey)
	assert.Equal(t, "claude-key", cfg.AnthropicAPIKey)
	assert.Equal(t, 12, cfg.FetchMaxPerSource)
}

func TestLoad_PrimaryKeyWinsOverAlias(t *testing.T) {
	t.Setenv(testEnvPostgresDSN, testPostgresDSN)
	t.Setenv("GOOGLE_API_KEY", "primary")
	t.Setenv("GEMINI_API_KEY", "alias")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "primary", cfg.GoogleAPIKey)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			AutoMinScore:        8,
			AutoMinArticles:     3,
			AutoMaxTopics:       5,
			LLMRetryMaxAttempts: 5,
			LLMRetryMinWait:     time.Second,
			LLMRetryMaxWait:     time.Minute,
			ContentMaxChars:     100,
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"score above range", func(c *Config) { c.AutoMinScore = 11 }},
		{"zero min articles", func(c *Config) { c.AutoMinArticles = 0 }},
		{"zero max topics", func(c *Config) { c.AutoMaxTopics = 0 }},
		{"zero retry attempts", func(c *Config) { c.LLMRetryMaxAttempts = 0 }},
		{"inverted retry waits", func(c *Config) { c.LLMRetryMaxWait = time.Millisecond }},
		{"zero content bound", func(c *Config) { c.ContentMaxChars = 0 }},
	}

	require.NoError(t, valid().Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			require.ErrorIs(t, c.Validate(), ErrInvalidConfig)
		})
	}
}
