package config

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestGetEnvString(t *testing.T) {
	assert.Equal(t, "fallback", GetEnvString("JOURNAL_TEST_UNSET", "fallback"))

	t.Setenv("JOURNAL_TEST_STR", "value")
	assert.Equal(t, "value", GetEnvString("JOURNAL_TEST_STR", "fallback"))
}

func TestGetEnvInt(t *testing.T) {
	assert.Equal(t, 42, GetEnvInt("JOURNAL_TEST_UNSET", 42))

	t.Setenv("JOURNAL_TEST_INT", "8081")
	assert.Equal(t, 8081, GetEnvInt("JOURNAL_TEST_INT", 42))

	t.Setenv("JOURNAL_TEST_INT", "not-a-number")
	assert.Equal(t, 42, GetEnvInt("JOURNAL_TEST_INT", 42))
}

func TestGetEnvFloat(t *testing.T) {
	assert.Equal(t, 1.0, GetEnvFloat("JOURNAL_TEST_UNSET", 1.0))

	t.Setenv("JOURNAL_TEST_FLOAT", "0.5")
	assert.Equal(t, 0.5, GetEnvFloat("JOURNAL_TEST_FLOAT", 1.0))

	t.Setenv("JOURNAL_TEST_FLOAT", "fast")
	assert.Equal(t, 1.0, GetEnvFloat("JOURNAL_TEST_FLOAT", 1.0))
}

func TestGetEnvLogLevel(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, GetEnvLogLevel("JOURNAL_TEST_UNSET", zerolog.InfoLevel))

	t.Setenv("JOURNAL_TEST_LEVEL", "warn")
	assert.Equal(t, zerolog.WarnLevel, GetEnvLogLevel("JOURNAL_TEST_LEVEL", zerolog.InfoLevel))

	t.Setenv("JOURNAL_TEST_LEVEL", "loud")
	assert.Equal(t, zerolog.InfoLevel, GetEnvLogLevel("JOURNAL_TEST_LEVEL", zerolog.InfoLevel))
}

func TestDefaultConfigReadsEnv(t *testing.T) {
	t.Setenv("JOURNAL_API_KEY", "k-123")
	t.Setenv("JOURNAL_LOG_LEVEL", "error")

	cfg := DefaultConfig()

	assert.Equal(t, "k-123", cfg.APIKey)
	assert.Equal(t, zerolog.ErrorLevel, cfg.LogLevel)
	assert.Equal(t, DefaultDBPath, cfg.DBPath)
}

func TestListenAddr(t *testing.T) {
	cfg := &Config{ServerHost: "", ServerPort: 8080}
	assert.Equal(t, ":8080", cfg.ListenAddr())
}
