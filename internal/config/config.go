package config

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Config holds all configuration for the application
type Config struct {
	// File paths
	DBPath        string
	StatePath     string
	IssuesCSVPath string

	// Server settings
	ServerHost string
	ServerPort int
	APIKey     string

	// External services
	OpenAIAPIKey string

	// Crawl settings
	CronSpec string

	// Log settings
	LogLevel zerolog.Level
}

// DefaultConfig returns an initial configuration with hardcoded defaults.
func DefaultConfig() *Config {
	defaultLevel, _ := zerolog.ParseLevel(DefaultLogLevel)

	return &Config{
		DBPath:        DefaultDBPath,
		StatePath:     DefaultStatePath,
		IssuesCSVPath: DefaultIssuesCSVPath,
		ServerHost:    DefaultServerHost,
		ServerPort:    DefaultServerPort,
		APIKey:        GetEnvString("JOURNAL_API_KEY", ""),
		OpenAIAPIKey:  GetEnvString("OPENAI_API_KEY", ""),
		CronSpec:      DefaultCronSpec,
		LogLevel:      GetEnvLogLevel("JOURNAL_LOG_LEVEL", defaultLevel),
	}
}

// ListenAddr returns the formatted listen address for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}
