// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

// Config carries every tunable the process reads at startup. Values come
// from the environment with sane defaults; a .env file is loaded by main
// before parsing.
type Config struct {
	HTTPHost         string        `env:"TUTORBOARD_HTTP_HOST" envDefault:"0.0.0.0"`
	HTTPPort         int           `env:"TUTORBOARD_HTTP_PORT" envDefault:"8000"`
	HTTPReadTimeout  time.Duration `env:"TUTORBOARD_HTTP_READ_TIMEOUT" envDefault:"30s"`
	HTTPWriteTimeout time.Duration `env:"TUTORBOARD_HTTP_WRITE_TIMEOUT" envDefault:"30s"`

	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`

	OpenAIAPIKey      string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL     string        `env:"OPENAI_BASE_URL"`
	OpenAIModel       string        `env:"OPENAI_MODEL" envDefault:"gpt-3.5-turbo"`
	CompletionTimeout time.Duration `env:"TUTORBOARD_COMPLETION_TIMEOUT" envDefault:"30s"`

	WSPingInterval time.Duration `env:"TUTORBOARD_WS_PING_INTERVAL" envDefault:"30s"`
	WSReadTimeout  time.Duration `env:"TUTORBOARD_WS_READ_TIMEOUT" envDefault:"60s"`

	LogMode string `env:"TUTORBOARD_LOG_MODE" envDefault:"dev"`
}

// New parses and validates configuration from the environment.
func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate catches configurations that would fail at runtime.
func (c *Config) Validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535, got %d", c.HTTPPort)
	}
	if c.HTTPReadTimeout <= 0 {
		return fmt.Errorf("HTTP read timeout must be positive")
	}
	if c.HTTPWriteTimeout <= 0 {
		return fmt.Errorf("HTTP write timeout must be positive")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("redis URL cannot be empty")
	}
	if c.CompletionTimeout <= 0 {
		return fmt.Errorf("completion timeout must be positive")
	}
	if c.WSPingInterval <= 0 {
		return fmt.Errorf("WebSocket ping interval must be positive")
	}
	if c.WSReadTimeout <= c.WSPingInterval {
		return fmt.Errorf("WebSocket read timeout must exceed the ping interval")
	}
	return nil
}

// Addr returns the host:port the HTTP server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTPHost, c.HTTPPort)
}
