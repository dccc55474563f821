package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Tracing TracingConfig
	Logging LogConfig
	Metrics MetricsConfig
	Agent   AgentConfig
}

// TracingConfig holds trace capture and export configuration.
type TracingConfig struct {
	Enabled     bool   `envconfig:"TRACE_ENABLED" default:"true"`
	Dir         string `envconfig:"TRACE_DIR" default:"traces"`
	Format      string `envconfig:"TRACE_FORMAT" default:"json"`
	Compression string `envconfig:"TRACE_COMPRESSION" default:"none"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// MetricsConfig holds tracer self-metrics configuration.
type MetricsConfig struct {
	Enabled bool   `envconfig:"METRICS_ENABLED" default:"false"`
	File    string `envconfig:"METRICS_FILE" default:"agentrace.prom"`
}

// AgentConfig holds settings for the demo agent session.
type AgentConfig struct {
	Model string `envconfig:"AGENT_MODEL" default:"scripted-1"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Tracing: TracingConfig{
			Enabled:     true,
			Dir:         "traces",
			Format:      "json",
			Compression: "none",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			File:    "agentrace.prom",
		},
		Agent: AgentConfig{
			Model: "scripted-1",
		},
	}
}
