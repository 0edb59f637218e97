// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/audithq/logkeeper/internal/model"
)

// Config holds the application configuration loaded from environment
// variables.
type Config struct {
	DBPath     string `env:"LOGKEEPER_DB_PATH" envDefault:"./data/logkeeper.db"`
	ServerHost string `env:"LOGKEEPER_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"LOGKEEPER_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"LOGKEEPER_ENV" envDefault:"development"`
	LogLevel   string `env:"LOGKEEPER_LOG_LEVEL" envDefault:"info"`

	// Purge scheduler
	PurgeSchedule      string `env:"LOGKEEPER_PURGE_SCHEDULE" envDefault:"0 3 * * *"` // daily at 03:00
	PurgeBudgetSeconds int    `env:"LOGKEEPER_PURGE_BUDGET_SECONDS" envDefault:"300"`

	// Submit queue
	SubmitQueueSize int `env:"LOGKEEPER_SUBMIT_QUEUE_SIZE" envDefault:"1024"`
	SubmitWorkers   int `env:"LOGKEEPER_SUBMIT_WORKERS" envDefault:"2"`

	// Per-IP API rate limit
	APIRateRPS   float64 `env:"LOGKEEPER_API_RATE_RPS" envDefault:"10"`
	APIRateBurst int     `env:"LOGKEEPER_API_RATE_BURST" envDefault:"20"`
}

// IsDevelopment returns true if the application is running in development
// mode.
func (c Config) IsDevelopment() bool {
	return c.Env == string(model.EnvDevelopment)
}

// Environment returns the deployment environment as a typed value.
func (c Config) Environment() model.Environment {
	return model.Environment(c.Env)
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// PurgeBudget returns the purge cycle execution budget.
func (c Config) PurgeBudget() time.Duration {
	return time.Duration(c.PurgeBudgetSeconds) * time.Second
}

// knownEnvironments are the environments the default retention table covers.
// A deployment in an unlisted environment is a configuration error and must
// fail at startup, not at purge time.
var knownEnvironments = map[string]bool{
	string(model.EnvDevelopment): true,
	string(model.EnvProduction):  true,
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if !knownEnvironments[cfg.Env] {
		return nil, fmt.Errorf("LOGKEEPER_ENV %q is not a known environment (development, production); "+
			"unknown environments have no retention policy row", cfg.Env)
	}

	if cfg.PurgeBudgetSeconds <= 0 {
		return nil, fmt.Errorf("LOGKEEPER_PURGE_BUDGET_SECONDS must be positive, got %d", cfg.PurgeBudgetSeconds)
	}

	return cfg, nil
}
