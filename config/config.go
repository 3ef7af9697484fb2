// Package config loads environment defaults for the command line tool.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds environment defaults for the CLI. Command line flags
// override these values.
type Config struct {
	NSides   int     `env:"PYDATA_MDP_NSIDES" envDefault:"20"`
	MaxScore int     `env:"PYDATA_MDP_MAX_SCORE" envDefault:"21"`
	Discount float64 `env:"PYDATA_MDP_DISCOUNT" envDefault:"1.0"`
	Epsilon  float64 `env:"PYDATA_MDP_EPSILON" envDefault:"0.001"`
	MaxIters int     `env:"PYDATA_MDP_MAX_ITERS" envDefault:"10000"`
	Method   string  `env:"PYDATA_MDP_METHOD" envDefault:"standard"`
	Seed     int64   `env:"PYDATA_MDP_SEED" envDefault:"1"`
	Episodes int     `env:"PYDATA_MDP_EPISODES" envDefault:"10000"`
	Workers  int     `env:"PYDATA_MDP_WORKERS" envDefault:"4"`
	Horizon  int     `env:"PYDATA_MDP_HORIZON" envDefault:"50"`
	DBPath   string  `env:"PYDATA_MDP_DB"`
	NoColor  bool    `env:"PYDATA_MDP_NO_COLOR" envDefault:"false"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}
