package app

import (
	"errors"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPath string // .hcl configuration files
	TestsPath  string // .test.hcl run sequences

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	Workers         int
	Strict          bool

	HTTPTimeout time.Duration
	HTTPRetries int
}

// NewConfig validates a Config and fills in derived defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}
	if cfg.TestsPath == "" {
		// Test documents conventionally live next to the configuration.
		cfg.TestsPath = cfg.ConfigPath
	}
	return &cfg, nil
}
