package config

import (
	"os"
	"strconv"
	"time"
)

// LoadFromEnv loads configuration from environment variables
// Unparsable values are ignored; range checks are left to Validate
func LoadFromEnv(cfg *Config) {
	if ms := os.Getenv("AVSENTRY_POLL_INTERVAL"); ms != "" {
		if n, err := strconv.Atoi(ms); err == nil && n > 0 {
			cfg.Detector.PollInterval = time.Duration(n) * time.Millisecond
		}
	}

	if v := os.Getenv("AVSENTRY_SHOW_PROCESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Monitor.ShowProcess = b
		}
	}

	if v := os.Getenv("AVSENTRY_JSON"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Output.JSON = b
		}
	}

	if v := os.Getenv("AVSENTRY_NOTIFY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Output.Notify = b
		}
	}

	// History
	if v := os.Getenv("AVSENTRY_HISTORY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.History.Enabled = b
		}
	}

	if path := os.Getenv("AVSENTRY_HISTORY_DB"); path != "" {
		cfg.History.DBPath = path
	}

	if path := os.Getenv("AVSENTRY_EVENT_LOG"); path != "" {
		cfg.History.LogFile = path
	}

	if level := os.Getenv("AVSENTRY_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
}

// New creates a new Config with default values and loads from environment
func New() *Config {
	cfg := Default()
	LoadFromEnv(cfg)
	return cfg
}
