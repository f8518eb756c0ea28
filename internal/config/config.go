package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	MinPollInterval = 50 * time.Millisecond
	MaxPollInterval = 10 * time.Second
)

// Config holds all agent configuration
type Config struct {
	Detector DetectorConfig `yaml:"detector"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Output   OutputConfig   `yaml:"output"`
	History  HistoryConfig  `yaml:"history"`
	Log      LogConfig      `yaml:"log"`
}

type DetectorConfig struct {
	PollInterval   time.Duration `yaml:"poll_interval"`   // ioreg polling period for both detectors
	CommandTimeout time.Duration `yaml:"command_timeout"` // upper bound for a single ioreg call
}

type MonitorConfig struct {
	RefreshInterval time.Duration `yaml:"refresh_interval"` // device inventory refresh
	InitialDelay    time.Duration `yaml:"initial_delay"`    // delay before the first published snapshot
	ShowProcess     bool          `yaml:"show_process"`
}

type OutputConfig struct {
	JSON   bool `yaml:"json"`
	Notify bool `yaml:"notify"`
}

type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`  // empty disables sqlite persistence
	LogFile string `yaml:"log_file"` // empty disables the events.log appender
	Size    int    `yaml:"size"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns a Config with the agent's default values
func Default() *Config {
	cfg := &Config{
		Detector: DetectorConfig{
			PollInterval:   500 * time.Millisecond,
			CommandTimeout: 5 * time.Second,
		},
		Monitor: MonitorConfig{
			RefreshInterval: 5 * time.Second,
			InitialDelay:    100 * time.Millisecond,
		},
		History: HistoryConfig{
			Enabled: true,
			Size:    10,
		},
		Log: LogConfig{Level: "warn"},
	}
	if dir, err := DataDir(); err == nil {
		cfg.History.DBPath = filepath.Join(dir, "history.db")
		cfg.History.LogFile = filepath.Join(dir, "events.log")
	}
	return cfg
}

// DataDir ~/.avsentry
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve home dir")
	}
	return filepath.Join(home, ".avsentry"), nil
}

// LoadFile overlays the YAML file at path onto cfg
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config file")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return errors.Wrapf(err, "parse config file %s", path)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Detector.PollInterval < MinPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be less than minimum (%v)",
			c.Detector.PollInterval, MinPollInterval)
	}
	if c.Detector.PollInterval > MaxPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be greater than maximum (%v)",
			c.Detector.PollInterval, MaxPollInterval)
	}
	if c.Detector.CommandTimeout <= 0 {
		return fmt.Errorf("command timeout must be positive")
	}
	if c.Monitor.RefreshInterval <= 0 {
		return fmt.Errorf("refresh interval must be positive")
	}
	if c.Monitor.InitialDelay < 0 {
		return fmt.Errorf("initial delay cannot be negative")
	}
	if c.History.Enabled && c.History.Size < 1 {
		return fmt.Errorf("history size must be at least 1, got %d", c.History.Size)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	return nil
}

// SetPollInterval sets the poll interval with validation
func (c *Config) SetPollInterval(interval time.Duration) error {
	if interval < MinPollInterval {
		return fmt.Errorf("poll interval cannot be less than %v", MinPollInterval)
	}
	if interval > MaxPollInterval {
		return fmt.Errorf("poll interval cannot be greater than %v", MaxPollInterval)
	}
	c.Detector.PollInterval = interval
	return nil
}
