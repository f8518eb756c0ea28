package config

import (
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// Flags command-line options; only flags given explicitly override file and env
type Flags struct {
	fs *pflag.FlagSet

	configPath  string
	showProcess bool
	intervalMS  int
	json        bool
	notify      bool
	noHistory   bool
	logLevel    string
	help        bool
}

func NewFlags(name string) *Flags {
	f := &Flags{fs: pflag.NewFlagSet(name, pflag.ContinueOnError)}
	f.fs.SetOutput(io.Discard)
	f.fs.SortFlags = false

	defaults := Default()
	f.fs.BoolVarP(&f.showProcess, "process", "p", false, "Show which process is using each device")
	f.fs.IntVarP(&f.intervalMS, "interval", "i", int(defaults.Detector.PollInterval.Milliseconds()), "Poll interval in ms")
	f.fs.BoolVarP(&f.json, "json", "j", false, "Output in JSON format")
	f.fs.BoolVar(&f.notify, "notify", false, "Send a desktop notification on every change")
	f.fs.BoolVar(&f.noHistory, "no-history", false, "Do not record events to ~/.avsentry")
	f.fs.StringVar(&f.configPath, "config", "", "Path to a YAML config file")
	f.fs.StringVar(&f.logLevel, "log-level", defaults.Log.Level, "Log level (debug, info, warn, error)")
	f.fs.BoolVarP(&f.help, "help", "h", false, "Show this help message")
	return f
}

func (f *Flags) Parse(args []string) error {
	return errors.Wrap(f.fs.Parse(args), "parse flags")
}

func (f *Flags) Help() bool {
	return f.help
}

func (f *Flags) Usage() string {
	return f.fs.FlagUsages()
}

// Load builds the effective configuration: defaults < config file < environment < flags
func (f *Flags) Load() (*Config, error) {
	cfg := Default()
	if f.configPath != "" {
		if err := LoadFile(cfg, f.configPath); err != nil {
			return nil, err
		}
	}
	LoadFromEnv(cfg)
	f.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

func (f *Flags) apply(cfg *Config) {
	if f.fs.Changed("process") {
		cfg.Monitor.ShowProcess = f.showProcess
	}
	if f.fs.Changed("interval") {
		cfg.Detector.PollInterval = time.Duration(f.intervalMS) * time.Millisecond
	}
	if f.fs.Changed("json") {
		cfg.Output.JSON = f.json
	}
	if f.fs.Changed("notify") {
		cfg.Output.Notify = f.notify
	}
	if f.fs.Changed("no-history") {
		cfg.History.Enabled = !f.noHistory
	}
	if f.fs.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}
}
