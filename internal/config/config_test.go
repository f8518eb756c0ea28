package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "avsentry.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
detector:
  poll_interval: 250ms
monitor:
  show_process: true
history:
  db_path: /tmp/avsentry-test.db
log:
  level: debug
`)
	cfg := Default()
	if err := LoadFile(cfg, path); err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if cfg.Detector.PollInterval != 250*time.Millisecond {
		t.Errorf("PollInterval = %v", cfg.Detector.PollInterval)
	}
	if !cfg.Monitor.ShowProcess || cfg.History.DBPath != "/tmp/avsentry-test.db" || cfg.Log.Level != "debug" {
		t.Errorf("cfg = %+v", cfg)
	}
	// 文件里没写的字段保持默认值
	if cfg.Monitor.RefreshInterval != 5*time.Second || cfg.Detector.CommandTimeout != 5*time.Second {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if err := LoadFile(Default(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should fail")
	}
	if err := LoadFile(Default(), writeConfig(t, "detector: [")); err == nil {
		t.Error("invalid YAML should fail")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("AVSENTRY_POLL_INTERVAL", "200")
	t.Setenv("AVSENTRY_SHOW_PROCESS", "true")
	t.Setenv("AVSENTRY_JSON", "1")
	t.Setenv("AVSENTRY_NOTIFY", "not-a-bool")
	t.Setenv("AVSENTRY_HISTORY", "false")
	t.Setenv("AVSENTRY_LOG_LEVEL", "error")

	cfg := New()
	if cfg.Detector.PollInterval != 200*time.Millisecond {
		t.Errorf("PollInterval = %v", cfg.Detector.PollInterval)
	}
	if !cfg.Monitor.ShowProcess || !cfg.Output.JSON {
		t.Errorf("booleans not applied: %+v", cfg)
	}
	if cfg.Output.Notify {
		t.Error("unparsable value should be ignored")
	}
	if cfg.History.Enabled || cfg.Log.Level != "error" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"too fast", func(c *Config) { c.Detector.PollInterval = 10 * time.Millisecond }, "less than minimum"},
		{"too slow", func(c *Config) { c.Detector.PollInterval = 11 * time.Second }, "greater than maximum"},
		{"no timeout", func(c *Config) { c.Detector.CommandTimeout = 0 }, "command timeout"},
		{"no refresh", func(c *Config) { c.Monitor.RefreshInterval = 0 }, "refresh interval"},
		{"negative delay", func(c *Config) { c.Monitor.InitialDelay = -time.Second }, "initial delay"},
		{"empty history", func(c *Config) { c.History.Size = 0 }, "history size"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.errMsg)
			}
		})
	}

	cfg := Default()
	cfg.History.Enabled = false
	cfg.History.Size = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("history size is irrelevant when disabled: %v", err)
	}
}

func TestFlagsPrecedence(t *testing.T) {
	path := writeConfig(t, "detector:\n  poll_interval: 300ms\noutput:\n  json: true\n")
	t.Setenv("AVSENTRY_POLL_INTERVAL", "400")

	f := NewFlags("avsentry")
	if err := f.Parse([]string{"--config", path, "-p", "--notify"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := f.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	// 环境变量覆盖配置文件
	if cfg.Detector.PollInterval != 400*time.Millisecond {
		t.Errorf("PollInterval = %v, want 400ms", cfg.Detector.PollInterval)
	}
	if !cfg.Output.JSON || !cfg.Monitor.ShowProcess || !cfg.Output.Notify {
		t.Errorf("cfg = %+v", cfg)
	}

	// 命令行覆盖环境变量
	f = NewFlags("avsentry")
	if err := f.Parse([]string{"-i", "150", "--no-history", "--log-level", "debug"}); err != nil {
		t.Fatal(err)
	}
	cfg, err = f.Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Detector.PollInterval != 150*time.Millisecond || cfg.History.Enabled || cfg.Log.Level != "debug" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestFlagsRejectInvalidInterval(t *testing.T) {
	f := NewFlags("avsentry")
	if err := f.Parse([]string{"--interval", "5"}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Load(); err == nil {
		t.Error("interval below the minimum should be rejected")
	}
}

func TestFlagsHelp(t *testing.T) {
	f := NewFlags("avsentry")
	if err := f.Parse([]string{"-h"}); err != nil {
		t.Fatal(err)
	}
	if !f.Help() {
		t.Error("Help() should be true")
	}
	for _, s := range []string{"--process", "--interval", "--json", "--notify", "--config"} {
		if !strings.Contains(f.Usage(), s) {
			t.Errorf("usage missing %s", s)
		}
	}
}

func TestFlagsUnknown(t *testing.T) {
	if err := NewFlags("avsentry").Parse([]string{"--bogus"}); err == nil {
		t.Error("unknown flag should fail")
	}
}
