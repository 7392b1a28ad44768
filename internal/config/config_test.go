package config

import (
	"os"
	"path/filepath"
	"testing"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGATE_TELEGRAM_API_ID", "12345")
	t.Setenv("TELEGATE_TELEGRAM_API_HASH", "abcdef0123456789")
	t.Setenv("TELEGATE_TELEGRAM_CHANNEL", "@testchannel")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("expected default port 8000, got %d", cfg.Server.Port)
	}
	if cfg.API.DefaultLimit != 20 || cfg.API.MaxLimit != 100 {
		t.Errorf("unexpected limits: default=%d max=%d", cfg.API.DefaultLimit, cfg.API.MaxLimit)
	}
	if cfg.API.MaxScanBatches != 10 {
		t.Errorf("expected scan cap 10, got %d", cfg.API.MaxScanBatches)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected log level info, got %q", cfg.LogLevel)
	}
	if cfg.Telegram.Channel != "@testchannel" {
		t.Errorf("expected channel from env, got %q", cfg.Telegram.Channel)
	}
}

func TestLoadMissingCredentials(t *testing.T) {
	t.Setenv("TELEGATE_TELEGRAM_API_ID", "")
	t.Setenv("TELEGATE_TELEGRAM_API_HASH", "")
	t.Setenv("TELEGATE_TELEGRAM_CHANNEL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error for missing credentials")
	}
}

func TestLoadFileOverriddenByEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte("telegram:\n  api_id: 111\n  api_hash: \"filehash\"\n  channel: \"@filechannel\"\nserver:\n  port: 9000\nlog_level: debug\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("TELEGATE_TELEGRAM_CHANNEL", "@envchannel")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port from file 9000, got %d", cfg.Server.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level from file, got %q", cfg.LogLevel)
	}
	if cfg.Telegram.Channel != "@envchannel" {
		t.Errorf("env should override file, got %q", cfg.Telegram.Channel)
	}
}

func TestLoadRejectsBadLimits(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TELEGATE_API_DEFAULT_LIMIT", "200")
	t.Setenv("TELEGATE_API_MAX_LIMIT", "100")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when default_limit exceeds max_limit")
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"TELEGATE_TELEGRAM_API_ID", "telegram.api_id"},
		{"TELEGATE_SERVER_PORT", "server.port"},
		{"TELEGATE_API_MAX_SCAN_BATCHES", "api.max_scan_batches"},
		{"TELEGATE_LOG_LEVEL", "log_level"},
	}
	for _, tt := range tests {
		if got := envTransform(tt.in); got != tt.want {
			t.Errorf("envTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
