package config

import (
	"os"
	"testing"
	"time"
)

// writeTempConfig creates a minimal configuration file required for LoadConfig
// and returns its path.
func writeTempConfig(t *testing.T) string {
	t.Helper()
	content := `oiflow:
  name: "TestApp"
  version: "1.0"
source:
  nse:
    base_url: "https://example.com"
    chain_url: "https://example.com/api/option-chain-indices"
    history_url: "https://example.com/api/historical/cm/equity"
    symbols: ["NIFTY"]
notify:
  telegram:
    enabled: false
storage:
  s3:
    enabled: false
`
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	return f.Name()
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t)
	defer os.Remove(path)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Oiflow.Name != "TestApp" {
		t.Errorf("unexpected name: %s", cfg.Oiflow.Name)
	}
	if cfg.Reader.Retry.MaxAttempts != 3 {
		t.Errorf("unexpected retry attempts: %d", cfg.Reader.Retry.MaxAttempts)
	}
	if cfg.Reader.RateLimit.MinInterval != 1500*time.Millisecond {
		t.Errorf("unexpected min interval: %s", cfg.Reader.RateLimit.MinInterval)
	}
	if cfg.Analysis.OiThreshold != 30 {
		t.Errorf("unexpected oi threshold: %f", cfg.Analysis.OiThreshold)
	}
	if cfg.Source.Nse.HistoryWindowDays != 30 {
		t.Errorf("unexpected history window: %d", cfg.Source.Nse.HistoryWindowDays)
	}
}

func TestLoadConfigTelegramEnvOverlay(t *testing.T) {
	path := writeTempConfig(t)
	defer os.Remove(path)

	t.Setenv("TELEGRAM_BOT_TOKEN", "token-from-env")
	t.Setenv("TELEGRAM_CHAT_ID", "12345")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Notify.Telegram.BotToken != "token-from-env" {
		t.Errorf("bot token not taken from environment: %q", cfg.Notify.Telegram.BotToken)
	}
	if cfg.Notify.Telegram.ChatID != "12345" {
		t.Errorf("chat id not taken from environment: %q", cfg.Notify.Telegram.ChatID)
	}
}

func TestLoadConfigTelegramEnabledWithoutCredentials(t *testing.T) {
	content := `oiflow:
  name: "TestApp"
  version: "1.0"
source:
  nse:
    base_url: "https://example.com"
    chain_url: "https://example.com/api/option-chain-indices"
    history_url: "https://example.com/api/historical/cm/equity"
    symbols: ["NIFTY"]
notify:
  telegram:
    enabled: true
`
	f, err := os.CreateTemp("", "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	defer os.Remove(f.Name())

	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_CHAT_ID", "")

	if _, err := LoadConfig(f.Name()); err == nil {
		t.Fatalf("expected validation error for enabled telegram without credentials")
	}
}

func TestAppEnvironmentAliases(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	if env := AppEnvironment(); env != EnvironmentProduction {
		t.Errorf("expected production, got %s", env)
	}
	if !IsProductionLike(EnvironmentStaging) {
		t.Errorf("staging should be production-like")
	}
	if IsProductionLike(EnvironmentDevelopment) {
		t.Errorf("development should not be production-like")
	}
}
