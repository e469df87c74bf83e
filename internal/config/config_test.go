package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.HTTP.ListenAddr != ":8000" {
		t.Errorf("expected ListenAddr=:8000, got %s", cfg.HTTP.ListenAddr)
	}
	if cfg.DataDir != "/data" {
		t.Errorf("expected DataDir=/data, got %s", cfg.DataDir)
	}
	if cfg.Payment.CryptoNetwork != "BEP20" {
		t.Errorf("expected CryptoNetwork=BEP20, got %s", cfg.Payment.CryptoNetwork)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	// Ensure no env vars interfere; an empty-but-set value still
	// counts as an override.
	os.Unsetenv("BOT_TOKEN")
	os.Unsetenv("DATA_DIR")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	cfg := Default()
	cfg.Telegram.BotToken = "123:abc"
	cfg.Channels.VIP = -1001234567890

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Telegram.BotToken != "123:abc" {
		t.Errorf("expected BotToken=123:abc, got %s", loaded.Telegram.BotToken)
	}
	if loaded.Channels.VIP != -1001234567890 {
		t.Errorf("expected VIP channel, got %d", loaded.Channels.VIP)
	}
}

func TestConfig_LoadMissingFile(t *testing.T) {
	os.Unsetenv("DATA_DIR")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DataDir != "/data" {
		t.Errorf("expected defaults on missing file, got DataDir=%s", cfg.DataDir)
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	os.Setenv("BOT_TOKEN", "env-token")
	defer os.Unsetenv("BOT_TOKEN")
	os.Setenv("ADMIN_CHAT_ID", "42")
	defer os.Unsetenv("ADMIN_CHAT_ID")
	os.Setenv("DATA_DIR", "/tmp/tollgate-data")
	defer os.Unsetenv("DATA_DIR")
	os.Setenv("RAZORPAY_WEBHOOK_SECRET", "whsec")
	defer os.Unsetenv("RAZORPAY_WEBHOOK_SECRET")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Telegram.BotToken != "env-token" {
		t.Errorf("expected BotToken=env-token, got %s", cfg.Telegram.BotToken)
	}
	if cfg.Telegram.AdminChatID != 42 {
		t.Errorf("expected AdminChatID=42, got %d", cfg.Telegram.AdminChatID)
	}
	if cfg.DataDir != "/tmp/tollgate-data" {
		t.Errorf("expected DataDir override, got %s", cfg.DataDir)
	}
	if cfg.HTTP.WebhookSecret != "whsec" {
		t.Errorf("expected webhook secret override, got %s", cfg.HTTP.WebhookSecret)
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for missing bot token")
	}

	cfg.Telegram.BotToken = "123:abc"
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for missing admin chat ID")
	}

	cfg.Telegram.AdminChatID = 42
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}

func TestConfig_StatePath(t *testing.T) {
	cfg := Default()
	if got := cfg.StatePath(); got != "/data/paymentbot.json" {
		t.Errorf("expected /data/paymentbot.json, got %s", got)
	}
}
