// Package config holds all tollgate configuration: Telegram identity,
// channel IDs, payment display details, the webhook HTTP surface, and
// the data directory. Values come from an optional YAML file with
// environment variables layered on top, matching how the original
// deployment was configured purely through its container environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// DefaultDataDir is where state lives unless DATA_DIR says otherwise.
// The container mounts a volume here.
const DefaultDataDir = "/data"

// StateFileName is the snapshot file kept under the data directory.
const StateFileName = "paymentbot.json"

// Config holds all tollgate configuration.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Channels ChannelsConfig `yaml:"channels"`
	Payment  PaymentConfig  `yaml:"payment"`
	HTTP     HTTPConfig     `yaml:"http"`
	DataDir  string         `yaml:"data_dir" envconfig:"DATA_DIR"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// TelegramConfig identifies the bot and its operator.
type TelegramConfig struct {
	BotToken    string `yaml:"bot_token" envconfig:"BOT_TOKEN"`
	AdminChatID int64  `yaml:"admin_chat_id" envconfig:"ADMIN_CHAT_ID"`
	HelpContact string `yaml:"help_contact" envconfig:"HELP_BOT_USERNAME"`
}

// ChannelsConfig holds the gated channel IDs. Zero disables a channel.
type ChannelsConfig struct {
	VIP  int64 `yaml:"vip" envconfig:"VIP_CHANNEL_ID"`
	Dark int64 `yaml:"dark" envconfig:"DARK_CHANNEL_ID"`
}

// PaymentConfig holds the buyer-facing payment details shown in chat.
type PaymentConfig struct {
	UPIID            string `yaml:"upi_id" envconfig:"UPI_ID"`
	UPIQRURL         string `yaml:"upi_qr_url" envconfig:"UPI_QR_URL"`
	UPIGuideLink     string `yaml:"upi_guide_link" envconfig:"UPI_HOW_TO_PAY_LINK"`
	CryptoAddress    string `yaml:"crypto_address" envconfig:"CRYPTO_ADDRESS"`
	CryptoNetwork    string `yaml:"crypto_network" envconfig:"CRYPTO_NETWORK"`
	RemitlyInfo      string `yaml:"remitly_info" envconfig:"REMITLY_INFO"`
	RemitlyGuideLink string `yaml:"remitly_guide_link" envconfig:"REMITLY_HOW_TO_PAY_LINK"`
}

// HTTPConfig configures the webhook server of serve mode.
type HTTPConfig struct {
	ListenAddr    string `yaml:"listen_addr" envconfig:"HTTP_ADDR"`
	WebhookSecret string `yaml:"webhook_secret" envconfig:"RAZORPAY_WEBHOOK_SECRET"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level" envconfig:"LOG_LEVEL"`
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		Telegram: TelegramConfig{
			HelpContact: "@Dark123222_bot",
		},
		Payment: PaymentConfig{
			CryptoNetwork: "BEP20",
		},
		HTTP: HTTPConfig{
			ListenAddr: ":8000",
		},
		DataDir: DefaultDataDir,
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads the YAML file at path (missing file means defaults) and
// then applies environment overrides. An empty path skips the file and
// configures from the environment alone.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Validate checks the fields the bot cannot run without.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("bot token not configured (set BOT_TOKEN)")
	}
	if c.Telegram.AdminChatID == 0 {
		return fmt.Errorf("admin chat ID not configured (set ADMIN_CHAT_ID)")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data directory not configured (set DATA_DIR)")
	}
	return nil
}

// StatePath returns the full path of the persisted state snapshot.
func (c *Config) StatePath() string {
	return filepath.Join(c.DataDir, StateFileName)
}
