package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Oiflow   OiflowConfig   `yaml:"oiflow"`
	Source   SourceConfig   `yaml:"source"`
	Reader   ReaderConfig   `yaml:"reader"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Notify   NotifyConfig   `yaml:"notify"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type OiflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type SourceConfig struct {
	Nse NseSourceConfig `yaml:"nse"`
}

type NseSourceConfig struct {
	BaseURL           string               `yaml:"base_url"`
	ChainURL          string               `yaml:"chain_url"`
	HistoryURL        string               `yaml:"history_url"`
	Symbols           []string             `yaml:"symbols"`
	HistoryWindowDays int                  `yaml:"history_window_days"`
	ConnectionPool    ConnectionPoolConfig `yaml:"connection_pool"`
}

type ConnectionPoolConfig struct {
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxConnsPerHost int           `yaml:"max_conns_per_host"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

type ReaderConfig struct {
	Timeout   time.Duration   `yaml:"timeout"`
	Retry     RetryConfig     `yaml:"retry"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type RetryConfig struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	BaseDelay         time.Duration `yaml:"base_delay"`
	MaxDelay          time.Duration `yaml:"max_delay"`
	BackoffMultiplier int           `yaml:"backoff_multiplier"`
}

type RateLimitConfig struct {
	MinInterval time.Duration `yaml:"min_interval"`
	BurstSize   int           `yaml:"burst_size"`
}

type AnalysisConfig struct {
	OiThreshold        float64   `yaml:"oi_threshold"`
	VolSpreadThreshold float64   `yaml:"vol_spread_threshold"`
	WatchOffsets       []float64 `yaml:"watch_offsets"`
	Volatility         bool      `yaml:"volatility"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool          `yaml:"enabled"`
	APIBase  string        `yaml:"api_base"`
	BotToken string        `yaml:"bot_token"`
	ChatID   string        `yaml:"chat_id"`
	Timeout  time.Duration `yaml:"timeout"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Compression     string `yaml:"compression"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

type MetricsConfig struct {
	CloudWatch bool   `yaml:"cloudwatch"`
	Namespace  string `yaml:"namespace"`
}

func LoadConfig(path string) (*Config, error) {
	// Read configuration file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Reader: ReaderConfig{
			Timeout: 10 * time.Second,
			Retry: RetryConfig{
				MaxAttempts:       3,
				BaseDelay:         2 * time.Second,
				MaxDelay:          30 * time.Second,
				BackoffMultiplier: 2,
			},
			RateLimit: RateLimitConfig{
				MinInterval: 1500 * time.Millisecond,
				BurstSize:   1,
			},
		},
		Analysis: AnalysisConfig{
			OiThreshold:        30,
			VolSpreadThreshold: 5,
			WatchOffsets:       []float64{-200, -100, 0, 100, 200},
		},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Credentials come from the environment, never from the file checked
	// into the repository.
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		config.Notify.Telegram.BotToken = strings.TrimSpace(v)
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		config.Notify.Telegram.ChatID = strings.TrimSpace(v)
	}

	// Override S3 settings from environment variables if available
	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Oiflow.Name == "" {
		return fmt.Errorf("oiflow.name is required")
	}

	if cfg.Oiflow.Version == "" {
		return fmt.Errorf("oiflow.version is required")
	}

	if cfg.Source.Nse.BaseURL == "" {
		return fmt.Errorf("source.nse.base_url is required")
	}
	if cfg.Source.Nse.ChainURL == "" {
		return fmt.Errorf("source.nse.chain_url is required")
	}
	if len(cfg.Source.Nse.Symbols) == 0 {
		return fmt.Errorf("source.nse.symbols must not be empty")
	}
	if cfg.Source.Nse.HistoryWindowDays <= 0 {
		cfg.Source.Nse.HistoryWindowDays = 30
	}

	if cfg.Reader.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("reader.retry.max_attempts must be greater than 0")
	}
	if cfg.Reader.Retry.BaseDelay <= 0 {
		return fmt.Errorf("reader.retry.base_delay must be greater than 0")
	}
	if cfg.Reader.RateLimit.MinInterval <= 0 {
		return fmt.Errorf("reader.rate_limit.min_interval must be greater than 0")
	}

	if cfg.Analysis.OiThreshold <= 0 {
		return fmt.Errorf("analysis.oi_threshold must be greater than 0")
	}
	if len(cfg.Analysis.WatchOffsets) == 0 {
		return fmt.Errorf("analysis.watch_offsets must not be empty")
	}

	if cfg.Notify.Telegram.Enabled {
		if cfg.Notify.Telegram.BotToken == "" || cfg.Notify.Telegram.ChatID == "" {
			return fmt.Errorf("notify.telegram requires TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID when enabled")
		}
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if cfg.Storage.S3.AccessKeyID == "" || cfg.Storage.S3.SecretAccessKey == "" {
			return fmt.Errorf("storage.s3.access_key_id and storage.s3.secret_access_key are required when S3 is enabled")
		}
	}

	return nil
}
