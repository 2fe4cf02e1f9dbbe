// Package config loads application configuration from a YAML file and
// environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "ALERTFLOW_"

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server" validate:"required"`
	Log      LogConfig      `koanf:"log"`
	Queue    QueueConfig    `koanf:"queue"`
	Telegram TelegramConfig `koanf:"telegram" validate:"required"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port" validate:"required"`
	MetricsPort       string        `koanf:"metrics_port" validate:"required"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `koanf:"format" validate:"omitempty,oneof=json text"`
}

// QueueConfig contains alert queue tuning knobs.
type QueueConfig struct {
	DedupWindow     time.Duration `koanf:"dedup_window"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	WorkerInterval  time.Duration `koanf:"worker_interval"`
	SweepInterval   time.Duration `koanf:"sweep_interval"`
	BatchSize       int           `koanf:"batch_size" validate:"omitempty,min=1,max=100"`
	MaxAttempts     int           `koanf:"max_attempts" validate:"omitempty,min=1,max=10"`
	SendPace        time.Duration `koanf:"send_pace"`
	SentGrace       time.Duration `koanf:"sent_grace"`
}

// TelegramConfig contains sink settings. Destinations maps logical
// destination names to chat IDs.
type TelegramConfig struct {
	APIURL       string            `koanf:"api_url"`
	BotToken     string            `koanf:"bot_token" validate:"required"`
	ParseMode    string            `koanf:"parse_mode"`
	Timeout      time.Duration     `koanf:"timeout"`
	Destinations map[string]string `koanf:"destinations" validate:"required,min=1"`
}

// Default returns configuration defaults applied before file and env
// overrides.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			MetricsPort:       "9090",
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Queue: QueueConfig{
			DedupWindow:     2 * time.Hour,
			RateLimitWindow: 2 * time.Hour,
			WorkerInterval:  5 * time.Second,
			SweepInterval:   1 * time.Hour,
			BatchSize:       5,
			MaxAttempts:     3,
			SendPace:        1 * time.Second,
			SentGrace:       5 * time.Minute,
		},
		Telegram: TelegramConfig{
			APIURL:    "https://api.telegram.org",
			ParseMode: "Markdown",
			Timeout:   10 * time.Second,
		},
	}
}

// Load reads configuration from the given YAML file (optional) and
// ALERTFLOW_* environment variables, applies defaults, and validates the
// result. Env keys map double underscores to nesting:
// ALERTFLOW_TELEGRAM__BOT_TOKEN → telegram.bot_token.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := Default()

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
