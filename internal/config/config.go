package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "TELEGATE_CONFIG"

// envPrefix is stripped from environment variables before mapping them onto
// config paths: TELEGATE_TELEGRAM_API_ID -> telegram.api_id.
const envPrefix = "TELEGATE_"

var defaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/telegate/config.yaml",
}

type Config struct {
	Telegram TelegramConfig `koanf:"telegram"`
	Server   ServerConfig   `koanf:"server"`
	Media    MediaConfig    `koanf:"media"`
	API      APIConfig      `koanf:"api"`
	LogLevel string         `koanf:"log_level" validate:"oneof=debug info warn error"`
}

// TelegramConfig holds the MTProto credentials and the single target channel.
// Channel accepts a public handle (with or without @) or a numeric id,
// including the -100-prefixed form.
type TelegramConfig struct {
	APIID      int    `koanf:"api_id" validate:"required,gt=0"`
	APIHash    string `koanf:"api_hash" validate:"required"`
	Channel    string `koanf:"channel" validate:"required"`
	SessionDir string `koanf:"session_dir" validate:"required"`
}

type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port" validate:"gt=0,lte=65535"`
	Timeout     time.Duration `koanf:"timeout"`
	CORSOrigins []string      `koanf:"cors_origins"`
	RateLimit   int           `koanf:"rate_limit" validate:"gt=0"`
}

type MediaConfig struct {
	CacheDir string `koanf:"cache_dir" validate:"required"`
}

type APIConfig struct {
	DefaultLimit int `koanf:"default_limit" validate:"gt=0"`
	MaxLimit     int `koanf:"max_limit" validate:"gt=0"`
	// MaxScanBatches caps how many upstream history batches one request may
	// consume when a sparse date range forces internal paging.
	MaxScanBatches int `koanf:"max_scan_batches" validate:"gt=0"`
}

func defaults() *Config {
	return &Config{
		Telegram: TelegramConfig{
			SessionDir: "sessions",
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8000,
			Timeout:     30 * time.Second,
			CORSOrigins: []string{"*"},
			RateLimit:   100,
		},
		Media: MediaConfig{
			CacheDir: "media",
		},
		API: APIConfig{
			DefaultLimit:   20,
			MaxLimit:       100,
			MaxScanBatches: 10,
		},
		LogLevel: "info",
	}
}

// Load builds the configuration from defaults, an optional yaml file and
// TELEGATE_-prefixed environment variables, in increasing priority.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if cfg.API.DefaultLimit > cfg.API.MaxLimit {
		return nil, fmt.Errorf("validate config: default_limit %d exceeds max_limit %d",
			cfg.API.DefaultLimit, cfg.API.MaxLimit)
	}

	return &cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range defaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envTransform maps TELEGATE_TELEGRAM_API_ID to telegram.api_id. The first
// underscore separates the section; the rest of the name keeps its
// underscores.
func envTransform(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	if key == "log_level" {
		return key
	}
	section, rest, found := strings.Cut(key, "_")
	if !found {
		return key
	}
	return section + "." + rest
}
