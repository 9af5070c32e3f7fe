// Package config resolves campaigner settings from, in increasing priority,
// built-in defaults, an optional YAML file, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/unclebandit/campaigner/internal/channel"
	"github.com/unclebandit/campaigner/internal/importer"
)

type Config struct {
	DataDir       string `yaml:"data_dir" env:"DATA_DIR"`
	CampaignsFile string `yaml:"campaigns_file" env:"CAMPAIGNS_FILE"`
	TrackingFile  string `yaml:"tracking_file" env:"TRACKING_FILE"`
	ListenAddr    string `yaml:"listen_addr" env:"LISTEN_ADDR"`

	OsascriptPath   string        `yaml:"osascript_path" env:"OSASCRIPT_PATH"`
	PrimaryService  string        `yaml:"primary_service" env:"PRIMARY_SERVICE"`
	FallbackService string        `yaml:"fallback_service" env:"FALLBACK_SERVICE"`
	EnableFallback  bool          `yaml:"enable_fallback" env:"ENABLE_FALLBACK"`
	ConfirmDelay    time.Duration `yaml:"confirm_delay" env:"CONFIRM_DELAY"`

	ImportEncodings []string `yaml:"import_encodings" env:"IMPORT_ENCODINGS" envSeparator:","`

	AMQPURL   string `yaml:"amqp_url" env:"AMQP_URL"`
	AMQPQueue string `yaml:"amqp_queue" env:"AMQP_QUEUE"`

	LogLevel       string `yaml:"log_level" env:"LOG_LEVEL"`
	LogDevelopment bool   `yaml:"log_development" env:"LOG_DEVELOPMENT"`
}

func DefaultConfig() *Config {
	return &Config{
		DataDir:         ".",
		CampaignsFile:   "campaigns.json",
		TrackingFile:    "tracking_info.json",
		ListenAddr:      ":8080",
		OsascriptPath:   "osascript",
		PrimaryService:  "iMessage",
		FallbackService: "SMS",
		EnableFallback:  true,
		ConfirmDelay:    2 * time.Second,
		ImportEncodings: append([]string(nil), importer.DefaultEncodings...),
		AMQPQueue:       "recipient_outcomes",
		LogLevel:        "info",
	}
}

// Load builds the configuration. A missing YAML file or .env is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	// .env only fills variables the environment does not already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if !channel.ValidService(c.PrimaryService) {
		return fmt.Errorf("invalid primary_service %q (want one of %v)", c.PrimaryService, channel.KnownServices)
	}
	if c.EnableFallback && !channel.ValidService(c.FallbackService) {
		return fmt.Errorf("invalid fallback_service %q (want one of %v)", c.FallbackService, channel.KnownServices)
	}
	if c.ConfirmDelay < 0 {
		return fmt.Errorf("confirm_delay must not be negative")
	}
	if c.CampaignsFile == "" || c.TrackingFile == "" {
		return fmt.Errorf("campaigns_file and tracking_file are required")
	}
	return nil
}

// Services lists the Messages services to try, in order.
func (c *Config) Services() []string {
	services := []string{c.PrimaryService}
	if c.EnableFallback && c.FallbackService != c.PrimaryService {
		services = append(services, c.FallbackService)
	}
	return services
}

func (c *Config) CampaignsPath() string {
	return c.resolve(c.CampaignsFile)
}

func (c *Config) TrackingPath() string {
	return c.resolve(c.TrackingFile)
}

func (c *Config) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}
