// Package config loads settings from flags, SPONGEPLAY_* environment
// variables and an optional config file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const EnvPrefix = "SPONGEPLAY"

const (
	BackendFile     = "file"
	BackendS3       = "s3"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

type Config struct {
	Addr      string          `mapstructure:"addr"`
	BaseURL   string          `mapstructure:"base_url"`
	Log       LogConfig       `mapstructure:"log"`
	Storage   StorageConfig   `mapstructure:"storage"`
	S3        S3Config        `mapstructure:"s3"`
	Database  DatabaseConfig  `mapstructure:"database"`
	SQLite    SQLiteConfig    `mapstructure:"sqlite"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Session   SessionConfig   `mapstructure:"session"`
	GeoIP     GeoIPConfig     `mapstructure:"geoip"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	Slack     SlackConfig     `mapstructure:"slack"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Web       WebConfig       `mapstructure:"web"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type AdminConfig struct {
	Password     string `mapstructure:"password"`
	PasswordHash string `mapstructure:"password_hash"`
}

type SessionConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type GeoIPConfig struct {
	Path string `mapstructure:"path"`
}

type WebhookConfig struct {
	URL    string `mapstructure:"url"`
	Secret string `mapstructure:"secret"`
}

type SlackConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
}

type RateLimitConfig struct {
	LoginRPS   float64 `mapstructure:"login_rps"`
	LoginBurst int     `mapstructure:"login_burst"`
	WriteRPS   float64 `mapstructure:"write_rps"`
	WriteBurst int     `mapstructure:"write_burst"`
}

type WebConfig struct {
	Dir            string `mapstructure:"dir"`
	FrameAncestors string `mapstructure:"frame_ancestors"`
}

var defaults = map[string]any{
	"addr":                  ":8080",
	"base_url":              "http://localhost:8080",
	"log.level":             "info",
	"log.format":            "text",
	"storage.backend":       BackendFile,
	"storage.dir":           ".",
	"s3.endpoint":           "",
	"s3.bucket":             "",
	"s3.region":             "us-east-1",
	"s3.access_key":         "",
	"s3.secret_key":         "",
	"s3.prefix":             "",
	"database.url":          "",
	"sqlite.path":           "spongeplay.db",
	"admin.password":        "spongebob",
	"admin.password_hash":   "",
	"session.secret":        "",
	"session.ttl":           12 * time.Hour,
	"geoip.path":            "",
	"webhook.url":           "",
	"webhook.secret":        "",
	"slack.webhook_url":     "",
	"ratelimit.login_rps":   0.5,
	"ratelimit.login_burst": 5,
	"ratelimit.write_rps":   2.0,
	"ratelimit.write_burst": 10,
	"web.dir":               "",
	"web.frame_ancestors":   "",
}

// New returns a viper instance carrying the defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags registers the persistent flags most often set on the command line.
func BindFlags(cmd *cobra.Command, v *viper.Viper) error {
	flags := cmd.PersistentFlags()
	flags.String("config", "", "Config file (toml, yaml or json)")
	flags.String("addr", defaults["addr"].(string), "Listen address")
	flags.String("log-level", defaults["log.level"].(string), "Log level (debug, info, warn, error)")
	flags.String("log-format", defaults["log.format"].(string), "Log format (text or json)")
	flags.String("storage", defaults["storage.backend"].(string), "Storage backend (file, s3, postgres, sqlite)")
	flags.String("data-dir", defaults["storage.dir"].(string), "Directory holding the board documents for the file backend")

	bindings := map[string]string{
		"config":          "config",
		"addr":            "addr",
		"log.level":       "log-level",
		"log.format":      "log-format",
		"storage.backend": "storage",
		"storage.dir":     "data-dir",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// Load reads the config file, if any, and decodes the merged settings.
func Load(v *viper.Viper) (*Config, error) {
	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readConfigFile(v *viper.Viper) error {
	if file := v.GetString("config"); file != "" {
		if _, err := os.Stat(file); err != nil {
			return fmt.Errorf("config file: %w", err)
		}
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", file, err)
		}
		return nil
	}

	v.SetConfigName("spongeplay")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".spongeplay"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Validate rejects unknown backends and backends missing their settings.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.Dir == "" {
			errs = append(errs, errors.New("storage.dir is required for the file backend"))
		}
	case BackendS3:
		if c.S3.Bucket == "" {
			errs = append(errs, errors.New("s3.bucket is required for the s3 backend"))
		}
	case BackendPostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required for the postgres backend"))
		}
	case BackendSQLite:
		if c.SQLite.Path == "" {
			errs = append(errs, errors.New("sqlite.path is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}

	if c.Admin.Password == "" && c.Admin.PasswordHash == "" {
		errs = append(errs, errors.New("admin.password or admin.password_hash is required"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session.ttl must be positive"))
	}
	if c.RateLimit.LoginRPS <= 0 || c.RateLimit.WriteRPS <= 0 {
		errs = append(errs, errors.New("rate limits must be positive"))
	}
	if c.Webhook.Secret != "" && c.Webhook.URL == "" {
		errs = append(errs, errors.New("webhook.secret is set without webhook.url"))
	}

	return errors.Join(errs...)
}
