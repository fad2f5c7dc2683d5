// Package appconfig loads the configuration of the membership commands.
//
// Configuration comes from a YAML file named by the --config flag or the
// MEMBERSHIP_CONFIG environment variable, then MEMBERSHIP_* environment
// variables override individual values. Without a file the defaults plus
// the environment are used, so that deployment scripts can run from the
// environment alone.
package appconfig

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	membership "github.com/xraph/membership"
	"github.com/xraph/membership/store/driver"
)

// ConfigEnv names the environment variable holding the config file path.
const ConfigEnv = "MEMBERSHIP_CONFIG"

// Config is the configuration shared by the membership commands.
type Config struct {
	// Listen is the HTTP listen address of membershipd.
	// Default: :8080
	Listen string `yaml:"listen"`

	// BasePath is the URL prefix of the API.
	// Default: /membership
	BasePath string `yaml:"base_path"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// PluginTimeout bounds each plugin hook call.
	// Default: 5s
	PluginTimeout time.Duration `yaml:"plugin_timeout"`

	Log        LogConfig         `yaml:"log"`
	Collection membership.Config `yaml:"collection"`
	Store      driver.Config     `yaml:"store"`
	Metrics    MetricsConfig     `yaml:"metrics"`
	Audit      AuditConfig       `yaml:"audit"`
	Publish    PublishConfig     `yaml:"publish"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	// Default: info
	Level string `yaml:"level"`

	// Format is "json" or "text".
	// Default: json
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Path      string `yaml:"path"`
}

// AuditConfig enables the audit trail, written to the process log.
type AuditConfig struct {
	Enabled bool     `yaml:"enabled"`
	Actions []string `yaml:"actions"`
}

// PublishConfig configures event publishers. A publisher is enabled when
// its address is set.
type PublishConfig struct {
	Kafka    KafkaConfig    `yaml:"kafka"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
}

// KafkaConfig configures the Kafka publisher.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// RabbitMQConfig configures the RabbitMQ publisher.
type RabbitMQConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Listen:          ":8080",
		BasePath:        "/membership",
		ShutdownTimeout: 10 * time.Second,
		PluginTimeout:   5 * time.Second,
		Log:             LogConfig{Level: "info", Format: "json"},
		Collection:      membership.DefaultConfig(),
		Store:           driver.Config{Driver: driver.Memory},
		Metrics:         MetricsConfig{Namespace: "membership", Path: "/metrics"},
		Publish: PublishConfig{
			Kafka:    KafkaConfig{Topic: "membership.events"},
			RabbitMQ: RabbitMQConfig{Exchange: "membership.events"},
		},
	}
}

// Load reads the file at path, or at $MEMBERSHIP_CONFIG when path is
// empty, and applies environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(ConfigEnv)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("appconfig: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("appconfig: parse %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides values from MEMBERSHIP_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("MEMBERSHIP_NAME", &c.Collection.Name)
	str("MEMBERSHIP_SYMBOL", &c.Collection.Symbol)
	str("MEMBERSHIP_BASEURI", &c.Collection.BaseURI)
	str("MEMBERSHIP_ADMIN", &c.Collection.Admin)
	str("MEMBERSHIP_CURRENCY", &c.Collection.Currency)
	str("MEMBERSHIP_LISTEN", &c.Listen)
	str("MEMBERSHIP_STORE_DRIVER", &c.Store.Driver)
	str("MEMBERSHIP_STORE_DSN", &c.Store.DSN)
	str("MEMBERSHIP_LOG_LEVEL", &c.Log.Level)

	if v, ok := lookup("MEMBERSHIP_MAX_SUPPLY"); ok && v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("appconfig: MEMBERSHIP_MAX_SUPPLY: %w", err)
		}
		c.Collection.MaxSupply = n
	}

	if v, ok := lookup("MEMBERSHIP_KAFKA_BROKERS"); ok && v != "" {
		c.Publish.Kafka.Brokers = strings.Split(v, ",")
	}
	str("MEMBERSHIP_RABBITMQ_URL", &c.Publish.RabbitMQ.URL)

	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Collection.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if f := c.Log.Format; f != "json" && f != "text" {
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", f))
	}
	switch c.Store.Name() {
	case driver.Memory, driver.SQLite, driver.Postgres, driver.Mongo, driver.File:
	default:
		errs = append(errs, fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver))
	}
	if len(c.Publish.Kafka.Brokers) > 0 && c.Publish.Kafka.Topic == "" {
		errs = append(errs, errors.New("publish.kafka.topic is required when brokers are set"))
	}

	return errors.Join(errs...)
}

// Logger builds the process logger writing to w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if c.Log.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
