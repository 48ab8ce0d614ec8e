// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - New builds a Config with defaults; Load layers file and env on top.
//   - Validate reports every problem as ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogJSON switches log output to JSON lines.
	LogJSON bool `koanf:"log_json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Driver selects the SQL dialect: sqlite or pgx.
	Driver string `koanf:"driver"`

	// DSN is the driver-specific data source name.
	DSN string `koanf:"dsn"`

	// QueryTimeoutMS bounds each projection query.
	QueryTimeoutMS int `koanf:"query_timeout_ms"`

	// Connection pool settings.
	MaxOpenConns     int `koanf:"max_open_conns"`
	MaxIdleConns     int `koanf:"max_idle_conns"`
	ConnMaxLifetimeS int `koanf:"conn_max_lifetime_s"`

	// Metrics settings. Labels are added to every series and are only
	// read from the config file.
	MetricsEnabled   bool              `koanf:"metrics_enabled"`
	MetricsNamespace string            `koanf:"metrics_namespace"`
	MetricsRefreshS  int               `koanf:"metrics_refresh_s"`
	MetricsLabels    map[string]string `koanf:"metrics_labels"`
}

// New creates a Config with defaults. The context is reserved for loaders
// that need one.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9080",
		Driver:           "sqlite",
		DSN:              "file:olympics.db?mode=ro",
		QueryTimeoutMS:   5000,
		MaxOpenConns:     16,
		MaxIdleConns:     4,
		ConnMaxLifetimeS: 1800,
		MetricsEnabled:   true,
		MetricsNamespace: "pythians",
		MetricsRefreshS:  10,
	}
}

// QueryTimeout returns QueryTimeoutMS as a duration.
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutMS) * time.Millisecond
}

// MetricsRefresh returns MetricsRefreshS as a duration.
func (c *Config) MetricsRefresh() time.Duration {
	return time.Duration(c.MetricsRefreshS) * time.Second
}

// ConnMaxLifetime returns ConnMaxLifetimeS as a duration.
func (c *Config) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeS) * time.Second
}

// metricName matches Prometheus metric and label name components.
var metricName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`) //nolint:gochecknoglobals // compiled once

var knownDrivers = map[string]bool{ //nolint:gochecknoglobals // lookup table
	"sqlite":     true,
	"sqlite3":    true,
	"pgx":        true,
	"postgres":   true,
	"postgresql": true,
}

// Validate checks the loaded values.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.DSN) == "":
		return fmt.Errorf("%w: dsn must not be empty", ErrInvalidConfig)
	case !knownDrivers[strings.ToLower(strings.TrimSpace(c.Driver))]:
		return fmt.Errorf("%w: unknown driver %q", ErrInvalidConfig, c.Driver)
	case c.QueryTimeoutMS <= 0:
		return fmt.Errorf("%w: query_timeout_ms must be positive", ErrInvalidConfig)
	case c.MaxOpenConns < 0 || c.MaxIdleConns < 0 || c.ConnMaxLifetimeS < 0:
		return fmt.Errorf("%w: pool settings must not be negative", ErrInvalidConfig)
	case !metricName.MatchString(c.MetricsNamespace):
		return fmt.Errorf("%w: metrics_namespace %q is not a valid metric name", ErrInvalidConfig, c.MetricsNamespace)
	case c.MetricsRefreshS <= 0:
		return fmt.Errorf("%w: metrics_refresh_s must be positive", ErrInvalidConfig)
	}
	for name := range c.MetricsLabels {
		if !metricName.MatchString(name) || strings.HasPrefix(name, "__") {
			return fmt.Errorf("%w: metrics_labels key %q is not a valid label name", ErrInvalidConfig, name)
		}
	}
	return nil
}
