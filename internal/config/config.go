// Package config loads the configuration of the sortable command.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/syssam/sortable/dialect"
)

// Sentinel error kinds for this package.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

// Config contains the command configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Dialect is one of sqlite, postgres, mysql.
	Dialect string `koanf:"dialect"`

	// DSN is the data source name passed to the database driver.
	DSN string `koanf:"dsn"`

	// Schema is the path of the YAML behavior definition.
	Schema string `koanf:"schema"`

	// Stats prints SQL statement statistics when a command ends.
	Stats bool `koanf:"stats"`

	// Debug logs every SQL statement at debug level.
	Debug bool `koanf:"debug"`

	// SlowThreshold marks statements running longer as slow.
	SlowThreshold time.Duration `koanf:"slow_threshold"`
}

// New returns a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:      "info",
		Dialect:       dialect.SQLite,
		DSN:           "file:sortable.db",
		Schema:        "sortable.yaml",
		SlowThreshold: 100 * time.Millisecond,
	}
}

// Level returns the slog level of LogLevel.
func (c *Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Dialect {
	case dialect.SQLite, dialect.Postgres, dialect.MySQL:
	default:
		return fmt.Errorf("%w: unknown dialect %q", ErrInvalidConfig, c.Dialect)
	}
	if strings.TrimSpace(c.DSN) == "" {
		return fmt.Errorf("%w: dsn must not be empty", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Schema) == "" {
		return fmt.Errorf("%w: schema must not be empty", ErrInvalidConfig)
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("%w: log_level: %v", ErrInvalidConfig, err)
	}
	return nil
}
