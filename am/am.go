// Package am is cronstore's configuration: defaults, layered TOML files,
// CRONSTORE_* environment overrides, validation, hot reload and persistence.
package am

import (
	"fmt"
	"time"
)

// Config represents the cronstore configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database" toml:"database" json:"database" yaml:"database"`
	Cache     CacheConfig     `mapstructure:"cache" toml:"cache" json:"cache" yaml:"cache"`
	Site      SiteConfig      `mapstructure:"site" toml:"site" json:"site" yaml:"site"`
	Schedules SchedulesConfig `mapstructure:"schedules" toml:"schedules" json:"schedules" yaml:"schedules"`
	Log       LogConfig       `mapstructure:"log" toml:"log" json:"log" yaml:"log"`
	Reconcile ReconcileConfig `mapstructure:"reconcile" toml:"reconcile" json:"reconcile" yaml:"reconcile"`
}

// DatabaseConfig configures the SQLite job store
type DatabaseConfig struct {
	Path string `mapstructure:"path" toml:"path" json:"path" yaml:"path"`
}

// CacheConfig configures the in-process query cache
type CacheConfig struct {
	Enabled bool `mapstructure:"enabled" toml:"enabled" json:"enabled" yaml:"enabled"`
	Size    int  `mapstructure:"size" toml:"size" json:"size" yaml:"size"` // max entries (default: 4096)
}

// SiteConfig selects the tenant commands act on
type SiteConfig struct {
	Default int64 `mapstructure:"default" toml:"default" json:"default" yaml:"default"`
}

// SchedulesConfig points at the named frequency table
type SchedulesConfig struct {
	File  string `mapstructure:"file" toml:"file" json:"file" yaml:"file"`    // empty = built-in hourly/twicedaily/daily/weekly
	Watch bool   `mapstructure:"watch" toml:"watch" json:"watch" yaml:"watch"` // reload File on change
}

// LogConfig configures logger.Initialize
type LogConfig struct {
	JSON  bool   `mapstructure:"json" toml:"json" json:"json" yaml:"json"`
	Level string `mapstructure:"level" toml:"level" json:"level" yaml:"level"` // warn, info, debug
}

// ReconcileConfig tunes the scheduler connector
type ReconcileConfig struct {
	BulkLimit              int `mapstructure:"bulk_limit" toml:"bulk_limit" json:"bulk_limit" yaml:"bulk_limit"`
	DuplicateWindowSeconds int `mapstructure:"duplicate_window_seconds" toml:"duplicate_window_seconds" json:"duplicate_window_seconds" yaml:"duplicate_window_seconds"`
}

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)

// DuplicateWindow returns the one-off dedup window as a duration.
func (r ReconcileConfig) DuplicateWindow() time.Duration {
	return time.Duration(r.DuplicateWindowSeconds) * time.Second
}

// Verbosity maps the log level onto logger verbosity counts.
func (l LogConfig) Verbosity() int {
	switch l.Level {
	case "debug":
		return 2
	case "info":
		return 1
	default:
		return 0
	}
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Database: %s, Cache: {Enabled: %t, Size: %d}, Site: %d}",
		c.Database.Path, c.Cache.Enabled, c.Cache.Size, c.Site.Default)
}
