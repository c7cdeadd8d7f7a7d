package am

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "cronstore.db")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.size", 4096)

	v.SetDefault("site.default", 1)

	v.SetDefault("schedules.file", "")
	v.SetDefault("schedules.watch", false)

	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "warn")

	v.SetDefault("reconcile.bulk_limit", 1000)
	v.SetDefault("reconcile.duplicate_window_seconds", 600) // ten minutes either side
}

// BindEnvVars binds the settings most often overridden per process.
// Names mirror AutomaticEnv's derivation; a variable named after a parent
// table (CRONSTORE_SITE) would replace the whole table with a scalar.
func BindEnvVars(v *viper.Viper) {
	v.BindEnv("database.path", "CRONSTORE_DATABASE_PATH")
	v.BindEnv("site.default", "CRONSTORE_SITE_DEFAULT")
}

// GetDatabasePath returns the configured database path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return "cronstore.db"
	}
	return c.Database.Path
}
