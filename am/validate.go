package am

import (
	"strings"

	"github.com/teranos/cronstore/errors"
	"github.com/teranos/cronstore/jobs"
)

// Validate checks the configuration and reports every problem at once
func (c *Config) Validate() error {
	var problems []string

	if c.Cache.Size < 0 {
		problems = append(problems, errors.Newf("cache.size must be >= 0, got %d", c.Cache.Size).Error())
	}

	// Tenants are positive; 0 would make every command fail with an invalid tenant
	if c.Site.Default <= 0 {
		problems = append(problems, errors.Newf("site.default must be > 0, got %d", c.Site.Default).Error())
	}

	if c.Schedules.Watch && c.Schedules.File == "" {
		problems = append(problems, "schedules.watch requires schedules.file")
	}

	switch c.Log.Level {
	case "", "warn", "info", "debug":
	default:
		problems = append(problems, errors.Newf("log.level must be warn, info or debug, got %q", c.Log.Level).Error())
	}

	if c.Reconcile.BulkLimit <= 0 || c.Reconcile.BulkLimit > jobs.MaxLimit {
		problems = append(problems, errors.Newf("reconcile.bulk_limit must be in 1..%d, got %d", jobs.MaxLimit, c.Reconcile.BulkLimit).Error())
	}
	if c.Reconcile.DuplicateWindowSeconds < 0 {
		problems = append(problems, errors.Newf("reconcile.duplicate_window_seconds must be >= 0, got %d", c.Reconcile.DuplicateWindowSeconds).Error())
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.WithHint(
		errors.Newf("invalid configuration: %s", strings.Join(problems, "; ")),
		"run 'cronstore am show --sources' to see where each value comes from",
	)
}
