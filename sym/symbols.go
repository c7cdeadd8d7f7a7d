// Package sym defines the glyphs cronstore attaches to log lines and CLI output.
// These symbols are stable across log fields, CLI help and documentation.
package sym

// System symbols.
const (
	Cron      = "꩜" // job store and reconciliation
	DB        = "⊔" // database/storage layer
	Cache     = "⟳" // query cache and generation tokens
	AM        = "≡" // configuration
	Schedules = "✦" // registered named frequencies
	Legacy    = "⌗" // legacy nested cron array boundary
)

// CommandToSymbol maps top-level CLI commands to the glyph prefixed to
// their short help.
var CommandToSymbol = map[string]string{
	"migrate":    DB,
	"list":       Cron,
	"due":        Cron,
	"job":        Cron,
	"schedule":   Cron,
	"reschedule": Cron,
	"unschedule": Cron,
	"clear":      Cron,
	"log":        Cron,
	"cron-array": Legacy,
	"schedules":  Schedules,
	"am":         AM,
}

// Describe returns a one-line description for a glyph, or "" if unknown.
func Describe(glyph string) string {
	switch glyph {
	case Cron:
		return "Scheduled jobs and reconciliation"
	case DB:
		return "Database and migrations"
	case Cache:
		return "Query cache and generation tokens"
	case AM:
		return "Configuration"
	case Schedules:
		return "Registered named frequencies"
	case Legacy:
		return "Legacy nested cron array"
	}
	return ""
}
