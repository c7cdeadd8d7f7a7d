package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/cronstore/am"
	"github.com/teranos/cronstore/errors"
	"github.com/teranos/cronstore/logger"
	"github.com/teranos/cronstore/sym"
)

// app carries what every command needs once flags are parsed
type app struct {
	cfg *am.Config
}

// NewRootCmd builds the cronstore command tree
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "cronstore",
		Short: sym.Cron + " Multi-tenant scheduled job store",
		Long: sym.Cron + ` cronstore - multi-tenant scheduled job store

cronstore keeps one row per scheduled job (one-off or recurring) for many
tenants, answers cached queries over them, and reconciles a host's legacy
nested cron array against the store.

Available commands:
  migrate     - Apply schema migrations and backfill schedule labels
  list        - List a tenant's jobs
  due         - Show waiting jobs that are due now
  job         - Show one job
  schedule    - Schedule a one-off or recurring event
  reschedule  - Advance a recurring event by one interval
  unschedule  - Remove one event
  clear       - Remove every waiting event of a hook
  cron-array  - Show or apply the legacy cron array
  log         - Browse execution logs
  schedules   - Show registered frequencies
  am          - Show and validate configuration

Examples:
  cronstore migrate
  cronstore schedule send_digest --at +1h --every daily --args "user:5"
  cronstore list --hook send_digest
  cronstore --site 3 due --json`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	root.PersistentFlags().Bool("json", false, "Output JSON")
	root.PersistentFlags().String("config", "", "Config file (default: layered cronstore.toml lookup)")
	root.PersistentFlags().String("db", "", "Database path (overrides database.path)")
	root.PersistentFlags().Int64("site", 0, "Tenant id (overrides site.default)")

	root.AddCommand(
		newMigrateCmd(a),
		newListCmd(a),
		newDueCmd(a),
		newJobCmd(a),
		newScheduleCmd(a),
		newRescheduleCmd(a),
		newUnscheduleCmd(a),
		newClearCmd(a),
		newCronArrayCmd(a),
		newLogCmd(a),
		newSchedulesCmd(a),
		newAmCmd(a),
		newVersionCmd(),
	)
	for _, c := range root.Commands() {
		if glyph, ok := sym.CommandToSymbol[c.Name()]; ok {
			c.Short = glyph + " " + c.Short
		}
	}
	return root
}

// setup loads configuration, applies flag overrides and initializes the logger
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a.cfg = cfg

	verbosity, _ := cmd.Flags().GetCount("verbose")
	if v := cfg.Log.Verbosity(); v > verbosity {
		verbosity = v
	}
	if err := logger.Initialize(cfg.Log.JSON, verbosity); err != nil {
		return errors.Wrap(err, "failed to initialize logger")
	}
	return nil
}

// loadConfig returns a private copy of the effective configuration
func loadConfig(cmd *cobra.Command) (*am.Config, error) {
	var (
		loaded *am.Config
		err    error
	)
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err = am.LoadFromFile(path)
	} else {
		loaded, err = am.Load()
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}

	cfg := *loaded
	if f := cmd.Flags().Lookup("db"); f != nil && f.Changed {
		cfg.Database.Path = f.Value.String()
	}
	if f := cmd.Flags().Lookup("site"); f != nil && f.Changed {
		cfg.Site.Default, _ = cmd.Flags().GetInt64("site")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
