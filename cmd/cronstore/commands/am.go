package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/teranos/cronstore/am"
	"github.com/teranos/cronstore/display"
	"github.com/teranos/cronstore/errors"
	"github.com/teranos/cronstore/sym"
)

func newAmCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "am",
		Short: "Show and validate configuration",
		Long: sym.AM + ` am - cronstore configuration ("I am")

Configuration sources (later overrides earlier):
1. Default values
2. System config (/etc/cronstore/config.toml)
3. User config (~/.cronstore/am.toml)
4. Project config (cronstore.toml, searched upward from the working directory)
5. Environment variables (CRONSTORE_* prefix, e.g. CRONSTORE_SITE_DEFAULT)
6. Command line flags (--db, --site)

Examples:
  cronstore am show                 # Show current configuration
  cronstore am show --format json   # Show configuration in JSON format
  cronstore am show --sources       # Show where each value comes from
  cronstore am get site.default     # Get one value
  cronstore am init cronstore.toml  # Write the current configuration to a file`,
	}

	var (
		format  string
		sources bool
	)
	show := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if sources {
				return writeSources(cmd, am.Introspect())
			}
			if display.ShouldOutputJSON(cmd) {
				format = "json"
			}
			data, err := am.Marshal(a.cfg, format)
			if err != nil {
				return err
			}
			if format != "json" {
				fmt.Fprintln(cmd.OutOrStdout(), "# cronstore configuration")
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	show.Flags().StringVar(&format, "format", "toml", "Output format: toml, json, yaml")
	show.Flags().BoolVar(&sources, "sources", false, "Show the source of every setting")

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Get a specific configuration value",
		Long:  "Get a specific configuration value using dot notation (e.g., database.path, reconcile.bulk_limit)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !am.GetViper().IsSet(args[0]) {
				return errors.NewNotFoundError("configuration key %q", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), am.Get(args[0]))
			return nil
		},
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Validate current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// setup has already validated the effective configuration
			fmt.Fprintf(cmd.OutOrStdout(), "%s Configuration is valid\n", sym.AM)
			return nil
		},
	}

	initCmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write the current configuration to a TOML file",
		Long: `Write the effective configuration to path. An existing file is kept as
path.back1 (older copies rotate to .back2 and .back3).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := am.Save(a.cfg, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote %s\n", sym.AM, args[0])
			return nil
		},
	}

	watch := &cobra.Command{
		Use:   "watch <path>",
		Short: "Print the configuration each time path changes, until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := am.NewConfigWatcher(args[0])
			if err != nil {
				return err
			}
			am.SetGlobalWatcher(w)
			defer func() {
				am.SetGlobalWatcher(nil)
				w.Stop()
			}()

			out := cmd.OutOrStdout()
			w.OnReload(func(cfg *am.Config) error {
				fmt.Fprintf(out, "%s Reloaded %s: %s\n", sym.AM, args[0], cfg)
				return nil
			})
			w.Start()

			fmt.Fprintf(out, "%s Watching %s, Ctrl+C to stop\n", sym.AM, args[0])
			waitForSignal(cmd.Context())
			return nil
		},
	}

	cmd.AddCommand(show, get, validate, initCmd, watch)
	return cmd
}

// writeSources prints settings grouped by the layer that supplied them
func writeSources(cmd *cobra.Command, settings []am.SettingInfo) error {
	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(cmd.OutOrStdout(), settings)
	}

	sourceOrder := map[am.ConfigSource]int{
		am.SourceDefault:     0,
		am.SourceSystem:      1,
		am.SourceUser:        2,
		am.SourceProject:     3,
		am.SourceEnvironment: 4,
	}
	sorted := make([]am.SettingInfo, len(settings))
	copy(sorted, settings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sourceOrder[sorted[i].Source] < sourceOrder[sorted[j].Source]
	})

	rows := make([][]string, 0, len(sorted))
	for _, s := range sorted {
		value := fmt.Sprintf("%v", s.Value)
		// Truncate long values
		if len(value) > 50 {
			value = value[:47] + "..."
		}
		rows = append(rows, []string{s.Key, value, string(s.Source), s.SourcePath})
	}
	return display.Table(cmd.OutOrStdout(), []string{"KEY", "VALUE", "SOURCE", "FROM"}, rows)
}
