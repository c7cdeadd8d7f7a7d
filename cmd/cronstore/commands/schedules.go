package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/teranos/cronstore/display"
	"github.com/teranos/cronstore/errors"
	"github.com/teranos/cronstore/logger"
	"github.com/teranos/cronstore/schedules"
	"github.com/teranos/cronstore/sym"
)

func newSchedulesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedules",
		Short: "Show registered frequencies",
		Long: sym.Schedules + ` schedules - registered named frequencies

The built-in table is hourly, twicedaily, daily and weekly. Set
schedules.file to a TOML file to replace it:

  [[schedule]]
  name = "every_15m"
  interval = "@every 15m"
  display = "Every 15 minutes"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := a.registry()
			if err != nil {
				return err
			}
			return writeSchedules(cmd, registry.All())
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Reload schedules.file on change until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.cfg.Schedules.File
			if path == "" {
				return errors.WithHint(
					errors.NewInvalidRequestError("no schedules file configured"),
					"set schedules.file in cronstore.toml",
				)
			}
			registry, err := a.registry()
			if err != nil {
				return err
			}

			w, err := schedules.NewWatcher(path, registry, logger.Logger)
			if err != nil {
				return err
			}
			w.Start()
			defer w.Stop()

			fmt.Fprintf(cmd.OutOrStdout(), "%s Watching %s (%d schedules), Ctrl+C to stop\n", sym.Schedules, path, len(registry.All()))
			waitForSignal(cmd.Context())
			return nil
		},
	})
	return cmd
}

func writeSchedules(cmd *cobra.Command, table []schedules.Schedule) error {
	if display.ShouldOutputJSON(cmd) {
		return display.OutputJSON(cmd.OutOrStdout(), table)
	}

	rows := make([][]string, 0, len(table))
	for _, s := range table {
		rows = append(rows, []string{
			s.Name,
			strconv.FormatInt(s.Interval, 10),
			(time.Duration(s.Interval) * time.Second).String(),
			s.Display,
		})
	}
	return display.Table(cmd.OutOrStdout(), []string{"NAME", "SECONDS", "EVERY", "DISPLAY"}, rows)
}
