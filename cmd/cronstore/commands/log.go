package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/teranos/cronstore/display"
	"github.com/teranos/cronstore/jobs"
)

func newLogCmd(a *app) *cobra.Command {
	var filter jobs.LogFilter

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Browse execution logs",
		Long: `Show the execution records the runner wrote for this tenant's jobs,
newest first.

Examples:
  cronstore log --job 42
  cronstore log --hook send_digest --limit 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			database, err := openDatabase(a.cfg.GetDatabasePath())
			if err != nil {
				return err
			}
			defer database.Close()

			filter.Site = a.cfg.Site.Default
			entries, err := jobs.NewLogStore(database).List(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if display.ShouldOutputJSON(cmd) {
				if entries == nil {
					entries = []jobs.LogEntry{}
				}
				return display.OutputJSON(cmd.OutOrStdout(), entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No log entries")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					strconv.FormatInt(e.ID, 10),
					strconv.FormatInt(e.Job, 10),
					e.Hook,
					e.Status,
					jobs.FormatTime(e.Timestamp),
					e.Content,
				})
			}
			return display.Table(cmd.OutOrStdout(), []string{"ID", "JOB", "HOOK", "STATUS", "TIME", "CONTENT"}, rows)
		},
	}

	cmd.Flags().Int64Var(&filter.Job, "job", 0, "Only logs of this job")
	cmd.Flags().StringVar(&filter.Hook, "hook", "", "Only logs of jobs for this hook")
	cmd.Flags().IntVar(&filter.Limit, "limit", jobs.DefaultLogLimit, "Maximum entries to show")
	return cmd
}
