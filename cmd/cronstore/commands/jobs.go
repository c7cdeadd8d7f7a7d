package commands

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/teranos/cronstore/connector"
	"github.com/teranos/cronstore/display"
	"github.com/teranos/cronstore/errors"
	"github.com/teranos/cronstore/jobs"
)

func newListCmd(a *app) *cobra.Command {
	var (
		hook     string
		argsFlag string
		statuses []string
		limit    int
		desc     bool
		all      bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a tenant's jobs",
		Long: `List the configured tenant's jobs, soonest first.

Without --status only waiting and running jobs are shown; --all adds
completed and failed ones.

Examples:
  cronstore list
  cronstore list --hook send_digest --args "user:5"
  cronstore list --status failed --limit 20 --desc`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := a.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx := cmd.Context()
			site := a.cfg.Site.Default

			var list []*jobs.Job
			if all && hook == "" && !cmd.Flags().Changed("args") && len(statuses) == 0 {
				list, err = rt.engine.ForSite(ctx, site, true, true)
			} else {
				q := jobs.Query{Site: site, Hook: hook, Limit: limit, Desc: desc}
				if cmd.Flags().Changed("args") {
					if q.Args, err = parseArgs(argsFlag); err != nil {
						return err
					}
				}
				if all {
					q.Statuses = []jobs.Status{jobs.StatusWaiting, jobs.StatusRunning, jobs.StatusCompleted, jobs.StatusFailed}
				}
				for _, s := range statuses {
					q.Statuses = append(q.Statuses, jobs.Status(s))
				}
				list, err = rt.engine.Jobs(ctx, q)
			}
			if err != nil {
				return err
			}
			if limit > 0 && len(list) > limit {
				list = list[:limit]
			}

			if display.ShouldOutputJSON(cmd) {
				return display.OutputJSON(cmd.OutOrStdout(), nonNil(list))
			}
			return jobTable(cmd, list, rt.store.Now())
		},
	}

	cmd.Flags().StringVar(&hook, "hook", "", "Only jobs for this hook")
	cmd.Flags().StringVar(&argsFlag, "args", "", "Only jobs with exactly these (shell-quoted) arguments")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "Statuses to include: waiting, running, completed, failed")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum jobs to show (0 = all)")
	cmd.Flags().BoolVar(&desc, "desc", false, "Latest next run first")
	cmd.Flags().BoolVar(&all, "all", false, "Include completed and failed jobs")
	return cmd
}

func newDueCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "due",
		Short: "Show waiting jobs that are due now",
		Long: `Show the waiting jobs whose next run has arrived, soonest first,
up to reconcile.bulk_limit. With --json the legacy cron array is printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := a.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			ready, err := rt.connector.GetReadyJobs(cmd.Context())
			if err != nil {
				return err
			}
			if display.ShouldOutputJSON(cmd) {
				return display.OutputJSON(cmd.OutOrStdout(), ready)
			}
			return jobTable(cmd, projectedJobs(ready), rt.store.Now())
		},
	}
}

func newJobCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "job <id>",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return errors.NewInvalidRequestError("job id must be a number, got %q", args[0])
			}

			rt, err := a.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			job, err := rt.store.Get(cmd.Context(), id)
			if err != nil {
				return err
			}

			if display.ShouldOutputJSON(cmd) {
				return display.OutputJSON(cmd.OutOrStdout(), job)
			}

			now := rt.store.Now()
			out := cmd.OutOrStdout()
			printField(out, "ID", strconv.FormatInt(job.ID, 10))
			printField(out, "Site", strconv.FormatInt(job.Site, 10))
			printField(out, "Hook", job.Hook)
			printField(out, "Args", formatArgs(job.Args))
			printField(out, "Status", string(job.Status))
			printField(out, "Start", jobs.FormatTime(job.Start))
			printField(out, "Next run", jobs.FormatTime(job.NextRun)+" ("+display.When(job.NextRun, now)+")")
			if job.IsRecurring() {
				printField(out, "Interval", (time.Duration(job.Interval) * time.Second).String())
				printField(out, "Schedule", job.Schedule)
			}
			return nil
		},
	}
}

// jobTable prints jobs as a table, or a note when there are none
func jobTable(cmd *cobra.Command, list []*jobs.Job, now time.Time) error {
	if len(list) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No jobs")
		return nil
	}

	rows := make([][]string, 0, len(list))
	for _, j := range list {
		rows = append(rows, []string{
			strconv.FormatInt(j.ID, 10),
			j.Hook,
			formatArgs(j.Args),
			jobs.FormatTime(j.NextRun),
			display.When(j.NextRun, now),
			j.Schedule,
			string(j.Status),
		})
	}
	return display.Table(cmd.OutOrStdout(), []string{"ID", "HOOK", "ARGS", "NEXT RUN", "WHEN", "SCHEDULE", "STATUS"}, rows)
}

// projectedJobs lists the jobs behind a cron array in timestamp order
func projectedJobs(arr connector.CronArray) []*jobs.Job {
	var list []*jobs.Job
	for _, ts := range arr.Timestamps() {
		for _, byKey := range arr.Events[ts] {
			for _, entry := range byKey {
				if entry.Job != nil {
					list = append(list, entry.Job)
				}
			}
		}
	}
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].NextRun.Equal(list[j].NextRun) {
			return list[i].NextRun.Before(list[j].NextRun)
		}
		return list[i].ID < list[j].ID
	})
	return list
}

func nonNil(list []*jobs.Job) []*jobs.Job {
	if list == nil {
		return []*jobs.Job{}
	}
	return list
}
