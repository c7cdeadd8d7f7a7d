package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/teranos/cronstore/connector"
	"github.com/teranos/cronstore/display"
	"github.com/teranos/cronstore/jobs"
	"github.com/teranos/cronstore/sym"
)

// eventFlags are shared by the commands that address one event
type eventFlags struct {
	at   string
	args string
}

func (f *eventFlags) register(cmd *cobra.Command, atDefault, atUsage string) {
	cmd.Flags().StringVar(&f.at, "at", atDefault, atUsage)
	cmd.Flags().StringVar(&f.args, "args", "", "Event arguments, shell-quoted (\"user:5 'two words'\")")
}

// event builds the connector event for hook from the flags
func (f *eventFlags) event(hook string, now time.Time) (connector.Event, error) {
	ts, err := parseWhen(f.at, now)
	if err != nil {
		return connector.Event{}, err
	}
	args, err := parseArgs(f.args)
	if err != nil {
		return connector.Event{}, err
	}
	return connector.Event{Hook: hook, Timestamp: ts, Args: args}, nil
}

func newScheduleCmd(a *app) *cobra.Command {
	var (
		flags eventFlags
		every string
	)

	cmd := &cobra.Command{
		Use:   "schedule <hook>",
		Short: "Schedule a one-off or recurring event",
		Long: `Schedule an event for hook.

A one-off event within reconcile.duplicate_window_seconds of an identical
(hook, args) job is the same event and is not created twice. A recurring
event (--every) matches an existing job only at the exact same time, and
then takes the new frequency in place.

--every accepts a registered schedule name (see 'cronstore schedules'),
seconds, a Go duration or a fixed-period cron expression.

Examples:
  cronstore schedule send_digest --at +1h --args "user:5"
  cronstore schedule cleanup --at "2026-03-02 03:00:00" --every daily
  cronstore schedule poll --every "@every 15m"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			ev, err := flags.event(args[0], rt.store.Now())
			if err != nil {
				return err
			}
			if every != "" {
				if ev.Schedule, ev.Interval, err = resolveFrequency(rt.registry, every); err != nil {
					return err
				}
			}

			outcome, err := rt.connector.ScheduleEvent(cmd.Context(), ev)
			if err != nil {
				return err
			}

			if display.ShouldOutputJSON(cmd) {
				return display.OutputJSON(cmd.OutOrStdout(), map[string]interface{}{
					"hook":    ev.Hook,
					"nextrun": jobs.FormatTime(ev.Timestamp),
					"outcome": outcome.String(),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s at %s: %s\n", sym.Cron, ev.Hook, jobs.FormatTime(ev.Timestamp), outcome)
			return nil
		},
	}

	flags.register(cmd, "now", "When the event first runs")
	cmd.Flags().StringVar(&every, "every", "", "Recurrence: schedule name or interval expression")
	return cmd
}

func newRescheduleCmd(a *app) *cobra.Command {
	var (
		flags eventFlags
		every string
	)

	cmd := &cobra.Command{
		Use:   "reschedule <hook>",
		Short: "Advance a recurring event by one interval",
		Long: `Move the recurring event at --at forward by exactly one interval and
mark it waiting. The new time is computed from the stored time, never from
now, so late runs do not drift the schedule.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			ev, err := flags.event(args[0], rt.store.Now())
			if err != nil {
				return err
			}
			if every != "" {
				if ev.Schedule, ev.Interval, err = resolveFrequency(rt.registry, every); err != nil {
					return err
				}
			}

			job, err := rt.connector.RescheduleEvent(cmd.Context(), ev)
			if err != nil {
				return err
			}

			if display.ShouldOutputJSON(cmd) {
				return display.OutputJSON(cmd.OutOrStdout(), job)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s next runs at %s\n", sym.Cron, job.Hook, jobs.FormatTime(job.NextRun))
			return nil
		},
	}

	flags.register(cmd, "", "Stored time of the event (required)")
	cmd.MarkFlagRequired("at")
	cmd.Flags().StringVar(&every, "every", "", "Interval to use when the stored job has none")
	return cmd
}

func newUnscheduleCmd(a *app) *cobra.Command {
	var flags eventFlags

	cmd := &cobra.Command{
		Use:   "unschedule <hook>",
		Short: "Remove one event",
		Long:  `Remove the event for (hook, args) at exactly --at. Running jobs are never removed.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			ev, err := flags.event(args[0], rt.store.Now())
			if err != nil {
				return err
			}
			if err := rt.connector.UnscheduleEvent(cmd.Context(), ev); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Unscheduled %s at %s\n", sym.Cron, ev.Hook, jobs.FormatTime(ev.Timestamp))
			return nil
		},
	}

	flags.register(cmd, "", "Stored time of the event (required)")
	cmd.MarkFlagRequired("at")
	return cmd
}

func newClearCmd(a *app) *cobra.Command {
	var argsFlag string

	cmd := &cobra.Command{
		Use:   "clear <hook>",
		Short: "Remove every waiting event of a hook",
		Long: `Remove waiting events of hook, up to reconcile.bulk_limit per call.
Without --args every argument list matches. Running jobs are kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := a.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			var n int
			if cmd.Flags().Changed("args") {
				list, err := parseArgs(argsFlag)
				if err != nil {
					return err
				}
				n, err = rt.connector.ClearScheduledHook(cmd.Context(), args[0], list)
				if err != nil {
					return err
				}
			} else {
				if n, err = rt.connector.UnscheduleHook(cmd.Context(), args[0]); err != nil {
					return err
				}
			}

			if display.ShouldOutputJSON(cmd) {
				return display.OutputJSON(cmd.OutOrStdout(), map[string]interface{}{"hook": args[0], "cleared": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Cleared %d event(s) of %s\n", sym.Cron, n, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&argsFlag, "args", "", "Only events with exactly these (shell-quoted) arguments")
	return cmd
}
