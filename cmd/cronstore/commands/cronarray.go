package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teranos/cronstore/connector"
	"github.com/teranos/cronstore/display"
	"github.com/teranos/cronstore/errors"
	"github.com/teranos/cronstore/sym"
)

func newCronArrayCmd(a *app) *cobra.Command {
	var (
		format string
		apply  string
	)

	cmd := &cobra.Command{
		Use:   "cron-array",
		Short: "Show or apply the legacy cron array",
		Long: sym.Legacy + ` cron-array - the host's nested schedule view

Without --apply, prints the tenant's waiting and running jobs projected into
the legacy array (timestamp -> hook -> args key).

With --apply FILE, reads a JSON array the host wants to store and reconciles
the job store against the current projection: new entries are scheduled,
missing entries are unscheduled, and entries whose interval changed are
updated in place.

Examples:
  cronstore cron-array --format yaml
  cronstore cron-array --json > cron.json
  cronstore cron-array --apply cron.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := a.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx := cmd.Context()
			current, err := rt.connector.GetCronArray(ctx)
			if err != nil {
				return err
			}

			if apply == "" {
				return writeCronArray(cmd, current, format)
			}

			data, err := os.ReadFile(apply)
			if err != nil {
				return errors.Wrapf(err, "failed to read %s", apply)
			}
			var value connector.CronArray
			if err := json.Unmarshal(data, &value); err != nil {
				return errors.Wrapf(errors.ErrInvalidRequest, "%s is not a cron array: %v", apply, err)
			}

			rec, err := rt.connector.UpdateCronArray(ctx, value, current)
			if err != nil {
				return err
			}

			if display.ShouldOutputJSON(cmd) {
				return display.OutputJSON(cmd.OutOrStdout(), map[string]int{
					"created": rec.Created,
					"updated": rec.Updated,
					"deleted": rec.Deleted,
				})
			}
			if !rec.Changed() {
				fmt.Fprintf(cmd.OutOrStdout(), "%s No changes\n", sym.Legacy)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Created %d, updated %d, deleted %d\n", sym.Legacy, rec.Created, rec.Updated, rec.Deleted)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "Output format: json, yaml")
	cmd.Flags().StringVar(&apply, "apply", "", "Reconcile the store against this JSON cron array")
	return cmd
}

func writeCronArray(cmd *cobra.Command, arr connector.CronArray, format string) error {
	if display.ShouldOutputJSON(cmd) {
		format = "json"
	}
	switch format {
	case "json":
		return display.OutputJSON(cmd.OutOrStdout(), arr)
	case "yaml":
		data, err := yaml.Marshal(arr)
		if err != nil {
			return errors.Wrap(err, "failed to marshal cron array to YAML")
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	default:
		return errors.Newf("unsupported format: %s (supported: json, yaml)", format)
	}
}
