package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teranos/cronstore/db"
	"github.com/teranos/cronstore/display"
	"github.com/teranos/cronstore/errors"
	"github.com/teranos/cronstore/jobs"
	"github.com/teranos/cronstore/logger"
	"github.com/teranos/cronstore/sym"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations and backfill schedule labels",
		Long: sym.DB + ` migrate - bring the job store up to date

Applies pending schema migrations, then stores a schedule label on every
unfinished recurring job whose interval matches a registered frequency.
Safe to run repeatedly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.cfg.GetDatabasePath()
			database, err := db.Open(path, logger.Logger)
			if err != nil {
				return errors.Wrapf(err, "failed to open database at %s", path)
			}
			defer database.Close()

			applied, err := db.MigrateCount(database, logger.Logger)
			if err != nil {
				return errors.Wrapf(err, "failed to run migrations on %s", path)
			}

			registry, err := a.registry()
			if err != nil {
				return err
			}
			c, err := a.cache()
			if err != nil {
				return err
			}
			filled, err := jobs.BackfillSchedules(cmd.Context(), database, c, registry.All(), logger.Logger)
			if err != nil {
				return err
			}

			version, err := db.SchemaVersion(database)
			if err != nil {
				return err
			}

			if display.ShouldOutputJSON(cmd) {
				return display.OutputJSON(cmd.OutOrStdout(), map[string]interface{}{
					"database":       path,
					"applied":        applied,
					"schema_version": version,
					"backfilled":     filled,
					"installed":      db.IsInstalled(database),
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s Database Migrations\n", sym.DB)
			fmt.Fprintf(out, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")
			printField(out, "Database", path)
			printField(out, "Applied", display.Count(int64(applied)))
			printField(out, "Schema", fmt.Sprintf("v%d", version))
			printField(out, "Labeled", display.Count(filled))
			return nil
		},
	}
}
