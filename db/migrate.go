package db

import (
	"database/sql"
	"embed"
	"path"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/cronstore/errors"
	"github.com/teranos/cronstore/sym"
)

//go:embed sqlite/migrations/*.sql
var migrations embed.FS

// Migrate runs all pending migrations.
// If logger is provided, logs migration progress; otherwise operates silently.
func Migrate(db *sql.DB, logger *zap.SugaredLogger) error {
	_, err := MigrateCount(db, logger)
	return err
}

// MigrateCount runs all pending migrations and reports how many were applied.
func MigrateCount(db *sql.DB, logger *zap.SugaredLogger) (int, error) {
	migrationFiles, err := migrationFiles()
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, filename := range migrationFiles {
		version := strings.Split(filename, "_")[0]

		// schema_migrations is created by 000
		var exists bool
		err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)", version).Scan(&exists)
		if err != nil {
			if version != "000" {
				return applied, errors.Newf("schema_migrations table missing, but migration is not 000: %s", filename)
			}
		} else if exists {
			if logger != nil {
				logger.Debugw("Skipping migration (already applied)",
					"migration", filename,
					"version", version,
				)
			}
			continue
		}

		sqlBytes, err := migrations.ReadFile(path.Join("sqlite/migrations", filename))
		if err != nil {
			return applied, errors.Wrapf(err, "read %s", filename)
		}

		if logger != nil {
			logger.Infow("Applying migration",
				"migration", filename,
				"version", version,
			)
		}

		tx, err := db.Begin()
		if err != nil {
			return applied, errors.Wrapf(err, "begin tx for %s", filename)
		}

		if _, err := tx.Exec(string(sqlBytes)); err != nil {
			tx.Rollback()
			return applied, errors.Wrapf(err, "execute %s", filename)
		}

		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return applied, errors.Wrapf(err, "record %s", filename)
		}

		if err := tx.Commit(); err != nil {
			return applied, errors.Wrapf(err, "commit %s", filename)
		}
		applied++
	}

	if logger != nil {
		logger.Infow("Migrations complete",
			"symbol", sym.DB,
			"total_migrations", len(migrationFiles),
			"applied", applied,
		)
	}

	return applied, nil
}

// SchemaVersion returns the highest applied migration number.
// An unmigrated or partially migrated store reports 1, the oldest schema.
func SchemaVersion(db *sql.DB) (int, error) {
	var version sql.NullString
	err := db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read schema version")
	}
	if !version.Valid {
		return 1, nil
	}
	n, err := strconv.Atoi(version.String)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid schema version %q", version.String)
	}
	if n < 1 {
		n = 1
	}
	return n, nil
}

// LatestVersion returns the version of the newest embedded migration.
func LatestVersion() int {
	files, err := migrationFiles()
	if err != nil || len(files) == 0 {
		return 0
	}
	n, _ := strconv.Atoi(strings.Split(files[len(files)-1], "_")[0])
	return n
}

func migrationFiles() ([]string, error) {
	entries, err := migrations.ReadDir("sqlite/migrations")
	if err != nil {
		return nil, errors.Wrap(err, "read migrations")
	}

	// 000_create_schema_migrations.sql runs first
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
