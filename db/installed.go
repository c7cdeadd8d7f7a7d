package db

import "database/sql"

// InstalledTables are the tables a usable store must contain.
var InstalledTables = []string{"jobs", "logs"}

// IsInstalled reports whether the job and log tables exist.
// Store errors are discarded: a failed probe reads as "not installed".
func IsInstalled(db *sql.DB) bool {
	if db == nil {
		return false
	}
	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN (?, ?)`,
		InstalledTables[0], InstalledTables[1],
	).Scan(&count)
	if err != nil {
		return false
	}
	return count == len(InstalledTables)
}
