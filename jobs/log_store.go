package jobs

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/teranos/cronstore/errors"
)

// LogEntry is one execution record written by the external runner.
type LogEntry struct {
	ID        int64     `json:"id"`
	Job       int64     `json:"job"`
	Hook      string    `json:"hook,omitempty"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Content   string    `json:"content"`
}

// LogFilter narrows LogStore.List. Zero fields do not filter.
type LogFilter struct {
	Job   int64
	Hook  string
	Site  int64
	Limit int
}

// DefaultLogLimit applies when LogFilter.Limit is not positive.
const DefaultLogLimit = 100

// LogStore reads the logs table. Rows are only ever written by the runner.
type LogStore struct {
	db *sql.DB
}

// NewLogStore creates a new log store
func NewLogStore(db *sql.DB) *LogStore {
	return &LogStore{db: db}
}

// List returns log entries, newest first. Entries whose job has since been
// deleted are still returned, without a hook.
func (s *LogStore) List(ctx context.Context, f LogFilter) ([]LogEntry, error) {
	var where []string
	var params []interface{}
	if f.Job > 0 {
		where = append(where, "l.job = ?")
		params = append(params, f.Job)
	}
	if f.Hook != "" {
		where = append(where, "j.hook = ?")
		params = append(params, f.Hook)
	}
	if f.Site > 0 {
		where = append(where, "j.site = ?")
		params = append(params, f.Site)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLogLimit
	}

	query := `
		SELECT l.id, l.job, j.hook, l.status, l.timestamp, l.content
		FROM logs l
		LEFT JOIN jobs j ON j.id = l.job`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\t\tORDER BY l.timestamp DESC, l.id DESC\n\t\tLIMIT ?"
	params = append(params, limit)

	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query logs")
	}
	defer rows.Close()

	var entries []LogEntry
	for rows.Next() {
		var e LogEntry
		var hook sql.NullString
		var ts string
		if err := rows.Scan(&e.ID, &e.Job, &hook, &e.Status, &ts, &e.Content); err != nil {
			return nil, errors.Wrap(err, "failed to scan log row")
		}
		if hook.Valid {
			e.Hook = hook.String
		}
		e.Timestamp, err = ParseTime(ts)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse timestamp for log %d", e.ID)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate logs")
	}
	return entries, nil
}
