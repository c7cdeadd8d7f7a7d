package jobs

import (
	"database/sql"

	"github.com/teranos/cronstore/errors"
	"github.com/teranos/cronstore/schedules"
)

// jobColumns is the column list every job SELECT uses, in scan order.
const jobColumns = `id, site, hook, args, start, nextrun, interval, status, schedule`

// Row is a job exactly as stored. Interval 0 and Schedule "" stand for NULL.
// Rows are what the query cache holds; hydration into a Job happens on read
// so schedule labels follow the registry in force at that moment.
type Row struct {
	ID       int64  `json:"id"`
	Site     int64  `json:"site"`
	Hook     string `json:"hook"`
	Args     string `json:"args"`
	Start    string `json:"start"`
	NextRun  string `json:"nextrun"`
	Interval int64  `json:"interval,omitempty"`
	Status   string `json:"status"`
	Schedule string `json:"schedule,omitempty"`
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// rowScanArgs holds the nullable columns while scanning.
type rowScanArgs struct {
	Interval sql.NullInt64
	Schedule sql.NullString
}

func scanRow(sc scanner) (Row, error) {
	var r Row
	var args rowScanArgs
	err := sc.Scan(
		&r.ID,
		&r.Site,
		&r.Hook,
		&r.Args,
		&r.Start,
		&r.NextRun,
		&args.Interval,
		&r.Status,
		&args.Schedule,
	)
	if err != nil {
		return Row{}, err
	}
	if args.Interval.Valid {
		r.Interval = args.Interval.Int64
	}
	if args.Schedule.Valid {
		r.Schedule = args.Schedule.String
	}
	return r, nil
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	var out []Row
	for rows.Next() {
		r, err := scanRow(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan job row")
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate job rows")
	}
	return out, nil
}

// Hydrate materializes the row. A recurring row without a stored label gets
// one from the registry.
func (r Row) Hydrate(registry *schedules.Registry) (*Job, error) {
	args, err := DeserializeArgs(r.Args)
	if err != nil {
		return nil, errors.Wrapf(err, "job %d", r.ID)
	}
	start, err := ParseTime(r.Start)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse start for job %d", r.ID)
	}
	nextRun, err := ParseTime(r.NextRun)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse nextrun for job %d", r.ID)
	}

	job := &Job{
		ID:       r.ID,
		Site:     r.Site,
		Hook:     r.Hook,
		Args:     args,
		Start:    start,
		NextRun:  nextRun,
		Interval: r.Interval,
		Schedule: r.Schedule,
		Status:   Status(r.Status),
	}
	if job.Schedule == "" && job.IsRecurring() {
		job.Schedule = registry.NameForInterval(job.Interval)
	}
	return job, nil
}

func hydrateAll(rows []Row, registry *schedules.Registry) ([]*Job, error) {
	out := make([]*Job, 0, len(rows))
	for _, r := range rows {
		job, err := r.Hydrate(registry)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, nil
}
