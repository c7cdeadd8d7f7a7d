package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/cronstore/cache"
	"github.com/teranos/cronstore/errors"
	"github.com/teranos/cronstore/logger"
	"github.com/teranos/cronstore/schedules"
)

// JobNamespace is the cache namespace holding single-job entries.
const JobNamespace = "jobs"

// SiteNamespace is the cache namespace, and generation scope, of one tenant.
func SiteNamespace(site int64) string {
	return "site:" + strconv.FormatInt(site, 10)
}

func jobKey(id int64) string {
	return "job:" + strconv.FormatInt(id, 10)
}

// DeleteOptions controls Store.Delete.
type DeleteOptions struct {
	// DeleteRunning allows removing a job whose status is running.
	DeleteRunning bool
}

// Store handles persistence of jobs
type Store struct {
	db       *sql.DB
	cache    cache.Cache
	registry *schedules.Registry
	log      *zap.SugaredLogger
	now      func() time.Time
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the store's notion of now
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a job store. A nil cache disables caching and a nil
// registry resolves every unlabeled recurring job to schedules.Unknown.
func NewStore(db *sql.DB, c cache.Cache, registry *schedules.Registry, log *zap.SugaredLogger, opts ...Option) *Store {
	if c == nil {
		c = cache.Nop
	}
	s := &Store{
		db:       db,
		cache:    c,
		registry: registry,
		log:      logger.AddCronSymbol(log),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the schedule registry used to label rows.
func (s *Store) Registry() *schedules.Registry {
	return s.registry
}

// Now returns the store's current time.
func (s *Store) Now() time.Time {
	return s.now()
}

// Save inserts the job when it has no ID and updates it by ID otherwise.
// Interval and schedule are written only for recurring jobs.
func (s *Store) Save(ctx context.Context, job *Job) error {
	if err := validateJob(job); err != nil {
		return err
	}
	if job.Status == "" {
		job.Status = StatusWaiting
	}
	if job.Start.IsZero() {
		job.Start = job.NextRun
	}

	args, err := SerializeArgs(job.Args)
	if err != nil {
		return err
	}

	var interval, schedule interface{}
	if job.IsRecurring() {
		interval = job.Interval
		if job.Schedule != "" && job.Schedule != schedules.Unknown {
			schedule = job.Schedule
		}
	}

	if !job.IsCreated() {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO jobs (site, hook, args, start, nextrun, interval, status, schedule)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			job.Site, job.Hook, args,
			FormatTime(job.Start), FormatTime(job.NextRun),
			interval, string(job.Status), schedule,
		)
		if err != nil {
			return errors.Wrap(err, "failed to insert job")
		}
		id, err := res.LastInsertId()
		if err != nil {
			return errors.Wrap(err, "failed to read inserted job id")
		}
		job.ID = id
	} else {
		res, err := s.db.ExecContext(ctx, `
			UPDATE jobs
			SET site = ?, hook = ?, args = ?, start = ?, nextrun = ?, interval = ?, status = ?, schedule = ?
			WHERE id = ?`,
			job.Site, job.Hook, args,
			FormatTime(job.Start), FormatTime(job.NextRun),
			interval, string(job.Status), schedule,
			job.ID,
		)
		if err != nil {
			return errors.Wrapf(err, "failed to update job %d", job.ID)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.Wrapf(err, "failed to read affected rows for job %d", job.ID)
		}
		if n == 0 {
			return errors.NewNotFoundError("job %d", job.ID)
		}
	}

	s.invalidate(ctx, job.Site, job.ID)
	s.log.Debugw("Job saved",
		logger.FieldJobID, job.ID,
		logger.FieldSite, job.Site,
		logger.FieldHook, job.Hook,
		logger.FieldNextRun, FormatTime(job.NextRun),
	)
	return nil
}

// Delete removes the job. A running job is refused with ErrStillRunning
// unless opts.DeleteRunning is set. Reports whether a row was removed.
func (s *Store) Delete(ctx context.Context, job *Job, opts DeleteOptions) (bool, error) {
	if !job.IsCreated() {
		return false, nil
	}
	if job.Status == StatusRunning && !opts.DeleteRunning {
		return false, errors.Wrapf(errors.ErrStillRunning, "job %d", job.ID)
	}

	query := `DELETE FROM jobs WHERE id = ?`
	if !opts.DeleteRunning {
		// The row may have started running since job was read
		query += ` AND status != 'running'`
	}
	res, err := s.db.ExecContext(ctx, query, job.ID)
	if err != nil {
		return false, errors.Wrapf(err, "failed to delete job %d", job.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrapf(err, "failed to read affected rows for job %d", job.ID)
	}

	s.invalidate(ctx, job.Site, job.ID)
	if n > 0 {
		s.log.Debugw("Job deleted", logger.FieldJobID, job.ID, logger.FieldSite, job.Site)
	}
	return n > 0, nil
}

// Get loads one job by ID through the single-job cache.
func (s *Store) Get(ctx context.Context, id int64) (*Job, error) {
	if data, ok := s.cacheGet(ctx, JobNamespace, jobKey(id)); ok {
		var r Row
		if err := json.Unmarshal(data, &r); err == nil {
			return r.Hydrate(s.registry)
		}
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	r, err := scanRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("job %d", id)
		}
		return nil, errors.Wrapf(err, "failed to get job %d", id)
	}

	if data, err := json.Marshal(r); err == nil {
		s.cacheSet(ctx, JobNamespace, jobKey(id), data)
	}
	return r.Hydrate(s.registry)
}

// DeleteRows removes the given rows of one tenant in a single statement,
// skipping rows that are running. The generation is bumped once.
func (s *Store) DeleteRows(ctx context.Context, site int64, rows []Row) (int, error) {
	if site <= 0 {
		return 0, errors.Wrapf(errors.ErrInvalidTenant, "site %d", site)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(rows))
	params := make([]interface{}, 0, len(rows)+1)
	params = append(params, site)
	for i, r := range rows {
		placeholders[i] = "?"
		params = append(params, r.ID)
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM jobs WHERE site = ? AND status != 'running' AND id IN (`+strings.Join(placeholders, ", ")+`)`,
		params...,
	)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to delete jobs for site %d", site)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read affected rows")
	}

	for _, r := range rows {
		s.cacheDelete(ctx, JobNamespace, jobKey(r.ID))
	}
	s.bump(ctx, site)

	s.log.Debugw("Jobs deleted", logger.FieldSite, site, logger.FieldCount, n)
	return int(n), nil
}

// selectRows runs a resolved query against the database.
func (s *Store) selectRows(ctx context.Context, query string, params []interface{}) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query jobs")
	}
	defer rows.Close()
	return scanRows(rows)
}

func validateJob(job *Job) error {
	if job == nil {
		return errors.NewInvalidRequestError("nil job")
	}
	if job.Site <= 0 {
		return errors.Wrapf(errors.ErrInvalidTenant, "site %d", job.Site)
	}
	if job.Hook == "" {
		return errors.Wrap(errors.ErrInvalidHook, "hook is required")
	}
	if job.Interval < 0 {
		return errors.NewInvalidRequestError("negative interval %d", job.Interval)
	}
	if job.NextRun.IsZero() {
		return errors.NewInvalidRequestError("job has no nextrun")
	}
	if job.Status != "" && !job.Status.Valid() {
		return errors.NewInvalidRequestError("unknown status %q", job.Status)
	}
	return nil
}

// invalidate drops the single-job entry and retires every cached query of the tenant.
func (s *Store) invalidate(ctx context.Context, site, id int64) {
	s.cacheDelete(ctx, JobNamespace, jobKey(id))
	s.bump(ctx, site)
}

func (s *Store) bump(ctx context.Context, site int64) {
	gen, err := s.cache.BumpGeneration(ctx, SiteNamespace(site))
	if err != nil {
		s.log.Warnw("Failed to bump cache generation", logger.FieldSite, site, logger.FieldError, err)
		return
	}
	s.log.Debugw("Cache generation bumped", logger.FieldSite, site, logger.FieldGeneration, gen)
}

// Cache failures are misses; the database stays authoritative.

func (s *Store) cacheGet(ctx context.Context, ns, key string) ([]byte, bool) {
	data, ok, err := s.cache.Get(ctx, ns, key)
	if err != nil {
		s.log.Debugw("Cache get failed", "namespace", ns, "key", key, logger.FieldError, err)
		return nil, false
	}
	return data, ok
}

func (s *Store) cacheSet(ctx context.Context, ns, key string, data []byte) {
	if err := s.cache.Set(ctx, ns, key, data); err != nil {
		s.log.Debugw("Cache set failed", "namespace", ns, "key", key, logger.FieldError, err)
	}
}

func (s *Store) cacheDelete(ctx context.Context, ns, key string) {
	if err := s.cache.Delete(ctx, ns, key); err != nil {
		s.log.Debugw("Cache delete failed", "namespace", ns, "key", key, logger.FieldError, err)
	}
}
