package connector

import (
	"context"
	"time"

	"github.com/teranos/cronstore/errors"
	"github.com/teranos/cronstore/jobs"
	"github.com/teranos/cronstore/logger"
)

// ScheduleEvent creates the event's job, or reconciles it with an existing
// one. A one-off event matches an identical (hook, args) job anywhere in the
// duplicate window; a recurring event must match its timestamp exactly. A
// match keeps its timestamp and identity and only takes the event's
// recurrence.
func (c *Connector) ScheduleEvent(ctx context.Context, ev Event) (Outcome, error) {
	if ev.Hook == "" {
		return 0, errors.Wrap(errors.ErrInvalidHook, "hook is required")
	}
	if ev.Interval < 0 {
		return 0, errors.NewInvalidRequestError("negative interval %d", ev.Interval)
	}

	q := jobs.Query{Hook: ev.Hook, Args: argsFilter(ev.Args)}
	if ev.IsRecurring() {
		q.NextRun = jobs.NextRunAt(ev.Timestamp)
	} else {
		q.NextRun = jobs.NextRunBetween(c.duplicateRange(ev.Timestamp))
	}

	existing, err := c.first(ctx, q)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to look up event %s", ev.Hook)
	}

	label := c.label(ev)
	if existing == nil {
		job := &jobs.Job{
			Site:    c.site,
			Hook:    ev.Hook,
			Args:    ev.Args,
			Start:   ev.Timestamp,
			NextRun: ev.Timestamp,
			Status:  jobs.StatusWaiting,
		}
		if ev.IsRecurring() {
			job.Interval = ev.Interval
			job.Schedule = label
		}
		if err := c.store.Save(ctx, job); err != nil {
			return 0, errors.Wrapf(err, "failed to schedule event %s", ev.Hook)
		}
		c.logOutcome(ctx, Created, job)
		return Created, nil
	}

	existingLabel := ""
	if existing.IsRecurring() {
		existingLabel = existing.Schedule
	}
	if existing.Interval == ev.Interval && existingLabel == label {
		c.logOutcome(ctx, Unchanged, existing)
		return Unchanged, nil
	}

	existing.Interval = ev.Interval
	existing.Schedule = label
	if err := c.store.Save(ctx, existing); err != nil {
		return 0, errors.Wrapf(err, "failed to update event %s", ev.Hook)
	}
	c.logOutcome(ctx, Updated, existing)
	return Updated, nil
}

// RescheduleEvent advances the job at the event's exact timestamp by one
// interval from its previous nextrun, never from now, and returns it to
// waiting. An event interval of zero keeps the job's own interval.
func (c *Connector) RescheduleEvent(ctx context.Context, ev Event) (*jobs.Job, error) {
	if ev.Hook == "" {
		return nil, errors.Wrap(errors.ErrInvalidHook, "hook is required")
	}

	job, err := c.first(ctx, jobs.Query{
		Hook:     ev.Hook,
		Args:     argsFilter(ev.Args),
		NextRun:  jobs.NextRunAt(ev.Timestamp),
		Statuses: []jobs.Status{jobs.StatusWaiting, jobs.StatusRunning, jobs.StatusCompleted, jobs.StatusFailed},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to look up event %s", ev.Hook)
	}
	if job == nil {
		return nil, errors.NewNotFoundError("event %s at %s", ev.Hook, jobs.FormatTime(ev.Timestamp))
	}

	interval := ev.Interval
	if interval <= 0 {
		interval = job.Interval
	}
	if interval <= 0 {
		return nil, errors.Wrapf(errors.ErrNotRecurring, "job %d", job.ID)
	}

	switch {
	case ev.Schedule != "":
		job.Schedule = ev.Schedule
	case interval != job.Interval:
		job.Schedule = c.registry.NameForInterval(interval)
	}
	job.Interval = interval
	job.NextRun = job.NextRun.Add(time.Duration(interval) * time.Second)
	job.Status = jobs.StatusWaiting

	if err := c.store.Save(ctx, job); err != nil {
		return nil, errors.Wrapf(err, "failed to reschedule job %d", job.ID)
	}
	logger.FromContext(ctx, c.log).Debugw("Event rescheduled",
		logger.FieldJobID, job.ID,
		logger.FieldHook, job.Hook,
		logger.FieldNextRun, jobs.FormatTime(job.NextRun),
		logger.FieldInterval, interval,
	)
	return job, nil
}

// UnscheduleEvent removes the job at the event's exact timestamp.
func (c *Connector) UnscheduleEvent(ctx context.Context, ev Event) error {
	if ev.Hook == "" {
		return errors.Wrap(errors.ErrInvalidHook, "hook is required")
	}

	job, err := c.first(ctx, jobs.Query{
		Hook:    ev.Hook,
		Args:    argsFilter(ev.Args),
		NextRun: jobs.NextRunAt(ev.Timestamp),
	})
	if err != nil {
		return errors.Wrapf(err, "failed to look up event %s", ev.Hook)
	}
	if job == nil {
		return errors.NewNotFoundError("event %s at %s", ev.Hook, jobs.FormatTime(ev.Timestamp))
	}

	deleted, err := c.store.Delete(ctx, job, jobs.DeleteOptions{})
	if err != nil {
		return err
	}
	if !deleted {
		return errors.NewNotFoundError("job %d", job.ID)
	}
	return nil
}

// ClearScheduledHook removes waiting jobs for hook, up to the bulk limit.
// A nil args matches every argument list. Returns how many were removed;
// zero is not an error.
func (c *Connector) ClearScheduledHook(ctx context.Context, hook string, args []any) (int, error) {
	if hook == "" {
		return 0, errors.Wrap(errors.ErrInvalidHook, "hook is required")
	}
	if err := c.checkBulkLimit(); err != nil {
		return 0, err
	}

	q := jobs.Query{
		Site:     c.site,
		Hook:     hook,
		Statuses: []jobs.Status{jobs.StatusWaiting},
		Limit:    c.bulkLimit,
		Raw:      true,
	}
	if args != nil {
		q.Args = args
	}
	res, err := c.engine.Query(ctx, q)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to find jobs for hook %s", hook)
	}

	n, err := c.store.DeleteRows(ctx, c.site, res.Rows)
	if err != nil {
		return 0, err
	}
	logger.FromContext(ctx, c.log).Infow("Hook cleared", logger.FieldHook, hook, logger.FieldCount, n)
	return n, nil
}

// UnscheduleHook removes waiting jobs for hook whatever their arguments.
func (c *Connector) UnscheduleHook(ctx context.Context, hook string) (int, error) {
	return c.ClearScheduledHook(ctx, hook, nil)
}

// GetScheduledEvent finds the event for (hook, args) at timestamp, or the
// next pending one when timestamp is zero.
func (c *Connector) GetScheduledEvent(ctx context.Context, hook string, args []any, timestamp time.Time) (*Event, error) {
	if hook == "" {
		return nil, errors.Wrap(errors.ErrInvalidHook, "hook is required")
	}

	q := jobs.Query{Hook: hook, Args: argsFilter(args)}
	if !timestamp.IsZero() {
		q.NextRun = jobs.NextRunAt(timestamp)
	}
	job, err := c.first(ctx, q)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, errors.NewNotFoundError("no scheduled event for %s", hook)
	}
	return eventFromJob(job), nil
}

// GetReadyJobs projects the waiting jobs that are due now, soonest first,
// up to the bulk limit.
func (c *Connector) GetReadyJobs(ctx context.Context) (CronArray, error) {
	if err := c.checkBulkLimit(); err != nil {
		return CronArray{}, err
	}
	due, err := c.engine.Jobs(ctx, jobs.Query{
		Site:     c.site,
		NextRun:  jobs.NextRunPast(),
		Statuses: []jobs.Status{jobs.StatusWaiting},
		Limit:    c.bulkLimit,
	})
	if err != nil {
		return CronArray{}, errors.Wrap(err, "failed to find ready jobs")
	}
	return Project(due)
}

func (c *Connector) logOutcome(ctx context.Context, outcome Outcome, job *jobs.Job) {
	logger.FromContext(ctx, c.log).Debugw("Event scheduled",
		logger.FieldOutcome, outcome.String(),
		logger.FieldJobID, job.ID,
		logger.FieldHook, job.Hook,
		logger.FieldNextRun, jobs.FormatTime(job.NextRun),
	)
}
