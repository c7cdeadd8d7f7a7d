// Package connector makes the job store answer the host's native scheduler
// callbacks. Individual callbacks map onto targeted store writes; the legacy
// whole-schedule array is projected from the store on read and reconciled
// into targeted writes on replace, never stored itself.
package connector

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/cronstore/errors"
	"github.com/teranos/cronstore/jobs"
	"github.com/teranos/cronstore/logger"
	"github.com/teranos/cronstore/schedules"
)

const (
	// DuplicateWindow is how far either side of a one-off event's timestamp
	// an identical (hook, args) job counts as the same event.
	DuplicateWindow = 10 * time.Minute

	// DefaultBulkLimit caps how many jobs one bulk call touches.
	DefaultBulkLimit = 1000
)

// Event is the host's view of one scheduled occurrence.
type Event struct {
	Hook      string
	Timestamp time.Time
	Args      []any
	// Schedule and Interval are set for recurring events only.
	Schedule string
	Interval int64
}

// IsRecurring reports whether the event repeats.
func (e Event) IsRecurring() bool {
	return e.Interval > 0
}

// Outcome is what ScheduleEvent did.
type Outcome int

const (
	Created Outcome = iota + 1
	Updated
	Unchanged
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Updated:
		return "updated"
	case Unchanged:
		return "unchanged"
	}
	return "unknown"
}

// Connector serves one tenant's scheduler callbacks.
type Connector struct {
	store    *jobs.Store
	engine   *jobs.Engine
	registry *schedules.Registry
	site     int64
	log      *zap.SugaredLogger

	now       func() time.Time
	window    time.Duration
	bulkLimit int
}

// Option configures a Connector
type Option func(*Connector)

// WithClock overrides the connector's notion of now
func WithClock(now func() time.Time) Option {
	return func(c *Connector) { c.now = now }
}

// WithDuplicateWindow overrides DuplicateWindow
func WithDuplicateWindow(d time.Duration) Option {
	return func(c *Connector) { c.window = d }
}

// WithBulkLimit overrides DefaultBulkLimit
func WithBulkLimit(n int) Option {
	return func(c *Connector) { c.bulkLimit = n }
}

// New creates a connector for site. A nil engine or registry falls back to
// the store's.
func New(store *jobs.Store, engine *jobs.Engine, registry *schedules.Registry, site int64, log *zap.SugaredLogger, opts ...Option) *Connector {
	if engine == nil {
		engine = jobs.NewEngine(store)
	}
	if registry == nil {
		registry = store.Registry()
	}
	c := &Connector{
		store:     store,
		engine:    engine,
		registry:  registry,
		site:      site,
		log:       logger.AddCronSymbol(log).With(logger.FieldSite, site),
		now:       store.Now,
		window:    DuplicateWindow,
		bulkLimit: DefaultBulkLimit,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Site returns the tenant this connector serves.
func (c *Connector) Site() int64 {
	return c.site
}

// label is the schedule name an event should carry.
func (c *Connector) label(ev Event) string {
	if !ev.IsRecurring() {
		return ""
	}
	if ev.Schedule != "" {
		return ev.Schedule
	}
	return c.registry.NameForInterval(ev.Interval)
}

// duplicateRange is the nextrun range that counts as the same one-off event
// as one at t. It never starts before now.
func (c *Connector) duplicateRange(t time.Time) (time.Time, time.Time) {
	now := c.now()
	from := t.Add(-c.window)
	if from.Before(now) {
		from = now
	}
	to := t
	if to.Before(now) {
		to = now
	}
	return from, to.Add(c.window)
}

// argsFilter turns an event's argument list into a query filter that always
// applies: a nil list matches only jobs with no arguments.
func argsFilter(args []any) any {
	if args == nil {
		return []any{}
	}
	return args
}

func (c *Connector) first(ctx context.Context, q jobs.Query) (*jobs.Job, error) {
	q.Site = c.site
	q.Limit = 1
	found, err := c.engine.Jobs(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	return found[0], nil
}

func (c *Connector) checkBulkLimit() error {
	if c.bulkLimit <= 0 || c.bulkLimit > jobs.MaxLimit {
		return errors.Wrapf(errors.ErrInvalidLimit, "bulk limit %d", c.bulkLimit)
	}
	return nil
}

func eventFromJob(job *jobs.Job) *Event {
	ev := &Event{
		Hook:      job.Hook,
		Timestamp: job.NextRun,
		Args:      job.Args,
	}
	if job.IsRecurring() {
		ev.Schedule = job.Schedule
		ev.Interval = job.Interval
	}
	return ev
}
