package connector

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/teranos/cronstore/errors"
	"github.com/teranos/cronstore/jobs"
	"github.com/teranos/cronstore/logger"
)

// CronArrayVersion is the format tag the host expects on its cron array.
const CronArrayVersion = 2

// CronEntry is one leaf of the legacy array.
type CronEntry struct {
	Schedule string
	Args     []any
	Interval int64 // 0 for one-off events
	// Job is the stored job this entry was projected from. Nil for entries
	// the host built itself.
	Job *jobs.Job
}

// CronArray is the host's nested schedule: timestamp, then hook, then args key.
// It exists only at the host boundary; the job store stays authoritative.
type CronArray struct {
	Version int
	Events  map[int64]map[string]map[string]CronEntry
}

// NewCronArray returns an empty array with the current version tag.
func NewCronArray() CronArray {
	return CronArray{Version: CronArrayVersion, Events: make(map[int64]map[string]map[string]CronEntry)}
}

// Add places an entry, creating intermediate levels as needed.
func (a *CronArray) Add(timestamp int64, hook, key string, entry CronEntry) {
	if a.Events == nil {
		a.Events = make(map[int64]map[string]map[string]CronEntry)
	}
	hooks, ok := a.Events[timestamp]
	if !ok {
		hooks = make(map[string]map[string]CronEntry)
		a.Events[timestamp] = hooks
	}
	keys, ok := hooks[hook]
	if !ok {
		keys = make(map[string]CronEntry)
		hooks[hook] = keys
	}
	keys[key] = entry
}

// Timestamps returns the array's timestamps in ascending numeric order.
func (a CronArray) Timestamps() []int64 {
	out := make([]int64, 0, len(a.Events))
	for ts := range a.Events {
		out = append(out, ts)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len counts leaf entries.
func (a CronArray) Len() int {
	n := 0
	for _, hooks := range a.Events {
		for _, keys := range hooks {
			n += len(keys)
		}
	}
	return n
}

// Project builds the legacy array from jobs. Each job is keyed by the md5 of
// its serialized args; identical (nextrun, hook, args) jobs collapse.
func Project(list []*jobs.Job) (CronArray, error) {
	a := NewCronArray()
	for _, job := range list {
		key, err := jobs.ArgsKey(job.Args)
		if err != nil {
			return CronArray{}, errors.Wrapf(err, "job %d", job.ID)
		}
		entry := CronEntry{Args: job.Args, Job: job}
		if job.IsRecurring() {
			entry.Schedule = job.Schedule
			entry.Interval = job.Interval
		}
		a.Add(job.NextRun.Unix(), job.Hook, key, entry)
	}
	return a, nil
}

// GetCronArray projects every waiting and running job of the tenant.
func (c *Connector) GetCronArray(ctx context.Context) (CronArray, error) {
	list, err := c.engine.Jobs(ctx, jobs.Query{Site: c.site})
	if err != nil {
		return CronArray{}, errors.Wrap(err, "failed to load cron array")
	}
	return Project(list)
}

// Reconciliation reports what UpdateCronArray changed in the store.
type Reconciliation struct {
	Created int
	Updated int
	Deleted int
	// Stored is what the host should keep in its own storage: always the
	// previous value, so the host's write is a no-op.
	Stored CronArray
}

// Changed reports whether any job was written.
func (r *Reconciliation) Changed() bool {
	return r.Created+r.Updated+r.Deleted > 0
}

type flatEntry struct {
	Timestamp int64
	Hook      string
	Key       string
	Entry     CronEntry
}

func (f flatEntry) event() Event {
	ev := Event{
		Hook:      f.Hook,
		Timestamp: time.Unix(f.Timestamp, 0).UTC(),
		Args:      f.Entry.Args,
	}
	if f.Entry.Interval > 0 {
		ev.Schedule = f.Entry.Schedule
		ev.Interval = f.Entry.Interval
	}
	return ev
}

// position identifies an entry regardless of its recurrence.
func (f flatEntry) position() string {
	return strconv.FormatInt(f.Timestamp, 10) + "\x00" + f.Hook + "\x00" + f.Key
}

// signature is the dedup key of one entry: sha1 of timestamp, hook, args key
// and, for recurring entries, interval.
func signature(timestamp int64, hook, key string, interval int64) string {
	s := strconv.FormatInt(timestamp, 10) + hook + key
	if interval > 0 {
		s += strconv.FormatInt(interval, 10)
	}
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func (a CronArray) flatten() map[string]flatEntry {
	out := make(map[string]flatEntry, a.Len())
	for ts, hooks := range a.Events {
		for hook, keys := range hooks {
			for key, entry := range keys {
				out[signature(ts, hook, key, entry.Interval)] = flatEntry{
					Timestamp: ts,
					Hook:      hook,
					Key:       key,
					Entry:     entry,
				}
			}
		}
	}
	return out
}

// difference returns entries of a missing from b, ordered by timestamp, hook, key.
func difference(a, b map[string]flatEntry) []flatEntry {
	var out []flatEntry
	for sig, f := range a {
		if _, ok := b[sig]; !ok {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp != out[j].Timestamp {
			return out[i].Timestamp < out[j].Timestamp
		}
		if out[i].Hook != out[j].Hook {
			return out[i].Hook < out[j].Hook
		}
		return out[i].Key < out[j].Key
	})
	return out
}

// UpdateCronArray turns the host's "replace the whole schedule" into targeted
// store writes. Entries only in value are scheduled, entries only in old are
// deleted, and an entry whose interval alone changed is updated in place.
// Running jobs are never deleted here.
func (c *Connector) UpdateCronArray(ctx context.Context, value, old CronArray) (*Reconciliation, error) {
	log := logger.AddLegacySymbol(logger.FromContext(ctx, c.log))
	next := value.flatten()
	prev := old.flatten()

	added := difference(next, prev)
	removed := difference(prev, next)
	rec := &Reconciliation{Stored: old}

	removedAt := make(map[string]flatEntry, len(removed))
	for _, f := range removed {
		removedAt[f.position()] = f
	}

	for _, f := range added {
		if r, ok := removedAt[f.position()]; ok {
			delete(removedAt, f.position())
			updated, err := c.changeInterval(ctx, r, f)
			if err != nil {
				return nil, err
			}
			if updated {
				rec.Updated++
				continue
			}
		}

		outcome, err := c.ScheduleEvent(ctx, f.event())
		if err != nil {
			return nil, errors.Wrapf(err, "failed to reconcile %s at %d", f.Hook, f.Timestamp)
		}
		switch outcome {
		case Created:
			rec.Created++
		case Updated:
			rec.Updated++
		}
	}

	for _, f := range removed {
		if _, ok := removedAt[f.position()]; !ok {
			continue
		}
		job, err := c.resolve(ctx, f)
		if err != nil {
			return nil, err
		}
		if job == nil {
			continue
		}
		deleted, err := c.store.Delete(ctx, job, jobs.DeleteOptions{})
		if errors.IsStillRunningError(err) {
			log.Warnw("Skipping removal of running job", logger.FieldJobID, job.ID, logger.FieldHook, job.Hook)
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to remove %s at %d", f.Hook, f.Timestamp)
		}
		if deleted {
			rec.Deleted++
		}
	}

	if rec.Changed() {
		log.Infow("Cron array reconciled",
			"created", rec.Created,
			"updated", rec.Updated,
			"deleted", rec.Deleted,
		)
	}
	return rec, nil
}

// changeInterval applies to's recurrence to the job behind from. Reports
// false when that job no longer exists.
func (c *Connector) changeInterval(ctx context.Context, from, to flatEntry) (bool, error) {
	job, err := c.resolve(ctx, from)
	if err != nil || job == nil {
		return false, err
	}
	ev := to.event()
	job.Interval = ev.Interval
	job.Schedule = c.label(ev)
	if err := c.store.Save(ctx, job); err != nil {
		return false, errors.Wrapf(err, "failed to update interval of job %d", job.ID)
	}
	return true, nil
}

// resolve returns the entry's back-referenced job, looking it up by exact
// match when the host built the entry itself.
func (c *Connector) resolve(ctx context.Context, f flatEntry) (*jobs.Job, error) {
	if f.Entry.Job != nil && f.Entry.Job.IsCreated() {
		return f.Entry.Job, nil
	}
	ev := f.event()
	return c.first(ctx, jobs.Query{
		Hook:    ev.Hook,
		Args:    argsFilter(ev.Args),
		NextRun: jobs.NextRunAt(ev.Timestamp),
	})
}

type wireEntry struct {
	Schedule interface{} `json:"schedule" yaml:"schedule"`
	Args     []any       `json:"args" yaml:"args"`
	Interval int64       `json:"interval,omitempty" yaml:"interval,omitempty"`
}

func (e CronEntry) wire() wireEntry {
	w := wireEntry{Schedule: false, Args: e.Args, Interval: e.Interval}
	if w.Args == nil {
		w.Args = []any{}
	}
	if e.Schedule != "" {
		w.Schedule = e.Schedule
	}
	return w
}

// MarshalJSON writes the host's shape: schedule is false for one-off events
// and interval is omitted.
func (e CronEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.wire())
}

// UnmarshalJSON reads the host's shape.
func (e *CronEntry) UnmarshalJSON(data []byte) error {
	var w struct {
		Schedule json.RawMessage `json:"schedule"`
		Args     []any           `json:"args"`
		Interval int64           `json:"interval"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&w); err != nil {
		return errors.Wrap(err, "invalid cron entry")
	}
	var schedule string
	if len(w.Schedule) > 0 && w.Schedule[0] == '"' {
		if err := json.Unmarshal(w.Schedule, &schedule); err != nil {
			return errors.Wrap(err, "invalid cron entry schedule")
		}
	}
	*e = CronEntry{Schedule: schedule, Args: w.Args, Interval: w.Interval}
	return nil
}

// MarshalJSON writes timestamps in ascending numeric order followed by the
// version tag.
func (a CronArray) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, ts := range a.Timestamps() {
		data, err := json.Marshal(a.Events[ts])
		if err != nil {
			return nil, err
		}
		buf.WriteString(`"` + strconv.FormatInt(ts, 10) + `":`)
		buf.Write(data)
		buf.WriteByte(',')
	}
	buf.WriteString(`"version":` + strconv.Itoa(a.Version) + `}`)
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the host's cron array.
func (a *CronArray) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "invalid cron array")
	}
	out := NewCronArray()
	out.Version = 0
	for k, v := range raw {
		if k == "version" {
			if err := json.Unmarshal(v, &out.Version); err != nil {
				return errors.Wrap(err, "invalid cron array version")
			}
			continue
		}
		ts, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return errors.Newf("invalid cron array timestamp %q", k)
		}
		var hooks map[string]map[string]CronEntry
		if err := json.Unmarshal(v, &hooks); err != nil {
			return errors.Wrapf(err, "invalid events at %d", ts)
		}
		out.Events[ts] = hooks
	}
	*a = out
	return nil
}

// MarshalYAML renders the same shape as MarshalJSON.
func (a CronArray) MarshalYAML() (interface{}, error) {
	out := make(map[string]interface{}, len(a.Events)+1)
	for ts, hooks := range a.Events {
		h := make(map[string]map[string]wireEntry, len(hooks))
		for hook, keys := range hooks {
			k := make(map[string]wireEntry, len(keys))
			for key, entry := range keys {
				k[key] = entry.wire()
			}
			h[hook] = k
		}
		out[strconv.FormatInt(ts, 10)] = h
	}
	out["version"] = a.Version
	return out, nil
}
