// Package schedules holds the host's registered named frequencies and the
// reverse lookup from an interval to a frequency name.
//
// Stored jobs may lack a schedule label. The label is then derived at read
// time from the job's interval, so the same row can resolve to different
// names under different registrations.
package schedules

import (
	"sync"

	"github.com/teranos/cronstore/errors"
)

// Unknown is the label for a recurring interval no registered frequency matches.
const Unknown = "__fake_schedule"

// Schedule is one registered named frequency.
type Schedule struct {
	Name     string `json:"name"`
	Interval int64  `json:"interval"` // seconds
	Display  string `json:"display"`
}

// NameForInterval returns the name of the first schedule in table whose
// interval equals interval, or Unknown.
func NameForInterval(table []Schedule, interval int64) string {
	if interval <= 0 {
		return Unknown
	}
	for _, s := range table {
		if s.Interval == interval {
			return s.Name
		}
	}
	return Unknown
}

// Defaults returns the frequencies every host registers.
func Defaults() []Schedule {
	return []Schedule{
		{Name: "hourly", Interval: 3600, Display: "Once Hourly"},
		{Name: "twicedaily", Interval: 43200, Display: "Twice Daily"},
		{Name: "daily", Interval: 86400, Display: "Once Daily"},
		{Name: "weekly", Interval: 604800, Display: "Once Weekly"},
	}
}

// Registry is the live, replaceable table of named frequencies.
// Registration order is preserved and decides which name wins an interval collision.
type Registry struct {
	mu    sync.RWMutex
	table []Schedule
}

// NewRegistry creates a registry. With no schedules it starts from Defaults.
func NewRegistry(table ...Schedule) *Registry {
	if len(table) == 0 {
		table = Defaults()
	}
	r := &Registry{}
	r.table = append(r.table, table...)
	return r
}

// All returns a copy of the table in registration order.
func (r *Registry) All() []Schedule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Schedule, len(r.table))
	copy(out, r.table)
	return out
}

// NameForInterval resolves interval against the current table.
func (r *Registry) NameForInterval(interval int64) string {
	if r == nil {
		return Unknown
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return NameForInterval(r.table, interval)
}

// Interval returns the interval registered under name.
func (r *Registry) Interval(name string) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.table {
		if s.Name == name {
			return s.Interval, true
		}
	}
	return 0, false
}

// Register adds a schedule, or replaces the one with the same name in place.
func (r *Registry) Register(s Schedule) error {
	if err := validate(s); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.table {
		if r.table[i].Name == s.Name {
			r.table[i] = s
			return nil
		}
	}
	r.table = append(r.table, s)
	return nil
}

// Replace swaps the whole table. Nothing changes if any entry is invalid.
func (r *Registry) Replace(table []Schedule) error {
	seen := make(map[string]bool, len(table))
	for _, s := range table {
		if err := validate(s); err != nil {
			return err
		}
		if seen[s.Name] {
			return errors.Newf("schedule %q registered twice", s.Name)
		}
		seen[s.Name] = true
	}
	next := make([]Schedule, len(table))
	copy(next, table)

	r.mu.Lock()
	r.table = next
	r.mu.Unlock()
	return nil
}

func validate(s Schedule) error {
	if s.Name == "" {
		return errors.New("schedule name is required")
	}
	if s.Name == Unknown {
		return errors.Newf("schedule name %q is reserved", Unknown)
	}
	if s.Interval <= 0 {
		return errors.Newf("schedule %q: interval must be positive, got %d", s.Name, s.Interval)
	}
	return nil
}
