// Package jobs is the relational job store: the Job entity, its persistence,
// and the cached query engine that answers "which jobs are due" for a tenant.
package jobs

import (
	"time"
)

// Status is a job's lifecycle state
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Valid reports whether s is one of the four known states.
func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusRunning, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// TimeLayout is how start and nextrun are stored: UTC, second precision.
const TimeLayout = "2006-01-02 15:04:05"

// Job is a schedulable unit of work.
//
// Interval > 0 is the only thing that makes a job recurring. Schedule is an
// advisory label; when a row has none it is derived from Interval at read time.
type Job struct {
	ID       int64     `json:"id,omitempty"`
	Site     int64     `json:"site"`
	Hook     string    `json:"hook"`
	Args     []any     `json:"args"`
	Start    time.Time `json:"start"`
	NextRun  time.Time `json:"nextrun"`
	Interval int64     `json:"interval,omitempty"` // seconds
	Schedule string    `json:"schedule,omitempty"`
	Status   Status    `json:"status"`
}

// IsCreated reports whether the job has been persisted.
func (j *Job) IsCreated() bool {
	return j.ID > 0
}

// IsRecurring reports whether the job repeats.
func (j *Job) IsRecurring() bool {
	return j.Interval > 0
}

// FormatTime renders t the way the jobs table stores it.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime reads a stored timestamp as UTC.
func ParseTime(s string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, s, time.UTC)
}
