package jobs

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/teranos/cronstore/errors"
)

// MaxLimit is the largest explicit limit a query accepts.
const MaxLimit = 10000

type timeFilterKind int

const (
	anyTime timeFilterKind = iota
	atTime
	pastTime
	futureTime
	betweenTimes
)

// TimeFilter is a predicate on nextrun. The zero value matches everything.
type TimeFilter struct {
	kind     timeFilterKind
	from, to time.Time
}

// NextRunAt matches jobs due exactly at t.
func NextRunAt(t time.Time) TimeFilter {
	return TimeFilter{kind: atTime, from: t}
}

// NextRunPast matches jobs due at or before now.
func NextRunPast() TimeFilter {
	return TimeFilter{kind: pastTime}
}

// NextRunFuture matches jobs due strictly after now.
func NextRunFuture() TimeFilter {
	return TimeFilter{kind: futureTime}
}

// NextRunBetween matches jobs due in [from, to].
func NextRunBetween(from, to time.Time) TimeFilter {
	return TimeFilter{kind: betweenTimes, from: from, to: to}
}

// IsZero reports whether the filter is disabled.
func (f TimeFilter) IsZero() bool {
	return f.kind == anyTime
}

// Query selects jobs of one tenant.
type Query struct {
	Site int64
	// Hook filters by exact hook; "" matches every hook.
	Hook string
	// Args is nil to match any argument list, or a slice or array whose
	// serialized form must equal the stored one.
	Args     any
	NextRun  TimeFilter
	Statuses []Status // empty means waiting and running
	// Limit <= 0 is unbounded.
	Limit int
	Desc  bool
	// Raw returns storage rows instead of hydrated jobs.
	Raw bool
}

// resolvedQuery is a Query with defaults applied and relative times pinned.
// Its JSON encoding is the cache fingerprint.
type resolvedQuery struct {
	Site     int64    `json:"site"`
	Hook     string   `json:"hook,omitempty"`
	Args     *string  `json:"args,omitempty"`
	Op       string   `json:"op,omitempty"`
	From     string   `json:"from,omitempty"`
	To       string   `json:"to,omitempty"`
	Statuses []string `json:"statuses"`
	Limit    int      `json:"limit,omitempty"`
	Desc     bool     `json:"desc,omitempty"`
}

func (q Query) resolve(now time.Time) (*resolvedQuery, error) {
	if q.Site <= 0 {
		return nil, errors.Wrapf(errors.ErrInvalidTenant, "site %d", q.Site)
	}
	if q.Limit > MaxLimit {
		return nil, errors.Wrapf(errors.ErrInvalidLimit, "limit %d exceeds %d", q.Limit, MaxLimit)
	}

	rq := &resolvedQuery{Site: q.Site, Hook: q.Hook, Desc: q.Desc}
	if q.Limit > 0 {
		rq.Limit = q.Limit
	}

	if q.Args != nil {
		args, err := argsFilter(q.Args)
		if err != nil {
			return nil, err
		}
		serialized, err := SerializeArgs(args)
		if err != nil {
			return nil, err
		}
		rq.Args = &serialized
	}

	switch q.NextRun.kind {
	case atTime:
		rq.Op, rq.From = "=", FormatTime(q.NextRun.from)
	case pastTime:
		rq.Op, rq.From = "<=", FormatTime(now)
	case futureTime:
		rq.Op, rq.From = ">", FormatTime(now)
	case betweenTimes:
		if q.NextRun.to.Before(q.NextRun.from) {
			return nil, errors.NewInvalidRequestError("nextrun range ends before it starts")
		}
		rq.Op, rq.From, rq.To = "between", FormatTime(q.NextRun.from), FormatTime(q.NextRun.to)
	}

	statuses := q.Statuses
	if len(statuses) == 0 {
		statuses = []Status{StatusWaiting, StatusRunning}
	}
	seen := make(map[Status]bool, len(statuses))
	for _, st := range statuses {
		if !st.Valid() {
			return nil, errors.NewInvalidRequestError("unknown status %q", st)
		}
		if !seen[st] {
			seen[st] = true
			rq.Statuses = append(rq.Statuses, string(st))
		}
	}
	sort.Strings(rq.Statuses)

	return rq, nil
}

// argsFilter accepts any slice or array and rejects everything else.
func argsFilter(v any) ([]any, error) {
	if args, ok := v.([]any); ok {
		return args, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, errors.Wrapf(errors.ErrInvalidArgs, "args filter must be a list, got %T", v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func (rq *resolvedQuery) sql() (string, []interface{}) {
	var b strings.Builder
	params := []interface{}{rq.Site}

	b.WriteString(`SELECT ` + jobColumns + ` FROM jobs WHERE site = ?`)
	if rq.Hook != "" {
		b.WriteString(` AND hook = ?`)
		params = append(params, rq.Hook)
	}
	if rq.Args != nil {
		b.WriteString(` AND args = ?`)
		params = append(params, *rq.Args)
	}
	switch rq.Op {
	case "between":
		b.WriteString(` AND nextrun BETWEEN ? AND ?`)
		params = append(params, rq.From, rq.To)
	case "":
	default:
		b.WriteString(` AND nextrun ` + rq.Op + ` ?`)
		params = append(params, rq.From)
	}

	b.WriteString(` AND status IN (`)
	for i, st := range rq.Statuses {
		if i > 0 {
			b.WriteString(`, `)
		}
		b.WriteString(`?`)
		params = append(params, st)
	}
	b.WriteString(`)`)

	if rq.Desc {
		b.WriteString(` ORDER BY nextrun DESC, id DESC`)
	} else {
		b.WriteString(` ORDER BY nextrun ASC, id ASC`)
	}
	if rq.Limit > 0 {
		b.WriteString(` LIMIT ?`)
		params = append(params, rq.Limit)
	}
	return b.String(), params
}

func (rq *resolvedQuery) fingerprint() string {
	data, _ := json.Marshal(rq)
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}
