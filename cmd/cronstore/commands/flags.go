package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/teranos/cronstore/errors"
	"github.com/teranos/cronstore/jobs"
	"github.com/teranos/cronstore/schedules"
)

// parseWhen reads a --at value: "now", a signed offset ("+1h", "-5m"),
// unix seconds, RFC 3339, or the stored "2006-01-02 15:04:05" form (UTC).
func parseWhen(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "" || s == "now":
		return now.UTC().Truncate(time.Second), nil
	case strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-"):
		d, err := time.ParseDuration(s)
		if err != nil {
			return time.Time{}, whenError(s)
		}
		return now.Add(d).UTC().Truncate(time.Second), nil
	}

	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Truncate(time.Second), nil
	}
	if t, err := jobs.ParseTime(s); err == nil {
		return t, nil
	}
	return time.Time{}, whenError(s)
}

func whenError(s string) error {
	return errors.WithHint(
		errors.NewInvalidRequestError("cannot read time %q", s),
		`use "now", "+90m", unix seconds, RFC 3339 or "2006-01-02 15:04:05" (UTC)`,
	)
}

// parseArgs splits a shell-quoted --args value into an argument list
func parseArgs(s string) ([]any, error) {
	words, err := shellquote.Split(s)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidArgs, "cannot split %q: %v", s, err)
	}
	args := make([]any, len(words))
	for i, w := range words {
		args[i] = w
	}
	return args, nil
}

// formatArgs renders an argument list the way --args accepts it
func formatArgs(args []any) string {
	words := make([]string, len(args))
	for i, a := range args {
		words[i] = fmt.Sprint(a)
	}
	return shellquote.Join(words...)
}

// resolveFrequency reads an --every value: a registered schedule name, or an
// interval expression (seconds, Go duration, cron). The name is "" for an
// unregistered interval; the connector derives the label.
func resolveFrequency(registry *schedules.Registry, expr string) (string, int64, error) {
	if interval, ok := registry.Interval(expr); ok {
		return expr, interval, nil
	}
	interval, err := schedules.ParseInterval(expr)
	if err != nil {
		return "", 0, err
	}
	return "", interval, nil
}
