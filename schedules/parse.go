package schedules

import (
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/teranos/cronstore/errors"
)

// periodSamples is how many consecutive firings must be evenly spaced for a
// cron expression to count as a fixed interval.
const periodSamples = 16

var periodReference = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)

// ParseInterval converts a frequency expression into whole seconds.
//
// Accepted forms:
//
//	"3600"          seconds
//	"90m", "12h"    Go durations
//	"@every 90m"    cron constant delay
//	"@hourly", "0 */6 * * *"  cron expressions that fire at a fixed period
func ParseInterval(expr string) (int64, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, errors.New("empty interval")
	}

	if n, err := strconv.ParseInt(expr, 10, 64); err == nil {
		return positive(expr, n)
	}

	if !strings.HasPrefix(expr, "@") && !strings.Contains(expr, " ") {
		d, err := time.ParseDuration(expr)
		if err != nil {
			return 0, errors.Wrapf(err, "invalid interval %q", expr)
		}
		return positive(expr, int64(d/time.Second))
	}

	spec, err := cron.ParseStandard(expr)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid cron expression %q", expr)
	}
	if every, ok := spec.(cron.ConstantDelaySchedule); ok {
		return positive(expr, int64(every.Delay/time.Second))
	}
	return fixedPeriod(expr, spec)
}

// fixedPeriod measures the gap between consecutive firings and rejects
// expressions whose gaps vary (weekday-only, monthly, ...).
func fixedPeriod(expr string, spec cron.Schedule) (int64, error) {
	prev := spec.Next(periodReference)
	var period time.Duration
	for i := 0; i < periodSamples; i++ {
		next := spec.Next(prev)
		if next.IsZero() {
			return 0, errors.Newf("cron expression %q never fires again", expr)
		}
		gap := next.Sub(prev)
		if period == 0 {
			period = gap
		} else if gap != period {
			return 0, errors.WithHint(
				errors.Newf("cron expression %q does not fire at a fixed interval", expr),
				"use @every <duration> or a plain number of seconds",
			)
		}
		prev = next
	}
	return positive(expr, int64(period/time.Second))
}

func positive(expr string, seconds int64) (int64, error) {
	if seconds <= 0 {
		return 0, errors.Newf("interval %q must be at least one second", expr)
	}
	return seconds, nil
}
