package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/cronstore/cache"
	"github.com/teranos/cronstore/errors"
	"github.com/teranos/cronstore/schedules"
)

func hooks(jobs []*Job) []string {
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.Hook
	}
	return out
}

func TestQueryFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.save(t, &Job{Site: 1, Hook: "send_email", Args: []any{"user:5"}, NextRun: testNow.Add(-time.Hour)})
	env.save(t, &Job{Site: 1, Hook: "send_email", Args: []any{"user:6"}, NextRun: testNow.Add(time.Hour)})
	env.save(t, &Job{Site: 1, Hook: "cleanup", NextRun: testNow})
	env.save(t, &Job{Site: 1, Hook: "archived", NextRun: testNow, Status: StatusCompleted})
	env.save(t, &Job{Site: 2, Hook: "send_email", Args: []any{"user:5"}, NextRun: testNow})

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{"site scope with default statuses", Query{Site: 1}, []string{"send_email", "cleanup", "send_email"}},
		{"hook", Query{Site: 1, Hook: "cleanup"}, []string{"cleanup"}},
		{"args", Query{Site: 1, Args: []any{"user:6"}}, []string{"send_email"}},
		{"typed args slice", Query{Site: 1, Args: []string{"user:5"}}, []string{"send_email"}},
		{"empty args", Query{Site: 1, Args: []any{}}, []string{"cleanup"}},
		{"past includes now", Query{Site: 1, NextRun: NextRunPast()}, []string{"send_email", "cleanup"}},
		{"future", Query{Site: 1, NextRun: NextRunFuture()}, []string{"send_email"}},
		{"exact", Query{Site: 1, NextRun: NextRunAt(testNow)}, []string{"cleanup"}},
		{"range inclusive", Query{Site: 1, NextRun: NextRunBetween(testNow.Add(-time.Hour), testNow)}, []string{"send_email", "cleanup"}},
		{"widened statuses", Query{Site: 1, Statuses: []Status{StatusCompleted}}, []string{"archived"}},
		{"descending", Query{Site: 1, Desc: true}, []string{"send_email", "cleanup", "send_email"}},
		{"limit", Query{Site: 1, Limit: 1}, []string{"send_email"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobs, err := env.engine.Jobs(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, hooks(jobs))
		})
	}
}

func TestQueryOrdering(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	late := env.save(t, &Job{Site: 1, Hook: "late", NextRun: testNow.Add(2 * time.Hour)})
	early := env.save(t, &Job{Site: 1, Hook: "early", NextRun: testNow.Add(time.Hour)})

	asc, err := env.engine.Jobs(ctx, Query{Site: 1})
	require.NoError(t, err)
	require.Len(t, asc, 2)
	assert.Equal(t, early.ID, asc[0].ID)

	desc, err := env.engine.Jobs(ctx, Query{Site: 1, Desc: true})
	require.NoError(t, err)
	require.Len(t, desc, 2)
	assert.Equal(t, late.ID, desc[0].ID)
}

func TestQueryValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		query    Query
		sentinel error
	}{
		{"missing tenant", Query{}, errors.ErrInvalidTenant},
		{"string args", Query{Site: 1, Args: "user:5"}, errors.ErrInvalidArgs},
		{"map args", Query{Site: 1, Args: map[string]any{"a": 1}}, errors.ErrInvalidArgs},
		{"limit too large", Query{Site: 1, Limit: MaxLimit + 1}, errors.ErrInvalidLimit},
		{"unknown status", Query{Site: 1, Statuses: []Status{"paused"}}, errors.ErrInvalidRequest},
		{"reversed range", Query{Site: 1, NextRun: NextRunBetween(testNow, testNow.Add(-time.Second))}, errors.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.engine.Query(ctx, tt.query)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel), "got %v", err)
		})
	}
}

func TestQueryRawRows(t *testing.T) {
	env := newTestEnv(t)

	job := env.save(t, &Job{Site: 1, Hook: "raw", Args: []any{1}, NextRun: testNow, Interval: 60})

	res, err := env.engine.Query(context.Background(), Query{Site: 1, Raw: true})
	require.NoError(t, err)
	assert.Nil(t, res.Jobs)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, job.ID, res.Rows[0].ID)
	assert.Equal(t, "[1]", res.Rows[0].Args)
	assert.Equal(t, "2026-03-01 12:00:00", res.Rows[0].NextRun)
	assert.Empty(t, res.Rows[0].Schedule, "raw rows carry the stored label only")
}

func TestQueryResultsCachedUntilGenerationBumps(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.save(t, &Job{Site: 1, Hook: "first", NextRun: testNow})

	jobs, err := env.engine.Jobs(ctx, Query{Site: 1})
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	// A write that bypasses the store does not move the generation
	_, err = env.db.Exec(`INSERT INTO jobs (site, hook, args, start, nextrun) VALUES (1, 'sneaky', '[]', ?, ?)`,
		FormatTime(testNow), FormatTime(testNow))
	require.NoError(t, err)

	jobs, err = env.engine.Jobs(ctx, Query{Site: 1})
	require.NoError(t, err)
	assert.Len(t, jobs, 1, "served from cache")
	assert.Greater(t, env.cache.Stats().Hits, int64(0))

	// Any store mutation in the tenant retires every cached query
	env.save(t, &Job{Site: 1, Hook: "second", NextRun: testNow.Add(time.Minute)})

	jobs, err = env.engine.Jobs(ctx, Query{Site: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "sneaky", "second"}, hooks(jobs))
}

func TestQueryCacheIsPerTenant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.save(t, &Job{Site: 1, Hook: "one", NextRun: testNow})
	env.save(t, &Job{Site: 2, Hook: "two", NextRun: testNow})

	_, err := env.engine.Jobs(ctx, Query{Site: 1})
	require.NoError(t, err)

	_, err = env.db.Exec(`INSERT INTO jobs (site, hook, args, start, nextrun) VALUES (1, 'sneaky', '[]', ?, ?)`,
		FormatTime(testNow), FormatTime(testNow))
	require.NoError(t, err)

	// Mutating tenant 2 leaves tenant 1's entries live
	env.save(t, &Job{Site: 2, Hook: "three", NextRun: testNow})

	jobs, err := env.engine.Jobs(ctx, Query{Site: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, hooks(jobs))
}

func TestScheduleLabelResolvedAtReadTime(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.save(t, &Job{Site: 1, Hook: "labelled", NextRun: testNow, Interval: 86400, Schedule: "nightly"})
	env.save(t, &Job{Site: 1, Hook: "derived", NextRun: testNow.Add(time.Second), Interval: 3600})
	env.save(t, &Job{Site: 1, Hook: "odd", NextRun: testNow.Add(2 * time.Second), Interval: 300})

	jobs, err := env.engine.Jobs(ctx, Query{Site: 1})
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, "nightly", jobs[0].Schedule, "stored label wins")
	assert.Equal(t, "hourly", jobs[1].Schedule)
	assert.Equal(t, schedules.Unknown, jobs[2].Schedule)

	// A new registration relabels cached rows on the next read
	require.NoError(t, env.registry.Register(schedules.Schedule{Name: "five_minutes", Interval: 300}))
	jobs, err = env.engine.Jobs(ctx, Query{Site: 1})
	require.NoError(t, err)
	assert.Equal(t, "five_minutes", jobs[2].Schedule)
	assert.True(t, jobs[2].IsRecurring())
}

func TestForSite(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.save(t, &Job{Site: 4, Hook: "waiting", NextRun: testNow})
	env.save(t, &Job{Site: 4, Hook: "done", NextRun: testNow, Status: StatusCompleted})
	env.save(t, &Job{Site: 4, Hook: "broken", NextRun: testNow, Status: StatusFailed})

	jobs, err := env.engine.ForSite(ctx, 4, false, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"waiting"}, hooks(jobs))

	jobs, err = env.engine.ForSite(ctx, 4, true, false)
	require.NoError(t, err)
	assert.Len(t, jobs, 2)

	jobs, err = env.engine.ForSite(ctx, 4, true, true)
	require.NoError(t, err)
	assert.Len(t, jobs, 3)
}

func TestPastFilterFollowsEngineClock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.save(t, &Job{Site: 1, Hook: "soon", NextRun: testNow.Add(time.Hour)})

	jobs, err := env.engine.Jobs(ctx, Query{Site: 1, NextRun: NextRunPast()})
	require.NoError(t, err)
	assert.Empty(t, jobs)

	later := NewEngine(env.store, WithEngineClock(func() time.Time { return testNow.Add(2 * time.Hour) }))
	jobs, err = later.Jobs(ctx, Query{Site: 1, NextRun: NextRunPast()})
	require.NoError(t, err)
	assert.Equal(t, []string{"soon"}, hooks(jobs))
}

func TestConcurrentQueries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		env.save(t, &Job{Site: 1, Hook: "parallel", Args: []any{i}, NextRun: testNow})
	}

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			jobs, err := env.engine.Jobs(ctx, Query{Site: 1, Hook: "parallel"})
			if err == nil && len(jobs) != 5 {
				err = errors.Newf("got %d jobs", len(jobs))
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestFingerprintIgnoresStatusOrder(t *testing.T) {
	a, err := Query{Site: 1, Statuses: []Status{StatusRunning, StatusWaiting}}.resolve(testNow)
	require.NoError(t, err)
	b, err := Query{Site: 1}.resolve(testNow)
	require.NoError(t, err)
	assert.Equal(t, a.fingerprint(), b.fingerprint())

	c, err := Query{Site: 1, Hook: "x"}.resolve(testNow)
	require.NoError(t, err)
	assert.NotEqual(t, b.fingerprint(), c.fingerprint())
}

func TestCoalescedQuerySurvivesFirstCallerCancel(t *testing.T) {
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer database.Close()

	rows := sqlmock.NewRows([]string{"id", "site", "hook", "args", "start", "nextrun", "interval", "status", "schedule"}).
		AddRow(1, 1, "send_digest", "[]", FormatTime(testNow), FormatTime(testNow), nil, "waiting", nil)
	mock.ExpectQuery("SELECT (.+) FROM jobs WHERE site").
		WillDelayFor(300 * time.Millisecond).
		WillReturnRows(rows)

	store := NewStore(database, cache.Nop, schedules.NewRegistry(), zaptest.NewLogger(t).Sugar(), WithClock(fixedClock))
	engine := NewEngine(store, WithEngineClock(fixedClock))
	q := Query{Site: 1, Hook: "send_digest"}

	firstCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = engine.Jobs(firstCtx, q)
	}()

	time.Sleep(50 * time.Millisecond)
	var got []*Job
	var followerErr error
	go func() {
		defer wg.Done()
		got, followerErr = engine.Jobs(context.Background(), q)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	wg.Wait()

	require.NoError(t, followerErr)
	require.Len(t, got, 1)
	assert.Equal(t, "send_digest", got[0].Hook)
	assert.NoError(t, mock.ExpectationsWereMet(), "both callers share one read")
}
