package connector

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/teranos/cronstore/jobs"
)

func seedCron(t *testing.T, env *testEnv) time.Time {
	t.Helper()
	ctx := context.Background()
	T := env.clock.Now().Add(time.Hour)

	for _, ev := range []Event{
		{Hook: "send_email", Timestamp: T, Args: []any{"user:5"}},
		{Hook: "send_email", Timestamp: T, Args: []any{"user:6"}},
		{Hook: "sync", Timestamp: T.Add(time.Hour), Interval: 3600},
		{Hook: "cleanup", Timestamp: T.Add(-30 * time.Minute), Args: []any{7, true}, Interval: 86400, Schedule: "daily"},
	} {
		_, err := env.conn.ScheduleEvent(ctx, ev)
		require.NoError(t, err)
	}
	return T
}

func argsKey(t *testing.T, args []any) string {
	t.Helper()
	key, err := jobs.ArgsKey(args)
	require.NoError(t, err)
	return key
}

func TestGetCronArrayProjection(t *testing.T) {
	env := newTestEnv(t)
	T := seedCron(t, env)

	arr, err := env.conn.GetCronArray(context.Background())
	require.NoError(t, err)

	assert.Equal(t, CronArrayVersion, arr.Version)
	assert.Equal(t, 4, arr.Len())
	assert.Equal(t, []int64{T.Add(-30 * time.Minute).Unix(), T.Unix(), T.Add(time.Hour).Unix()}, arr.Timestamps())

	emails := arr.Events[T.Unix()]["send_email"]
	require.Len(t, emails, 2)
	entry := emails[argsKey(t, []any{"user:5"})]
	assert.Equal(t, []any{"user:5"}, entry.Args)
	assert.Empty(t, entry.Schedule)
	assert.Zero(t, entry.Interval)
	require.NotNil(t, entry.Job, "entries point back at their job")
	assert.Equal(t, "send_email", entry.Job.Hook)

	sync := arr.Events[T.Add(time.Hour).Unix()]["sync"][argsKey(t, nil)]
	assert.Equal(t, "hourly", sync.Schedule)
	assert.Equal(t, int64(3600), sync.Interval)
}

func TestCronArrayRoundTripIsNoop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedCron(t, env)

	arr, err := env.conn.GetCronArray(ctx)
	require.NoError(t, err)

	rec, err := env.conn.UpdateCronArray(ctx, arr, arr)
	require.NoError(t, err)
	assert.False(t, rec.Changed())
	assert.Equal(t, arr, rec.Stored)

	// The host usually hands back a decoded copy without back-references
	data, err := json.Marshal(arr)
	require.NoError(t, err)
	var decoded CronArray
	require.NoError(t, json.Unmarshal(data, &decoded))

	rec, err = env.conn.UpdateCronArray(ctx, decoded, arr)
	require.NoError(t, err)
	assert.Zero(t, rec.Created)
	assert.Zero(t, rec.Updated)
	assert.Zero(t, rec.Deleted)

	after, err := env.conn.GetCronArray(ctx)
	require.NoError(t, err)
	assert.Equal(t, arr.Len(), after.Len())
}

func TestUpdateCronArrayReconciles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	T := seedCron(t, env)

	old, err := env.conn.GetCronArray(ctx)
	require.NoError(t, err)

	syncAt := T.Add(time.Hour).Unix()
	user5 := argsKey(t, []any{"user:5"})
	user6 := argsKey(t, []any{"user:6"})
	noArgs := argsKey(t, nil)

	value := NewCronArray()
	for ts, hooks := range old.Events {
		for hook, keys := range hooks {
			for key, entry := range keys {
				if ts == T.Unix() && key == user6 {
					continue // removed
				}
				if ts == syncAt && hook == "sync" {
					entry.Interval = 86400 // interval change
					entry.Schedule = "daily"
				}
				value.Add(ts, hook, key, entry)
			}
		}
	}
	newAt := T.Add(3 * time.Hour).Unix()
	value.Add(newAt, "purge", noArgs, CronEntry{Args: []any{}})

	rec, err := env.conn.UpdateCronArray(ctx, value, old)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Created)
	assert.Equal(t, 1, rec.Updated)
	assert.Equal(t, 1, rec.Deleted)
	assert.Equal(t, old, rec.Stored, "the host keeps its previous value")

	now, err := env.conn.GetCronArray(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, now.Len())
	assert.Contains(t, now.Events[T.Unix()]["send_email"], user5)
	assert.NotContains(t, now.Events[T.Unix()]["send_email"], user6)
	assert.Contains(t, now.Events[newAt], "purge")

	sync := now.Events[syncAt]["sync"][noArgs]
	assert.Equal(t, int64(86400), sync.Interval)
	assert.Equal(t, "daily", sync.Schedule)
	assert.Equal(t, old.Events[syncAt]["sync"][noArgs].Job.ID, sync.Job.ID, "updated in place")

	// Reconciling the new state against itself changes nothing
	rec, err = env.conn.UpdateCronArray(ctx, now, now)
	require.NoError(t, err)
	assert.False(t, rec.Changed())
}

func TestUpdateCronArrayResolvesEntriesWithoutBackReference(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	T := env.clock.Now().Add(time.Hour)

	_, err := env.conn.ScheduleEvent(ctx, Event{Hook: "hosted", Timestamp: T, Args: []any{"x"}})
	require.NoError(t, err)

	old := NewCronArray()
	old.Add(T.Unix(), "hosted", argsKey(t, []any{"x"}), CronEntry{Args: []any{"x"}})

	rec, err := env.conn.UpdateCronArray(ctx, NewCronArray(), old)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Deleted)
	assert.Empty(t, env.jobs(t, jobs.Query{Hook: "hosted"}))
}

func TestUpdateCronArraySkipsRunningJobs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	T := env.clock.Now()

	_, err := env.conn.ScheduleEvent(ctx, Event{Hook: "busy", Timestamp: T})
	require.NoError(t, err)
	job := env.jobs(t, jobs.Query{Hook: "busy"})[0]
	job.Status = jobs.StatusRunning
	require.NoError(t, env.store.Save(ctx, job))

	old, err := env.conn.GetCronArray(ctx)
	require.NoError(t, err)

	rec, err := env.conn.UpdateCronArray(ctx, NewCronArray(), old)
	require.NoError(t, err)
	assert.Zero(t, rec.Deleted)
	assert.Len(t, env.jobs(t, jobs.Query{Hook: "busy"}), 1)
}

func TestSignature(t *testing.T) {
	oneOff := signature(1700000000, "hook", "abc", 0)
	recurring := signature(1700000000, "hook", "abc", 3600)

	assert.Len(t, oneOff, 40)
	assert.NotEqual(t, oneOff, recurring)
	assert.Equal(t, oneOff, signature(1700000000, "hook", "abc", 0))
}

func TestCronArrayJSON(t *testing.T) {
	arr := NewCronArray()
	arr.Add(1700000600, "b", "k2", CronEntry{Schedule: "hourly", Args: []any{"x"}, Interval: 3600})
	arr.Add(1700000000, "a", "k1", CronEntry{})

	data, err := json.Marshal(arr)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"1700000000": {"a": {"k1": {"schedule": false, "args": []}}},
		"1700000600": {"b": {"k2": {"schedule": "hourly", "args": ["x"], "interval": 3600}}},
		"version": 2
	}`, string(data))
	assert.Less(t, strings.Index(string(data), "1700000000"), strings.Index(string(data), "1700000600"))

	var back CronArray
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, 2, back.Version)
	assert.Equal(t, "hourly", back.Events[1700000600]["b"]["k2"].Schedule)
	assert.Equal(t, int64(3600), back.Events[1700000600]["b"]["k2"].Interval)
	assert.Empty(t, back.Events[1700000000]["a"]["k1"].Schedule)

	var bad CronArray
	assert.Error(t, json.Unmarshal([]byte(`{"soon": {}}`), &bad))
}

func TestCronArrayYAML(t *testing.T) {
	arr := NewCronArray()
	arr.Add(1700000000, "a", "k1", CronEntry{Args: []any{"x"}})

	data, err := yaml.Marshal(arr)
	require.NoError(t, err)
	assert.Contains(t, string(data), "version: 2")
	assert.Contains(t, string(data), "schedule: false")
}
