package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/cronstore/am"
	"github.com/teranos/cronstore/db"
	"github.com/teranos/cronstore/errors"
	"github.com/teranos/cronstore/sym"
)

type cli struct {
	t   *testing.T
	dir string
	db  string
}

// newCLI isolates config lookup and points --db at a fresh database
func newCLI(t *testing.T) *cli {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("CRONSTORE_JSON", "")
	t.Chdir(dir)
	am.Reset()
	t.Cleanup(am.Reset)
	return &cli{t: t, dir: dir, db: filepath.Join(dir, "cronstore.db")}
}

func (c *cli) exec(args ...string) (string, error) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--db", c.db}, args...))
	err := root.Execute()
	return out.String(), err
}

func (c *cli) run(args ...string) string {
	c.t.Helper()
	out, err := c.exec(args...)
	require.NoError(c.t, err, out)
	return out
}

func (c *cli) jobs(args ...string) []map[string]interface{} {
	c.t.Helper()
	var list []map[string]interface{}
	out := c.run(append([]string{"--json", "list"}, args...)...)
	require.NoError(c.t, json.Unmarshal([]byte(out), &list), out)
	return list
}

func TestMigrate(t *testing.T) {
	c := newCLI(t)

	var report map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(c.run("--json", "migrate")), &report))
	assert.Equal(t, float64(db.LatestVersion()), report["schema_version"])
	assert.Equal(t, true, report["installed"])
	assert.Greater(t, report["applied"], float64(0))

	require.NoError(t, json.Unmarshal([]byte(c.run("--json", "migrate")), &report))
	assert.Equal(t, float64(0), report["applied"])

	assert.Contains(t, c.run("migrate"), "Schema")
}

func TestScheduleAndList(t *testing.T) {
	c := newCLI(t)

	out := c.run("schedule", "send_digest", "--at", "2030-01-01 09:00:00", "--every", "daily", "--args", "user:5")
	assert.Contains(t, out, "created")

	out = c.run("schedule", "send_digest", "--at", "2030-01-01 09:00:00", "--every", "daily", "--args", "user:5")
	assert.Contains(t, out, "unchanged")

	out = c.run("schedule", "send_digest", "--at", "2030-01-01 09:00:00", "--every", "weekly", "--args", "user:5")
	assert.Contains(t, out, "updated")

	list := c.jobs()
	require.Len(t, list, 1)
	assert.Equal(t, "send_digest", list[0]["hook"])
	assert.Equal(t, "weekly", list[0]["schedule"])
	assert.Equal(t, float64(604800), list[0]["interval"])
	assert.Equal(t, []interface{}{"user:5"}, list[0]["args"])

	assert.Len(t, c.jobs("--args", "user:6"), 0)
	assert.Len(t, c.jobs("--hook", "send_digest", "--args", "user:5"), 1)

	table := c.run("list")
	assert.Contains(t, table, "send_digest")
	assert.Contains(t, table, "weekly")
}

func TestSitesAreIsolated(t *testing.T) {
	c := newCLI(t)

	c.run("--site", "2", "schedule", "cleanup", "--at", "2030-01-01 03:00:00")

	assert.Contains(t, c.run("list"), "No jobs")
	assert.Len(t, c.jobs("--all"), 0)
	assert.Contains(t, c.run("--site", "2", "list"), "cleanup")
}

func TestSiteFromEnvironment(t *testing.T) {
	c := newCLI(t)
	t.Setenv("CRONSTORE_SITE_DEFAULT", "4")

	c.run("schedule", "cleanup", "--at", "2030-01-01 03:00:00")

	assert.Contains(t, c.run("--site", "4", "list"), "cleanup")
	assert.Contains(t, c.run("--site", "1", "list"), "No jobs")
}

func TestCommandGlyphs(t *testing.T) {
	root := NewRootCmd()
	for _, c := range root.Commands() {
		glyph, ok := sym.CommandToSymbol[c.Name()]
		if !ok {
			continue
		}
		assert.True(t, strings.HasPrefix(c.Short, glyph+" "), "%s: %q", c.Name(), c.Short)
	}

	list, _, err := root.Find([]string{"list"})
	require.NoError(t, err)
	assert.Equal(t, sym.Cron+" List a tenant's jobs", list.Short)
}

func TestJobCommand(t *testing.T) {
	c := newCLI(t)
	c.run("schedule", "cleanup", "--at", "2030-01-01 03:00:00", "--every", "twicedaily")

	list := c.jobs()
	require.Len(t, list, 1)
	id := list[0]["id"].(float64)

	out := c.run("job", strconv.FormatInt(int64(id), 10))
	assert.Contains(t, out, "cleanup")
	assert.Contains(t, out, "2030-01-01 03:00:00")
	assert.Contains(t, out, "twicedaily")

	_, err := c.exec("job", "999")
	assert.True(t, errors.IsNotFoundError(err))

	_, err = c.exec("job", "abc")
	assert.True(t, errors.IsInvalidRequestError(err))
}

func TestRescheduleAndUnschedule(t *testing.T) {
	c := newCLI(t)
	c.run("schedule", "poll", "--at", "2030-01-01 09:00:00", "--every", "hourly", "--args", "feed 'main page'")

	out := c.run("reschedule", "poll", "--at", "2030-01-01 09:00:00", "--args", "feed 'main page'")
	assert.Contains(t, out, "2030-01-01 10:00:00")

	_, err := c.exec("reschedule", "poll", "--at", "2030-01-01 09:00:00", "--args", "feed 'main page'")
	assert.True(t, errors.IsNotFoundError(err), "the old time no longer exists")

	_, err = c.exec("unschedule", "poll", "--at", "2030-01-01 10:00:00", "--args", "feed")
	assert.True(t, errors.IsNotFoundError(err), "args must match exactly")

	c.run("unschedule", "poll", "--at", "2030-01-01 10:00:00", "--args", "feed 'main page'")
	assert.Len(t, c.jobs(), 0)
}

func TestClear(t *testing.T) {
	c := newCLI(t)
	c.run("schedule", "notify", "--at", "2030-01-01 09:00:00", "--args", "a")
	c.run("schedule", "notify", "--at", "2030-01-02 09:00:00", "--args", "b")
	c.run("schedule", "other", "--at", "2030-01-01 09:00:00")

	assert.Contains(t, c.run("clear", "notify", "--args", "a"), "Cleared 1")
	assert.Contains(t, c.run("clear", "notify"), "Cleared 1")
	assert.Contains(t, c.run("clear", "notify"), "Cleared 0")

	list := c.jobs()
	require.Len(t, list, 1)
	assert.Equal(t, "other", list[0]["hook"])
}

func TestDue(t *testing.T) {
	c := newCLI(t)
	c.run("schedule", "ping", "--at=-5m")
	c.run("schedule", "later", "--at", "2030-01-01 09:00:00")

	out := c.run("due")
	assert.Contains(t, out, "ping")
	assert.NotContains(t, out, "later")

	out = c.run("--json", "due")
	assert.Contains(t, out, `"ping"`)
	assert.Contains(t, out, `"version": 2`)
}

func TestCronArrayRoundTrip(t *testing.T) {
	c := newCLI(t)
	c.run("schedule", "send_digest", "--at", "2030-01-01 09:00:00", "--every", "daily", "--args", "user:5")
	c.run("schedule", "ping", "--at", "2030-01-02 09:00:00")

	exported := c.run("--json", "cron-array")
	assert.Contains(t, exported, `"schedule": "daily"`)
	assert.Contains(t, exported, `"schedule": false`)

	path := filepath.Join(c.dir, "cron.json")
	require.NoError(t, os.WriteFile(path, []byte(exported), 0644))
	assert.Contains(t, c.run("cron-array", "--apply", path), "No changes")

	assert.Contains(t, c.run("cron-array", "--format", "yaml"), "send_digest")

	_, err := c.exec("cron-array", "--format", "xml")
	assert.Error(t, err)
}

func TestCronArrayApplyRemovesMissingEntries(t *testing.T) {
	c := newCLI(t)
	c.run("schedule", "ping", "--at", "2030-01-02 09:00:00")

	path := filepath.Join(c.dir, "empty.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 2}`), 0644))

	var rec map[string]int
	require.NoError(t, json.Unmarshal([]byte(c.run("--json", "cron-array", "--apply", path)), &rec))
	assert.Equal(t, 1, rec["deleted"])
	assert.Len(t, c.jobs(), 0)
}

func TestLogAndSchedules(t *testing.T) {
	c := newCLI(t)

	assert.Contains(t, c.run("log"), "No log entries")
	assert.JSONEq(t, `[]`, c.run("--json", "log"))

	out := c.run("schedules")
	assert.Contains(t, out, "twicedaily")
	assert.Contains(t, out, "12h0m0s")
}

func TestSchedulesFile(t *testing.T) {
	c := newCLI(t)
	schedulesPath := filepath.Join(c.dir, "schedules.toml")
	require.NoError(t, os.WriteFile(schedulesPath, []byte(`
[[schedule]]
name = "every_15m"
interval = "@every 15m"
display = "Every 15 minutes"
`), 0644))
	configPath := filepath.Join(c.dir, "cronstore.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("[schedules]\nfile = \""+schedulesPath+"\"\n"), 0644))

	assert.Contains(t, c.run("schedules"), "every_15m")

	c.run("schedule", "poll", "--at", "2030-01-01 09:00:00", "--every", "900")
	list := c.jobs()
	require.Len(t, list, 1)
	assert.Equal(t, "every_15m", list[0]["schedule"])
}

func TestAmCommands(t *testing.T) {
	c := newCLI(t)

	out := c.run("am", "show", "--format", "yaml")
	assert.Contains(t, out, "bulk_limit: 1000")
	assert.Contains(t, out, c.db, "--db overrides database.path")

	var cfg am.Config
	require.NoError(t, json.Unmarshal([]byte(c.run("--site", "4", "am", "show", "--format", "json")), &cfg))
	assert.Equal(t, int64(4), cfg.Site.Default)

	assert.Contains(t, c.run("am", "show", "--sources"), "database.path")
	assert.Contains(t, c.run("am", "get", "cache.size"), "4096")
	assert.Contains(t, c.run("am", "validate"), "valid")

	path := filepath.Join(c.dir, "saved", "cronstore.toml")
	c.run("--site", "9", "am", "init", path)
	saved, err := am.LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, int64(9), saved.Site.Default)

	_, err = c.exec("--site", "0", "list")
	assert.Error(t, err, "invalid configuration is rejected before any command runs")
}

func TestVersion(t *testing.T) {
	c := newCLI(t)
	assert.Contains(t, c.run("version"), "cronstore")
}

func TestScheduleValidation(t *testing.T) {
	c := newCLI(t)

	_, err := c.exec("schedule", "")
	assert.True(t, errors.Is(err, errors.ErrInvalidHook))

	_, err = c.exec("schedule", "x", "--at", "someday")
	assert.True(t, errors.IsInvalidRequestError(err))

	_, err = c.exec("schedule", "x", "--every", "@monthly")
	assert.Error(t, err)
}
