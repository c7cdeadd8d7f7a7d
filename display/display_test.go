package display

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCommand() (*cobra.Command, *cobra.Command) {
	root := &cobra.Command{Use: "cronstore"}
	root.PersistentFlags().Bool("json", false, "")
	child := &cobra.Command{Use: "list", Run: func(*cobra.Command, []string) {}}
	root.AddCommand(child)
	return root, child
}

func TestShouldOutputJSON(t *testing.T) {
	t.Setenv("CRONSTORE_JSON", "")

	root, child := newCommand()
	assert.False(t, ShouldOutputJSON(child))

	require.NoError(t, root.PersistentFlags().Set("json", "true"))
	assert.True(t, ShouldOutputJSON(child))
}

func TestShouldOutputJSONFromEnvironment(t *testing.T) {
	t.Setenv("CRONSTORE_JSON", "1")

	_, child := newCommand()
	assert.True(t, ShouldOutputJSON(child))
	assert.True(t, ShouldOutputJSON(nil))
}

func TestOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, OutputJSON(&buf, map[string]int{"count": 3}))
	assert.JSONEq(t, `{"count": 3}`, buf.String())
}

func TestTable(t *testing.T) {
	var buf bytes.Buffer
	err := Table(&buf, []string{"ID", "HOOK"}, [][]string{{"1", "send_digest"}})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "send_digest")
	assert.Contains(t, buf.String(), "HOOK")
}

func TestWhen(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "-", When(time.Time{}, now))
	assert.Equal(t, "5 minutes from now", When(now.Add(5*time.Minute), now))
	assert.Equal(t, "2 hours ago", When(now.Add(-2*time.Hour), now))
	assert.Equal(t, "12,345", Count(12345))
}
