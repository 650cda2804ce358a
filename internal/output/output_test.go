package output

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fairwaysim/fairwaysim/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONOutput_WritesOneLinePerMessagePerTopic(t *testing.T) {
	dir := t.TempDir()
	out := NewJSONOutput(dir, "run1")

	require.NoError(t, out.WriteMessage("order_delivered_events", []byte(`{"order_id":"o1"}`)))
	require.NoError(t, out.WriteMessage("order_delivered_events", []byte(`{"order_id":"o2"}`)))
	require.NoError(t, out.WriteMessage("run_summary_events", []byte(`{"delivered":2}`)))
	require.NoError(t, out.Close())

	data, err := os.ReadFile(filepath.Join(dir, "run1", "order_delivered_events.jsonl"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "o1")
	assert.Contains(t, lines[1], "o2")

	_, err = os.Stat(filepath.Join(dir, "run1", "run_summary_events.jsonl"))
	assert.NoError(t, err)
}

func TestCSVOutput_DerivesSortedHeadersFromFirstMessage(t *testing.T) {
	dir := t.TempDir()
	out := NewCSVOutput(dir, "run1")

	require.NoError(t, out.WriteMessage("order_delivered_events",
		[]byte(`{"order_id":"o1","zone_id":4,"cycle_min":21.5}`)))
	require.NoError(t, out.WriteMessage("order_delivered_events",
		[]byte(`{"order_id":"o2","zone_id":9}`)))
	require.NoError(t, out.Close())

	f, err := os.Open(filepath.Join(dir, "run1", "order_delivered_events.csv"))
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"cycle_min", "order_id", "zone_id"}, rows[0])
	assert.Equal(t, "o1", rows[1][1])
	// Fields missing from later messages become empty cells.
	assert.Equal(t, "", rows[2][0])
}

func TestCSVOutput_RejectsMalformedJSON(t *testing.T) {
	out := NewCSVOutput(t.TempDir(), "run1")
	assert.Error(t, out.WriteMessage("order_delivered_events", []byte("not json")))
}

func TestDetermine_SelectsDestinationByFormat(t *testing.T) {
	dir := t.TempDir()

	cfg := &models.Config{OutputFormat: "console"}
	dest, err := Determine(cfg)
	require.NoError(t, err)
	assert.IsType(t, &ConsoleOutput{}, dest)

	cfg = &models.Config{}
	dest, err = Determine(cfg)
	require.NoError(t, err)
	assert.IsType(t, &ConsoleOutput{}, dest, "console is the default")

	cfg = &models.Config{OutputFormat: "json", OutputFile: dir, OutputFolder: "run"}
	dest, err = Determine(cfg)
	require.NoError(t, err)
	assert.IsType(t, &JSONOutput{}, dest)

	cfg = &models.Config{OutputFormat: "csv", OutputFile: dir, OutputFolder: "run"}
	dest, err = Determine(cfg)
	require.NoError(t, err)
	assert.IsType(t, &CSVOutput{}, dest)

	cfg = &models.Config{OutputFormat: "yaml"}
	_, err = Determine(cfg)
	assert.Error(t, err)
}
