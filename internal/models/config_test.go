package models

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Seed:               42,
		StartDate:          time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC),
		ServiceHours:       10,
		Runners:            2,
		TotalOrders:        20,
		OrdersPerHour:      4,
		BlockingPolicy:     "none",
		MaxWaitMinutes:     30,
		TargetCycleMinutes: 40,
		SLATarget:          0.9,
	}
}

func TestConfigValidate_AcceptsSaneConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestConfigValidate_RejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero runners", func(c *Config) { c.Runners = 0 }},
		{"negative service hours", func(c *Config) { c.ServiceHours = -1 }},
		{"negative order volume", func(c *Config) { c.TotalOrders = -5 }},
		{"sla above one", func(c *Config) { c.SLATarget = 1.5 }},
		{"unknown blocking policy", func(c *Config) { c.BlockingPolicy = "every_other_hole" }},
		{"unknown blocking option", func(c *Config) { c.BlockingOptions = []string{"none", "bogus"} }},
		{"non-positive runner option", func(c *Config) { c.RunnerOptions = []int{2, 0} }},
		{"empty tee sheet party", func(c *Config) {
			c.TeeTimes = []TeeTime{{Start: c.StartDate, PartySize: 0}}
		}},
	}
	for _, tc := range cases {
		cfg := validConfig()
		tc.mutate(cfg)
		assert.Error(t, cfg.Validate(), tc.name)
	}
}

func TestConfigCourse_DefaultsToEighteenHoles(t *testing.T) {
	course, err := validConfig().Course()
	require.NoError(t, err)
	assert.Len(t, course.HoleIDs(), 18)
}

func TestConfigCourse_UsesZoneOverride(t *testing.T) {
	cfg := validConfig()
	cfg.Zones = []Zone{
		{ID: 1, Name: "hole_1", TravelMin: 2, ServiceMin: 1},
		{ID: 2, Name: "hole_2", TravelMin: 4, ServiceMin: 1},
	}
	course, err := cfg.Course()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, course.HoleIDs())
}

func TestConfigRunWindow(t *testing.T) {
	cfg := validConfig()
	open, close := cfg.RunWindow()
	assert.Equal(t, cfg.StartDate, open)
	assert.Equal(t, cfg.StartDate.Add(10*time.Hour), close)
}

func TestLoadTeeSheet_ParsesTabSeparatedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tee_sheet.tsv")
	content := "start\tparty_size\n" +
		"2026-05-02T08:00:00Z\t4\n" +
		"2026-05-02T08:10:00Z\t2\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := validConfig()
	require.NoError(t, cfg.LoadTeeSheet(path))

	require.Len(t, cfg.TeeTimes, 2)
	assert.Equal(t, 4, cfg.TeeTimes[0].PartySize)
	assert.Equal(t, time.Date(2026, 5, 2, 8, 10, 0, 0, time.UTC), cfg.TeeTimes[1].Start)
}

func TestLoadTeeSheet_MalformedRowsAreErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tee_sheet.tsv")
	content := "start\tparty_size\nnot-a-time\t4\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := validConfig()
	assert.Error(t, cfg.LoadTeeSheet(path))
}

func TestLoadTeeSheet_RowsMissingPartySizeAreErrors(t *testing.T) {
	// A sheet whose every row has one column parses as valid single-field
	// CSV, so the column count has to be checked per row.
	path := filepath.Join(t.TempDir(), "tee_sheet.tsv")
	content := "start\n2026-05-02T08:00:00Z\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := validConfig()
	assert.ErrorContains(t, cfg.LoadTeeSheet(path), "want start time and party size")
}
