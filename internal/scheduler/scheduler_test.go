package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Jobs(t *testing.T) {
	config := DefaultConfig()
	require.Len(t, config.Jobs, 2)

	byType := map[string]Job{}
	for _, job := range config.Jobs {
		byType[job.Type] = job
	}

	fvs, ok := byType["fvs.daily"]
	require.True(t, ok)
	assert.Equal(t, 24*time.Hour, fvs.Interval)
	assert.True(t, fvs.Enabled)

	momentum, ok := byType["momentum.refresh"]
	require.True(t, ok)
	assert.Equal(t, 6*time.Hour, momentum.Interval)
	assert.True(t, momentum.Enabled)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scheduler.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
jobs:
  - name: fvs-hourly
    type: fvs.daily
    interval: 1h
    enabled: true
`), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, config.Jobs, 1)
	assert.Equal(t, time.Hour, config.Jobs[0].Interval)
}

func TestLoadConfig_EmptyFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scheduler.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jobs: []\n"), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Len(t, config.Jobs, 2)
}

func TestLoadConfig_RejectsEnabledJobWithoutInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scheduler.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
jobs:
  - name: broken
    type: fvs.daily
    enabled: true
`), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestJobAsOf_AdvancesWithSubDailyCadence(t *testing.T) {
	job := Job{Name: "momentum-refresh", Type: "momentum.refresh", Interval: 6 * time.Hour}
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	// Four runs spread over one day must score four distinct as-of
	// timestamps, or the append-only history deduplicates them away.
	seen := map[time.Time]bool{}
	for _, hour := range []int{1, 7, 13, 19} {
		asOf := jobAsOf(job, day.Add(time.Duration(hour)*time.Hour))
		assert.False(t, seen[asOf], "as-of %s reused within a day", asOf)
		seen[asOf] = true
	}

	// Runs within one cadence slot share the slot's as-of.
	assert.Equal(t,
		jobAsOf(job, day.Add(1*time.Hour)),
		jobAsOf(job, day.Add(5*time.Hour)))
}

func TestJobAsOf_DailyJobTruncatesToDay(t *testing.T) {
	job := Job{Name: "fvs-daily", Type: "fvs.daily", Interval: 24 * time.Hour}
	now := time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), jobAsOf(job, now))

	// Missing or oversized intervals fall back to the daily grid.
	assert.Equal(t, jobAsOf(job, now), jobAsOf(Job{Name: "manual"}, now))
}

func TestRunJob_UnknownTypeFails(t *testing.T) {
	sched := New(DefaultConfig(), nil)

	result := sched.RunJob(context.Background(), Job{Name: "bogus", Type: "bogus.type"})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "unknown job type")

	last, ok := sched.LastRun("bogus")
	require.True(t, ok)
	assert.Equal(t, result.Error, last.Error)
}

func TestStart_NoEnabledJobs(t *testing.T) {
	config := Config{Jobs: []Job{{Name: "off", Type: "fvs.daily", Enabled: false}}}
	sched := New(config, nil)

	err := sched.Start(context.Background())
	assert.Error(t, err)
}
