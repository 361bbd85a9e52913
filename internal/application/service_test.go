package application

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fanpulse/fanpulse/internal/metrics"
	"github.com/fanpulse/fanpulse/internal/persistence"
	"github.com/fanpulse/fanpulse/internal/scoring"
)

// In-memory stores backing the service tests.

type memMetricsRepo struct {
	rows []scoring.DailyMetric
}

func (m *memMetricsRepo) InsertBatch(ctx context.Context, rows []scoring.DailyMetric) error {
	m.rows = append(m.rows, rows...)
	return nil
}

func (m *memMetricsRepo) ListDailyMetrics(ctx context.Context, artistID string, from, to time.Time) ([]scoring.DailyMetric, error) {
	var out []scoring.DailyMetric
	for _, row := range m.rows {
		if row.ArtistID == artistID && !row.Date.Before(from) && row.Date.Before(to) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *memMetricsRepo) ListArtistIDs(ctx context.Context) ([]string, error) {
	seen := map[string]bool{}
	var ids []string
	for _, row := range m.rows {
		if !seen[row.ArtistID] {
			seen[row.ArtistID] = true
			ids = append(ids, row.ArtistID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

type memFVSRepo struct {
	results map[string][]scoring.FVSResult
}

func newMemFVSRepo() *memFVSRepo {
	return &memFVSRepo{results: map[string][]scoring.FVSResult{}}
}

func (m *memFVSRepo) Append(ctx context.Context, result scoring.FVSResult) error {
	for _, existing := range m.results[result.ArtistID] {
		if existing.AsOf.Equal(result.AsOf) {
			return nil // append-only: identical re-runs are no-ops
		}
	}
	m.results[result.ArtistID] = append(m.results[result.ArtistID], result)
	return nil
}

func (m *memFVSRepo) Latest(ctx context.Context, artistID string) (*scoring.FVSResult, error) {
	history := m.results[artistID]
	if len(history) == 0 {
		return nil, fmt.Errorf("fvs for artist %s: %w", artistID, persistence.ErrNotFound)
	}
	latest := history[0]
	for _, r := range history[1:] {
		if r.AsOf.After(latest.AsOf) {
			latest = r
		}
	}
	return &latest, nil
}

func (m *memFVSRepo) ListRange(ctx context.Context, artistID string, tr persistence.TimeRange, cursor time.Time, limit int) ([]scoring.FVSResult, error) {
	var out []scoring.FVSResult
	for _, r := range m.results[artistID] {
		if !r.AsOf.Before(tr.From) && r.AsOf.Before(tr.To) && r.AsOf.After(cursor) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AsOf.Before(out[j].AsOf) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memMomentumRepo struct {
	results map[string][]scoring.MomentumResult
}

func newMemMomentumRepo() *memMomentumRepo {
	return &memMomentumRepo{results: map[string][]scoring.MomentumResult{}}
}

func (m *memMomentumRepo) Append(ctx context.Context, result scoring.MomentumResult) error {
	for _, existing := range m.results[result.ArtistID] {
		if existing.AsOf.Equal(result.AsOf) {
			return nil
		}
	}
	m.results[result.ArtistID] = append(m.results[result.ArtistID], result)
	return nil
}

func (m *memMomentumRepo) Latest(ctx context.Context, artistID string) (*scoring.MomentumResult, error) {
	history := m.results[artistID]
	if len(history) == 0 {
		return nil, fmt.Errorf("momentum for artist %s: %w", artistID, persistence.ErrNotFound)
	}
	latest := history[0]
	for _, r := range history[1:] {
		if r.AsOf.After(latest.AsOf) {
			latest = r
		}
	}
	return &latest, nil
}

func (m *memMomentumRepo) ListRange(ctx context.Context, artistID string, tr persistence.TimeRange, cursor time.Time, limit int) ([]scoring.MomentumResult, error) {
	var out []scoring.MomentumResult
	for _, r := range m.results[artistID] {
		if !r.AsOf.Before(tr.From) && r.AsOf.Before(tr.To) && r.AsOf.After(cursor) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AsOf.Before(out[j].AsOf) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func testAsOf() time.Time {
	return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
}

// seedArtist writes days of spotify metrics counting back from asOf, with
// streams growing linearly from base.
func seedArtist(repo *memMetricsRepo, artistID string, days int, base int64) {
	for i := 1; i <= days; i++ {
		repo.rows = append(repo.rows, scoring.DailyMetric{
			ArtistID: artistID,
			Date:     testAsOf().AddDate(0, 0, -i),
			Platform: "spotify",
			Streams:  base + int64(days-i)*100,
			Likes:    50,
		})
	}
}

func newTestService(t *testing.T, metricsRepo *memMetricsRepo) (*ScoringService, *persistence.Repository) {
	t.Helper()
	repos := &persistence.Repository{
		Metrics:  metricsRepo,
		FVS:      newMemFVSRepo(),
		Momentum: newMemMomentumRepo(),
	}
	config := DefaultScoringConfig()
	config.HistoryWindows = 2

	service, err := NewScoringService(metricsRepo, repos, nil, metrics.NewRegistry(), config)
	require.NoError(t, err)
	return service, repos
}

func TestScoringService_CalculateFVSPersists(t *testing.T) {
	metricsRepo := &memMetricsRepo{}
	seedArtist(metricsRepo, "artist-1", 30, 10_000)
	service, repos := newTestService(t, metricsRepo)

	result, err := service.CalculateFVS(context.Background(), "artist-1", testAsOf())
	require.NoError(t, err)
	assert.Equal(t, "artist-1", result.ArtistID)
	assert.Nil(t, result.Trend, "no prior window data, trend must be absent")

	stored, err := repos.FVS.Latest(context.Background(), "artist-1")
	require.NoError(t, err)
	assert.Equal(t, result.Score, stored.Score)
}

func TestScoringService_FVSTrendNeedsPriorWindow(t *testing.T) {
	metricsRepo := &memMetricsRepo{}
	seedArtist(metricsRepo, "artist-1", 60, 10_000)
	service, _ := newTestService(t, metricsRepo)

	result, err := service.CalculateFVS(context.Background(), "artist-1", testAsOf())
	require.NoError(t, err)
	assert.NotNil(t, result.Trend, "60 days of data covers the prior window")
}

func TestScoringService_CalculateMomentumPersists(t *testing.T) {
	metricsRepo := &memMetricsRepo{}
	seedArtist(metricsRepo, "artist-1", 90, 10_000)
	service, repos := newTestService(t, metricsRepo)

	result, err := service.CalculateMomentum(context.Background(), "artist-1", testAsOf())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.Score, 0.0)
	assert.LessOrEqual(t, result.Score, 10.0)

	stored, err := repos.Momentum.Latest(context.Background(), "artist-1")
	require.NoError(t, err)
	assert.Equal(t, result.Status, stored.Status)
}

func TestScoringService_LatestFVSNotFound(t *testing.T) {
	service, _ := newTestService(t, &memMetricsRepo{})

	_, err := service.LatestFVS(context.Background(), "artist-unknown")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestScoringService_InsufficientDataSurfaces(t *testing.T) {
	metricsRepo := &memMetricsRepo{}
	seedArtist(metricsRepo, "artist-sparse", 2, 1_000)
	service, _ := newTestService(t, metricsRepo)

	_, err := service.CalculateFVS(context.Background(), "artist-sparse", testAsOf())
	assert.ErrorIs(t, err, scoring.ErrInsufficientData)
}

func TestScoringService_PredictBreakoutRequiresMomentum(t *testing.T) {
	service, _ := newTestService(t, &memMetricsRepo{})

	_, err := service.PredictBreakout(context.Background(), "artist-unknown")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestScoringService_PredictBreakoutFromLatest(t *testing.T) {
	metricsRepo := &memMetricsRepo{}
	seedArtist(metricsRepo, "artist-1", 30, 10_000)
	service, _ := newTestService(t, metricsRepo)

	_, err := service.CalculateMomentum(context.Background(), "artist-1", testAsOf())
	require.NoError(t, err)

	prediction, err := service.PredictBreakout(context.Background(), "artist-1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, prediction.Probability, 0.0)
	assert.LessOrEqual(t, prediction.Probability, 1.0)
}

func TestBatchRunner_IsolatesPerArtistFailures(t *testing.T) {
	metricsRepo := &memMetricsRepo{}
	seedArtist(metricsRepo, "artist-1", 30, 10_000)
	seedArtist(metricsRepo, "artist-2", 30, 5_000)
	seedArtist(metricsRepo, "artist-sparse", 2, 1_000) // below min sample days
	service, _ := newTestService(t, metricsRepo)

	runner := NewBatchRunner(service, metricsRepo, metrics.NewRegistry(), BatchConfig{
		Workers:        2,
		RatePerSecond:  1000,
		MaxFailureRate: 0.5,
	})

	summary, err := runner.Run(context.Background(), BatchFVS, testAsOf())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Scored)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "artist-sparse", summary.Failures[0].ArtistID)
	assert.NotEmpty(t, summary.RunID)
}

func TestBatchRunner_FailureRateThreshold(t *testing.T) {
	metricsRepo := &memMetricsRepo{}
	seedArtist(metricsRepo, "artist-1", 30, 10_000)
	seedArtist(metricsRepo, "artist-sparse", 2, 1_000)
	service, _ := newTestService(t, metricsRepo)

	runner := NewBatchRunner(service, metricsRepo, metrics.NewRegistry(), BatchConfig{
		Workers:        1,
		RatePerSecond:  1000,
		MaxFailureRate: 0.25,
	})

	summary, err := runner.Run(context.Background(), BatchFVS, testAsOf())
	assert.Error(t, err, "half the population failing must flag the run")
	require.NotNil(t, summary)
	assert.Equal(t, 1, summary.Failed)
}

func TestBatchRunner_UnknownKind(t *testing.T) {
	metricsRepo := &memMetricsRepo{}
	seedArtist(metricsRepo, "artist-1", 30, 10_000)
	service, _ := newTestService(t, metricsRepo)

	runner := NewBatchRunner(service, metricsRepo, metrics.NewRegistry(), DefaultBatchConfig())
	summary, err := runner.Run(context.Background(), BatchKind("bogus"), testAsOf())
	require.Error(t, err)
	assert.Equal(t, 1, summary.Failed)
}
