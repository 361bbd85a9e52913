package scoring

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves canned metric rows and records calls.
type fakeSource struct {
	rows  []DailyMetric
	err   error
	calls int
}

func (f *fakeSource) ListDailyMetrics(ctx context.Context, artistID string, from, to time.Time) ([]DailyMetric, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var out []DailyMetric
	for _, row := range f.rows {
		if row.ArtistID == artistID && !row.Date.Before(from) && row.Date.Before(to) {
			out = append(out, row)
		}
	}
	return out, nil
}

func metricRow(artistID string, daysAgo int, platform string, streams, likes, followers int64) DailyMetric {
	return DailyMetric{
		ArtistID:  artistID,
		Date:      testAsOf().AddDate(0, 0, -daysAgo),
		Platform:  platform,
		Streams:   streams,
		Likes:     likes,
		Followers: followers,
		Revenue:   decimal.NewFromInt(10),
	}
}

func TestAggregator_RejectsInvalidWindowBeforeReading(t *testing.T) {
	source := &fakeSource{}
	agg := NewAggregator(source, DefaultAggregatorConfig())

	for _, days := range []int{0, -7, MaxWindowDays + 1} {
		_, err := agg.Window(context.Background(), "artist-1", days, testAsOf())
		assert.ErrorIs(t, err, ErrInvalidWindow, "days=%d", days)
	}
	assert.Zero(t, source.calls, "validation must happen before any read")
}

func TestAggregator_InsufficientData(t *testing.T) {
	source := &fakeSource{rows: []DailyMetric{
		metricRow("artist-1", 1, "spotify", 1000, 50, 0),
		metricRow("artist-1", 2, "spotify", 900, 40, 0),
	}}
	agg := NewAggregator(source, DefaultAggregatorConfig())

	_, err := agg.Window(context.Background(), "artist-1", 30, testAsOf())
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestAggregator_SourceErrorPropagates(t *testing.T) {
	source := &fakeSource{err: fmt.Errorf("connection refused")}
	agg := NewAggregator(source, DefaultAggregatorConfig())

	_, err := agg.Window(context.Background(), "artist-1", 30, testAsOf())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInsufficientData)
}

func TestAggregator_BuildsWindow(t *testing.T) {
	source := &fakeSource{rows: []DailyMetric{
		metricRow("artist-1", 3, "spotify", 1000, 10, 0),
		metricRow("artist-1", 3, "instagram", 0, 200, 50_000),
		metricRow("artist-1", 2, "spotify", 1200, 12, 0),
		metricRow("artist-1", 2, "instagram", 0, 220, 50_500),
		metricRow("artist-1", 1, "spotify", 1500, 15, 0),
		metricRow("artist-1", 1, "instagram", 0, 260, 51_200),
		// Another artist's rows must never leak in.
		metricRow("artist-2", 1, "spotify", 99_999, 0, 0),
	}}
	agg := NewAggregator(source, DefaultAggregatorConfig())

	w, err := agg.Window(context.Background(), "artist-1", 30, testAsOf())
	require.NoError(t, err)

	assert.Equal(t, "artist-1", w.ArtistID)
	assert.Equal(t, 30, w.Days)
	assert.Equal(t, 3, w.SampleDays)
	assert.Equal(t, int64(3700), w.TotalStreams)
	assert.Equal(t, int64(3700), w.StreamsByPlatform["spotify"])

	// Followers are point-in-time snapshots: total reflects the latest per
	// platform, not a sum over days.
	assert.Equal(t, int64(51_200), w.TotalFollowers)
	assert.Equal(t, int64(51_200), w.FollowersByPlatform["instagram"])
	assert.Equal(t, int64(1_200), w.FollowerDelta)

	// Daily series ordered oldest first.
	assert.Equal(t, []int64{1000, 1200, 1500}, w.DailyStreams)
	assert.Equal(t, []int64{210, 232, 275}, w.DailyEngagements)
}

func TestAggregator_ZeroFillsConfiguredPlatforms(t *testing.T) {
	source := &fakeSource{rows: []DailyMetric{
		metricRow("artist-1", 1, "spotify", 1000, 0, 0),
		metricRow("artist-1", 2, "spotify", 1000, 0, 0),
		metricRow("artist-1", 3, "spotify", 1000, 0, 0),
	}}
	agg := NewAggregator(source, DefaultAggregatorConfig())

	w, err := agg.Window(context.Background(), "artist-1", 30, testAsOf())
	require.NoError(t, err)

	for _, platform := range DefaultAggregatorConfig().Platforms {
		_, ok := w.StreamsByPlatform[platform]
		assert.True(t, ok, "platform %s must be present", platform)
		_, ok = w.FollowersByPlatform[platform]
		assert.True(t, ok, "platform %s must be present", platform)
	}
	assert.Zero(t, w.StreamsByPlatform["tiktok"])
}
