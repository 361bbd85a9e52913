package scoring

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// MetricSource reads raw per-platform daily metrics written by the platform
// sync jobs. Implementations live in the persistence layer; the aggregator
// only depends on this contract.
type MetricSource interface {
	// ListDailyMetrics returns all rows for the artist with date in [from, to),
	// in no particular order.
	ListDailyMetrics(ctx context.Context, artistID string, from, to time.Time) ([]DailyMetric, error)
}

// AggregatorConfig tunes window construction.
type AggregatorConfig struct {
	// MinSampleDays is the minimum distinct sample days required before a
	// window is considered scorable.
	MinSampleDays int `yaml:"min_sample_days"`

	// Platforms are always present as keys in the per-platform maps, zero-filled
	// when the artist has no data there.
	Platforms []string `yaml:"platforms"`
}

// DefaultAggregatorConfig returns production aggregation defaults.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		MinSampleDays: 3,
		Platforms:     []string{"spotify", "apple_music", "instagram", "tiktok", "youtube"},
	}
}

// Aggregator produces MetricWindow snapshots for single artists.
type Aggregator struct {
	source MetricSource
	config AggregatorConfig
}

// NewAggregator creates an aggregator over the given raw metric source.
func NewAggregator(source MetricSource, config AggregatorConfig) *Aggregator {
	if config.MinSampleDays <= 0 {
		config.MinSampleDays = DefaultAggregatorConfig().MinSampleDays
	}
	if len(config.Platforms) == 0 {
		config.Platforms = DefaultAggregatorConfig().Platforms
	}
	return &Aggregator{source: source, config: config}
}

// Window builds the trailing MetricWindow for one artist ending at asOf.
// The window covers [asOf-days, asOf). Returns ErrInvalidWindow before any
// read when days is nonsensical, and ErrInsufficientData when fewer than the
// configured minimum sample days are present.
func (a *Aggregator) Window(ctx context.Context, artistID string, days int, asOf time.Time) (*MetricWindow, error) {
	if err := validateWindowLength(days); err != nil {
		return nil, err
	}

	from := asOf.AddDate(0, 0, -days)
	rows, err := a.source.ListDailyMetrics(ctx, artistID, from, asOf)
	if err != nil {
		return nil, fmt.Errorf("list daily metrics for %s: %w", artistID, err)
	}

	w := a.emptyWindow(artistID, days, asOf)
	if err := a.fill(w, rows); err != nil {
		return nil, err
	}
	return w, nil
}

// emptyWindow allocates a window with all platform keys zero-filled.
func (a *Aggregator) emptyWindow(artistID string, days int, asOf time.Time) *MetricWindow {
	w := &MetricWindow{
		ArtistID:              artistID,
		AsOf:                  asOf,
		Days:                  days,
		StreamsByPlatform:     make(map[string]int64, len(a.config.Platforms)),
		EngagementsByPlatform: make(map[string]int64, len(a.config.Platforms)),
		FollowersByPlatform:   make(map[string]int64, len(a.config.Platforms)),
		Revenue:               decimal.Zero,
	}
	for _, p := range a.config.Platforms {
		w.StreamsByPlatform[p] = 0
		w.EngagementsByPlatform[p] = 0
		w.FollowersByPlatform[p] = 0
	}
	return w
}

// fill aggregates raw rows into the window and materializes the daily series.
func (a *Aggregator) fill(w *MetricWindow, rows []DailyMetric) error {
	type dayTotals struct {
		streams     int64
		engagements int64
		followers   int64
	}
	byDay := make(map[string]*dayTotals)
	// Follower snapshots: keep the latest row per platform for reach totals.
	latestFollowers := make(map[string]struct {
		date  time.Time
		count int64
	})

	for _, row := range rows {
		key := row.Date.Format("2006-01-02")
		day, ok := byDay[key]
		if !ok {
			day = &dayTotals{}
			byDay[key] = day
		}
		day.streams += row.Streams
		day.engagements += row.Engagements()
		day.followers += row.Followers

		w.StreamsByPlatform[row.Platform] += row.Streams
		w.EngagementsByPlatform[row.Platform] += row.Engagements()
		w.TotalStreams += row.Streams
		w.TotalEngagements += row.Engagements()
		w.TotalSaves += row.Saves
		w.Revenue = w.Revenue.Add(row.Revenue)
		w.UniqueListeners += row.UniqueListeners
		w.RepeatListeners += row.RepeatListeners

		if prev, ok := latestFollowers[row.Platform]; !ok || row.Date.After(prev.date) {
			latestFollowers[row.Platform] = struct {
				date  time.Time
				count int64
			}{row.Date, row.Followers}
		}
	}

	w.SampleDays = len(byDay)
	if w.SampleDays < a.config.MinSampleDays {
		return fmt.Errorf("%w: artist %s has %d sample days, need %d",
			ErrInsufficientData, w.ArtistID, w.SampleDays, a.config.MinSampleDays)
	}

	for platform, snap := range latestFollowers {
		w.FollowersByPlatform[platform] = snap.count
		w.TotalFollowers += snap.count
	}

	// Daily series ordered oldest first.
	keys := make([]string, 0, len(byDay))
	for k := range byDay {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w.DailyStreams = make([]int64, 0, len(keys))
	w.DailyEngagements = make([]int64, 0, len(keys))
	w.DailyFollowers = make([]int64, 0, len(keys))
	for _, k := range keys {
		day := byDay[k]
		w.DailyStreams = append(w.DailyStreams, day.streams)
		w.DailyEngagements = append(w.DailyEngagements, day.engagements)
		w.DailyFollowers = append(w.DailyFollowers, day.followers)
	}

	w.FollowerDelta = w.DailyFollowers[len(w.DailyFollowers)-1] - w.DailyFollowers[0]
	return nil
}
