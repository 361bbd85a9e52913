package scoring

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Sentinel errors for the scoring taxonomy. Callers discriminate with errors.Is.
var (
	// ErrInvalidWindow indicates a non-positive or otherwise nonsensical window length.
	ErrInvalidWindow = errors.New("invalid window length")

	// ErrInsufficientData indicates the window holds too few sample days to score.
	ErrInsufficientData = errors.New("insufficient data in window")
)

// MaxWindowDays bounds requested trailing windows. Anything longer than a year
// is a caller bug, not a longer lookback.
const MaxWindowDays = 365

// DailyMetric is one raw per-artist, per-platform, per-day metrics row as
// written by the platform sync jobs.
type DailyMetric struct {
	ArtistID        string          `json:"artist_id" db:"artist_id"`
	Date            time.Time       `json:"date" db:"date"`
	Platform        string          `json:"platform" db:"platform"`
	Streams         int64           `json:"streams" db:"streams"`
	Likes           int64           `json:"likes" db:"likes"`
	Comments        int64           `json:"comments" db:"comments"`
	Shares          int64           `json:"shares" db:"shares"`
	Followers       int64           `json:"followers" db:"followers"`
	Saves           int64           `json:"saves" db:"saves"`
	Revenue         decimal.Decimal `json:"revenue" db:"revenue"`
	UniqueListeners int64           `json:"unique_listeners" db:"unique_listeners"`
	RepeatListeners int64           `json:"repeat_listeners" db:"repeat_listeners"`
}

// Engagements returns the combined engagement event count for the row.
func (d DailyMetric) Engagements() int64 {
	return d.Likes + d.Comments + d.Shares
}

// MetricWindow is an immutable aggregate of an artist's raw signals over a
// trailing period. It is produced once per calculation run by the Aggregator
// and consumed by both calculators; per-platform maps are zero-filled so
// downstream math never divides through a nil lookup.
type MetricWindow struct {
	ArtistID   string    `json:"artist_id"`
	AsOf       time.Time `json:"as_of"`
	Days       int       `json:"days"`
	SampleDays int       `json:"sample_days"`

	// Volume aggregates.
	StreamsByPlatform     map[string]int64 `json:"streams_by_platform"`
	TotalStreams          int64            `json:"total_streams"`
	EngagementsByPlatform map[string]int64 `json:"engagements_by_platform"`
	TotalEngagements      int64            `json:"total_engagements"`
	TotalSaves            int64            `json:"total_saves"`

	// Reach: follower counts are point-in-time snapshots, so the window keeps
	// the latest total plus the delta across the window.
	FollowersByPlatform map[string]int64 `json:"followers_by_platform"`
	TotalFollowers      int64            `json:"total_followers"`
	FollowerDelta       int64            `json:"follower_delta"`

	// Monetization and loyalty.
	Revenue         decimal.Decimal `json:"revenue"`
	UniqueListeners int64           `json:"unique_listeners"`
	RepeatListeners int64           `json:"repeat_listeners"`

	// Day-by-day series ordered oldest first, one entry per sample day.
	// Velocity, consistency, and spike detection all read these.
	DailyStreams     []int64 `json:"daily_streams"`
	DailyEngagements []int64 `json:"daily_engagements"`
	DailyFollowers   []int64 `json:"daily_followers"`
}

// RepeatListenerRate returns the repeat/unique listener ratio in [0,1],
// zero when the window saw no unique listeners.
func (w *MetricWindow) RepeatListenerRate() float64 {
	if w.UniqueListeners <= 0 {
		return 0
	}
	rate := float64(w.RepeatListeners) / float64(w.UniqueListeners)
	if rate > 1 {
		rate = 1
	}
	return rate
}

// EngagementRate returns engagement events per follower over the window,
// zero when the artist has no followers.
func (w *MetricWindow) EngagementRate() float64 {
	if w.TotalFollowers <= 0 {
		return 0
	}
	return float64(w.TotalEngagements) / float64(w.TotalFollowers)
}

// validateWindowLength rejects bad trailing-day counts before any data is read.
func validateWindowLength(days int) error {
	if days <= 0 {
		return fmt.Errorf("%w: %d days", ErrInvalidWindow, days)
	}
	if days > MaxWindowDays {
		return fmt.Errorf("%w: %d days exceeds maximum %d", ErrInvalidWindow, days, MaxWindowDays)
	}
	return nil
}
