package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/fanpulse/fanpulse/internal/scoring"
)

// ErrNotFound indicates no result has ever been calculated for the requested
// artist. Distinct from a zero score so callers never mistake "never
// calculated" for "calculated as zero".
var ErrNotFound = errors.New("not found")

// TimeRange is a half-open [From, To) query window.
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// MetricsRepo persists raw per-platform daily metrics written by the platform
// sync jobs and read by the signal aggregator.
type MetricsRepo interface {
	// InsertBatch writes daily metric rows, upserting on (artist, date, platform).
	InsertBatch(ctx context.Context, rows []scoring.DailyMetric) error

	// ListDailyMetrics returns rows for the artist with date in [from, to).
	// Satisfies scoring.MetricSource.
	ListDailyMetrics(ctx context.Context, artistID string, from, to time.Time) ([]scoring.DailyMetric, error)

	// ListArtistIDs returns every artist with at least one metric row,
	// the population batch recomputation iterates.
	ListArtistIDs(ctx context.Context) ([]string, error)
}

// FVSRepo is the append-only Fan Value Score history store.
type FVSRepo interface {
	// Append adds one immutable result keyed by (artist, as-of). Re-running an
	// identical calculation is a no-op, never an overwrite.
	Append(ctx context.Context, result scoring.FVSResult) error

	// Latest returns the most recent result for the artist or ErrNotFound.
	Latest(ctx context.Context, artistID string) (*scoring.FVSResult, error)

	// ListRange returns up to limit results with as-of in the range and after
	// the cursor, ordered by date ascending. The cursor makes consumption
	// lazy and restartable for chart consumers.
	ListRange(ctx context.Context, artistID string, tr TimeRange, cursor time.Time, limit int) ([]scoring.FVSResult, error)
}

// MomentumRepo is the append-only Momentum Index history store.
type MomentumRepo interface {
	// Append adds one immutable result keyed by (artist, as-of).
	Append(ctx context.Context, result scoring.MomentumResult) error

	// Latest returns the most recent result for the artist or ErrNotFound.
	Latest(ctx context.Context, artistID string) (*scoring.MomentumResult, error)

	// ListRange returns up to limit results ascending, after the cursor.
	ListRange(ctx context.Context, artistID string, tr TimeRange, cursor time.Time, limit int) ([]scoring.MomentumResult, error)
}

// Repository aggregates all persistence interfaces.
type Repository struct {
	Metrics  MetricsRepo
	FVS      FVSRepo
	Momentum MomentumRepo
}
