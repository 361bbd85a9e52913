package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fanpulse/fanpulse/internal/persistence"
	"github.com/fanpulse/fanpulse/internal/scoring"
)

// metricsRepo implements MetricsRepo for PostgreSQL.
type metricsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewMetricsRepo creates a new PostgreSQL raw metrics repository.
func NewMetricsRepo(db *sqlx.DB, timeout time.Duration) persistence.MetricsRepo {
	return &metricsRepo{
		db:      db,
		timeout: timeout,
	}
}

// InsertBatch writes daily metric rows atomically, upserting on the natural
// key so a re-run of a sync job refreshes rather than duplicates.
func (r *metricsRepo) InsertBatch(ctx context.Context, rows []scoring.DailyMetric) error {
	if len(rows) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin metrics batch: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO daily_metrics
		(artist_id, date, platform, streams, likes, comments, shares, followers,
		 saves, revenue, unique_listeners, repeat_listeners)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (artist_id, date, platform) DO UPDATE SET
			streams = EXCLUDED.streams,
			likes = EXCLUDED.likes,
			comments = EXCLUDED.comments,
			shares = EXCLUDED.shares,
			followers = EXCLUDED.followers,
			saves = EXCLUDED.saves,
			revenue = EXCLUDED.revenue,
			unique_listeners = EXCLUDED.unique_listeners,
			repeat_listeners = EXCLUDED.repeat_listeners`

	for _, row := range rows {
		if _, err := tx.ExecContext(ctx, query,
			row.ArtistID, row.Date, row.Platform, row.Streams,
			row.Likes, row.Comments, row.Shares, row.Followers,
			row.Saves, row.Revenue, row.UniqueListeners, row.RepeatListeners); err != nil {
			return fmt.Errorf("failed to insert metrics for %s/%s: %w", row.ArtistID, row.Platform, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit metrics batch: %w", err)
	}
	return nil
}

// ListDailyMetrics returns rows for the artist with date in [from, to).
func (r *metricsRepo) ListDailyMetrics(ctx context.Context, artistID string, from, to time.Time) ([]scoring.DailyMetric, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT artist_id, date, platform, streams, likes, comments, shares,
		       followers, saves, revenue, unique_listeners, repeat_listeners
		FROM daily_metrics
		WHERE artist_id = $1 AND date >= $2 AND date < $3
		ORDER BY date ASC, platform ASC`

	var rows []scoring.DailyMetric
	if err := r.db.SelectContext(ctx, &rows, query, artistID, from, to); err != nil {
		return nil, fmt.Errorf("failed to query daily metrics: %w", err)
	}
	return rows, nil
}

// ListArtistIDs returns every artist with at least one metric row.
func (r *metricsRepo) ListArtistIDs(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT DISTINCT artist_id FROM daily_metrics ORDER BY artist_id`

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("failed to query artist ids: %w", err)
	}
	return ids, nil
}
