package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fanpulse/fanpulse/internal/persistence"
	"github.com/fanpulse/fanpulse/internal/scoring"
)

// fvsRepo implements FVSRepo for PostgreSQL.
type fvsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewFVSRepo creates a new PostgreSQL FVS history repository.
func NewFVSRepo(db *sqlx.DB, timeout time.Duration) persistence.FVSRepo {
	return &fvsRepo{
		db:      db,
		timeout: timeout,
	}
}

// Append adds one immutable result keyed by (artist, as-of). The conflict
// clause makes identical re-runs no-ops; history entries are never mutated.
func (r *fvsRepo) Append(ctx context.Context, result scoring.FVSResult) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	breakdownJSON, err := json.Marshal(result.Breakdown)
	if err != nil {
		return fmt.Errorf("failed to marshal breakdown: %w", err)
	}

	query := `
		INSERT INTO fvs_results
		(artist_id, as_of, window_days, score, trend, breakdown)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (artist_id, as_of) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query,
		result.ArtistID, result.AsOf, result.WindowDays,
		result.Score, result.Trend, breakdownJSON); err != nil {
		return fmt.Errorf("failed to append fvs result: %w", err)
	}
	return nil
}

// Latest returns the most recent result for the artist or ErrNotFound.
func (r *fvsRepo) Latest(ctx context.Context, artistID string) (*scoring.FVSResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT artist_id, as_of, window_days, score, trend, breakdown
		FROM fvs_results
		WHERE artist_id = $1
		ORDER BY as_of DESC
		LIMIT 1`

	result, err := scanFVSResult(r.db.QueryRowxContext(ctx, query, artistID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("fvs for artist %s: %w", artistID, persistence.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get latest fvs: %w", err)
	}
	return result, nil
}

// ListRange returns up to limit results after the cursor, ascending by as-of.
func (r *fvsRepo) ListRange(ctx context.Context, artistID string, tr persistence.TimeRange, cursor time.Time, limit int) ([]scoring.FVSResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT artist_id, as_of, window_days, score, trend, breakdown
		FROM fvs_results
		WHERE artist_id = $1 AND as_of >= $2 AND as_of < $3 AND as_of > $4
		ORDER BY as_of ASC
		LIMIT $5`

	rows, err := r.db.QueryxContext(ctx, query, artistID, tr.From, tr.To, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query fvs range: %w", err)
	}
	defer rows.Close()

	var results []scoring.FVSResult
	for rows.Next() {
		result, err := scanFVSResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fvs row: %w", err)
		}
		results = append(results, *result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fvs rows: %w", err)
	}
	return results, nil
}

// rowScanner abstracts sqlx.Row and sqlx.Rows for the scan helpers.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFVSResult(row rowScanner) (*scoring.FVSResult, error) {
	var result scoring.FVSResult
	var breakdownJSON []byte

	if err := row.Scan(
		&result.ArtistID, &result.AsOf, &result.WindowDays,
		&result.Score, &result.Trend, &breakdownJSON); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(breakdownJSON, &result.Breakdown); err != nil {
		return nil, fmt.Errorf("failed to unmarshal breakdown: %w", err)
	}
	return &result, nil
}
