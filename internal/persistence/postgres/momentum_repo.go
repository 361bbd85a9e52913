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

// momentumRepo implements MomentumRepo for PostgreSQL.
type momentumRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewMomentumRepo creates a new PostgreSQL momentum history repository.
func NewMomentumRepo(db *sqlx.DB, timeout time.Duration) persistence.MomentumRepo {
	return &momentumRepo{
		db:      db,
		timeout: timeout,
	}
}

// Append adds one immutable result keyed by (artist, as-of).
func (r *momentumRepo) Append(ctx context.Context, result scoring.MomentumResult) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	componentsJSON, err := json.Marshal(result.Components)
	if err != nil {
		return fmt.Errorf("failed to marshal components: %w", err)
	}
	predictionJSON, err := json.Marshal(result.Prediction)
	if err != nil {
		return fmt.Errorf("failed to marshal prediction: %w", err)
	}
	spikesJSON, err := json.Marshal(result.Spikes)
	if err != nil {
		return fmt.Errorf("failed to marshal spikes: %w", err)
	}

	query := `
		INSERT INTO momentum_results
		(artist_id, as_of, window_days, score, status, trend_7d, trend_30d,
		 components, prediction, spikes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (artist_id, as_of) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query,
		result.ArtistID, result.AsOf, result.WindowDays,
		result.Score, result.Status.String(), result.Trend7d, result.Trend30d,
		componentsJSON, predictionJSON, spikesJSON); err != nil {
		return fmt.Errorf("failed to append momentum result: %w", err)
	}
	return nil
}

// Latest returns the most recent result for the artist or ErrNotFound.
func (r *momentumRepo) Latest(ctx context.Context, artistID string) (*scoring.MomentumResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT artist_id, as_of, window_days, score, status, trend_7d, trend_30d,
		       components, prediction, spikes
		FROM momentum_results
		WHERE artist_id = $1
		ORDER BY as_of DESC
		LIMIT 1`

	result, err := scanMomentumResult(r.db.QueryRowxContext(ctx, query, artistID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("momentum for artist %s: %w", artistID, persistence.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get latest momentum: %w", err)
	}
	return result, nil
}

// ListRange returns up to limit results after the cursor, ascending by as-of.
func (r *momentumRepo) ListRange(ctx context.Context, artistID string, tr persistence.TimeRange, cursor time.Time, limit int) ([]scoring.MomentumResult, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT artist_id, as_of, window_days, score, status, trend_7d, trend_30d,
		       components, prediction, spikes
		FROM momentum_results
		WHERE artist_id = $1 AND as_of >= $2 AND as_of < $3 AND as_of > $4
		ORDER BY as_of ASC
		LIMIT $5`

	rows, err := r.db.QueryxContext(ctx, query, artistID, tr.From, tr.To, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query momentum range: %w", err)
	}
	defer rows.Close()

	var results []scoring.MomentumResult
	for rows.Next() {
		result, err := scanMomentumResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan momentum row: %w", err)
		}
		results = append(results, *result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating momentum rows: %w", err)
	}
	return results, nil
}

func scanMomentumResult(row rowScanner) (*scoring.MomentumResult, error) {
	var result scoring.MomentumResult
	var status string
	var componentsJSON, predictionJSON, spikesJSON []byte

	if err := row.Scan(
		&result.ArtistID, &result.AsOf, &result.WindowDays,
		&result.Score, &status, &result.Trend7d, &result.Trend30d,
		&componentsJSON, &predictionJSON, &spikesJSON); err != nil {
		return nil, err
	}

	parsed, err := scoring.ParseMomentumStatus(status)
	if err != nil {
		return nil, err
	}
	result.Status = parsed

	if err := json.Unmarshal(componentsJSON, &result.Components); err != nil {
		return nil, fmt.Errorf("failed to unmarshal components: %w", err)
	}
	if err := json.Unmarshal(predictionJSON, &result.Prediction); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prediction: %w", err)
	}
	if len(spikesJSON) > 0 {
		if err := json.Unmarshal(spikesJSON, &result.Spikes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal spikes: %w", err)
		}
	}
	return &result, nil
}
