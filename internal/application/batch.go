package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/fanpulse/fanpulse/internal/metrics"
	"github.com/fanpulse/fanpulse/internal/persistence"
)

// BatchKind selects which calculator a batch run executes.
type BatchKind string

const (
	BatchFVS      BatchKind = "fvs"
	BatchMomentum BatchKind = "momentum"
)

// ArtistFailure records one artist whose calculation failed inside a run.
type ArtistFailure struct {
	ArtistID string `json:"artist_id"`
	Error    string `json:"error"`
}

// BatchSummary reports the outcome of one population-wide run.
type BatchSummary struct {
	RunID    string          `json:"run_id"`
	Kind     BatchKind       `json:"kind"`
	AsOf     time.Time       `json:"as_of"`
	Total    int             `json:"total"`
	Scored   int             `json:"scored"`
	Failed   int             `json:"failed"`
	Duration time.Duration   `json:"duration"`
	Failures []ArtistFailure `json:"failures,omitempty"`
}

// BatchRunner recomputes scores for the whole artist population. Artists are
// fanned out to a worker pool behind a shared rate limiter; one artist's
// failure is recorded and never aborts the run.
type BatchRunner struct {
	service  *ScoringService
	artists  persistence.MetricsRepo
	registry *metrics.Registry
	config   BatchConfig
}

// NewBatchRunner creates a batch runner over the scoring service.
func NewBatchRunner(service *ScoringService, artists persistence.MetricsRepo, registry *metrics.Registry, config BatchConfig) *BatchRunner {
	if config.Workers <= 0 {
		config.Workers = DefaultBatchConfig().Workers
	}
	if config.RatePerSecond <= 0 {
		config.RatePerSecond = DefaultBatchConfig().RatePerSecond
	}
	if registry == nil {
		registry = metrics.Default()
	}
	return &BatchRunner{
		service:  service,
		artists:  artists,
		registry: registry,
		config:   config,
	}
}

// Run executes one full recomputation for every known artist as of the given
// date. Context cancellation stops scheduling new artists; in-flight ones
// finish.
func (r *BatchRunner) Run(ctx context.Context, kind BatchKind, asOf time.Time) (*BatchSummary, error) {
	start := time.Now()
	summary := &BatchSummary{
		RunID: uuid.New().String(),
		Kind:  kind,
		AsOf:  asOf,
	}

	artistIDs, err := r.artists.ListArtistIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list artists for batch run: %w", err)
	}
	summary.Total = len(artistIDs)

	log.Info().
		Str("run_id", summary.RunID).
		Str("kind", string(kind)).
		Int("artists", summary.Total).
		Time("as_of", asOf).
		Msg("batch run starting")

	r.registry.BatchRuns.Inc()

	limiter := rate.NewLimiter(rate.Limit(r.config.RatePerSecond), r.config.Workers)
	work := make(chan string)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < r.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for artistID := range work {
				if err := limiter.Wait(ctx); err != nil {
					return
				}
				r.registry.BatchInFlight.Inc()
				err := r.scoreOne(ctx, kind, artistID, asOf)
				r.registry.BatchInFlight.Dec()

				mu.Lock()
				if err != nil {
					summary.Failed++
					summary.Failures = append(summary.Failures, ArtistFailure{
						ArtistID: artistID,
						Error:    err.Error(),
					})
				} else {
					summary.Scored++
				}
				mu.Unlock()

				if err != nil {
					r.registry.BatchFailures.Inc()
					log.Warn().
						Str("run_id", summary.RunID).
						Str("artist_id", artistID).
						Err(err).
						Msg("artist scoring failed")
				}
			}
		}()
	}

dispatch:
	for _, artistID := range artistIDs {
		select {
		case <-ctx.Done():
			break dispatch
		case work <- artistID:
		}
	}
	close(work)
	wg.Wait()

	summary.Duration = time.Since(start)
	r.registry.BatchLastScored.Set(float64(summary.Scored))

	log.Info().
		Str("run_id", summary.RunID).
		Str("kind", string(kind)).
		Int("scored", summary.Scored).
		Int("failed", summary.Failed).
		Dur("duration", summary.Duration).
		Msg("batch run finished")

	if summary.Total > 0 && r.config.MaxFailureRate > 0 {
		failureRate := float64(summary.Failed) / float64(summary.Total)
		if failureRate > r.config.MaxFailureRate {
			return summary, fmt.Errorf("batch run %s failure rate %.2f exceeds %.2f",
				summary.RunID, failureRate, r.config.MaxFailureRate)
		}
	}
	return summary, ctx.Err()
}

func (r *BatchRunner) scoreOne(ctx context.Context, kind BatchKind, artistID string, asOf time.Time) error {
	switch kind {
	case BatchFVS:
		_, err := r.service.CalculateFVS(ctx, artistID, asOf)
		return err
	case BatchMomentum:
		_, err := r.service.CalculateMomentum(ctx, artistID, asOf)
		return err
	default:
		return fmt.Errorf("unknown batch kind %q", kind)
	}
}
