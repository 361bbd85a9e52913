package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fanpulse/fanpulse/internal/infrastructure/cache"
	"github.com/fanpulse/fanpulse/internal/metrics"
	"github.com/fanpulse/fanpulse/internal/persistence"
	"github.com/fanpulse/fanpulse/internal/scoring"
)

// ScoringService orchestrates the aggregator, the calculators, and the history
// stores. Write paths append to history and refresh the latest-result cache;
// read paths go cache first, then postgres.
type ScoringService struct {
	aggregator *scoring.Aggregator
	fvs        *scoring.FVSEngine
	momentum   *scoring.MomentumEngine
	breakout   *scoring.BreakoutPredictor
	repos      *persistence.Repository
	cache      *cache.LatestCache
	registry   *metrics.Registry
	config     ScoringConfig
}

// NewScoringService wires the full calculation pipeline. cache may be nil when
// Redis is not configured; reads then always hit postgres.
func NewScoringService(source scoring.MetricSource, repos *persistence.Repository, latestCache *cache.LatestCache, registry *metrics.Registry, config ScoringConfig) (*ScoringService, error) {
	fvs, err := scoring.NewFVSEngine(&config.FVS)
	if err != nil {
		return nil, fmt.Errorf("fvs engine: %w", err)
	}
	momentum, err := scoring.NewMomentumEngine(&config.Momentum)
	if err != nil {
		return nil, fmt.Errorf("momentum engine: %w", err)
	}
	if registry == nil {
		registry = metrics.Default()
	}

	return &ScoringService{
		aggregator: scoring.NewAggregator(source, config.Aggregator),
		fvs:        fvs,
		momentum:   momentum,
		breakout:   scoring.NewBreakoutPredictor(&config.Breakout),
		repos:      repos,
		cache:      latestCache,
		registry:   registry,
		config:     config,
	}, nil
}

// CalculateFVS computes and persists the Fan Value Score for one artist as of
// the given date. The trend compares against the equal-length window
// immediately preceding; an artist with no prior data gets an absent trend.
func (s *ScoringService) CalculateFVS(ctx context.Context, artistID string, asOf time.Time) (*scoring.FVSResult, error) {
	start := time.Now()

	window, err := s.aggregator.Window(ctx, artistID, s.config.WindowDays, asOf)
	if err != nil {
		s.observe("fvs", start, err)
		return nil, err
	}

	prior := s.priorWindow(ctx, artistID, asOf)

	result, err := s.fvs.Calculate(window, prior)
	if err != nil {
		s.observe("fvs", start, err)
		return nil, err
	}

	if err := s.repos.FVS.Append(ctx, *result); err != nil {
		s.observe("fvs", start, err)
		return nil, fmt.Errorf("append fvs result: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.SetFVS(ctx, result); err != nil {
			log.Warn().Err(err).Str("artist_id", artistID).Msg("fvs cache write failed")
		}
	}

	s.observe("fvs", start, nil)
	return result, nil
}

// CalculateMomentum computes and persists the Momentum Index for one artist.
// The acceleration component compares against the preceding window; the
// configured number of history windows is rebuilt from raw metrics so the
// calculation stays a pure function of stored data.
func (s *ScoringService) CalculateMomentum(ctx context.Context, artistID string, asOf time.Time) (*scoring.MomentumResult, error) {
	start := time.Now()

	window, err := s.aggregator.Window(ctx, artistID, s.config.WindowDays, asOf)
	if err != nil {
		s.observe("momentum", start, err)
		return nil, err
	}

	history := s.historyWindows(ctx, artistID, asOf)

	result, err := s.momentum.Calculate(window, history)
	if err != nil {
		s.observe("momentum", start, err)
		return nil, err
	}

	if err := s.repos.Momentum.Append(ctx, *result); err != nil {
		s.observe("momentum", start, err)
		return nil, fmt.Errorf("append momentum result: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.SetMomentum(ctx, result); err != nil {
			log.Warn().Err(err).Str("artist_id", artistID).Msg("momentum cache write failed")
		}
	}

	s.observe("momentum", start, nil)
	return result, nil
}

// PredictBreakout derives the breakout probability from the artist's latest
// momentum result. Returns persistence.ErrNotFound when momentum has never
// been calculated.
func (s *ScoringService) PredictBreakout(ctx context.Context, artistID string) (*scoring.BreakoutPrediction, error) {
	latest, err := s.LatestMomentum(ctx, artistID)
	if err != nil {
		return nil, err
	}
	return s.breakout.Predict(latest, latest.Spikes)
}

// LatestFVS returns the most recent stored FVS result, cache first.
func (s *ScoringService) LatestFVS(ctx context.Context, artistID string) (*scoring.FVSResult, error) {
	if s.cache != nil {
		if result, ok := s.cache.GetFVS(ctx, artistID); ok {
			s.registry.CacheHits.WithLabelValues("fvs").Inc()
			return result, nil
		}
		s.registry.CacheMisses.WithLabelValues("fvs").Inc()
	}

	result, err := s.repos.FVS.Latest(ctx, artistID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetFVS(ctx, result); err != nil {
			log.Warn().Err(err).Str("artist_id", artistID).Msg("fvs cache backfill failed")
		}
	}
	return result, nil
}

// LatestMomentum returns the most recent stored momentum result, cache first.
func (s *ScoringService) LatestMomentum(ctx context.Context, artistID string) (*scoring.MomentumResult, error) {
	if s.cache != nil {
		if result, ok := s.cache.GetMomentum(ctx, artistID); ok {
			s.registry.CacheHits.WithLabelValues("momentum").Inc()
			return result, nil
		}
		s.registry.CacheMisses.WithLabelValues("momentum").Inc()
	}

	result, err := s.repos.Momentum.Latest(ctx, artistID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetMomentum(ctx, result); err != nil {
			log.Warn().Err(err).Str("artist_id", artistID).Msg("momentum cache backfill failed")
		}
	}
	return result, nil
}

// FVSHistory pages stored FVS results ascending by date, resuming after the
// cursor. A zero cursor starts from the beginning of the range.
func (s *ScoringService) FVSHistory(ctx context.Context, artistID string, tr persistence.TimeRange, cursor time.Time, limit int) ([]scoring.FVSResult, error) {
	return s.repos.FVS.ListRange(ctx, artistID, tr, cursor, normalizeLimit(limit))
}

// MomentumHistory pages stored momentum results ascending by date.
func (s *ScoringService) MomentumHistory(ctx context.Context, artistID string, tr persistence.TimeRange, cursor time.Time, limit int) ([]scoring.MomentumResult, error) {
	return s.repos.Momentum.ListRange(ctx, artistID, tr, cursor, normalizeLimit(limit))
}

// priorWindow builds the equal-length window ending where the current one
// starts. Insufficient data there just means no trend, not a failure.
func (s *ScoringService) priorWindow(ctx context.Context, artistID string, asOf time.Time) *scoring.MetricWindow {
	priorAsOf := asOf.AddDate(0, 0, -s.config.WindowDays)
	prior, err := s.aggregator.Window(ctx, artistID, s.config.WindowDays, priorAsOf)
	if err != nil {
		return nil
	}
	return prior
}

// historyWindows rebuilds up to the configured number of preceding windows,
// oldest first. A gap discards everything before it so acceleration only ever
// compares contiguous windows.
func (s *ScoringService) historyWindows(ctx context.Context, artistID string, asOf time.Time) []*scoring.MetricWindow {
	n := s.config.HistoryWindows
	if n <= 0 {
		return nil
	}

	windows := make([]*scoring.MetricWindow, 0, n)
	for i := n; i >= 1; i-- {
		windowAsOf := asOf.AddDate(0, 0, -i*s.config.WindowDays)
		w, err := s.aggregator.Window(ctx, artistID, s.config.WindowDays, windowAsOf)
		if err != nil {
			windows = windows[:0]
			continue
		}
		windows = append(windows, w)
	}
	return windows
}

func (s *ScoringService) observe(calculator string, start time.Time, err error) {
	s.registry.CalcDuration.WithLabelValues(calculator).Observe(time.Since(start).Seconds())
	s.registry.CalcTotal.WithLabelValues(calculator, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, scoring.ErrInsufficientData):
		return "insufficient_data"
	default:
		return "error"
	}
}

func normalizeLimit(limit int) int {
	const defaultLimit = 100
	const maxLimit = 1000
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
