package source

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/fanpulse/fanpulse/internal/scoring"
)

// BreakerSource wraps a raw metric source with a circuit breaker so a failing
// store trips fast and batch runs degrade to per-artist skips instead of
// hammering a dead backend for the whole population.
type BreakerSource struct {
	inner   scoring.MetricSource
	breaker *gobreaker.CircuitBreaker
}

// BreakerConfig tunes the metric source circuit breaker.
type BreakerConfig struct {
	MaxRequests      uint32        `yaml:"max_requests"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold uint32        `yaml:"failure_threshold"`
}

// DefaultBreakerConfig returns production breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      3,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// NewBreakerSource wraps the inner source with breaker protection.
func NewBreakerSource(inner scoring.MetricSource, config BreakerConfig) *BreakerSource {
	settings := gobreaker.Settings{
		Name:        "metric-source",
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("metric source breaker state changed")
		},
	}
	return &BreakerSource{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// ListDailyMetrics satisfies scoring.MetricSource through the breaker.
func (s *BreakerSource) ListDailyMetrics(ctx context.Context, artistID string, from, to time.Time) ([]scoring.DailyMetric, error) {
	out, err := s.breaker.Execute(func() (interface{}, error) {
		return s.inner.ListDailyMetrics(ctx, artistID, from, to)
	})
	if err != nil {
		return nil, fmt.Errorf("metric source: %w", err)
	}
	return out.([]scoring.DailyMetric), nil
}

// State exposes the current breaker state for health reporting.
func (s *BreakerSource) State() gobreaker.State {
	return s.breaker.State()
}
