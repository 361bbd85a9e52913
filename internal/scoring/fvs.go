package scoring

import (
	"fmt"
	"time"
)

// FVSWeights are the five sub-score weights in percent. They must sum to
// exactly 100; ValidateFVSWeights enforces this as a static property.
type FVSWeights struct {
	Streaming  float64 `yaml:"streaming"`  // 30
	Engagement float64 `yaml:"engagement"` // 25
	Social     float64 `yaml:"social"`     // 20
	Monetary   float64 `yaml:"monetary"`   // 15
	Loyalty    float64 `yaml:"loyalty"`    // 10
}

// Sum returns the total weight in percent.
func (w FVSWeights) Sum() float64 {
	return w.Streaming + w.Engagement + w.Social + w.Monetary + w.Loyalty
}

// ValidateFVSWeights rejects weight profiles that do not sum to exactly 100.
func ValidateFVSWeights(w FVSWeights) error {
	if sum := w.Sum(); sum != 100 {
		return fmt.Errorf("fvs weights must sum to 100, got %.2f", sum)
	}
	return nil
}

// FVSConfig holds weights plus the normalization anchors that map raw signals
// onto 0-100 sub-scores. The anchors are calibration details tuned against
// real portfolios, not contractual values.
type FVSConfig struct {
	Weights FVSWeights `yaml:"weights"`

	// Streaming: log curve anchors for window stream volume, plus the blend
	// between volume and growth components.
	StreamFloor       float64 `yaml:"stream_floor"`        // 0 points at or below
	StreamCeiling     float64 `yaml:"stream_ceiling"`      // 100 points at or above
	StreamVolumeBlend float64 `yaml:"stream_volume_blend"` // volume share, remainder is growth
	StreamGrowthGain  float64 `yaml:"stream_growth_gain"`  // points per percent growth around 50

	// Engagement: reference engagement rate that scores 100.
	EngagementRef float64 `yaml:"engagement_ref"`

	// Social reach: log curve anchors for total followers/listeners.
	ReachFloor   float64 `yaml:"reach_floor"`
	ReachCeiling float64 `yaml:"reach_ceiling"`

	// Monetary: log curve anchors for attributable window revenue in USD.
	RevenueFloor   float64 `yaml:"revenue_floor"`
	RevenueCeiling float64 `yaml:"revenue_ceiling"`

	// Loyalty: repeat-listener rate that scores 100.
	LoyaltyRef float64 `yaml:"loyalty_ref"`
}

// DefaultFVSConfig returns the production FVS configuration.
func DefaultFVSConfig() FVSConfig {
	return FVSConfig{
		Weights: FVSWeights{
			Streaming:  30,
			Engagement: 25,
			Social:     20,
			Monetary:   15,
			Loyalty:    10,
		},
		StreamFloor:       1_000,
		StreamCeiling:     10_000_000,
		StreamVolumeBlend: 0.6,
		StreamGrowthGain:  2.5,
		EngagementRef:     0.05,
		ReachFloor:        100,
		ReachCeiling:      10_000_000,
		RevenueFloor:      10,
		RevenueCeiling:    100_000,
		LoyaltyRef:        0.6,
	}
}

// Component is one sub-score contribution inside a breakdown: the clamped
// 0-100 sub-score, its weight in percent, and the raw value it normalized.
type Component struct {
	Score    float64 `json:"score"`
	Weight   float64 `json:"weight"`
	RawValue float64 `json:"raw_value"`
}

// FVSBreakdown holds the five sub-score components by name.
type FVSBreakdown struct {
	Streaming  Component `json:"streaming"`
	Engagement Component `json:"engagement"`
	Social     Component `json:"social"`
	Monetary   Component `json:"monetary"`
	Loyalty    Component `json:"loyalty"`
}

// FVSResult is one Fan Value Score calculation. Results are immutable once
// produced; history is an append-only series keyed by (artist, as-of date).
type FVSResult struct {
	ArtistID   string       `json:"artist_id"`
	AsOf       time.Time    `json:"as_of"`
	WindowDays int          `json:"window_days"`
	Score      float64      `json:"score"`
	Trend      *float64     `json:"trend,omitempty"`
	Breakdown  FVSBreakdown `json:"breakdown"`
}

// FVSEngine computes Fan Value Scores from metric windows.
type FVSEngine struct {
	config FVSConfig
}

// NewFVSEngine creates an FVS engine, falling back to defaults when config is nil.
func NewFVSEngine(config *FVSConfig) (*FVSEngine, error) {
	cfg := DefaultFVSConfig()
	if config != nil {
		cfg = *config
	}
	if err := ValidateFVSWeights(cfg.Weights); err != nil {
		return nil, err
	}
	return &FVSEngine{config: cfg}, nil
}

// Calculate computes the FVS for a window. prior is the equal-length window
// immediately preceding it and drives the trend percentage; pass nil on an
// artist's first calculation and the trend is reported as absent rather than
// a synthetic zero.
func (e *FVSEngine) Calculate(window, prior *MetricWindow) (*FVSResult, error) {
	if window == nil {
		return nil, fmt.Errorf("%w: nil window", ErrInsufficientData)
	}

	result := &FVSResult{
		ArtistID:   window.ArtistID,
		AsOf:       window.AsOf,
		WindowDays: window.Days,
		Breakdown:  e.breakdown(window),
	}
	result.Score = clampScore(e.composite(result.Breakdown))

	if prior != nil {
		priorScore := clampScore(e.composite(e.breakdown(prior)))
		trend := growthPct(priorScore, result.Score)
		result.Trend = &trend
	}
	return result, nil
}

// breakdown computes all five clamped sub-scores for a window.
func (e *FVSEngine) breakdown(w *MetricWindow) FVSBreakdown {
	weights := e.config.Weights
	return FVSBreakdown{
		Streaming: Component{
			Score:    e.streamingScore(w),
			Weight:   weights.Streaming,
			RawValue: float64(w.TotalStreams),
		},
		Engagement: Component{
			Score:    e.engagementScore(w),
			Weight:   weights.Engagement,
			RawValue: w.EngagementRate(),
		},
		Social: Component{
			Score:    e.socialScore(w),
			Weight:   weights.Social,
			RawValue: float64(w.TotalFollowers),
		},
		Monetary: Component{
			Score:    e.monetaryScore(w),
			Weight:   weights.Monetary,
			RawValue: w.Revenue.InexactFloat64(),
		},
		Loyalty: Component{
			Score:    e.loyaltyScore(w),
			Weight:   weights.Loyalty,
			RawValue: w.RepeatListenerRate(),
		},
	}
}

// composite is the weighted sum of the already-clamped sub-scores.
func (e *FVSEngine) composite(b FVSBreakdown) float64 {
	return (b.Streaming.Score*b.Streaming.Weight +
		b.Engagement.Score*b.Engagement.Weight +
		b.Social.Score*b.Social.Weight +
		b.Monetary.Score*b.Monetary.Weight +
		b.Loyalty.Score*b.Loyalty.Weight) / 100
}

// streamingScore blends stream volume on a log reference curve with the
// within-window growth of daily streams (second half vs first half).
func (e *FVSEngine) streamingScore(w *MetricWindow) float64 {
	volume := logCurve(float64(w.TotalStreams), e.config.StreamFloor, e.config.StreamCeiling)

	growth := 50.0 // neutral when the series is too short to split
	if len(w.DailyStreams) >= 2 {
		half := len(w.DailyStreams) / 2
		first := sumInt64(w.DailyStreams[:half])
		second := sumInt64(w.DailyStreams[half:])
		g := growthPct(float64(first), float64(second))
		growth = clampScore(50 + g*e.config.StreamGrowthGain)
	}

	blend := e.config.StreamVolumeBlend
	return clampScore(volume*blend + growth*(1-blend))
}

// engagementScore normalizes the engagement rate against the reference curve.
func (e *FVSEngine) engagementScore(w *MetricWindow) float64 {
	if e.config.EngagementRef <= 0 {
		return 0
	}
	return clampScore(w.EngagementRate() / e.config.EngagementRef * 100)
}

// socialScore normalizes total reach on a log curve; reach is long-tailed.
func (e *FVSEngine) socialScore(w *MetricWindow) float64 {
	return logCurve(float64(w.TotalFollowers), e.config.ReachFloor, e.config.ReachCeiling)
}

// monetaryScore normalizes attributable window revenue on a log curve.
func (e *FVSEngine) monetaryScore(w *MetricWindow) float64 {
	return logCurve(w.Revenue.InexactFloat64(), e.config.RevenueFloor, e.config.RevenueCeiling)
}

// loyaltyScore normalizes the repeat-listener rate against the reference rate.
func (e *FVSEngine) loyaltyScore(w *MetricWindow) float64 {
	if e.config.LoyaltyRef <= 0 {
		return 0
	}
	return clampScore(w.RepeatListenerRate() / e.config.LoyaltyRef * 100)
}
