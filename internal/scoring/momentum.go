package scoring

import (
	"encoding/json"
	"fmt"
	"time"
)

// MomentumStatus is the closed set of momentum classifications. The dashboard
// renders these as string literals; keeping them as a typed enum with
// exhaustive switches removes the typo class of bugs entirely.
type MomentumStatus int

const (
	StatusDeclining MomentumStatus = iota
	StatusStable
	StatusGrowing
	StatusRapidGrowth
	StatusViral
)

// String returns the canonical wire/database name for the status.
func (s MomentumStatus) String() string {
	switch s {
	case StatusDeclining:
		return "declining"
	case StatusStable:
		return "stable"
	case StatusGrowing:
		return "growing"
	case StatusRapidGrowth:
		return "rapid_growth"
	case StatusViral:
		return "viral"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the status as its canonical name.
func (s MomentumStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON decodes a canonical status name.
func (s *MomentumStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("momentum status must be a string: %w", err)
	}
	parsed, err := ParseMomentumStatus(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseMomentumStatus maps a canonical name back to its status.
func ParseMomentumStatus(name string) (MomentumStatus, error) {
	switch name {
	case "declining":
		return StatusDeclining, nil
	case "stable":
		return StatusStable, nil
	case "growing":
		return StatusGrowing, nil
	case "rapid_growth":
		return StatusRapidGrowth, nil
	case "viral":
		return StatusViral, nil
	default:
		return StatusDeclining, fmt.Errorf("unknown momentum status: %q", name)
	}
}

// ClassifyMomentum maps a 0-10 momentum score onto its status band. Bands are
// ordered and non-overlapping; a boundary value belongs to the higher band, so
// exactly 3.0 is stable, 7.0 is rapid_growth, and 9.0 is viral.
func ClassifyMomentum(score float64) MomentumStatus {
	switch {
	case score >= 9:
		return StatusViral
	case score >= 7:
		return StatusRapidGrowth
	case score >= 5:
		return StatusGrowing
	case score >= 3:
		return StatusStable
	default:
		return StatusDeclining
	}
}

// MomentumWeights are the four sub-score weights in percent, summing to 100.
type MomentumWeights struct {
	Velocity       float64 `yaml:"velocity"`        // 35
	Acceleration   float64 `yaml:"acceleration"`    // 30
	Consistency    float64 `yaml:"consistency"`     // 20
	ViralPotential float64 `yaml:"viral_potential"` // 15
}

// Sum returns the total weight in percent.
func (w MomentumWeights) Sum() float64 {
	return w.Velocity + w.Acceleration + w.Consistency + w.ViralPotential
}

// ValidateMomentumWeights rejects weight profiles that do not sum to exactly 100.
func ValidateMomentumWeights(w MomentumWeights) error {
	if sum := w.Sum(); sum != 100 {
		return fmt.Errorf("momentum weights must sum to 100, got %.2f", sum)
	}
	return nil
}

// MomentumConfig holds weights and calibration gains for the momentum index.
type MomentumConfig struct {
	Weights MomentumWeights `yaml:"weights"`

	// VelocityGain converts window growth percent into sub-score points
	// around the neutral 50.
	VelocityGain float64 `yaml:"velocity_gain"`

	// AccelerationGain converts the velocity delta versus the preceding
	// window into sub-score points around the neutral 50.
	AccelerationGain float64 `yaml:"acceleration_gain"`

	// ConsistencyPenalty subtracts points per percentage point of day-over-day
	// growth standard deviation.
	ConsistencyPenalty float64 `yaml:"consistency_penalty"`

	// EngagementConsistencyWeight is the share of the consistency sub-score
	// driven by engagement-series volatility, so a single engagement spike
	// amid flat follower growth still reads as inconsistent.
	EngagementConsistencyWeight float64 `yaml:"engagement_consistency_weight"`

	// SpikeThreshold is the z-score above which a daily engagement value
	// counts as a viral spike. UI copy asserts 2 standard deviations; treat
	// as a tunable default.
	SpikeThreshold float64 `yaml:"spike_threshold"`

	// SpikePoints and SpikeZGain convert spike count and peak magnitude into
	// the viral potential sub-score.
	SpikePoints float64 `yaml:"spike_points"`
	SpikeZGain  float64 `yaml:"spike_z_gain"`
}

// DefaultMomentumConfig returns the production momentum configuration.
func DefaultMomentumConfig() MomentumConfig {
	return MomentumConfig{
		Weights: MomentumWeights{
			Velocity:       35,
			Acceleration:   30,
			Consistency:    20,
			ViralPotential: 15,
		},
		VelocityGain:                5,
		AccelerationGain:            10,
		ConsistencyPenalty:          20,
		EngagementConsistencyWeight: 0.3,
		SpikeThreshold:              2.0,
		SpikePoints:                 30,
		SpikeZGain:                  10,
	}
}

// SpikeEvent is one daily engagement value statistically above the window mean.
type SpikeEvent struct {
	Date   time.Time `json:"date"`
	Value  float64   `json:"value"`
	ZScore float64   `json:"z_score"`
}

// MomentumComponents holds the four 0-100 sub-scores.
type MomentumComponents struct {
	Velocity       float64 `json:"velocity"`
	Acceleration   float64 `json:"acceleration"`
	Consistency    float64 `json:"consistency"`
	ViralPotential float64 `json:"viral_potential"`
}

// Forecast is one extrapolation horizon: projected growth percent paired with
// a 0-100 confidence.
type Forecast struct {
	GrowthPct  float64 `json:"growth_pct"`
	Confidence float64 `json:"confidence"`
}

// MomentumPrediction extrapolates current velocity and acceleration over the
// two dashboard horizons.
type MomentumPrediction struct {
	Next7Days  Forecast `json:"next_7_days"`
	Next30Days Forecast `json:"next_30_days"`
}

// MomentumResult is one Momentum Index calculation, same append-only history
// discipline as FVSResult.
type MomentumResult struct {
	ArtistID   string             `json:"artist_id"`
	AsOf       time.Time          `json:"as_of"`
	WindowDays int                `json:"window_days"`
	Score      float64            `json:"score"` // 0-10, one decimal
	Status     MomentumStatus     `json:"status"`
	Trend7d    float64            `json:"trend_7d"`
	Trend30d   float64            `json:"trend_30d"`
	Components MomentumComponents `json:"components"`
	Prediction MomentumPrediction `json:"prediction"`
	Spikes     []SpikeEvent       `json:"spikes,omitempty"`
}

// MomentumEngine computes the Momentum Index from a window and a short
// lookback of preceding windows.
type MomentumEngine struct {
	config MomentumConfig
}

// NewMomentumEngine creates a momentum engine, defaulting when config is nil.
func NewMomentumEngine(config *MomentumConfig) (*MomentumEngine, error) {
	cfg := DefaultMomentumConfig()
	if config != nil {
		cfg = *config
	}
	if err := ValidateMomentumWeights(cfg.Weights); err != nil {
		return nil, err
	}
	return &MomentumEngine{config: cfg}, nil
}

// Calculate computes the momentum index for a window. history is the ordered
// sequence of past equal-length windows, oldest first; only the most recent
// entry feeds acceleration. Pure function of its inputs: identical window and
// history always yield an identical result.
func (e *MomentumEngine) Calculate(window *MetricWindow, history []*MetricWindow) (*MomentumResult, error) {
	if window == nil {
		return nil, fmt.Errorf("%w: nil window", ErrInsufficientData)
	}

	velocityPct := e.windowVelocity(window)
	prevVelocityPct, hasPrev := e.previousVelocity(history)

	components := MomentumComponents{
		Velocity:    clampScore(50 + velocityPct*e.config.VelocityGain),
		Consistency: e.consistencyScore(window),
	}

	accelPct := 0.0
	if hasPrev {
		accelPct = velocityPct - prevVelocityPct
		components.Acceleration = clampScore(50 + accelPct*e.config.AccelerationGain)
	} else {
		components.Acceleration = 50 // neutral on first calculation
	}

	spikes := DetectSpikes(window, e.config.SpikeThreshold)
	components.ViralPotential = e.viralScore(spikes)

	weights := e.config.Weights
	composite := (components.Velocity*weights.Velocity +
		components.Acceleration*weights.Acceleration +
		components.Consistency*weights.Consistency +
		components.ViralPotential*weights.ViralPotential) / 100

	result := &MomentumResult{
		ArtistID:   window.ArtistID,
		AsOf:       window.AsOf,
		WindowDays: window.Days,
		Score:      round1(clamp(composite, 0, 100) / 10),
		Components: components,
		Trend7d:    e.trailingTrend(window, 7),
		Trend30d:   e.trailingTrend(window, 30),
		Spikes:     spikes,
		Prediction: e.predict(window, velocityPct, accelPct, components.Consistency),
	}
	result.Status = ClassifyMomentum(result.Score)
	return result, nil
}

// growthSeries picks the daily series velocity derives from: follower levels
// when the artist has social data, daily listener volume otherwise so a
// streaming-only artist still registers momentum.
func growthSeries(w *MetricWindow) []int64 {
	if w.TotalFollowers > 0 {
		return w.DailyFollowers
	}
	return w.DailyStreams
}

// windowVelocity is the percent growth across the window's growth series.
func (e *MomentumEngine) windowVelocity(w *MetricWindow) float64 {
	series := growthSeries(w)
	if len(series) < 2 {
		return 0
	}
	return growthPct(float64(series[0]), float64(series[len(series)-1]))
}

// previousVelocity extracts velocity from the most recent history window.
func (e *MomentumEngine) previousVelocity(history []*MetricWindow) (float64, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i] != nil {
			return e.windowVelocity(history[i]), true
		}
	}
	return 0, false
}

// consistencyScore is the inverse of day-over-day growth variance: spiky,
// unreliable growth loses points even when average growth is high. Engagement
// volatility is blended in when the window carries an engagement series, so a
// viral spike over an otherwise flat window lowers consistency rather than
// only raising viral potential.
func (e *MomentumEngine) consistencyScore(w *MetricWindow) float64 {
	rates := dayOverDayGrowth(growthSeries(w))
	if len(rates) == 0 {
		return 50
	}
	growth := clampScore(100 - stddev(rates)*e.config.ConsistencyPenalty)

	engagementRates := dayOverDayGrowth(w.DailyEngagements)
	if len(engagementRates) == 0 || w.TotalEngagements == 0 {
		return growth
	}
	engagement := clampScore(100 - stddev(engagementRates)*e.config.ConsistencyPenalty)
	blend := clamp(e.config.EngagementConsistencyWeight, 0, 1)
	return clampScore(growth*(1-blend) + engagement*blend)
}

// viralScore converts spike count and peak z-score into the sub-score.
func (e *MomentumEngine) viralScore(spikes []SpikeEvent) float64 {
	if len(spikes) == 0 {
		return 0
	}
	maxZ := 0.0
	for _, s := range spikes {
		if s.ZScore > maxZ {
			maxZ = s.ZScore
		}
	}
	return clampScore(float64(len(spikes))*e.config.SpikePoints + maxZ*e.config.SpikeZGain)
}

// trailingTrend compares the growth-series level at the window end against the
// level `days` earlier (or the window start when the series is shorter).
func (e *MomentumEngine) trailingTrend(w *MetricWindow, days int) float64 {
	series := growthSeries(w)
	if len(series) < 2 {
		return 0
	}
	start := len(series) - 1 - days
	if start < 0 {
		start = 0
	}
	return growthPct(float64(series[start]), float64(series[len(series)-1]))
}

// predict extrapolates velocity plus acceleration over each horizon.
// Confidence shrinks with horizon length and with low consistency: a strong
// point estimate built on erratic growth is still a weak forecast.
func (e *MomentumEngine) predict(w *MetricWindow, velocityPct, accelPct, consistency float64) MomentumPrediction {
	days := float64(w.Days)
	project := func(horizon float64) float64 {
		frac := horizon / days
		return velocityPct*frac + 0.5*accelPct*frac*frac
	}
	confidence := func(base float64) float64 {
		return clamp(base*(0.4+0.6*consistency/100), 5, 95)
	}
	return MomentumPrediction{
		Next7Days: Forecast{
			GrowthPct:  project(7),
			Confidence: confidence(90),
		},
		Next30Days: Forecast{
			GrowthPct:  project(30),
			Confidence: confidence(70),
		},
	}
}

// DetectSpikes finds daily engagement values more than threshold standard
// deviations above the window mean. Returned events are ordered by day.
func DetectSpikes(w *MetricWindow, threshold float64) []SpikeEvent {
	series := toFloats(w.DailyEngagements)
	if len(series) < 2 {
		return nil
	}
	m := mean(series)
	sd := stddev(series)
	if sd == 0 {
		return nil
	}

	var spikes []SpikeEvent
	for i, v := range series {
		z := (v - m) / sd
		if z > threshold {
			// Daily series entries map onto sample days counted back from AsOf.
			date := w.AsOf.AddDate(0, 0, -(len(series) - i))
			spikes = append(spikes, SpikeEvent{Date: date, Value: v, ZScore: z})
		}
	}
	return spikes
}
