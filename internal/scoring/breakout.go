package scoring

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// ConfidenceLevel is the closed set of breakout confidence grades.
type ConfidenceLevel int

const (
	ConfidenceLow ConfidenceLevel = iota
	ConfidenceMedium
	ConfidenceHigh
)

// String returns the canonical wire name for the confidence level.
func (c ConfidenceLevel) String() string {
	switch c {
	case ConfidenceLow:
		return "low"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceHigh:
		return "high"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the level as its canonical name.
func (c ConfidenceLevel) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

// UnmarshalJSON decodes a canonical confidence name.
func (c *ConfidenceLevel) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("confidence level must be a string: %w", err)
	}
	switch name {
	case "low":
		*c = ConfidenceLow
	case "medium":
		*c = ConfidenceMedium
	case "high":
		*c = ConfidenceHigh
	default:
		return fmt.Errorf("unknown confidence level: %q", name)
	}
	return nil
}

// ContributingFactor attributes part of the breakout probability to one signal.
type ContributingFactor struct {
	Name   string  `json:"name"`
	Impact float64 `json:"impact"` // probability contributed, 0-1 scale
}

// BreakoutPrediction is the probability of imminent viral growth, derived on
// demand from the latest momentum state. Never persisted independently.
type BreakoutPrediction struct {
	ArtistID            string               `json:"artist_id"`
	AsOf                time.Time            `json:"as_of"`
	Probability         float64              `json:"probability"` // 0-1
	ConfidenceLevel     ConfidenceLevel      `json:"confidence_level"`
	MomentumStatus      MomentumStatus       `json:"momentum_status"`
	ContributingFactors []ContributingFactor `json:"contributing_factors"`
}

// BreakoutConfig tunes the probability curve and the per-status ceilings that
// keep predictions consistent with the momentum classification they derive
// from: a declining artist can never read as a likely breakout, whatever an
// isolated spike says.
type BreakoutConfig struct {
	// Spike contribution per event and per unit of peak z-score, and the cap
	// on the combined spike bonus.
	SpikeEventBonus float64 `yaml:"spike_event_bonus"`
	SpikeZBonus     float64 `yaml:"spike_z_bonus"`
	SpikeBonusCap   float64 `yaml:"spike_bonus_cap"`

	// AccelerationBonus scales extra probability from an acceleration
	// sub-score above neutral.
	AccelerationBonus float64 `yaml:"acceleration_bonus"`

	// Probability ceilings per momentum status.
	CeilingDeclining   float64 `yaml:"ceiling_declining"`
	CeilingStable      float64 `yaml:"ceiling_stable"`
	CeilingGrowing     float64 `yaml:"ceiling_growing"`
	CeilingRapidGrowth float64 `yaml:"ceiling_rapid_growth"`
	CeilingViral       float64 `yaml:"ceiling_viral"`

	// Confidence grade thresholds on the consistency sub-score.
	HighConfidenceMin   float64 `yaml:"high_confidence_min"`
	MediumConfidenceMin float64 `yaml:"medium_confidence_min"`
}

// DefaultBreakoutConfig returns the production breakout configuration.
func DefaultBreakoutConfig() BreakoutConfig {
	return BreakoutConfig{
		SpikeEventBonus:     0.05,
		SpikeZBonus:         0.02,
		SpikeBonusCap:       0.20,
		AccelerationBonus:   0.10,
		CeilingDeclining:    0.15,
		CeilingStable:       0.35,
		CeilingGrowing:      0.60,
		CeilingRapidGrowth:  0.85,
		CeilingViral:        0.95,
		HighConfidenceMin:   70,
		MediumConfidenceMin: 40,
	}
}

// BreakoutPredictor derives breakout probabilities from momentum state.
type BreakoutPredictor struct {
	config BreakoutConfig
}

// NewBreakoutPredictor creates a predictor, defaulting when config is nil.
func NewBreakoutPredictor(config *BreakoutConfig) *BreakoutPredictor {
	cfg := DefaultBreakoutConfig()
	if config != nil {
		cfg = *config
	}
	return &BreakoutPredictor{config: cfg}
}

// Predict derives the breakout probability from the latest momentum result
// plus recent engagement spikes. The output is always consistent with the
// momentum status: the probability is capped per status band.
func (p *BreakoutPredictor) Predict(latest *MomentumResult, recentSpikes []SpikeEvent) (*BreakoutPrediction, error) {
	if latest == nil {
		return nil, fmt.Errorf("breakout prediction requires a momentum result")
	}

	base := baseProbability(latest.Score)
	spikeBonus := p.spikeBonus(recentSpikes)
	accelBonus := p.accelerationBonus(latest.Components.Acceleration)

	factors := []ContributingFactor{
		{Name: "momentum_score", Impact: base},
		{Name: "engagement_spikes", Impact: spikeBonus},
		{Name: "acceleration", Impact: accelBonus},
	}
	sort.SliceStable(factors, func(i, j int) bool { return factors[i].Impact > factors[j].Impact })

	probability := clamp(base+spikeBonus+accelBonus, 0, p.ceiling(latest.Status))

	return &BreakoutPrediction{
		ArtistID:            latest.ArtistID,
		AsOf:                latest.AsOf,
		Probability:         probability,
		ConfidenceLevel:     p.confidence(latest.Components.Consistency),
		MomentumStatus:      latest.Status,
		ContributingFactors: factors,
	}, nil
}

// baseProbability is piecewise linear in the momentum score and strictly
// non-decreasing, steepening above the rapid_growth threshold.
func baseProbability(score float64) float64 {
	switch {
	case score >= 7:
		return 0.30 + (score-7)*0.15 // up to 0.75 at 10
	case score >= 5:
		return 0.10 + (score-5)*0.10
	case score >= 3:
		return 0.05 + (score-3)*0.025
	default:
		return 0.02 + score*0.01
	}
}

// spikeBonus rewards recent viral-potential spike events by count and peak
// magnitude, capped so spikes alone never dominate.
func (p *BreakoutPredictor) spikeBonus(spikes []SpikeEvent) float64 {
	if len(spikes) == 0 {
		return 0
	}
	maxZ := 0.0
	for _, s := range spikes {
		if s.ZScore > maxZ {
			maxZ = s.ZScore
		}
	}
	bonus := float64(len(spikes))*p.config.SpikeEventBonus + maxZ*p.config.SpikeZBonus
	return clamp(bonus, 0, p.config.SpikeBonusCap)
}

// accelerationBonus adds probability for acceleration above the neutral 50.
func (p *BreakoutPredictor) accelerationBonus(acceleration float64) float64 {
	if acceleration <= 50 {
		return 0
	}
	return (acceleration - 50) / 50 * p.config.AccelerationBonus
}

// ceiling returns the status-consistent probability cap.
func (p *BreakoutPredictor) ceiling(status MomentumStatus) float64 {
	switch status {
	case StatusDeclining:
		return p.config.CeilingDeclining
	case StatusStable:
		return p.config.CeilingStable
	case StatusGrowing:
		return p.config.CeilingGrowing
	case StatusRapidGrowth:
		return p.config.CeilingRapidGrowth
	case StatusViral:
		return p.config.CeilingViral
	default:
		return p.config.CeilingStable
	}
}

// confidence grades the consistency sub-score used in the momentum result.
func (p *BreakoutPredictor) confidence(consistency float64) ConfidenceLevel {
	switch {
	case consistency >= p.config.HighConfidenceMin:
		return ConfidenceHigh
	case consistency >= p.config.MediumConfidenceMin:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
