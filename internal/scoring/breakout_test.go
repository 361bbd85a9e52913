package scoring

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func momentumFixture(score float64, status MomentumStatus) *MomentumResult {
	return &MomentumResult{
		ArtistID:   "artist-1",
		AsOf:       testAsOf(),
		WindowDays: 30,
		Score:      score,
		Status:     status,
		Components: MomentumComponents{
			Velocity:       70,
			Acceleration:   50,
			Consistency:    80,
			ViralPotential: 20,
		},
	}
}

func TestBreakout_DecliningArtistStaysBelowCap(t *testing.T) {
	predictor := NewBreakoutPredictor(nil)

	// Even with a strong spike burst and high acceleration, a declining artist
	// never reads as a likely breakout.
	latest := momentumFixture(2.5, StatusDeclining)
	latest.Components.Acceleration = 100
	spikes := []SpikeEvent{
		{ZScore: 5, Value: 50_000},
		{ZScore: 4, Value: 40_000},
		{ZScore: 3, Value: 30_000},
	}

	prediction, err := predictor.Predict(latest, spikes)
	require.NoError(t, err)
	assert.LessOrEqual(t, prediction.Probability, 0.15)
	assert.Less(t, prediction.Probability, 0.20)
}

func TestBreakout_ProbabilityWithinStatusCeiling(t *testing.T) {
	predictor := NewBreakoutPredictor(nil)

	cases := []struct {
		score   float64
		status  MomentumStatus
		ceiling float64
	}{
		{1.0, StatusDeclining, 0.15},
		{4.0, StatusStable, 0.35},
		{6.0, StatusGrowing, 0.60},
		{8.0, StatusRapidGrowth, 0.85},
		{9.8, StatusViral, 0.95},
	}

	for _, tc := range cases {
		latest := momentumFixture(tc.score, tc.status)
		latest.Components.Acceleration = 100
		spikes := []SpikeEvent{{ZScore: 6}, {ZScore: 5}, {ZScore: 4}, {ZScore: 3}}

		prediction, err := predictor.Predict(latest, spikes)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, prediction.Probability, 0.0)
		assert.LessOrEqual(t, prediction.Probability, tc.ceiling, "status %s", tc.status)
		assert.Equal(t, tc.status, prediction.MomentumStatus)
	}
}

func TestBreakout_BaseProbabilityMonotonic(t *testing.T) {
	prev := -1.0
	for score := 0.0; score <= 10.0; score += 0.5 {
		p := baseProbability(score)
		assert.GreaterOrEqual(t, p, prev, "score %.1f", score)
		prev = p
	}
}

func TestBreakout_ConfidenceFromConsistency(t *testing.T) {
	predictor := NewBreakoutPredictor(nil)

	cases := []struct {
		consistency float64
		level       ConfidenceLevel
	}{
		{85, ConfidenceHigh},
		{70, ConfidenceHigh},
		{55, ConfidenceMedium},
		{40, ConfidenceMedium},
		{20, ConfidenceLow},
	}
	for _, tc := range cases {
		latest := momentumFixture(6.0, StatusGrowing)
		latest.Components.Consistency = tc.consistency

		prediction, err := predictor.Predict(latest, nil)
		require.NoError(t, err)
		assert.Equal(t, tc.level, prediction.ConfidenceLevel, "consistency %.0f", tc.consistency)
	}
}

func TestBreakout_FactorsSortedByImpact(t *testing.T) {
	predictor := NewBreakoutPredictor(nil)

	latest := momentumFixture(8.0, StatusRapidGrowth)
	latest.Components.Acceleration = 75
	spikes := []SpikeEvent{{ZScore: 3.2}}

	prediction, err := predictor.Predict(latest, spikes)
	require.NoError(t, err)
	require.Len(t, prediction.ContributingFactors, 3)
	for i := 1; i < len(prediction.ContributingFactors); i++ {
		assert.GreaterOrEqual(t,
			prediction.ContributingFactors[i-1].Impact,
			prediction.ContributingFactors[i].Impact)
	}
	assert.Equal(t, "momentum_score", prediction.ContributingFactors[0].Name)
}

func TestBreakout_SpikyArtistOutscoresSmoothPeer(t *testing.T) {
	predictor := NewBreakoutPredictor(nil)

	// Same momentum score and status; only the spike history differs.
	smooth, err := predictor.Predict(momentumFixture(7.5, StatusRapidGrowth), nil)
	require.NoError(t, err)
	spiky, err := predictor.Predict(momentumFixture(7.5, StatusRapidGrowth),
		[]SpikeEvent{{ZScore: 3.2, Value: 25_000}})
	require.NoError(t, err)

	assert.Greater(t, spiky.Probability, smooth.Probability)
	assert.GreaterOrEqual(t, spiky.Probability-smooth.Probability, 0.05,
		"a recent spike must move the probability, not nudge it")
}

func TestBreakout_SpikeBonusCapped(t *testing.T) {
	predictor := NewBreakoutPredictor(nil)

	many := make([]SpikeEvent, 20)
	for i := range many {
		many[i] = SpikeEvent{ZScore: 10}
	}
	assert.Equal(t, 0.20, predictor.spikeBonus(many))
}

func TestBreakout_RequiresMomentumResult(t *testing.T) {
	predictor := NewBreakoutPredictor(nil)
	_, err := predictor.Predict(nil, nil)
	assert.Error(t, err)
}

func TestConfidenceLevel_UnmarshalRejectsNonString(t *testing.T) {
	var level ConfidenceLevel
	assert.Error(t, json.Unmarshal([]byte(`5`), &level))
	assert.Error(t, json.Unmarshal([]byte(`"certain"`), &level))

	require.NoError(t, json.Unmarshal([]byte(`"high"`), &level))
	assert.Equal(t, ConfidenceHigh, level)
}
