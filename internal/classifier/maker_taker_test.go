package classifier

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// identityCoef standardizes nothing and weights nothing: every input scores
// z = 0 and splits 50/50.
func identityCoef() Coefficients {
	return Coefficients{
		Scales: [FeatureCount]float64{1, 1, 1, 1},
	}
}

func TestPredictNeutralModel(t *testing.T) {
	m := New(identityCoef(), testLogger())

	p := m.Predict([FeatureCount]float64{1000, 0.5, 0.1, 1})
	assert.InDelta(t, 0.5, p.Maker, 1e-12)
	assert.InDelta(t, 0.5, p.Taker, 1e-12)
}

func TestPredictProbabilitiesSumToOne(t *testing.T) {
	coef := Coefficients{
		Means:     [FeatureCount]float64{500, 0.2, 0, 0.5},
		Scales:    [FeatureCount]float64{300, 0.1, 0.4, 0.5},
		Weights:   [FeatureCount]float64{0.8, -1.2, 0.3, 0.6},
		Intercept: -0.25,
	}
	m := New(coef, testLogger())

	for _, features := range [][FeatureCount]float64{
		{100, 0.01, 0.9, 0},
		{50_000, 1.5, -0.9, 1},
		{0, 0, 0, 0},
	} {
		p := m.Predict(features)
		assert.InDelta(t, 1.0, p.Maker+p.Taker, 1e-9)
		assert.GreaterOrEqual(t, p.Taker, 0.0)
		assert.LessOrEqual(t, p.Taker, 1.0)
	}
}

func TestPredictWeightShiftsTakerProbability(t *testing.T) {
	coef := identityCoef()
	coef.Weights[0] = 2 // heavier notional leans taker
	m := New(coef, testLogger())

	small := m.Predict([FeatureCount]float64{0.1, 0, 0, 0})
	large := m.Predict([FeatureCount]float64{5, 0, 0, 0})
	assert.Greater(t, large.Taker, small.Taker)
	assert.Greater(t, large.Taker, 0.5)
}

func TestPredictDegradesOnBadScale(t *testing.T) {
	coef := identityCoef()
	coef.Scales[2] = 0
	m := New(coef, testLogger())

	p := m.Predict([FeatureCount]float64{1, 1, 1, 1})
	assert.Zero(t, p.Maker)
	assert.Zero(t, p.Taker)
}

func TestPredictDegradesOnNonFiniteFeature(t *testing.T) {
	m := New(identityCoef(), testLogger())

	p := m.Predict([FeatureCount]float64{math.NaN(), 0, 0, 0})
	assert.Zero(t, p.Maker)
	assert.Zero(t, p.Taker)

	p = m.Predict([FeatureCount]float64{0, math.Inf(1), 0, 0})
	assert.Zero(t, p.Maker)
	assert.Zero(t, p.Taker)
}
