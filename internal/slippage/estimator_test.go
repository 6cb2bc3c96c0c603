package slippage

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/costsim/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// linearBook builds ask levels whose price rises exactly 1 per 100 USD of
// cumulative liquidity, so any quantile fits the same zero-loss line.
func linearBook() []domain.PriceLevel {
	return []domain.PriceLevel{
		{Price: 100, Size: 1},           // cum = 100
		{Price: 101, Size: 100.0 / 101}, // cum = 200
		{Price: 102, Size: 100.0 / 102}, // cum = 300
	}
}

func TestEstimateLinearBook(t *testing.T) {
	e := New(0.9, testLogger())

	// Exact line: price = 99 + 0.01 * cumUSD.
	got := e.Estimate(linearBook(), 150)
	assert.InDelta(t, 100.5, got, 1e-9)

	got = e.Estimate(linearBook(), 300)
	assert.InDelta(t, 102.0, got, 1e-9)
}

func TestEstimateTracksObservedLevels(t *testing.T) {
	e := New(0.9, testLogger())
	levels := []domain.PriceLevel{
		{Price: 100, Size: 1},
		{Price: 101, Size: 2},
		{Price: 102, Size: 5},
	}

	// Below the first cumulative bucket the prediction stays near the touch.
	got := e.Estimate(levels, 50)
	assert.InDelta(t, 100, got, 1)
}

func TestEstimateDeterministic(t *testing.T) {
	e := New(0.9, testLogger())
	levels := []domain.PriceLevel{
		{Price: 100, Size: 2},
		{Price: 100.5, Size: 1},
		{Price: 101, Size: 5},
		{Price: 103, Size: 0.5},
	}

	first := e.Estimate(levels, 250)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, e.Estimate(levels, 250))
	}
}

func TestEstimateHigherQuantileMoreConservative(t *testing.T) {
	e := New(0.5, testLogger())
	levels := []domain.PriceLevel{
		{Price: 100, Size: 1},
		{Price: 100.2, Size: 2},
		{Price: 101, Size: 1},
		{Price: 104, Size: 3},
	}

	lo := e.EstimateAt(levels, 500, 0.1)
	hi := e.EstimateAt(levels, 500, 0.95)
	require.NotZero(t, lo)
	require.NotZero(t, hi)
	assert.GreaterOrEqual(t, hi, lo)
}

func TestEstimateDegradesOnThinBook(t *testing.T) {
	e := New(0.9, testLogger())

	assert.Zero(t, e.Estimate(nil, 100))
	assert.Zero(t, e.Estimate([]domain.PriceLevel{{Price: 100, Size: 1}}, 100))
	assert.Zero(t, e.Estimate([]domain.PriceLevel{
		{Price: 100, Size: 0},
		{Price: -1, Size: 2},
	}, 100), "unusable levels leave fewer than two points")
}

func TestEstimateAtRejectsBadQuantile(t *testing.T) {
	e := New(0.9, testLogger())

	assert.Zero(t, e.EstimateAt(linearBook(), 100, 0))
	assert.Zero(t, e.EstimateAt(linearBook(), 100, 1))
	assert.Zero(t, e.EstimateAt(linearBook(), 100, -0.5))
}
