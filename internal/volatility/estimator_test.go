package volatility

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateSingleSample(t *testing.T) {
	e := New(60)

	vol := e.Update(100.0)

	assert.Zero(t, vol)
	assert.Equal(t, 1, e.Len())
}

func TestUpdateConstantPrices(t *testing.T) {
	e := New(60)

	var vol float64
	for i := 0; i < 10; i++ {
		vol = e.Update(42_000.0)
	}

	assert.Zero(t, vol, "constant mids have zero log returns")
	assert.Equal(t, 10, e.Len())
}

func TestUpdateKnownSequence(t *testing.T) {
	e := New(60)

	e.Update(100.0)
	e.Update(110.0)
	vol := e.Update(100.0)

	// Returns are +ln(1.1) and -ln(1.1): mean 0, population stddev ln(1.1),
	// scaled by sqrt of the return count.
	want := math.Log(1.1) * math.Sqrt(2)
	assert.InDelta(t, want, vol, 1e-12)
}

func TestWindowEviction(t *testing.T) {
	e := New(3)

	for _, mid := range []float64{100, 101, 102, 103, 104} {
		e.Update(mid)
	}

	require.Equal(t, 3, e.Len(), "window must stay at capacity")
}

func TestNonPositiveCapacityFallsBack(t *testing.T) {
	e := New(0)

	for i := 0; i < DefaultWindowSize+5; i++ {
		e.Update(100.0)
	}

	assert.Equal(t, DefaultWindowSize, e.Len())
}
