package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawLevelParse(t *testing.T) {
	lvl, ok := RawLevel{"100.5", "2.25", "0", "4"}.Parse()
	require.True(t, ok, "extra trailing fields are ignored")
	assert.Equal(t, 100.5, lvl.Price)
	assert.Equal(t, 2.25, lvl.Size)

	_, ok = RawLevel{"100.5"}.Parse()
	assert.False(t, ok, "missing size field")

	_, ok = RawLevel{"abc", "1"}.Parse()
	assert.False(t, ok, "non-numeric price")

	_, ok = RawLevel{"100", "x"}.Parse()
	assert.False(t, ok, "non-numeric size")
}

func TestImbalance(t *testing.T) {
	snap := OrderbookSnapshot{
		Bids: []PriceLevel{{Price: 100, Size: 3}},
		Asks: []PriceLevel{{Price: 101, Size: 1}},
	}
	assert.InDelta(t, 0.5, snap.Imbalance(), 1e-5)

	empty := OrderbookSnapshot{}
	assert.Zero(t, empty.Imbalance(), "empty book must not divide by zero")
}

func TestClassifyOrderType(t *testing.T) {
	snap := OrderbookSnapshot{BestBid: 100, BestAsk: 101}

	assert.Equal(t, OrderTypeTaker, ClassifyOrderType(101, SideBuy, snap), "buy at the ask crosses")
	assert.Equal(t, OrderTypeTaker, ClassifyOrderType(102, SideBuy, snap))
	assert.Equal(t, OrderTypeMaker, ClassifyOrderType(100.5, SideBuy, snap), "buy inside the spread rests")

	assert.Equal(t, OrderTypeTaker, ClassifyOrderType(100, SideSell, snap), "sell at the bid crosses")
	assert.Equal(t, OrderTypeTaker, ClassifyOrderType(99, SideSell, snap))
	assert.Equal(t, OrderTypeMaker, ClassifyOrderType(100.5, SideSell, snap))
}

func TestExecutionTrajectoryTotalUnits(t *testing.T) {
	assert.Equal(t, 0, ExecutionTrajectory{}.TotalUnits())
	assert.Equal(t, 60, ExecutionTrajectory{10, 20, 30}.TotalUnits())
}

func TestCrossable(t *testing.T) {
	assert.True(t, OrderbookSnapshot{BestBid: 100, BestAsk: 101}.Crossable())
	assert.False(t, OrderbookSnapshot{BestBid: 0, BestAsk: 101}.Crossable())
	assert.False(t, OrderbookSnapshot{BestBid: 100, BestAsk: math.Inf(1)}.Crossable())
}
