package book

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/costsim/internal/domain"
)

func TestSnapshotEmptyView(t *testing.T) {
	v := NewView("BTC-USDT")

	snap := v.Snapshot()

	assert.Equal(t, "BTC-USDT", snap.Instrument)
	assert.Zero(t, snap.BestBid)
	assert.True(t, math.IsInf(snap.BestAsk, 1))
	assert.False(t, snap.Crossable())
	assert.True(t, snap.Timestamp.IsZero())
}

func TestSnapshotDerivesTouchAndMid(t *testing.T) {
	v := NewView("BTC-USDT")
	v.Update(
		[]domain.RawLevel{{"100.0", "2.0"}, {"99.5", "1.0"}},
		[]domain.RawLevel{{"100.5", "1.5"}, {"101.0", "3.0"}},
	)

	snap := v.Snapshot()

	require.True(t, snap.Crossable())
	assert.Equal(t, 100.0, snap.BestBid)
	assert.Equal(t, 100.5, snap.BestAsk)
	assert.InDelta(t, 100.25, snap.MidPrice, 1e-12)
	assert.InDelta(t, 0.5, snap.Spread, 1e-12)
	assert.False(t, snap.Timestamp.IsZero())
}

func TestSnapshotFiltersMalformedLevels(t *testing.T) {
	v := NewView("BTC-USDT")
	v.Update(
		[]domain.RawLevel{
			{"100.0", "2.0"},
			{"not-a-number", "1.0"}, // non-numeric price
			{"99.0"},                // wrong arity
			{"98.5", "0"},           // zero size
		},
		[]domain.RawLevel{{"100.5", "1.0"}},
	)

	snap := v.Snapshot()

	require.Len(t, snap.Bids, 1)
	assert.Equal(t, 100.0, snap.Bids[0].Price)
	require.Len(t, snap.Asks, 1)
}

func TestSnapshotOneSidedBook(t *testing.T) {
	v := NewView("BTC-USDT")
	v.Update([]domain.RawLevel{{"100.0", "1.0"}}, nil)

	snap := v.Snapshot()

	assert.Equal(t, 100.0, snap.BestBid)
	assert.True(t, math.IsInf(snap.BestAsk, 1))
	assert.False(t, snap.Crossable())
	assert.Zero(t, snap.MidPrice)
	assert.Zero(t, snap.Spread)
}

func TestUpdateReplacesBothSides(t *testing.T) {
	v := NewView("BTC-USDT")
	v.Update([]domain.RawLevel{{"100.0", "1.0"}}, []domain.RawLevel{{"101.0", "1.0"}})
	v.Update([]domain.RawLevel{{"90.0", "1.0"}}, []domain.RawLevel{{"91.0", "1.0"}})

	snap := v.Snapshot()

	assert.Equal(t, 90.0, snap.BestBid)
	assert.Equal(t, 91.0, snap.BestAsk)
}

func TestSanitizedClearsInfiniteAsk(t *testing.T) {
	v := NewView("BTC-USDT")
	v.Update([]domain.RawLevel{{"100.0", "1.0"}}, nil)

	snap := v.Snapshot().Sanitized()

	assert.Zero(t, snap.BestAsk, "sanitized snapshots must be JSON encodable")
}
