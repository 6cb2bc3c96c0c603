package fees

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/costsim/internal/domain"
)

func TestFeeRateTierSelection(t *testing.T) {
	c := New(nil, DefaultMinimumFee)

	assert.InDelta(t, 0.0015, c.FeeRate(0, domain.OrderTypeTaker), 1e-12)
	assert.InDelta(t, 0.0010, c.FeeRate(0, domain.OrderTypeMaker), 1e-12)

	// At the threshold the higher tier applies.
	assert.InDelta(t, 0.0014, c.FeeRate(100_000, domain.OrderTypeTaker), 1e-12)
	assert.InDelta(t, 0.0013, c.FeeRate(600_000, domain.OrderTypeTaker), 1e-12)
	assert.InDelta(t, 0.0007, c.FeeRate(5_000_000, domain.OrderTypeMaker), 1e-12)
}

func TestFeeRateUnknownOrderTypeIsTaker(t *testing.T) {
	c := New(nil, DefaultMinimumFee)
	assert.InDelta(t, 0.0015, c.FeeRate(0, domain.OrderType("limit")), 1e-12)
}

func TestFee(t *testing.T) {
	c := New(nil, DefaultMinimumFee)

	assert.InDelta(t, 1.5, c.Fee(1000, 0, domain.OrderTypeTaker), 1e-12)
	assert.InDelta(t, 1.0, c.Fee(1000, 0, domain.OrderTypeMaker), 1e-12)
	assert.InDelta(t, 1.3, c.Fee(1000, 600_000, domain.OrderTypeTaker), 1e-12)
}

func TestFeeMinimumFloor(t *testing.T) {
	c := New(nil, DefaultMinimumFee)
	assert.InDelta(t, 0.1, c.Fee(10, 0, domain.OrderTypeTaker), 1e-12)
	assert.InDelta(t, 0.1, c.Fee(0, 0, domain.OrderTypeMaker), 1e-12)
}

func TestNewSortsTiers(t *testing.T) {
	c := New([]Tier{
		{VolumeUSD: 1_000, MakerRate: 0.0002, TakerRate: 0.0004},
		{VolumeUSD: 0, MakerRate: 0.0003, TakerRate: 0.0005},
	}, 0)

	assert.InDelta(t, 0.0005, c.FeeRate(500, domain.OrderTypeTaker), 1e-12)
	assert.InDelta(t, 0.0004, c.FeeRate(2_000, domain.OrderTypeTaker), 1e-12)
}
