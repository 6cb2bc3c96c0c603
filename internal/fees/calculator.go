// Package fees computes exchange fees from a tiered maker/taker schedule.
package fees

import (
	"sort"

	"github.com/alanyoungcy/costsim/internal/domain"
)

// Tier maps a 30-day volume threshold to the maker and taker rates that
// apply at or above it.
type Tier struct {
	VolumeUSD float64
	MakerRate float64
	TakerRate float64
}

// DefaultTiers is the OKX-style spot schedule the estimator ships with.
var DefaultTiers = []Tier{
	{VolumeUSD: 0, MakerRate: 0.0010, TakerRate: 0.0015},
	{VolumeUSD: 100_000, MakerRate: 0.0009, TakerRate: 0.0014},
	{VolumeUSD: 500_000, MakerRate: 0.0008, TakerRate: 0.0013},
	{VolumeUSD: 1_000_000, MakerRate: 0.0007, TakerRate: 0.0012},
}

// DefaultMinimumFee is the USD floor applied to every fee estimate.
const DefaultMinimumFee = 0.1

// Calculator is a pure, stateless tiered fee schedule with a minimum fee
// floor.
type Calculator struct {
	tiers      []Tier
	minimumFee float64
}

// New creates a Calculator from the given schedule. Tiers are sorted by
// ascending volume threshold; an empty schedule falls back to DefaultTiers.
func New(tiers []Tier, minimumFee float64) *Calculator {
	if len(tiers) == 0 {
		tiers = DefaultTiers
	}
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].VolumeUSD < sorted[j].VolumeUSD
	})
	return &Calculator{tiers: sorted, minimumFee: minimumFee}
}

// FeeRate returns the rate for the highest tier whose threshold does not
// exceed monthlyVolumeUSD, defaulting to the lowest tier below all
// thresholds. An unrecognized order type gets the taker rate; that is an
// explicit fallback, not a fault.
func (c *Calculator) FeeRate(monthlyVolumeUSD float64, orderType domain.OrderType) float64 {
	tier := c.tiers[0]
	for i := len(c.tiers) - 1; i >= 0; i-- {
		if monthlyVolumeUSD >= c.tiers[i].VolumeUSD {
			tier = c.tiers[i]
			break
		}
	}
	if orderType == domain.OrderTypeMaker {
		return tier.MakerRate
	}
	return tier.TakerRate
}

// Fee returns the estimated USD fee for a trade of quantityUSD, floored at
// the configured minimum.
func (c *Calculator) Fee(quantityUSD, monthlyVolumeUSD float64, orderType domain.OrderType) float64 {
	fee := quantityUSD * c.FeeRate(monthlyVolumeUSD, orderType)
	if fee < c.minimumFee {
		return c.minimumFee
	}
	return fee
}
