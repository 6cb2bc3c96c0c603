// Package domain defines the core types and interfaces shared across the
// cost estimation service: order book state, cost estimates, store and cache
// contracts, and sentinel errors.
package domain

import (
	"math"
	"strconv"
	"time"
)

// RawLevel is a single order book level as delivered by the exchange feed:
// [price, size, ...] with string-encoded decimals. Extra trailing fields
// (order counts etc.) are ignored.
type RawLevel []string

// Parse converts a raw feed level into a PriceLevel. It returns ok=false for
// malformed levels (fewer than two fields or non-numeric values).
func (l RawLevel) Parse() (PriceLevel, bool) {
	if len(l) < 2 {
		return PriceLevel{}, false
	}
	price, err := strconv.ParseFloat(l[0], 64)
	if err != nil {
		return PriceLevel{}, false
	}
	size, err := strconv.ParseFloat(l[1], 64)
	if err != nil {
		return PriceLevel{}, false
	}
	return PriceLevel{Price: price, Size: size}, true
}

// PriceLevel is a single price+size entry in an order book.
type PriceLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// OrderbookSnapshot is a cleaned, point-in-time view of both sides of the
// book for an instrument. Bids are ordered best (highest) first, asks best
// (lowest) first, and zero-size levels have been filtered out.
type OrderbookSnapshot struct {
	Instrument string       `json:"instrument"`
	Bids       []PriceLevel `json:"bids"`
	Asks       []PriceLevel `json:"asks"`
	BestBid    float64      `json:"best_bid"`
	BestAsk    float64      `json:"best_ask"`
	MidPrice   float64      `json:"mid_price"`
	Spread     float64      `json:"spread"`
	Timestamp  time.Time    `json:"timestamp"`
}

// Imbalance returns the normalized bid/ask resting volume skew in [-1, 1].
// The small denominator offset keeps an empty book from dividing by zero.
func (s OrderbookSnapshot) Imbalance() float64 {
	var bidVol, askVol float64
	for _, l := range s.Bids {
		bidVol += l.Size
	}
	for _, l := range s.Asks {
		askVol += l.Size
	}
	return (bidVol - askVol) / (bidVol + askVol + 1e-6)
}

// Crossable reports whether both sides of the book are populated, i.e. the
// snapshot carries a real best bid and best ask rather than sentinels.
func (s OrderbookSnapshot) Crossable() bool {
	return s.BestBid > 0 && !math.IsInf(s.BestAsk, 1) && s.BestAsk > 0
}

// Sanitized returns a copy safe for JSON encoding: the +Inf best-ask
// sentinel of an empty ask side becomes 0. Use at serialization boundaries
// only; the in-memory sentinel stays +Inf.
func (s OrderbookSnapshot) Sanitized() OrderbookSnapshot {
	if math.IsInf(s.BestAsk, 1) {
		s.BestAsk = 0
	}
	return s
}

// OrderSide is the direction of a hypothetical order.
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// Valid reports whether the side is one of the two known values.
func (s OrderSide) Valid() bool {
	return s == SideBuy || s == SideSell
}

// OrderType distinguishes resting (maker) from liquidity-taking (taker)
// executions.
type OrderType string

const (
	OrderTypeMaker OrderType = "maker"
	OrderTypeTaker OrderType = "taker"
)

// ClassifyOrderType applies the price-crossing rule: a buy at or above the
// best ask (or a sell at or below the best bid) takes liquidity; anything
// else rests on the book.
func ClassifyOrderType(orderPrice float64, side OrderSide, snap OrderbookSnapshot) OrderType {
	switch side {
	case SideBuy:
		if orderPrice >= snap.BestAsk {
			return OrderTypeTaker
		}
	case SideSell:
		if orderPrice <= snap.BestBid {
			return OrderTypeTaker
		}
	}
	return OrderTypeMaker
}
