// Package book holds the live order book state shared between the exchange
// feed (one writer) and cost estimation requests (many readers).
package book

import (
	"math"
	"sync"
	"time"

	"github.com/alanyoungcy/costsim/internal/domain"
)

// View owns the most recent raw order book levels for a single instrument.
// Update replaces both sides under one critical section, so a reader never
// observes bids from one feed event paired with asks from another. Raw
// levels are kept as delivered; cleaning happens in Snapshot so other
// consumers (the capture collector) still see the unfiltered feed.
type View struct {
	instrument string

	mu        sync.RWMutex
	bids      []domain.RawLevel
	asks      []domain.RawLevel
	updatedAt time.Time
}

// NewView creates an empty View for the given instrument.
func NewView(instrument string) *View {
	return &View{instrument: instrument}
}

// Update atomically replaces both sides of the book with the levels from a
// single feed event.
func (v *View) Update(bids, asks []domain.RawLevel) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.bids = bids
	v.asks = asks
	v.updatedAt = time.Now()
}

// UpdatedAt returns the wall-clock time of the last feed event, or the zero
// time if no event has arrived yet.
func (v *View) UpdatedAt() time.Time {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.updatedAt
}

// Snapshot returns a cleaned copy of the current book: malformed levels are
// silently dropped, zero-size levels are filtered, and best bid/ask, mid
// price and spread are derived. An empty bid side yields BestBid 0; an empty
// ask side yields BestAsk +Inf.
func (v *View) Snapshot() domain.OrderbookSnapshot {
	v.mu.RLock()
	rawBids := v.bids
	rawAsks := v.asks
	ts := v.updatedAt
	v.mu.RUnlock()

	snap := domain.OrderbookSnapshot{
		Instrument: v.instrument,
		Bids:       cleanLevels(rawBids),
		Asks:       cleanLevels(rawAsks),
		BestBid:    0,
		BestAsk:    math.Inf(1),
		Timestamp:  ts,
	}

	if len(snap.Bids) > 0 {
		snap.BestBid = snap.Bids[0].Price
	}
	if len(snap.Asks) > 0 {
		snap.BestAsk = snap.Asks[0].Price
	}
	if snap.Crossable() {
		snap.MidPrice = (snap.BestBid + snap.BestAsk) / 2
		snap.Spread = snap.BestAsk - snap.BestBid
	}
	return snap
}

func cleanLevels(raw []domain.RawLevel) []domain.PriceLevel {
	levels := make([]domain.PriceLevel, 0, len(raw))
	for _, rl := range raw {
		lvl, ok := rl.Parse()
		if !ok || lvl.Size <= 0 {
			continue
		}
		levels = append(levels, lvl)
	}
	return levels
}
