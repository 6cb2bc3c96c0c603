// Package service coordinates the core pipeline with caches, stores, and
// the signal bus.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/alanyoungcy/costsim/internal/book"
	"github.com/alanyoungcy/costsim/internal/domain"
)

// BookService applies feed events to the in-memory book view, mirrors the
// cleaned snapshot into the book cache, and publishes book events for
// streaming consumers.
type BookService struct {
	view      *book.View
	bookCache domain.BookCache
	bus       domain.SignalBus
	logger    *slog.Logger
}

// NewBookService creates a BookService. bookCache and bus may be nil when
// the mode runs without Redis (tests, capture-only).
func NewBookService(view *book.View, bookCache domain.BookCache, bus domain.SignalBus, logger *slog.Logger) *BookService {
	return &BookService{
		view:      view,
		bookCache: bookCache,
		bus:       bus,
		logger:    logger.With(slog.String("component", "book_service")),
	}
}

// HandleBookUpdate replaces the live view with the levels from one feed
// event, then mirrors and publishes the cleaned snapshot. Cache and publish
// failures are logged but never block the view update: the in-memory book
// is the source of truth for the estimation path.
func (s *BookService) HandleBookUpdate(ctx context.Context, bids, asks []domain.RawLevel, ts time.Time) error {
	s.view.Update(bids, asks)
	snap := s.view.Snapshot()

	if s.bookCache != nil {
		if err := s.bookCache.SetSnapshot(ctx, snap); err != nil {
			s.logger.WarnContext(ctx, "book cache update failed",
				slog.String("instrument", snap.Instrument),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.bus != nil {
		bestAsk := snap.BestAsk
		if math.IsInf(bestAsk, 1) {
			bestAsk = 0
		}
		evt, _ := json.Marshal(map[string]any{
			"event":      "book_update",
			"instrument": snap.Instrument,
			"best_bid":   snap.BestBid,
			"best_ask":   bestAsk,
			"mid_price":  snap.MidPrice,
			"spread":     snap.Spread,
			"imbalance":  snap.Imbalance(),
			"timestamp":  snap.Timestamp.Format(time.RFC3339Nano),
		})
		if err := s.bus.Publish(ctx, "book", evt); err != nil {
			s.logger.WarnContext(ctx, "publish book event failed",
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// Snapshot returns the current cleaned book state.
func (s *BookService) Snapshot() domain.OrderbookSnapshot {
	return s.view.Snapshot()
}

// Fresh reports whether the view has received a feed event within maxAge.
func (s *BookService) Fresh(maxAge time.Duration) error {
	updated := s.view.UpdatedAt()
	if updated.IsZero() {
		return fmt.Errorf("book_service: no feed data received yet")
	}
	if age := time.Since(updated); age > maxAge {
		return fmt.Errorf("book_service: feed stale for %s", age.Round(time.Millisecond))
	}
	return nil
}
