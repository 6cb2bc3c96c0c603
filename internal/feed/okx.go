// Package feed runs the market-data ingestion loop: it owns the OKX
// WebSocket connection, reconnects on disconnect, and pushes immutable feed
// events to the registered sinks. Transport concerns stay here; the core
// only ever consumes complete events.
package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/costsim/internal/domain"
	"github.com/alanyoungcy/costsim/internal/platform/okx"
)

// reconnectDelay is the pause before re-dialing a dropped feed.
const reconnectDelay = 2 * time.Second

// BookSink receives every order book event (both sides from one message).
type BookSink func(ctx context.Context, bids, asks []domain.RawLevel, ts time.Time)

// TradeSink receives every public trade print.
type TradeSink func(ctx context.Context, tick domain.TradeTick)

// OKXFeed subscribes to the configured channels for one instrument and
// invokes the sinks on each message. It reconnects on disconnect until its
// context is cancelled.
type OKXFeed struct {
	wsURL      string
	instrument string
	channels   []string
	onBook     BookSink
	onTrade    TradeSink
	logger     *slog.Logger
	closeOnce  sync.Once
	done       chan struct{}
}

// NewOKXFeed creates a feed for the given instrument and channels. Either
// sink may be nil when the corresponding channel is not subscribed.
func NewOKXFeed(wsURL, instrument string, channels []string, onBook BookSink, onTrade TradeSink, logger *slog.Logger) *OKXFeed {
	return &OKXFeed{
		wsURL:      wsURL,
		instrument: instrument,
		channels:   channels,
		onBook:     onBook,
		onTrade:    onTrade,
		logger:     logger.With(slog.String("component", "okx_feed")),
		done:       make(chan struct{}),
	}
}

// Run connects, subscribes, and blocks until ctx is cancelled or the feed is
// closed. Dropped connections are re-dialed after a short delay.
func (f *OKXFeed) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		default:
		}

		err := f.runConnection(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("okx feed disconnected, reconnecting",
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-f.done:
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}

// runConnection drives a single connection until it drops or the context is
// cancelled.
func (f *OKXFeed) runConnection(ctx context.Context) error {
	client := okx.NewWSClient(f.wsURL)
	defer client.Close()

	if f.onBook != nil {
		client.OnBook(func(bids, asks []domain.RawLevel, ts time.Time) {
			f.onBook(context.Background(), bids, asks, ts)
		})
	}
	if f.onTrade != nil {
		client.OnTrade(func(tick domain.TradeTick) {
			f.onTrade(context.Background(), tick)
		})
	}

	connCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	err := client.Connect(connCtx)
	cancel()
	if err != nil {
		return err
	}

	if err := client.Subscribe(ctx, f.channels, f.instrument); err != nil {
		return err
	}
	f.logger.Info("okx feed subscribed",
		slog.String("instrument", f.instrument),
		slog.Any("channels", f.channels),
	)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.done:
		return nil
	case <-client.Err():
		return domain.ErrWSDisconnect
	}
}

// Close stops the feed.
func (f *OKXFeed) Close() {
	f.closeOnce.Do(func() { close(f.done) })
}
