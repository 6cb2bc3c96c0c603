package domain

import "context"

// BookCache stores the latest cleaned order book snapshot per instrument so
// that API readers and other processes can observe it without touching the
// feed-owned in-memory view.
type BookCache interface {
	SetSnapshot(ctx context.Context, snap OrderbookSnapshot) error
	GetSnapshot(ctx context.Context, instrument string) (OrderbookSnapshot, error)
}

// EstimateCache provides fast access to recently served estimates.
type EstimateCache interface {
	SetLatest(ctx context.Context, est CostEstimate) error
	GetLatest(ctx context.Context, instrument string) (CostEstimate, error)
	PushRecent(ctx context.Context, est CostEstimate) error
	ListRecent(ctx context.Context, instrument string, limit int) ([]CostEstimate, error)
}

// SignalBus provides pub/sub fan-out of estimate and book events to the
// WebSocket hub and any other subscribed consumers.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
