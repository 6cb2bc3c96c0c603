package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/costsim/internal/domain"
)

// bookSnapshotTTL bounds how long a mirrored snapshot survives without the
// feed refreshing it, so readers never act on a book from a dead feed.
const bookSnapshotTTL = 30 * time.Second

// BookCache implements domain.BookCache. The feed replaces the whole book
// on every event, so each instrument's snapshot is stored as one JSON value
// with a freshness TTL.
//
// Key schema:
//
//	book:{instrument} - JSON-encoded domain.OrderbookSnapshot
type BookCache struct {
	rdb *redis.Client
}

// NewBookCache creates a BookCache backed by the given Client.
func NewBookCache(c *Client) *BookCache {
	return &BookCache{rdb: c.Underlying()}
}

func bookKey(instrument string) string { return "book:" + instrument }

// SetSnapshot replaces the stored snapshot for the instrument.
func (bc *BookCache) SetSnapshot(ctx context.Context, snap domain.OrderbookSnapshot) error {
	data, err := json.Marshal(snap.Sanitized())
	if err != nil {
		return fmt.Errorf("redis: marshal book snapshot %s: %w", snap.Instrument, err)
	}
	if err := bc.rdb.Set(ctx, bookKey(snap.Instrument), data, bookSnapshotTTL).Err(); err != nil {
		return fmt.Errorf("redis: set book snapshot %s: %w", snap.Instrument, err)
	}
	return nil
}

// GetSnapshot returns the stored snapshot, or domain.ErrNotFound when none
// exists (never stored, or expired).
func (bc *BookCache) GetSnapshot(ctx context.Context, instrument string) (domain.OrderbookSnapshot, error) {
	data, err := bc.rdb.Get(ctx, bookKey(instrument)).Bytes()
	if err == redis.Nil {
		return domain.OrderbookSnapshot{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("redis: get book snapshot %s: %w", instrument, err)
	}

	var snap domain.OrderbookSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.OrderbookSnapshot{}, fmt.Errorf("redis: decode book snapshot %s: %w", instrument, err)
	}
	return snap, nil
}

// Compile-time interface check.
var _ domain.BookCache = (*BookCache)(nil)
