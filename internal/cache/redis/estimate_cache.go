package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/costsim/internal/domain"
)

// recentMaxLen caps the per-instrument recent-estimates list.
const recentMaxLen = 200

// EstimateCache implements domain.EstimateCache.
//
// Key schema:
//
//	estimate:{instrument}:latest - JSON-encoded latest CostEstimate
//	estimate:{instrument}:recent - list of JSON estimates, newest first
type EstimateCache struct {
	rdb *redis.Client
}

// NewEstimateCache creates an EstimateCache backed by the given Client.
func NewEstimateCache(c *Client) *EstimateCache {
	return &EstimateCache{rdb: c.Underlying()}
}

func estimateLatestKey(instrument string) string { return "estimate:" + instrument + ":latest" }
func estimateRecentKey(instrument string) string { return "estimate:" + instrument + ":recent" }

// SetLatest replaces the latest estimate for the instrument.
func (ec *EstimateCache) SetLatest(ctx context.Context, est domain.CostEstimate) error {
	data, err := json.Marshal(est)
	if err != nil {
		return fmt.Errorf("redis: marshal estimate %s: %w", est.ID, err)
	}
	if err := ec.rdb.Set(ctx, estimateLatestKey(est.Instrument), data, 0).Err(); err != nil {
		return fmt.Errorf("redis: set latest estimate %s: %w", est.Instrument, err)
	}
	return nil
}

// GetLatest returns the most recent estimate for the instrument, or
// domain.ErrNotFound.
func (ec *EstimateCache) GetLatest(ctx context.Context, instrument string) (domain.CostEstimate, error) {
	data, err := ec.rdb.Get(ctx, estimateLatestKey(instrument)).Bytes()
	if err == redis.Nil {
		return domain.CostEstimate{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.CostEstimate{}, fmt.Errorf("redis: get latest estimate %s: %w", instrument, err)
	}

	var est domain.CostEstimate
	if err := json.Unmarshal(data, &est); err != nil {
		return domain.CostEstimate{}, fmt.Errorf("redis: decode estimate %s: %w", instrument, err)
	}
	return est, nil
}

// PushRecent prepends the estimate to the instrument's recent list, trimmed
// to recentMaxLen.
func (ec *EstimateCache) PushRecent(ctx context.Context, est domain.CostEstimate) error {
	data, err := json.Marshal(est)
	if err != nil {
		return fmt.Errorf("redis: marshal estimate %s: %w", est.ID, err)
	}
	key := estimateRecentKey(est.Instrument)

	pipe := ec.rdb.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, recentMaxLen-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: push recent estimate %s: %w", est.Instrument, err)
	}
	return nil
}

// ListRecent returns up to limit recent estimates, newest first.
func (ec *EstimateCache) ListRecent(ctx context.Context, instrument string, limit int) ([]domain.CostEstimate, error) {
	if limit <= 0 || limit > recentMaxLen {
		limit = recentMaxLen
	}
	rows, err := ec.rdb.LRange(ctx, estimateRecentKey(instrument), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list recent estimates %s: %w", instrument, err)
	}

	ests := make([]domain.CostEstimate, 0, len(rows))
	for _, row := range rows {
		var est domain.CostEstimate
		if err := json.Unmarshal([]byte(row), &est); err != nil {
			continue
		}
		ests = append(ests, est)
	}
	return ests, nil
}

// Compile-time interface check.
var _ domain.EstimateCache = (*EstimateCache)(nil)
