package domain

import (
	"context"
	"time"
)

// ListOpts carries pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// EstimateStore persists served cost estimates for history queries.
type EstimateStore interface {
	Insert(ctx context.Context, est CostEstimate) error
	ListRecent(ctx context.Context, instrument string, opts ListOpts) ([]CostEstimate, error)
	Count(ctx context.Context, instrument string) (int64, error)
}
