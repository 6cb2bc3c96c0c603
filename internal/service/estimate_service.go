package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/alanyoungcy/costsim/internal/domain"
	"github.com/alanyoungcy/costsim/internal/engine"
)

// EstimateService runs the cost pipeline for API requests and fans the
// result out: persisted to the estimate store, cached, and published on the
// signal bus for WebSocket streaming.
type EstimateService struct {
	pipeline *engine.Pipeline
	store    domain.EstimateStore
	cache    domain.EstimateCache
	bus      domain.SignalBus
	logger   *slog.Logger
}

// NewEstimateService creates an EstimateService. store, cache, and bus may
// each be nil; the corresponding fan-out step is skipped.
func NewEstimateService(
	pipeline *engine.Pipeline,
	store domain.EstimateStore,
	cache domain.EstimateCache,
	bus domain.SignalBus,
	logger *slog.Logger,
) *EstimateService {
	return &EstimateService{
		pipeline: pipeline,
		store:    store,
		cache:    cache,
		bus:      bus,
		logger:   logger.With(slog.String("component", "estimate_service")),
	}
}

// Estimate runs the pipeline and fans out the result. Fan-out failures are
// logged and never fail the request: the caller always receives the
// estimate the pipeline computed.
func (s *EstimateService) Estimate(ctx context.Context, req engine.Request) (domain.CostEstimate, error) {
	est, err := s.pipeline.Estimate(ctx, req)
	if err != nil {
		return domain.CostEstimate{}, err
	}
	est.ID = uuid.NewString()

	if s.store != nil {
		if err := s.store.Insert(ctx, est); err != nil {
			s.logger.WarnContext(ctx, "estimate insert failed",
				slog.String("id", est.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.cache != nil {
		if err := s.cache.SetLatest(ctx, est); err != nil {
			s.logger.WarnContext(ctx, "estimate cache set failed",
				slog.String("error", err.Error()),
			)
		}
		if err := s.cache.PushRecent(ctx, est); err != nil {
			s.logger.WarnContext(ctx, "estimate cache push failed",
				slog.String("error", err.Error()),
			)
		}
	}

	if s.bus != nil {
		evt, _ := json.Marshal(est)
		if err := s.bus.Publish(ctx, "estimates", evt); err != nil {
			s.logger.WarnContext(ctx, "publish estimate event failed",
				slog.String("error", err.Error()),
			)
		}
	}

	return est, nil
}

// Recent returns recently served estimates, preferring the durable store
// and falling back to the cache when no store is wired.
func (s *EstimateService) Recent(ctx context.Context, instrument string, opts domain.ListOpts) ([]domain.CostEstimate, error) {
	if s.store != nil {
		return s.store.ListRecent(ctx, instrument, opts)
	}
	if s.cache != nil {
		return s.cache.ListRecent(ctx, instrument, opts.Limit)
	}
	return nil, domain.ErrNotFound
}
