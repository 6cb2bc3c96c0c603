// Package engine composes the book view, volatility, slippage, fee, impact,
// and classifier components into a single per-request cost estimation
// pipeline.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/alanyoungcy/costsim/internal/book"
	"github.com/alanyoungcy/costsim/internal/classifier"
	"github.com/alanyoungcy/costsim/internal/domain"
	"github.com/alanyoungcy/costsim/internal/fees"
	"github.com/alanyoungcy/costsim/internal/impact"
	"github.com/alanyoungcy/costsim/internal/slippage"
	"github.com/alanyoungcy/costsim/internal/volatility"
)

// Request is one cost estimation request.
type Request struct {
	QuantityUSD      float64          `json:"quantity_usd"`
	Side             domain.OrderSide `json:"side"`
	MonthlyVolumeUSD float64          `json:"monthly_volume_usd"`
}

// Validate checks the caller contract. Violations are surfaced as errors
// rather than degraded estimates: they indicate a programming or client
// error that silent recovery would mask.
func (r Request) Validate() error {
	if r.QuantityUSD <= 0 {
		return fmt.Errorf("engine: %w: quantity must be positive, got %v", domain.ErrInvalidParams, r.QuantityUSD)
	}
	if !r.Side.Valid() {
		return fmt.Errorf("engine: %w: %q", domain.ErrInvalidSide, r.Side)
	}
	return nil
}

// Pipeline runs the full cost estimation for each request. Every downstream
// component degrades to a neutral value on bad market data instead of
// aborting, so a valid request always produces a complete CostEstimate; the
// Degraded field names any component that fell back.
type Pipeline struct {
	view   *book.View
	vol    *volatility.Estimator
	slip   *slippage.Estimator
	fees   *fees.Calculator
	solver *impact.Solver
	clf    *classifier.MakerTaker
	logger *slog.Logger
}

// New wires a Pipeline from its components. All dependencies are injected so
// tests can build isolated instances.
func New(
	view *book.View,
	vol *volatility.Estimator,
	slip *slippage.Estimator,
	feeCalc *fees.Calculator,
	solver *impact.Solver,
	clf *classifier.MakerTaker,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		view:   view,
		vol:    vol,
		slip:   slip,
		fees:   feeCalc,
		solver: solver,
		clf:    clf,
		logger: logger.With(slog.String("component", "cost_pipeline")),
	}
}

// Estimate runs the whole pipeline against the current book state and
// returns the composite estimate. It returns an error only for contract
// violations in the request itself.
func (p *Pipeline) Estimate(ctx context.Context, req Request) (domain.CostEstimate, error) {
	start := time.Now()
	if err := req.Validate(); err != nil {
		return domain.CostEstimate{}, err
	}

	snap := p.view.Snapshot()
	est := domain.CostEstimate{
		Instrument:  snap.Instrument,
		Side:        req.Side,
		QuantityUSD: req.QuantityUSD,
		Timestamp:   start,
	}

	// Order price and consumed side: a buy takes the asks, a sell the bids.
	var sideLevels []domain.PriceLevel
	switch req.Side {
	case domain.SideBuy:
		sideLevels = snap.Asks
		if !math.IsInf(snap.BestAsk, 1) {
			est.OrderPrice = snap.BestAsk
		}
	case domain.SideSell:
		sideLevels = snap.Bids
		est.OrderPrice = snap.BestBid
	}
	if !snap.Crossable() {
		est.Degraded = append(est.Degraded, domain.DegradedBook)
	}

	// Volatility: the window only accepts positive mids, so a one-sided or
	// empty book skips the update and reuses nothing (volatility 0 for this
	// estimate).
	stage := time.Now()
	if snap.Crossable() {
		est.Volatility = p.vol.Update(snap.MidPrice)
	} else {
		est.Degraded = append(est.Degraded, domain.DegradedVolatility)
	}
	p.stageDone(ctx, "volatility", stage)

	// Slippage.
	stage = time.Now()
	est.Slippage = p.slip.Estimate(sideLevels, req.QuantityUSD)
	if est.Slippage == 0 {
		est.Degraded = append(est.Degraded, domain.DegradedSlippage)
	}
	p.stageDone(ctx, "slippage", stage)

	// Fees. The hypothetical order is priced at the touch, so the crossing
	// rule classifies it as a taker whenever the book is populated.
	stage = time.Now()
	orderType := domain.ClassifyOrderType(est.OrderPrice, req.Side, snap)
	est.Fee = p.fees.Fee(req.QuantityUSD, req.MonthlyVolumeUSD, orderType)
	p.stageDone(ctx, "fees", stage)

	// Market impact.
	stage = time.Now()
	impactCost, _, err := p.solver.EstimateImpact(req.QuantityUSD, est.OrderPrice, est.Volatility)
	if err != nil {
		p.logger.WarnContext(ctx, "impact solver degraded",
			slog.String("error", err.Error()),
		)
		est.Degraded = append(est.Degraded, domain.DegradedImpact)
	} else {
		est.MarketImpact = impactCost
	}
	p.stageDone(ctx, "impact", stage)

	est.NetCost = est.Slippage + est.Fee + est.MarketImpact

	// Maker/taker probability.
	stage = time.Now()
	sideFlag := 0.0
	if req.Side == domain.SideSell {
		sideFlag = 1.0
	}
	proba := p.clf.Predict([classifier.FeatureCount]float64{
		req.QuantityUSD,
		snap.Spread,
		snap.Imbalance(),
		sideFlag,
	})
	est.MakerProbability = proba.Maker
	est.TakerProbability = proba.Taker
	if proba.Maker == 0 && proba.Taker == 0 {
		est.Degraded = append(est.Degraded, domain.DegradedClassifier)
	}
	p.stageDone(ctx, "classifier", stage)

	est.Latency = float64(time.Since(start).Microseconds()) / 1000.0

	p.logger.DebugContext(ctx, "estimate complete",
		slog.Float64("quantity_usd", req.QuantityUSD),
		slog.String("side", string(req.Side)),
		slog.Float64("net_cost", est.NetCost),
		slog.Float64("latency_ms", est.Latency),
		slog.Any("degraded", est.Degraded),
	)
	return est, nil
}

// stageDone emits a per-stage latency line at debug level.
func (p *Pipeline) stageDone(ctx context.Context, name string, start time.Time) {
	p.logger.DebugContext(ctx, "stage timing",
		slog.String("stage", name),
		slog.Duration("elapsed", time.Since(start)),
	)
}
