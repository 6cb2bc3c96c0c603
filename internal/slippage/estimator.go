// Package slippage predicts the execution price of a notional against one
// side of the order book using quantile regression on cumulative depth.
package slippage

import (
	"log/slog"

	"github.com/alanyoungcy/costsim/internal/domain"
)

// Estimator fits a single-feature quantile regression of price level on
// cumulative USD liquidity and evaluates it at the requested notional. The
// quantile acts as a risk-aversion knob: a higher quantile predicts a more
// conservative (worse) execution price.
type Estimator struct {
	quantile float64
	logger   *slog.Logger
}

// New creates an Estimator for the given quantile in (0, 1).
func New(quantile float64, logger *slog.Logger) *Estimator {
	return &Estimator{
		quantile: quantile,
		logger:   logger.With(slog.String("component", "slippage_estimator")),
	}
}

// Quantile returns the configured regression quantile.
func (e *Estimator) Quantile() float64 { return e.quantile }

// Estimate predicts the execution price for quantityUSD against the given
// best-first side of the book, at the estimator's configured quantile.
//
// With fewer than two usable levels the regression is underdetermined; the
// estimator logs the condition and returns 0 so the pipeline can degrade
// instead of failing the request.
func (e *Estimator) Estimate(levels []domain.PriceLevel, quantityUSD float64) float64 {
	return e.EstimateAt(levels, quantityUSD, e.quantile)
}

// EstimateAt is Estimate with an explicit quantile override.
func (e *Estimator) EstimateAt(levels []domain.PriceLevel, quantityUSD, quantile float64) float64 {
	if quantile <= 0 || quantile >= 1 {
		e.logger.Warn("quantile out of range, degrading to zero",
			slog.Float64("quantile", quantile),
		)
		return 0
	}

	xs, ys := cumulativeLiquidity(levels)
	if len(xs) < 2 {
		e.logger.Warn("insufficient book depth for regression, degrading to zero",
			slog.Int("levels", len(levels)),
			slog.Int("usable", len(xs)),
		)
		return 0
	}

	intercept, slope, ok := fitQuantile(xs, ys, quantile)
	if !ok {
		e.logger.Warn("quantile regression degenerate, degrading to zero",
			slog.Int("points", len(xs)),
		)
		return 0
	}
	return intercept + slope*quantityUSD
}

// cumulativeLiquidity builds the regression inputs: x = running sum of
// price*size (USD resting liquidity consumed through each level), y = level
// price. Levels with non-positive price or size contribute nothing and are
// skipped.
func cumulativeLiquidity(levels []domain.PriceLevel) (xs, ys []float64) {
	xs = make([]float64, 0, len(levels))
	ys = make([]float64, 0, len(levels))
	var cum float64
	for _, lvl := range levels {
		if lvl.Price <= 0 || lvl.Size <= 0 {
			continue
		}
		cum += lvl.Price * lvl.Size
		xs = append(xs, cum)
		ys = append(ys, lvl.Price)
	}
	return xs, ys
}

// fitQuantile solves the unregularized quantile regression
// argmin_{a,b} sum_i pinball(y_i - (a + b*x_i)) exactly. An optimal basic
// solution of the underlying LP interpolates two sample points with distinct
// x, so with the small point counts a book side produces the minimizer is
// found by enumerating candidate lines through every pair. Iteration order
// is fixed, so the fit is deterministic for identical inputs.
func fitQuantile(xs, ys []float64, quantile float64) (intercept, slope float64, ok bool) {
	n := len(xs)
	best := false
	bestLoss := 0.0

	for i := 0; i < n-1; i++ {
		for j := i + 1; j < n; j++ {
			dx := xs[j] - xs[i]
			if dx == 0 {
				continue
			}
			b := (ys[j] - ys[i]) / dx
			a := ys[i] - b*xs[i]

			loss := 0.0
			for k := 0; k < n; k++ {
				loss += pinball(ys[k]-(a+b*xs[k]), quantile)
			}
			if !best || loss < bestLoss {
				best = true
				bestLoss = loss
				intercept, slope = a, b
			}
		}
	}
	return intercept, slope, best
}

// pinball is the quantile (check) loss on a residual.
func pinball(residual, quantile float64) float64 {
	if residual >= 0 {
		return quantile * residual
	}
	return (quantile - 1) * residual
}
