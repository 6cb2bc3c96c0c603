package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/costsim/internal/book"
	"github.com/alanyoungcy/costsim/internal/classifier"
	"github.com/alanyoungcy/costsim/internal/domain"
	"github.com/alanyoungcy/costsim/internal/fees"
	"github.com/alanyoungcy/costsim/internal/impact"
	"github.com/alanyoungcy/costsim/internal/slippage"
	"github.com/alanyoungcy/costsim/internal/volatility"
)

func newTestPipeline(t *testing.T) (*Pipeline, *book.View) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	solver, err := impact.New(domain.ImpactParameters{
		Alpha: 1, Beta: 1, Gamma: 0.05, Eta: 0.05, RiskAversion: 0.001,
	}, impact.Config{TimeSteps: 5, TimeStepSize: 0.5, UnitScale: 1, MaxInventory: 200})
	require.NoError(t, err)

	clf := classifier.New(classifier.Coefficients{
		Scales: [classifier.FeatureCount]float64{1, 1, 1, 1},
	}, logger)

	view := book.NewView("BTC-USDT")
	pipe := New(
		view,
		volatility.New(60),
		slippage.New(0.9, logger),
		fees.New(nil, fees.DefaultMinimumFee),
		solver,
		clf,
		logger,
	)
	return pipe, view
}

func populatedBook(view *book.View) {
	view.Update(
		[]domain.RawLevel{{"99.5", "2"}, {"99.0", "3"}, {"98.5", "5"}},
		[]domain.RawLevel{{"100.0", "2"}, {"100.5", "3"}, {"101.0", "5"}},
	)
}

func TestEstimateBuyAgainstPopulatedBook(t *testing.T) {
	pipe, view := newTestPipeline(t)
	populatedBook(view)

	est, err := pipe.Estimate(context.Background(), Request{
		QuantityUSD: 150,
		Side:        domain.SideBuy,
	})
	require.NoError(t, err)

	assert.Equal(t, "BTC-USDT", est.Instrument)
	assert.Equal(t, domain.SideBuy, est.Side)
	assert.Equal(t, 100.0, est.OrderPrice, "buy is priced at the best ask")
	assert.Empty(t, est.Degraded)
	assert.Greater(t, est.Slippage, 0.0)
	assert.GreaterOrEqual(t, est.Fee, fees.DefaultMinimumFee)
	assert.Greater(t, est.MarketImpact, 0.0)
	assert.InDelta(t, est.Slippage+est.Fee+est.MarketImpact, est.NetCost, 1e-9)
	assert.InDelta(t, 1.0, est.MakerProbability+est.TakerProbability, 1e-9)
	assert.False(t, est.Timestamp.IsZero())
}

func TestEstimateSellUsesBids(t *testing.T) {
	pipe, view := newTestPipeline(t)
	populatedBook(view)

	est, err := pipe.Estimate(context.Background(), Request{
		QuantityUSD: 150,
		Side:        domain.SideSell,
	})
	require.NoError(t, err)

	assert.Equal(t, 99.5, est.OrderPrice, "sell is priced at the best bid")
	assert.Empty(t, est.Degraded)
}

func TestEstimateEmptyBookDegrades(t *testing.T) {
	pipe, _ := newTestPipeline(t)

	est, err := pipe.Estimate(context.Background(), Request{
		QuantityUSD: 150,
		Side:        domain.SideBuy,
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		domain.DegradedBook,
		domain.DegradedVolatility,
		domain.DegradedSlippage,
	}, est.Degraded)
	assert.Zero(t, est.OrderPrice)
	assert.Zero(t, est.Slippage)
	assert.Zero(t, est.Volatility)
	assert.Zero(t, est.MarketImpact, "no order price, no impact")
	assert.GreaterOrEqual(t, est.Fee, fees.DefaultMinimumFee, "fee floor still applies")
	assert.InDelta(t, est.Fee, est.NetCost, 1e-12)
}

func TestEstimateAccumulatesVolatility(t *testing.T) {
	pipe, view := newTestPipeline(t)

	req := Request{QuantityUSD: 150, Side: domain.SideBuy}

	populatedBook(view)
	first, err := pipe.Estimate(context.Background(), req)
	require.NoError(t, err)
	assert.Zero(t, first.Volatility, "one mid sample has no returns yet")

	view.Update(
		[]domain.RawLevel{{"100.5", "2"}},
		[]domain.RawLevel{{"101.0", "2"}},
	)
	second, err := pipe.Estimate(context.Background(), req)
	require.NoError(t, err)
	assert.Greater(t, second.Volatility, 0.0)
}

func TestEstimateRejectsBadRequests(t *testing.T) {
	pipe, view := newTestPipeline(t)
	populatedBook(view)

	_, err := pipe.Estimate(context.Background(), Request{QuantityUSD: 0, Side: domain.SideBuy})
	assert.ErrorIs(t, err, domain.ErrInvalidParams)

	_, err = pipe.Estimate(context.Background(), Request{QuantityUSD: -5, Side: domain.SideSell})
	assert.ErrorIs(t, err, domain.ErrInvalidParams)

	_, err = pipe.Estimate(context.Background(), Request{QuantityUSD: 100, Side: domain.OrderSide("hold")})
	assert.ErrorIs(t, err, domain.ErrInvalidSide)
}
