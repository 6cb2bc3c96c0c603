package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/costsim/internal/book"
	"github.com/alanyoungcy/costsim/internal/classifier"
	"github.com/alanyoungcy/costsim/internal/domain"
	"github.com/alanyoungcy/costsim/internal/engine"
	"github.com/alanyoungcy/costsim/internal/fees"
	"github.com/alanyoungcy/costsim/internal/impact"
	"github.com/alanyoungcy/costsim/internal/service"
	"github.com/alanyoungcy/costsim/internal/slippage"
	"github.com/alanyoungcy/costsim/internal/volatility"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type staleBook struct{ err error }

func (b staleBook) Fresh(time.Duration) error { return b.err }

func TestHealthCheck(t *testing.T) {
	h := NewHealthHandler(staleBook{}, "estimate", time.Now().Add(-time.Minute), testLogger())

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "estimate", body["mode"])
	assert.GreaterOrEqual(t, body["uptime_seconds"].(float64), 60.0)
	assert.NotContains(t, body, "book")
}

func TestHealthCheckDegradedOnStaleBook(t *testing.T) {
	h := NewHealthHandler(staleBook{err: fmt.Errorf("book view stale")}, "full", time.Now(), testLogger())

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code, "degraded feed must not fail the probe")
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "book view stale", body["book"])
}

func TestGetBookBeforeFirstUpdate(t *testing.T) {
	h := NewBookHandler(book.NewView("BTC-USDT"), testLogger())

	rec := httptest.NewRecorder()
	h.GetBook(rec, httptest.NewRequest(http.MethodGet, "/api/book", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetBook(t *testing.T) {
	view := book.NewView("BTC-USDT")
	view.Update(
		[]domain.RawLevel{{"99.5", "2"}},
		[]domain.RawLevel{{"100.0", "1"}},
	)
	h := NewBookHandler(view, testLogger())

	rec := httptest.NewRecorder()
	h.GetBook(rec, httptest.NewRequest(http.MethodGet, "/api/book", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var snap domain.OrderbookSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "BTC-USDT", snap.Instrument)
	assert.Equal(t, 99.5, snap.BestBid)
	assert.Equal(t, 100.0, snap.BestAsk)
}

func newEstimateHandler(t *testing.T) (*EstimateHandler, *book.View) {
	t.Helper()
	logger := testLogger()

	solver, err := impact.New(domain.ImpactParameters{
		Alpha: 1, Beta: 1, Gamma: 0.05, Eta: 0.05, RiskAversion: 0.001,
	}, impact.Config{TimeSteps: 5, TimeStepSize: 0.5, UnitScale: 1, MaxInventory: 200})
	require.NoError(t, err)

	view := book.NewView("BTC-USDT")
	pipe := engine.New(
		view,
		volatility.New(60),
		slippage.New(0.9, logger),
		fees.New(nil, fees.DefaultMinimumFee),
		solver,
		classifier.New(classifier.Coefficients{
			Scales: [classifier.FeatureCount]float64{1, 1, 1, 1},
		}, logger),
		logger,
	)
	svc := service.NewEstimateService(pipe, nil, nil, nil, logger)
	return NewEstimateHandler(svc, "BTC-USDT", logger), view
}

func TestEstimateEndToEnd(t *testing.T) {
	h, view := newEstimateHandler(t)
	view.Update(
		[]domain.RawLevel{{"99.5", "2"}, {"99.0", "3"}},
		[]domain.RawLevel{{"100.0", "2"}, {"100.5", "3"}},
	)

	req := httptest.NewRequest(http.MethodPost, "/api/estimate",
		strings.NewReader(`{"quantity_usd": 150, "side": "buy", "monthly_volume_usd": 0}`))
	rec := httptest.NewRecorder()
	h.Estimate(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var est domain.CostEstimate
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &est))
	assert.NotEmpty(t, est.ID)
	assert.Equal(t, domain.SideBuy, est.Side)
	assert.Equal(t, 100.0, est.OrderPrice)
	assert.InDelta(t, est.Slippage+est.Fee+est.MarketImpact, est.NetCost, 1e-9)
	assert.Empty(t, est.Degraded)
}

func TestEstimateRejectsInvalidInput(t *testing.T) {
	h, _ := newEstimateHandler(t)

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"quantity_usd": `},
		{"zero quantity", `{"quantity_usd": 0, "side": "buy"}`},
		{"bad side", `{"quantity_usd": 100, "side": "hold"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/estimate", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			h.Estimate(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestListRecentWithoutBackingStore(t *testing.T) {
	h, _ := newEstimateHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/estimates/recent?limit=5", nil)
	rec := httptest.NewRecorder()
	h.ListRecent(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Instrument string                `json:"instrument"`
		Estimates  []domain.CostEstimate `json:"estimates"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "BTC-USDT", body.Instrument)
	assert.Empty(t, body.Estimates)
}
