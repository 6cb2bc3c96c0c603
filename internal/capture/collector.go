// Package capture builds labeled maker/taker training examples from live
// trades and ships them to object storage as CSV batches for offline model
// fitting.
package capture

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/costsim/internal/domain"
)

var csvHeader = []string{
	"order_price", "order_side", "order_size_usd",
	"best_bid", "best_ask", "bid_volume", "ask_volume",
	"spread", "imbalance", "label", "price_levels",
}

// Config controls batching and labeling behavior.
type Config struct {
	Instrument      string
	TopLevels       int
	BatchSize       int
	FlushInterval   time.Duration
	PathPrefix      string
	SyntheticMakers bool
}

// Collector consumes book and trade updates and accumulates labeled feature
// rows. Each observed trade is labeled by comparing its price to the touch
// (a buy at or above the best ask is a taker, label 1); when synthetic
// makers are enabled, every real trade also yields one resting-order row
// priced just off the touch so the label classes stay balanced.
type Collector struct {
	cfg    Config
	blob   domain.BlobWriter
	logger *slog.Logger

	mu       sync.Mutex
	bids     []domain.RawLevel
	asks     []domain.RawLevel
	haveBook bool
	rows     [][]string
}

// New creates a Collector writing batches through blob.
func New(cfg Config, blob domain.BlobWriter, logger *slog.Logger) *Collector {
	if cfg.TopLevels <= 0 {
		cfg.TopLevels = 10
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = "capture"
	}
	return &Collector{
		cfg:    cfg,
		blob:   blob,
		logger: logger.With("component", "capture"),
	}
}

// Run flushes buffered rows on the configured interval until ctx is
// cancelled, then performs a final flush.
func (c *Collector) Run(ctx context.Context) error {
	interval := c.cfg.FlushInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Final flush uses a fresh context; the run context is already dead.
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			c.Flush(flushCtx)
			cancel()
			return ctx.Err()
		case <-ticker.C:
			c.Flush(ctx)
		}
	}
}

// HandleBook replaces the tracked book state with the latest raw levels.
func (c *Collector) HandleBook(_ context.Context, bids, asks []domain.RawLevel, _ time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bids = bids
	c.asks = asks
	c.haveBook = true
	return nil
}

// HandleTrade labels the trade against the current book and buffers the
// resulting row(s). Trades arriving before the book is usable are dropped.
func (c *Collector) HandleTrade(ctx context.Context, tick domain.TradeTick) error {
	c.mu.Lock()

	bestBid, bestAsk, bidVol, askVol := c.bookStats()
	if !c.haveBook || bestBid <= 0 || math.IsInf(bestAsk, 1) {
		c.mu.Unlock()
		return nil
	}

	levels := c.topLevelsJSON()

	label := 0
	if tick.Side == domain.SideBuy && tick.Price >= bestAsk {
		label = 1
	}
	if tick.Side == domain.SideSell && tick.Price <= bestBid {
		label = 1
	}
	c.rows = append(c.rows, featureRow(tick.Price, tick.Side, tick.Size, bestBid, bestAsk, bidVol, askVol, label, levels))

	if c.cfg.SyntheticMakers {
		// A resting order never crosses: buys sit 0.2-0.5% below the bid,
		// sells 0.2-0.5% above the ask.
		var price float64
		if tick.Side == domain.SideBuy {
			price = bestBid * (0.995 + 0.003*rand.Float64())
		} else {
			price = bestAsk * (1.002 + 0.003*rand.Float64())
		}
		c.rows = append(c.rows, featureRow(price, tick.Side, tick.Size, bestBid, bestAsk, bidVol, askVol, 0, levels))
	}

	full := len(c.rows) >= c.cfg.BatchSize
	c.mu.Unlock()

	if full {
		c.Flush(ctx)
	}
	return nil
}

// Flush uploads the buffered rows as one CSV object. A failed upload keeps
// the rows buffered for the next attempt.
func (c *Collector) Flush(ctx context.Context) {
	c.mu.Lock()
	if len(c.rows) == 0 {
		c.mu.Unlock()
		return
	}
	rows := c.rows
	c.rows = nil
	c.mu.Unlock()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write(csvHeader)
	_ = w.WriteAll(rows)

	now := time.Now().UTC()
	path := fmt.Sprintf("%s/%s/%s-%s.csv",
		c.cfg.PathPrefix,
		now.Format("2006/01/02"),
		c.cfg.Instrument,
		uuid.NewString(),
	)

	if err := c.blob.Put(ctx, path, &buf, "text/csv"); err != nil {
		c.logger.Error("batch upload failed", "path", path, "rows", len(rows), "error", err)
		c.mu.Lock()
		c.rows = append(rows, c.rows...)
		c.mu.Unlock()
		return
	}
	c.logger.Info("batch uploaded", "path", path, "rows", len(rows))
}

// bookStats derives touch prices and total visible volume from the raw
// levels. Callers must hold mu.
func (c *Collector) bookStats() (bestBid, bestAsk, bidVol, askVol float64) {
	bestAsk = math.Inf(1)
	for _, raw := range c.bids {
		lvl, ok := raw.Parse()
		if !ok || lvl.Size <= 0 {
			continue
		}
		if lvl.Price > bestBid {
			bestBid = lvl.Price
		}
		bidVol += lvl.Size
	}
	for _, raw := range c.asks {
		lvl, ok := raw.Parse()
		if !ok || lvl.Size <= 0 {
			continue
		}
		if lvl.Price < bestAsk {
			bestAsk = lvl.Price
		}
		askVol += lvl.Size
	}
	return bestBid, bestAsk, bidVol, askVol
}

// topLevelsJSON snapshots the top-N raw levels per side as a JSON string.
// Callers must hold mu.
func (c *Collector) topLevelsJSON() string {
	n := c.cfg.TopLevels
	bids := c.bids
	if len(bids) > n {
		bids = bids[:n]
	}
	asks := c.asks
	if len(asks) > n {
		asks = asks[:n]
	}
	data, err := json.Marshal(map[string][]domain.RawLevel{
		"bids": bids,
		"asks": asks,
	})
	if err != nil {
		return "{}"
	}
	return string(data)
}

func featureRow(price float64, side domain.OrderSide, size, bestBid, bestAsk, bidVol, askVol float64, label int, levels string) []string {
	spread := bestAsk - bestBid
	imbalance := (bidVol - askVol) / (bidVol + askVol + 1e-6)
	return []string{
		f(price),
		string(side),
		f(price * size),
		f(bestBid),
		f(bestAsk),
		f(bidVol),
		f(askVol),
		f(spread),
		f(imbalance),
		strconv.Itoa(label),
		levels,
	}
}

func f(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
