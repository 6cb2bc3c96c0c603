package capture

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/costsim/internal/domain"
)

type fakeBlob struct {
	mu    sync.Mutex
	err   error
	paths []string
	types []string
	data  []string
}

func (b *fakeBlob) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	body, _ := io.ReadAll(data)
	b.paths = append(b.paths, path)
	b.types = append(b.types, contentType)
	b.data = append(b.data, string(body))
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testBook() (bids, asks []domain.RawLevel) {
	bids = []domain.RawLevel{{"99.5", "2"}, {"99.0", "3"}}
	asks = []domain.RawLevel{{"100.0", "1"}, {"100.5", "4"}}
	return bids, asks
}

func newTestCollector(cfg Config, blob domain.BlobWriter) *Collector {
	if cfg.Instrument == "" {
		cfg.Instrument = "BTC-USDT"
	}
	return New(cfg, blob, testLogger())
}

func TestHandleTradeLabelsTakerAndSyntheticMaker(t *testing.T) {
	blob := &fakeBlob{}
	c := newTestCollector(Config{SyntheticMakers: true}, blob)

	bids, asks := testBook()
	require.NoError(t, c.HandleBook(context.Background(), bids, asks, time.Now()))
	require.NoError(t, c.HandleTrade(context.Background(), domain.TradeTick{
		Instrument: "BTC-USDT",
		Price:      100.0,
		Size:       0.5,
		Side:       domain.SideBuy,
		Timestamp:  time.Now(),
	}))

	c.Flush(context.Background())
	require.Len(t, blob.data, 1)
	assert.Equal(t, "text/csv", blob.types[0])

	records, err := csv.NewReader(strings.NewReader(blob.data[0])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3, "header, real trade, synthetic maker")
	assert.Equal(t, csvHeader, records[0])

	real := records[1]
	assert.Equal(t, "100", real[0])
	assert.Equal(t, "buy", real[1])
	assert.Equal(t, "50", real[2], "notional is price*size")
	assert.Equal(t, "99.5", real[3])
	assert.Equal(t, "100", real[4])
	assert.Equal(t, "1", real[9], "buy at the ask is a taker")
	assert.Contains(t, real[10], `"bids"`)

	synthetic := records[2]
	assert.Equal(t, "buy", synthetic[1])
	assert.Equal(t, "0", synthetic[9])
}

func TestHandleTradeSellLabeling(t *testing.T) {
	blob := &fakeBlob{}
	c := newTestCollector(Config{SyntheticMakers: false}, blob)

	bids, asks := testBook()
	require.NoError(t, c.HandleBook(context.Background(), bids, asks, time.Now()))

	// At the bid: taker. Above the bid: maker.
	require.NoError(t, c.HandleTrade(context.Background(), domain.TradeTick{
		Price: 99.5, Size: 1, Side: domain.SideSell,
	}))
	require.NoError(t, c.HandleTrade(context.Background(), domain.TradeTick{
		Price: 99.8, Size: 1, Side: domain.SideSell,
	}))

	c.Flush(context.Background())
	require.Len(t, blob.data, 1)
	records, err := csv.NewReader(strings.NewReader(blob.data[0])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "1", records[1][9])
	assert.Equal(t, "0", records[2][9])
}

func TestHandleTradeDroppedWithoutBook(t *testing.T) {
	blob := &fakeBlob{}
	c := newTestCollector(Config{}, blob)

	require.NoError(t, c.HandleTrade(context.Background(), domain.TradeTick{
		Price: 100, Size: 1, Side: domain.SideBuy,
	}))
	c.Flush(context.Background())
	assert.Empty(t, blob.data)

	// A one-sided book is just as unusable.
	bids, _ := testBook()
	require.NoError(t, c.HandleBook(context.Background(), bids, nil, time.Now()))
	require.NoError(t, c.HandleTrade(context.Background(), domain.TradeTick{
		Price: 100, Size: 1, Side: domain.SideBuy,
	}))
	c.Flush(context.Background())
	assert.Empty(t, blob.data)
}

func TestBatchSizeTriggersFlush(t *testing.T) {
	blob := &fakeBlob{}
	c := newTestCollector(Config{BatchSize: 2, SyntheticMakers: false}, blob)

	bids, asks := testBook()
	require.NoError(t, c.HandleBook(context.Background(), bids, asks, time.Now()))
	for i := 0; i < 2; i++ {
		require.NoError(t, c.HandleTrade(context.Background(), domain.TradeTick{
			Price: 100, Size: 1, Side: domain.SideBuy,
		}))
	}

	require.Len(t, blob.data, 1, "batch flushed without an explicit Flush call")
	assert.True(t, strings.HasPrefix(blob.paths[0], "capture/"))
	assert.Contains(t, blob.paths[0], "BTC-USDT-")
	assert.True(t, strings.HasSuffix(blob.paths[0], ".csv"))
}

func TestFlushKeepsRowsOnUploadFailure(t *testing.T) {
	blob := &fakeBlob{err: errors.New("bucket unavailable")}
	c := newTestCollector(Config{SyntheticMakers: false}, blob)

	bids, asks := testBook()
	require.NoError(t, c.HandleBook(context.Background(), bids, asks, time.Now()))
	require.NoError(t, c.HandleTrade(context.Background(), domain.TradeTick{
		Price: 100, Size: 1, Side: domain.SideBuy,
	}))

	c.Flush(context.Background())
	assert.Empty(t, blob.data)

	blob.mu.Lock()
	blob.err = nil
	blob.mu.Unlock()

	c.Flush(context.Background())
	require.Len(t, blob.data, 1)
	records, err := csv.NewReader(strings.NewReader(blob.data[0])).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 2, "buffered row survived the failed upload")
}

func TestRunFlushesOnCancel(t *testing.T) {
	blob := &fakeBlob{}
	c := newTestCollector(Config{FlushInterval: time.Hour, SyntheticMakers: false}, blob)

	bids, asks := testBook()
	require.NoError(t, c.HandleBook(context.Background(), bids, asks, time.Now()))
	require.NoError(t, c.HandleTrade(context.Background(), domain.TradeTick{
		Price: 100, Size: 1, Side: domain.SideBuy,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Len(t, blob.data, 1)
}
