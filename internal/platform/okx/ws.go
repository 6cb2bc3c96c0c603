// Package okx is a WebSocket client for the OKX public market-data feed. It
// manages the connection lifecycle and subscriptions and dispatches order
// book and trade messages to registered handlers.
package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/costsim/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// readWait is the time allowed between messages before the connection
	// is considered dead. OKX sends nothing on idle channels, so the client
	// pings within this window.
	readWait = 30 * time.Second

	// pingPeriod sends application-level pings at this interval. OKX uses a
	// literal "ping"/"pong" text exchange rather than WebSocket control
	// frames. Must be less than readWait.
	pingPeriod = 20 * time.Second
)

// BookHandler is called for every order book message. Both sides come from
// the same feed event; the book channel contract is a full-depth replace.
type BookHandler func(bids, asks []domain.RawLevel, ts time.Time)

// TradeHandler is called for every public trade print.
type TradeHandler func(tick domain.TradeTick)

// WSClient is a WebSocket client for one OKX public endpoint.
type WSClient struct {
	wsURL string
	conn  *websocket.Conn

	mu     sync.Mutex
	closed bool

	bookHandlers  []BookHandler
	tradeHandlers []TradeHandler
	handlerMu     sync.RWMutex

	// done is closed when the client is shut down.
	done chan struct{}
}

// NewWSClient creates a new client for the given public WebSocket URL, e.g.
// "wss://ws.okx.com:8443/ws/v5/public".
func NewWSClient(wsURL string) *WSClient {
	return &WSClient{
		wsURL: wsURL,
		done:  make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection and starts the read and ping
// loops. The client does not reconnect itself; the feed layer owns retry
// policy.
func (w *WSClient) Connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("okx/ws: %w", domain.ErrWSDisconnect)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("okx/ws: connect: %w", err)
	}

	w.conn = conn
	w.conn.SetReadDeadline(time.Now().Add(readWait))

	go w.readLoop()
	go w.pingLoop()

	return nil
}

// Subscribe subscribes to the given channels for one instrument.
func (w *WSClient) Subscribe(ctx context.Context, channels []string, instID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn == nil {
		return fmt.Errorf("okx/ws: not connected")
	}

	req := wsRequest{Op: "subscribe"}
	for _, ch := range channels {
		req.Args = append(req.Args, wsChannel{Channel: ch, InstID: instID})
	}
	if err := w.send(req); err != nil {
		return fmt.Errorf("okx/ws: subscribe %v: %w", channels, err)
	}
	return nil
}

// OnBook registers a handler called for every book message.
func (w *WSClient) OnBook(handler BookHandler) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.bookHandlers = append(w.bookHandlers, handler)
}

// OnTrade registers a handler called for every trade print.
func (w *WSClient) OnTrade(handler TradeHandler) {
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.tradeHandlers = append(w.tradeHandlers, handler)
}

// Err returns a channel that is closed when the read loop exits, i.e. the
// connection is gone.
func (w *WSClient) Err() <-chan struct{} {
	return w.done
}

// Close shuts down the connection and stops the loops. Safe to call more
// than once.
func (w *WSClient) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.conn != nil {
		_ = w.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return w.conn.Close()
	}
	return nil
}

// send writes a JSON message. Caller must hold w.mu.
func (w *WSClient) send(v any) error {
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop reads messages until the connection drops, dispatching them to
// handlers. It closes done on exit so the feed layer can reconnect.
func (w *WSClient) readLoop() {
	defer func() {
		w.mu.Lock()
		if !w.closed {
			w.closed = true
			close(w.done)
		}
		if w.conn != nil {
			_ = w.conn.Close()
		}
		w.mu.Unlock()
	}()

	for {
		_, message, err := w.conn.ReadMessage()
		if err != nil {
			return
		}
		w.conn.SetReadDeadline(time.Now().Add(readWait))

		if string(message) == "pong" {
			continue
		}
		w.handleMessage(message)
	}
}

// pingLoop sends periodic "ping" text messages to keep the feed alive.
func (w *WSClient) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.mu.Lock()
			if w.conn == nil || w.closed {
				w.mu.Unlock()
				return
			}
			w.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := w.conn.WriteMessage(websocket.TextMessage, []byte("ping"))
			w.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// handleMessage decodes one envelope and dispatches by channel. Malformed
// messages are dropped; the feed must never crash on bad market data.
func (w *WSClient) handleMessage(message []byte) {
	var msg wsMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}
	if msg.Event != "" || len(msg.Data) == 0 {
		// Subscription acks and error events carry no data.
		return
	}

	switch msg.Arg.Channel {
	case "trades":
		var trades []tradeData
		if err := json.Unmarshal(msg.Data, &trades); err != nil {
			return
		}
		w.dispatchTrades(trades)
	default:
		// books, books5, bbo-tbt all share the book record shape.
		var books []bookData
		if err := json.Unmarshal(msg.Data, &books); err != nil {
			return
		}
		w.dispatchBooks(books)
	}
}

func (w *WSClient) dispatchBooks(books []bookData) {
	w.handlerMu.RLock()
	handlers := w.bookHandlers
	w.handlerMu.RUnlock()

	for _, b := range books {
		ts := parseMillis(b.Ts)
		for _, h := range handlers {
			h(b.Bids, b.Asks, ts)
		}
	}
}

func (w *WSClient) dispatchTrades(trades []tradeData) {
	w.handlerMu.RLock()
	handlers := w.tradeHandlers
	w.handlerMu.RUnlock()

	for _, t := range trades {
		price, err := strconv.ParseFloat(t.Px, 64)
		if err != nil {
			continue
		}
		size, err := strconv.ParseFloat(t.Sz, 64)
		if err != nil {
			continue
		}
		side := domain.SideBuy
		if t.Side == "sell" {
			side = domain.SideSell
		}
		tick := domain.TradeTick{
			Instrument: t.InstID,
			Price:      price,
			Size:       size,
			Side:       side,
			Timestamp:  parseMillis(t.Ts),
		}
		for _, h := range handlers {
			h(tick)
		}
	}
}

// parseMillis converts an OKX millisecond timestamp string, falling back to
// now for missing or malformed values.
func parseMillis(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms <= 0 {
		return time.Now()
	}
	return time.UnixMilli(ms)
}
