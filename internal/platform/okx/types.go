package okx

import (
	"encoding/json"

	"github.com/alanyoungcy/costsim/internal/domain"
)

// wsRequest is the subscribe/unsubscribe envelope sent to the OKX public
// WebSocket.
type wsRequest struct {
	Op   string      `json:"op"`
	Args []wsChannel `json:"args"`
}

// wsChannel identifies one channel + instrument subscription.
type wsChannel struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

// wsMessage is the common envelope of OKX data and event messages. Data is
// decoded per channel once Arg.Channel is known.
type wsMessage struct {
	Event string          `json:"event,omitempty"`
	Code  string          `json:"code,omitempty"`
	Msg   string          `json:"msg,omitempty"`
	Arg   wsChannel       `json:"arg,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// bookData is one order book record on the books channels. Levels arrive as
// string arrays [price, size, liquidated, orders]; only the first two fields
// are consumed.
type bookData struct {
	Bids []domain.RawLevel `json:"bids"`
	Asks []domain.RawLevel `json:"asks"`
	Ts   string            `json:"ts"`
}

// tradeData is one trade print on the trades channel.
type tradeData struct {
	InstID  string `json:"instId"`
	TradeID string `json:"tradeId"`
	Px      string `json:"px"`
	Sz      string `json:"sz"`
	Side    string `json:"side"`
	Ts      string `json:"ts"`
}
