package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrEmptyBook     = errors.New("order book side is empty")
	ErrInvalidSide   = errors.New("order side must be buy or sell")
	ErrInvalidParams = errors.New("invalid solver parameters")
	ErrWSDisconnect  = errors.New("websocket disconnected")
	ErrContextDone   = errors.New("context cancelled")
)
