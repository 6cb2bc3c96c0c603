package handler

import (
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/costsim/internal/domain"
)

// BookSource exposes the current in-memory order book snapshot.
type BookSource interface {
	Snapshot() domain.OrderbookSnapshot
}

// BookHandler serves the current order book view.
type BookHandler struct {
	book   BookSource
	logger *slog.Logger
}

// NewBookHandler creates a BookHandler.
func NewBookHandler(book BookSource, logger *slog.Logger) *BookHandler {
	return &BookHandler{book: book, logger: logger}
}

// GetBook returns the latest order book snapshot, or 404 before the first
// feed update has arrived.
// GET /api/book
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	snap := h.book.Snapshot()
	if snap.Timestamp.IsZero() {
		writeError(w, http.StatusNotFound, "no order book received yet")
		return
	}
	writeJSON(w, http.StatusOK, snap.Sanitized())
}
