package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// BookFreshness reports whether the book view has seen a recent update.
type BookFreshness interface {
	Fresh(maxAge time.Duration) error
}

// maxBookAge is how stale the book view may be before health degrades.
const maxBookAge = 30 * time.Second

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	book      BookFreshness
	mode      string
	startedAt time.Time
	logger    *slog.Logger
}

// NewHealthHandler creates a HealthHandler. book may be nil when the process
// runs without a live feed.
func NewHealthHandler(book BookFreshness, mode string, startedAt time.Time, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{book: book, mode: mode, startedAt: startedAt, logger: logger}
}

// HealthCheck reports process status and book feed freshness. The response
// is 200 with status "degraded" rather than an error code when the feed is
// stale, so load balancers keep the API reachable.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	var bookErr string
	if h.book != nil {
		if err := h.book.Fresh(maxBookAge); err != nil {
			status = "degraded"
			bookErr = err.Error()
		}
	}

	resp := map[string]any{
		"status":         status,
		"mode":           h.mode,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	}
	if bookErr != "" {
		resp["book"] = bookErr
	}
	writeJSON(w, http.StatusOK, resp)
}
