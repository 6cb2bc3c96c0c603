package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/costsim/internal/domain"
	"github.com/alanyoungcy/costsim/internal/engine"
	"github.com/alanyoungcy/costsim/internal/service"
)

// EstimateHandler serves cost estimation requests and estimate history.
type EstimateHandler struct {
	svc        *service.EstimateService
	instrument string
	logger     *slog.Logger
}

// NewEstimateHandler creates an EstimateHandler. instrument is the default
// for history queries that omit the instrument parameter.
func NewEstimateHandler(svc *service.EstimateService, instrument string, logger *slog.Logger) *EstimateHandler {
	return &EstimateHandler{svc: svc, instrument: instrument, logger: logger}
}

// Estimate runs the full cost pipeline for the posted order parameters.
// POST /api/estimate
func (h *EstimateHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	var req engine.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	est, err := h.svc.Estimate(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidParams), errors.Is(err, domain.ErrInvalidSide):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("estimate failed", "error", err)
			writeError(w, http.StatusInternalServerError, "estimation failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, est)
}

// ListRecent returns recently served estimates, newest first.
// GET /api/estimates/recent
func (h *EstimateHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	instrument := r.URL.Query().Get("instrument")
	if instrument == "" {
		instrument = h.instrument
	}

	ests, err := h.svc.Recent(r.Context(), instrument, parseListOpts(r))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]any{
				"instrument": instrument,
				"estimates":  []domain.CostEstimate{},
			})
			return
		}
		h.logger.Error("list recent estimates failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list estimates")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"instrument": instrument,
		"estimates":  ests,
	})
}
