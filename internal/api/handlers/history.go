package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-insights/internal/api/middleware"
	"github.com/dvloznov/statement-insights/internal/domain"
	"github.com/dvloznov/statement-insights/internal/history"
	"github.com/dvloznov/statement-insights/internal/insights"
)

// HistoryHandler handles history and trend endpoints.
type HistoryHandler struct {
	store HistoryStore
	log   zerolog.Logger
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(store HistoryStore, log zerolog.Logger) *HistoryHandler {
	return &HistoryHandler{
		store: store,
		log:   log,
	}
}

// ListHistory handles GET /api/history
func (h *HistoryHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	entries := h.store.Entries()

	if raw := r.URL.Query().Get("type"); raw != "" {
		statementType, err := domain.ParseStatementType(raw)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		entries = h.store.Filter(statementType)
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// GetEntry handles GET /api/history/{id}
func (h *HistoryHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.store.Get(mux.Vars(r)["id"])
	if errors.Is(err, history.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "History entry not found")
		return
	}
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get history entry")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, entry)
}

// DeleteEntry handles DELETE /api/history/{id}. Unknown ids succeed.
func (h *HistoryHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.store.Delete(r.Context(), id); err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("Failed to persist history after delete")
		middleware.WriteError(w, http.StatusInternalServerError, "Entry removed but history could not be saved")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetTrends handles GET /api/trends
func (h *HistoryHandler) GetTrends(w http.ResponseWriter, r *http.Request) {
	trend, err := insights.BuildTrend(h.store.Entries())
	if errors.Is(err, insights.ErrInsufficientData) {
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"insufficient_data": true,
			"required":          insights.MinTrendPoints,
			"available":         trend.Available,
		})
		return
	}
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to build trend")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, trend)
}
