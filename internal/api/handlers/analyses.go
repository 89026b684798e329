package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-insights/internal/api/middleware"
	"github.com/dvloznov/statement-insights/internal/pipeline"
)

// AnalysesHandler handles synchronous analysis requests.
type AnalysesHandler struct {
	service  AnalysisService
	maxBytes int64
	log      zerolog.Logger
}

// NewAnalysesHandler creates a new analyses handler.
func NewAnalysesHandler(service AnalysisService, maxBytes int64, log zerolog.Logger) *AnalysesHandler {
	return &AnalysesHandler{
		service:  service,
		maxBytes: maxBytes,
		log:      log,
	}
}

// analysisResponse adds the history warning, if any, to the outcome.
type analysisResponse struct {
	*pipeline.Outcome
	Warning string `json:"warning,omitempty"`
}

// CreateAnalysis handles POST /api/analyses
func (h *AnalysesHandler) CreateAnalysis(w http.ResponseWriter, r *http.Request) {
	req, err := readAnalyzeRequest(w, r, h.maxBytes)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	outcome, err := h.service.Analyze(r.Context(), req)
	if err != nil {
		h.log.Warn().Err(err).Str("kind", string(pipeline.KindOf(err))).Msg("Analysis request failed")
		writeAnalysisError(w, err)
		return
	}

	resp := analysisResponse{Outcome: outcome}
	if outcome.Warning != nil {
		resp.Warning = outcome.Warning.Error()
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}
