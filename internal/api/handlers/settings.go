package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-insights/internal/api/middleware"
	"github.com/dvloznov/statement-insights/internal/domain"
	"github.com/dvloznov/statement-insights/internal/pipeline"
	"github.com/dvloznov/statement-insights/internal/settings"
)

// SettingsHandler handles credential and prompt endpoints.
type SettingsHandler struct {
	credentials CredentialStore
	log         zerolog.Logger
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(credentials CredentialStore, log zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{
		credentials: credentials,
		log:         log,
	}
}

type credentialStatus struct {
	Configured bool   `json:"configured"`
	MaskedKey  string `json:"masked_key,omitempty"`
}

// GetCredential handles GET /api/settings/credential
func (h *SettingsHandler) GetCredential(w http.ResponseWriter, r *http.Request) {
	configured, masked := h.credentials.Configured(r.Context())
	middleware.WriteJSON(w, http.StatusOK, credentialStatus{Configured: configured, MaskedKey: masked})
}

// PutCredential handles PUT /api/settings/credential
func (h *SettingsHandler) PutCredential(w http.ResponseWriter, r *http.Request) {
	var req struct {
		APIKey string `json:"api_key"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.credentials.Save(r.Context(), req.APIKey); err != nil {
		if errors.Is(err, settings.ErrInvalidCredential) {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("Failed to save API key")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save API key")
		return
	}

	configured, masked := h.credentials.Configured(r.Context())
	middleware.WriteJSON(w, http.StatusOK, credentialStatus{Configured: configured, MaskedKey: masked})
}

// GetPrompt handles GET /api/prompts/{type}
func (h *SettingsHandler) GetPrompt(w http.ResponseWriter, r *http.Request) {
	statementType, err := domain.ParseStatementType(mux.Vars(r)["type"])
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	prompt, err := pipeline.BuildPrompt(statementType)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"statement_type": string(statementType),
		"prompt":         prompt,
	})
}
