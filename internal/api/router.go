// Package api wires the HTTP handlers into a router.
package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-insights/internal/api/handlers"
	"github.com/dvloznov/statement-insights/internal/api/middleware"
	"github.com/dvloznov/statement-insights/internal/jobs"
)

// Dependencies are the services behind the API.
type Dependencies struct {
	Analyses       handlers.AnalysisService
	History        handlers.HistoryStore
	Credentials    handlers.CredentialStore
	JobPublisher   jobs.Publisher
	JobStore       jobs.JobStore
	MaxUploadBytes int64
}

// NewRouter registers every endpoint on a gorilla/mux router.
func NewRouter(deps Dependencies, log zerolog.Logger) *mux.Router {
	analysesHandler := handlers.NewAnalysesHandler(deps.Analyses, deps.MaxUploadBytes, log)
	jobsHandler := handlers.NewJobsHandler(deps.JobPublisher, deps.JobStore, deps.MaxUploadBytes, log)
	historyHandler := handlers.NewHistoryHandler(deps.History, log)
	settingsHandler := handlers.NewSettingsHandler(deps.Credentials, log)

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	api := r.PathPrefix("/api").Subrouter()

	// Analyses endpoints
	api.HandleFunc("/analyses", analysesHandler.CreateAnalysis).Methods(http.MethodPost)

	// Jobs endpoints
	api.HandleFunc("/jobs", jobsHandler.EnqueueAnalysis).Methods(http.MethodPost)
	api.HandleFunc("/jobs", jobsHandler.ListJobs).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}", jobsHandler.GetJob).Methods(http.MethodGet)

	// History endpoints
	api.HandleFunc("/history", historyHandler.ListHistory).Methods(http.MethodGet)
	api.HandleFunc("/history/{id}", historyHandler.GetEntry).Methods(http.MethodGet)
	api.HandleFunc("/history/{id}", historyHandler.DeleteEntry).Methods(http.MethodDelete)
	api.HandleFunc("/trends", historyHandler.GetTrends).Methods(http.MethodGet)

	// Settings endpoints
	api.HandleFunc("/prompts/{type}", settingsHandler.GetPrompt).Methods(http.MethodGet)
	api.HandleFunc("/settings/credential", settingsHandler.GetCredential).Methods(http.MethodGet)
	api.HandleFunc("/settings/credential", settingsHandler.PutCredential).Methods(http.MethodPut)

	// Health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	}).Methods(http.MethodGet)

	return r
}

// NewHandler returns the router wrapped in the middleware chain.
func NewHandler(deps Dependencies, log zerolog.Logger) http.Handler {
	return middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(
					NewRouter(deps, log),
				),
			),
		),
	)
}
