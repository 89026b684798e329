package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-insights/internal/api/middleware"
	"github.com/dvloznov/statement-insights/internal/domain"
	"github.com/dvloznov/statement-insights/internal/jobs"
)

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	publisher jobs.Publisher
	store     jobs.JobStore
	maxBytes  int64
	log       zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(publisher jobs.Publisher, store jobs.JobStore, maxBytes int64, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		publisher: publisher,
		store:     store,
		maxBytes:  maxBytes,
		log:       log,
	}
}

// EnqueueAnalysis handles POST /api/jobs
func (h *JobsHandler) EnqueueAnalysis(w http.ResponseWriter, r *http.Request) {
	req, err := readAnalyzeRequest(w, r, h.maxBytes)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	job := &jobs.AnalyzeStatementJob{
		StatementType: req.StatementType,
		Filename:      req.Filename,
		PDF:           req.PDF,
	}

	if err := h.publisher.PublishAnalyzeStatement(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue analysis job")
		status := http.StatusInternalServerError
		if errors.Is(err, jobs.ErrQueueClosed) {
			status = http.StatusServiceUnavailable
		}
		middleware.WriteError(w, status, "Failed to enqueue analysis job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("statement_type", string(job.StatementType)).Msg("Analysis job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	job, err := h.store.GetJob(r.Context(), jobID)
	if errors.Is(err, jobs.ErrJobNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Status: jobs.JobStatus(query.Get("status")),
	}

	if raw := query.Get("type"); raw != "" {
		statementType, err := domain.ParseStatementType(raw)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.StatementType = statementType
	}

	var err error
	if filter.Limit, err = queryInt(r, "limit"); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if filter.Offset, err = queryInt(r, "offset"); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
