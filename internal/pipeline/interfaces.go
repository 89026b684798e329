package pipeline

import (
	"context"
	"time"

	"github.com/dvloznov/statement-insights/internal/domain"
)

// Analyzer provides an interface for model-backed document extraction.
// This interface enables mocking and testing of the model call.
type Analyzer interface {
	// Extract sends the PDF and prompt to the model and returns its raw text response.
	Extract(ctx context.Context, apiKey string, pdf []byte, prompt string) (string, error)
}

// CredentialSource resolves the API key used for the model call.
type CredentialSource interface {
	APIKey(ctx context.Context) (string, error)
}

// HistoryRecorder stores successful analyses.
type HistoryRecorder interface {
	// Add allocates a unique id and stores the entry. The entry is returned
	// even when the write fails.
	Add(ctx context.Context, result domain.AnalysisResult, now time.Time) (domain.HistoryEntry, error)
}

// DocumentArchiver keeps a copy of the uploaded statement.
type DocumentArchiver interface {
	Archive(ctx context.Context, label string, pdf []byte) (string, error)
}

// RunRecorder is the run ledger: one row per analysis with its final status.
type RunRecorder interface {
	StartRun(ctx context.Context, run domain.AnalysisRun) error
	MarkRunSucceeded(ctx context.Context, runID string, transactions int) error
	MarkRunFailed(ctx context.Context, runID string, runErr error)
}

// EventPublisher announces completed analyses.
type EventPublisher interface {
	PublishAnalysisCompleted(ctx context.Context, event domain.AnalysisCompleted) error
}
