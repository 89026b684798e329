package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/statement-insights/internal/domain"
	"github.com/dvloznov/statement-insights/internal/logger"
)

// AnalyzeRequest is one statement to analyze.
type AnalyzeRequest struct {
	StatementType domain.StatementType
	Filename      string
	PDF           []byte
}

// Outcome is the result of a successful analysis.
type Outcome struct {
	RunID      string                `json:"run_id"`
	Result     domain.AnalysisResult `json:"result"`
	HistoryID  string                `json:"history_id,omitempty"`
	ArchiveURI string                `json:"archive_uri,omitempty"`

	// Warning is set when the result could not be saved to history.
	Warning error `json:"-"`
}

// Dependencies are the collaborators of a Service. Archiver, Runs and Events are optional.
type Dependencies struct {
	Analyzer    Analyzer
	Credentials CredentialSource
	History     HistoryRecorder
	Archiver    DocumentArchiver
	Runs        RunRecorder
	Events      EventPublisher
}

// Settings tune a Service. Zero values use the package defaults.
type Settings struct {
	Model            string
	MaxDocumentBytes int
	Timeout          time.Duration
}

// Service runs the statement analysis pipeline.
type Service struct {
	deps     Dependencies
	settings Settings
	pipeline *Pipeline
	now      func() time.Time
}

// NewService creates a Service with the standard nine-step pipeline.
func NewService(deps Dependencies, settings Settings) *Service {
	if settings.Model == "" {
		settings.Model = DefaultModelName
	}
	if settings.MaxDocumentBytes <= 0 {
		settings.MaxDocumentBytes = DefaultMaxDocumentBytes
	}
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	s := &Service{deps: deps, settings: settings, now: time.Now}
	s.pipeline = NewPipeline(
		&ValidateInputStep{MaxBytes: settings.MaxDocumentBytes},
		&ResolveCredentialStep{Credentials: deps.Credentials},
		&ArchiveDocumentStep{Archiver: deps.Archiver},
		&BuildPromptStep{},
		&RequestModelStep{Analyzer: deps.Analyzer},
		&DecodeResponseStep{},
		&TransformDataStep{},
		&DeriveInsightsStep{},
		&SaveHistoryStep{History: deps.History, Now: func() time.Time { return s.now() }},
	)
	return s
}

// Analyze runs one analysis end to end. Nothing is saved to history unless
// every step up to insight derivation succeeds. There are no retries.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (*Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, s.settings.Timeout)
	defer cancel()

	runID := uuid.NewString()
	log := logger.FromContext(ctx).With().
		Str("run_id", runID).
		Str("statement_type", string(req.StatementType)).
		Str("filename", req.Filename).
		Logger()
	ctx = logger.WithContext(ctx, log)

	log.Info().Int("document_bytes", len(req.PDF)).Msg("Starting statement analysis")
	started := s.now()

	s.startRun(ctx, domain.AnalysisRun{
		RunID:         runID,
		StatementType: req.StatementType,
		Model:         s.settings.Model,
		ParserType:    ParserType,
		ParserVersion: ParserVersion,
		DocumentBytes: len(req.PDF),
		StartedAt:     started,
	})

	state := &PipelineState{
		RunID:         runID,
		StatementType: req.StatementType,
		Filename:      req.Filename,
		PDFBytes:      req.PDF,
	}

	if err := s.pipeline.Execute(ctx, state); err != nil {
		log.Error().Err(err).Str("kind", string(KindOf(err))).Msg("Statement analysis failed")
		if s.deps.Runs != nil {
			// The analysis context may already be past its deadline.
			s.deps.Runs.MarkRunFailed(context.WithoutCancel(ctx), runID, err)
		}
		return nil, err
	}

	if s.deps.Runs != nil {
		if err := s.deps.Runs.MarkRunSucceeded(ctx, runID, len(state.Data.Transactions)); err != nil {
			log.Warn().Err(err).Msg("Failed to mark run succeeded")
		}
	}

	outcome := &Outcome{
		RunID:      runID,
		Result:     state.Result,
		ArchiveURI: state.ArchiveURI,
		Warning:    state.Warning,
	}
	if state.Entry != nil && state.Warning == nil {
		outcome.HistoryID = state.Entry.ID
	}

	s.publish(ctx, outcome, state)

	log.Info().
		Dur("duration", s.now().Sub(started)).
		Int("transactions", len(state.Data.Transactions)).
		Str("month", state.Data.Month()).
		Msg("Statement analysis completed")
	return outcome, nil
}

// StepNames returns the pipeline step names in order.
func (s *Service) StepNames() []string {
	return s.pipeline.Steps()
}

func (s *Service) startRun(ctx context.Context, run domain.AnalysisRun) {
	if s.deps.Runs == nil {
		return
	}
	if err := s.deps.Runs.StartRun(ctx, run); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("Failed to record run start")
	}
}

func (s *Service) publish(ctx context.Context, outcome *Outcome, state *PipelineState) {
	if s.deps.Events == nil {
		return
	}
	event := domain.AnalysisCompleted{
		RunID:            outcome.RunID,
		HistoryID:        outcome.HistoryID,
		StatementType:    state.StatementType,
		Month:            state.Data.Month(),
		TransactionCount: len(state.Data.Transactions),
		CompletedAt:      s.now(),
	}
	if outcome.Warning != nil {
		event.Warning = outcome.Warning.Error()
	}
	if err := s.deps.Events.PublishAnalysisCompleted(ctx, event); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("Failed to publish analysis event")
	}
}
