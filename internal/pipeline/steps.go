package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvloznov/statement-insights/internal/domain"
	"github.com/dvloznov/statement-insights/internal/insights"
	"github.com/dvloznov/statement-insights/internal/logger"
	"github.com/dvloznov/statement-insights/internal/settings"
)

// PipelineStep represents a single step in the analysis pipeline.
type PipelineStep interface {
	Name() string
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	RunID         string
	StatementType domain.StatementType
	Filename      string
	PDFBytes      []byte

	APIKey      string
	ArchiveURI  string
	Prompt      string
	RawResponse string
	Payload     map[string]interface{}
	Data        domain.StatementData
	Result      domain.AnalysisResult
	Entry       *domain.HistoryEntry

	// Warning is set when the result was produced but could not be saved.
	Warning error
}

var (
	// ErrNoDocument means no file was selected or the upload was empty.
	ErrNoDocument = errors.New("no document selected")

	// ErrNotPDF means the document does not start with the PDF header.
	ErrNotPDF = errors.New("document is not a PDF")

	// ErrDocumentTooLarge means the document exceeds the size limit.
	ErrDocumentTooLarge = errors.New("document is too large")
)

// Step 1: ValidateInputStep checks the statement type and the document.
type ValidateInputStep struct {
	MaxBytes int
}

func (s *ValidateInputStep) Name() string { return "validate_input" }

func (s *ValidateInputStep) Execute(ctx context.Context, state *PipelineState) error {
	if !state.StatementType.Valid() {
		return newError(KindFile, "validate input", fmt.Errorf("%w: %q", domain.ErrUnsupportedStatementType, state.StatementType))
	}
	if len(state.PDFBytes) == 0 {
		return newError(KindFile, "validate input", ErrNoDocument)
	}
	if s.MaxBytes > 0 && len(state.PDFBytes) > s.MaxBytes {
		return newError(KindFile, "validate input", fmt.Errorf("%w: %d bytes, limit %d", ErrDocumentTooLarge, len(state.PDFBytes), s.MaxBytes))
	}
	if !bytes.HasPrefix(state.PDFBytes, pdfMagic) {
		return newError(KindFile, "validate input", ErrNotPDF)
	}
	return nil
}

// Step 2: ResolveCredentialStep loads and checks the API key.
type ResolveCredentialStep struct {
	Credentials CredentialSource
}

func (s *ResolveCredentialStep) Name() string { return "resolve_credential" }

func (s *ResolveCredentialStep) Execute(ctx context.Context, state *PipelineState) error {
	key, err := s.Credentials.APIKey(ctx)
	if err != nil {
		return newError(KindConfiguration, "resolve credential", err)
	}
	if err := settings.ValidateAPIKey(key); err != nil {
		return newError(KindConfiguration, "resolve credential", err)
	}
	state.APIKey = key
	return nil
}

// Step 3: ArchiveDocumentStep copies the PDF to object storage when an archiver is set.
// Archive failures are logged and do not stop the analysis.
type ArchiveDocumentStep struct {
	Archiver DocumentArchiver
}

func (s *ArchiveDocumentStep) Name() string { return "archive_document" }

func (s *ArchiveDocumentStep) Execute(ctx context.Context, state *PipelineState) error {
	if s.Archiver == nil {
		return nil
	}
	uri, err := s.Archiver.Archive(ctx, string(state.StatementType), state.PDFBytes)
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("Failed to archive statement, continuing")
		return nil
	}
	state.ArchiveURI = uri
	logger.FromContext(ctx).Info().Str("archive_uri", uri).Msg("Statement archived")
	return nil
}

// Step 4: BuildPromptStep selects the prompt template.
type BuildPromptStep struct{}

func (s *BuildPromptStep) Name() string { return "build_prompt" }

func (s *BuildPromptStep) Execute(ctx context.Context, state *PipelineState) error {
	prompt, err := BuildPrompt(state.StatementType)
	if err != nil {
		return newError(KindFile, "build prompt", err)
	}
	state.Prompt = prompt
	return nil
}

// Step 5: RequestModelStep sends the document and prompt to the model.
type RequestModelStep struct {
	Analyzer Analyzer
}

func (s *RequestModelStep) Name() string { return "request_model" }

func (s *RequestModelStep) Execute(ctx context.Context, state *PipelineState) error {
	log := logger.FromContext(ctx)
	started := time.Now()

	raw, err := s.Analyzer.Extract(ctx, state.APIKey, state.PDFBytes, state.Prompt)
	if err != nil {
		log.Error().Err(err).Dur("duration", time.Since(started)).Msg("Model request failed")
		return newError(KindRequest, "request model", err)
	}

	log.Info().Dur("duration", time.Since(started)).Int("response_bytes", len(raw)).Msg("Model responded")
	state.RawResponse = raw
	return nil
}

// Step 6: DecodeResponseStep parses the raw response into a JSON object.
type DecodeResponseStep struct{}

func (s *DecodeResponseStep) Name() string { return "decode_response" }

func (s *DecodeResponseStep) Execute(ctx context.Context, state *PipelineState) error {
	payload, err := DecodeModelJSON(state.RawResponse)
	if err != nil {
		return newError(KindParse, "decode response", err)
	}
	state.Payload = payload
	return nil
}

// Step 7: TransformDataStep validates the payload into StatementData.
type TransformDataStep struct{}

func (s *TransformDataStep) Name() string { return "transform_data" }

func (s *TransformDataStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Data = TransformStatementData(ctx, state.Payload, state.StatementType)
	return nil
}

// Step 8: DeriveInsightsStep computes the insight summary.
type DeriveInsightsStep struct{}

func (s *DeriveInsightsStep) Name() string { return "derive_insights" }

func (s *DeriveInsightsStep) Execute(ctx context.Context, state *PipelineState) error {
	state.Result = domain.AnalysisResult{
		StatementType: state.StatementType,
		BillData:      state.Data,
		Insights:      insights.Derive(state.Data, state.StatementType),
	}
	return nil
}

// Step 9: SaveHistoryStep prepends the result to the history.
// A failed write is reported through state.Warning; the result stands.
type SaveHistoryStep struct {
	History HistoryRecorder
	Now     func() time.Time
}

func (s *SaveHistoryStep) Name() string { return "save_history" }

func (s *SaveHistoryStep) Execute(ctx context.Context, state *PipelineState) error {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	entry, err := s.History.Add(ctx, state.Result, now())
	state.Entry = &entry

	if err != nil {
		state.Warning = newError(KindPersistence, "save history", err)
		logger.FromContext(ctx).Warn().Err(err).Str("history_id", entry.ID).Msg("Analysis not saved to history")
		return nil
	}
	logger.FromContext(ctx).Info().Str("history_id", entry.ID).Msg("Analysis saved to history")
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially and stops at the first error.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return newError(KindRequest, step.Name(), err)
		}
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d (%s) failed: %w", i+1, step.Name(), err)
		}
	}
	return nil
}

// Steps returns the step names in execution order.
func (p *Pipeline) Steps() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name()
	}
	return names
}
