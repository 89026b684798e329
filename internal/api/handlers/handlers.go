// Package handlers implements the HTTP endpoints of the statement insights API.
package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/dvloznov/statement-insights/internal/api/middleware"
	"github.com/dvloznov/statement-insights/internal/domain"
	"github.com/dvloznov/statement-insights/internal/pipeline"
)

// DefaultMaxUploadBytes bounds a request body when no limit is configured.
const DefaultMaxUploadBytes = 20 << 20

// AnalysisService runs a single statement analysis.
type AnalysisService interface {
	Analyze(ctx context.Context, req pipeline.AnalyzeRequest) (*pipeline.Outcome, error)
}

// HistoryStore is the history list as seen by the API.
type HistoryStore interface {
	Entries() []domain.HistoryEntry
	Filter(t domain.StatementType) []domain.HistoryEntry
	Get(id string) (domain.HistoryEntry, error)
	Delete(ctx context.Context, id string) error
}

// CredentialStore reads and replaces the stored API key.
type CredentialStore interface {
	Configured(ctx context.Context) (bool, string)
	Save(ctx context.Context, key string) error
}

// errBadRequest marks request decoding failures.
var errBadRequest = errors.New("bad request")

// analyzeBody is the JSON form of an analysis request.
type analyzeBody struct {
	StatementType  string `json:"statement_type"`
	Filename       string `json:"filename"`
	DocumentBase64 string `json:"document_base64"`
}

// readAnalyzeRequest accepts either a multipart upload (fields "file" and
// "statement_type") or a JSON body with a base64 document.
// A missing document is not an error here; the pipeline reports it.
func readAnalyzeRequest(w http.ResponseWriter, r *http.Request, maxBytes int64) (pipeline.AnalyzeRequest, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	// Leave room for multipart framing and base64 expansion.
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes*2+1<<20)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return readMultipart(r, maxBytes)
	}

	var body analyzeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return pipeline.AnalyzeRequest{}, fmt.Errorf("%w: invalid request body: %v", errBadRequest, err)
	}

	statementType, err := domain.ParseStatementType(body.StatementType)
	if err != nil {
		return pipeline.AnalyzeRequest{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}

	var pdf []byte
	if body.DocumentBase64 != "" {
		pdf, err = base64.StdEncoding.DecodeString(body.DocumentBase64)
		if err != nil {
			return pipeline.AnalyzeRequest{}, fmt.Errorf("%w: document_base64 is not valid base64", errBadRequest)
		}
	}

	return pipeline.AnalyzeRequest{
		StatementType: statementType,
		Filename:      filepath.Base(body.Filename),
		PDF:           pdf,
	}, nil
}

func readMultipart(r *http.Request, maxBytes int64) (pipeline.AnalyzeRequest, error) {
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		return pipeline.AnalyzeRequest{}, fmt.Errorf("%w: invalid multipart form: %v", errBadRequest, err)
	}

	statementType, err := domain.ParseStatementType(r.FormValue("statement_type"))
	if err != nil {
		return pipeline.AnalyzeRequest{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}

	req := pipeline.AnalyzeRequest{StatementType: statementType}

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil
	}
	if err != nil {
		return pipeline.AnalyzeRequest{}, fmt.Errorf("%w: read file: %v", errBadRequest, err)
	}
	defer file.Close()

	req.PDF, err = io.ReadAll(file)
	if err != nil {
		return pipeline.AnalyzeRequest{}, fmt.Errorf("%w: read file: %v", errBadRequest, err)
	}
	req.Filename = filepath.Base(header.Filename)
	return req, nil
}

// StatusForKind maps an analysis failure kind to an HTTP status.
func StatusForKind(kind pipeline.Kind) int {
	switch kind {
	case pipeline.KindConfiguration:
		return http.StatusPreconditionFailed
	case pipeline.KindFile:
		return http.StatusBadRequest
	case pipeline.KindRequest, pipeline.KindParse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeAnalysisError writes a pipeline failure with its kind.
func writeAnalysisError(w http.ResponseWriter, err error) {
	kind := pipeline.KindOf(err)
	status := StatusForKind(kind)
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	middleware.WriteJSON(w, status, map[string]string{
		"error": err.Error(),
		"kind":  string(kind),
	})
}

// queryInt parses an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return n, nil
}
