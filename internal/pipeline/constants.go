package pipeline

import "time"

// Defaults for the model request and document checks.
// Config overrides them in cmd/api and cmd/cli.
const (
	// DefaultModelName is the default Gemini model used for extraction.
	DefaultModelName = "gemini-2.5-flash"

	// DefaultMaxOutputTokens bounds the model response.
	DefaultMaxOutputTokens int32 = 8192

	// DefaultMaxDocumentBytes is the largest PDF accepted for analysis.
	DefaultMaxDocumentBytes = 20 << 20

	// DefaultTimeout bounds a whole analysis, model call included.
	DefaultTimeout = 5 * time.Minute

	// ParserType and ParserVersion are recorded in the run ledger.
	ParserType    = "GEMINI_DOCUMENT"
	ParserVersion = "v1"

	// PDFMIMEType is sent with the inline document.
	PDFMIMEType = "application/pdf"

	// maxErrorMessageLen truncates error messages stored in the run ledger.
	maxErrorMessageLen = 2000
)

// pdfMagic is the header every PDF file starts with.
var pdfMagic = []byte("%PDF")
