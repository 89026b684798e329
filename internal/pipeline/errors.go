package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies analysis failures so callers can present them.
type Kind string

const (
	KindUnknown       Kind = "unknown"
	KindConfiguration Kind = "configuration" // credential missing or invalid
	KindFile          Kind = "file"          // no usable document was supplied
	KindRequest       Kind = "request"       // the model call failed
	KindParse         Kind = "parse"         // the model response is not usable JSON
	KindPersistence   Kind = "persistence"   // the history could not be written
)

// Error is an analysis failure. Err keeps the underlying message verbatim.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
