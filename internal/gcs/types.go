package gcs

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned by ReadObject when the object does not exist.
var ErrObjectNotFound = errors.New("gcs: object not found")

// ObjectStorage provides an interface for cloud storage operations.
// This interface enables mocking and testing of storage functionality.
type ObjectStorage interface {
	// WriteObject replaces bucket/object with data.
	WriteObject(ctx context.Context, bucket, object, contentType string, data []byte) error

	// ReadObject downloads bucket/object, or returns ErrObjectNotFound.
	ReadObject(ctx context.Context, bucket, object string) ([]byte, error)
}
