// Package kvstore persists whole values under string keys.
//
// The application keeps exactly two entries in it (the API credential and the
// serialized history list) and always replaces a value as a whole, so every
// backend only needs Get and Put with last-write-wins semantics.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is a whole-value key-value store.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put replaces the value stored under key.
	Put(ctx context.Context, key string, value []byte) error

	// Close releases resources held by the backend.
	Close() error
}

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateKey rejects keys that cannot be used safely as file or object names.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("kvstore: invalid key %q", key)
	}
	return nil
}
