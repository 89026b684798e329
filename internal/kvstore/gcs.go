package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/statement-insights/internal/gcs"
)

// GCSStore keeps each value as one object "<prefix><key>.json" in a bucket.
// Object writes are atomic, so a reader sees either the old or the new value.
type GCSStore struct {
	objects gcs.ObjectStorage
	bucket  string
	prefix  string
	closer  func() error
}

// NewGCSStore wraps an ObjectStorage. closer, when non-nil, is called by Close.
func NewGCSStore(objects gcs.ObjectStorage, bucket, prefix string, closer func() error) *GCSStore {
	return &GCSStore{objects: objects, bucket: bucket, prefix: prefix, closer: closer}
}

func (s *GCSStore) objectName(key string) string {
	return s.prefix + key + ".json"
}

func (s *GCSStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	data, err := s.objects.ReadObject(ctx, s.bucket, s.objectName(key))
	if errors.Is(err, gcs.ErrObjectNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kvstore: read %q: %w", key, err)
	}
	return data, nil
}

func (s *GCSStore) Put(ctx context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	if err := s.objects.WriteObject(ctx, s.bucket, s.objectName(key), "application/json", value); err != nil {
		return fmt.Errorf("kvstore: write %q: %w", key, err)
	}
	return nil
}

func (s *GCSStore) Close() error {
	if s.closer != nil {
		return s.closer()
	}
	return nil
}

var _ Store = (*GCSStore)(nil)
