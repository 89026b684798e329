package gcs

import (
	"context"
	"sync"
)

// MemoryStorage is an in-memory ObjectStorage for tests and local runs.
type MemoryStorage struct {
	mu      sync.Mutex
	objects map[string]memoryObject
}

type memoryObject struct {
	contentType string
	data        []byte
}

// NewMemoryStorage creates an empty MemoryStorage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string]memoryObject)}
}

func (m *MemoryStorage) WriteObject(ctx context.Context, bucket, object, contentType string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[URI(bucket, object)] = memoryObject{contentType: contentType, data: append([]byte(nil), data...)}
	return nil
}

func (m *MemoryStorage) ReadObject(ctx context.Context, bucket, object string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[URI(bucket, object)]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return append([]byte(nil), obj.data...), nil
}

// ContentType returns the content type recorded for an object, or "" if absent.
func (m *MemoryStorage) ContentType(bucket, object string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.objects[URI(bucket, object)].contentType
}

var _ ObjectStorage = (*MemoryStorage)(nil)
