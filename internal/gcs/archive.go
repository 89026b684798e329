package gcs

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
)

// Archiver copies uploaded statements into a bucket.
type Archiver struct {
	objects ObjectStorage
	bucket  string
	prefix  string
	now     func() time.Time
}

// NewArchiver creates an Archiver writing under prefix in bucket.
func NewArchiver(objects ObjectStorage, bucket, prefix string) *Archiver {
	return &Archiver{objects: objects, bucket: bucket, prefix: prefix, now: time.Now}
}

// Archive stores a PDF as "<prefix>YYYY/MM/<label>-<uuid>.pdf" and returns its gs:// URI.
func (a *Archiver) Archive(ctx context.Context, label string, pdf []byte) (string, error) {
	object := path.Join(a.prefix, a.now().UTC().Format("2006/01"), fmt.Sprintf("%s-%s.pdf", label, uuid.NewString()))
	if err := a.objects.WriteObject(ctx, a.bucket, object, "application/pdf", pdf); err != nil {
		return "", fmt.Errorf("archive statement: %w", err)
	}
	return URI(a.bucket, object), nil
}
