package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// uploadTimeout bounds a single object write.
const uploadTimeout = 2 * time.Minute

// Client is the ObjectStorage implementation backed by Google Cloud Storage.
// It holds one storage client for its whole lifetime.
type Client struct {
	client *storage.Client
}

// NewClient creates a storage client. It uses Application Default Credentials
// unless credentialsFile is set.
func NewClient(ctx context.Context, credentialsFile string) (*Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Client{client: client}, nil
}

// WriteObject uploads data to bucket/object.
func (c *Client) WriteObject(ctx context.Context, bucket, object, contentType string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := c.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write gs://%s/%s: %w", bucket, object, err)
	}

	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload gs://%s/%s: %w", bucket, object, err)
	}
	return nil
}

// ReadObject downloads bucket/object.
func (c *Client) ReadObject(ctx context.Context, bucket, object string) ([]byte, error) {
	r, err := c.client.Bucket(bucket).Object(object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader gs://%s/%s: %w", bucket, object, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object gs://%s/%s: %w", bucket, object, err)
	}
	return data, nil
}

// Close closes the underlying storage client.
func (c *Client) Close() error {
	return c.client.Close()
}

var _ ObjectStorage = (*Client)(nil)
