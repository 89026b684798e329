package kvstore

import (
	"context"
	"fmt"

	"github.com/dvloznov/statement-insights/internal/config"
	"github.com/dvloznov/statement-insights/internal/gcs"
)

// Open creates the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StoreConfig, credentialsFile string) (Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendFile:
		return NewFileStore(cfg.FileDir)
	case config.BackendSQLite:
		return NewSQLiteStore(cfg.SQLitePath)
	case config.BackendPostgres:
		return NewPostgresStore(ctx, cfg.PostgresURL)
	case config.BackendGCS:
		client, err := gcs.NewClient(ctx, credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("kvstore: %w", err)
		}
		return NewGCSStore(client, cfg.GCSBucket, cfg.GCSPrefix, client.Close), nil
	default:
		return nil, fmt.Errorf("kvstore: unknown backend %q", cfg.Backend)
	}
}
