// Package app assembles the analysis service and its stores from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/statement-insights/internal/config"
	"github.com/dvloznov/statement-insights/internal/events"
	"github.com/dvloznov/statement-insights/internal/gcs"
	"github.com/dvloznov/statement-insights/internal/history"
	infraBQ "github.com/dvloznov/statement-insights/internal/infra/bigquery"
	"github.com/dvloznov/statement-insights/internal/kvstore"
	"github.com/dvloznov/statement-insights/internal/logger"
	"github.com/dvloznov/statement-insights/internal/pipeline"
	"github.com/dvloznov/statement-insights/internal/settings"
)

// App holds the wired components. Close releases them.
type App struct {
	Config      *config.Config
	Store       kvstore.Store
	History     *history.Store
	Credentials *settings.Credentials
	Service     *pipeline.Service
	Objects     gcs.ObjectStorage

	closers []func() error
}

// runLedger is a RunRecorder that may need closing.
type runLedger interface {
	pipeline.RunRecorder
	Close() error
}

// eventSink is an EventPublisher that may need closing.
type eventSink interface {
	pipeline.EventPublisher
	Close() error
}

// New opens the configured store, loads the history and builds the service.
// Optional integrations are enabled by their configuration keys.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.FromContext(ctx)
	a := &App{Config: cfg}

	store, err := kvstore.Open(ctx, cfg.Store, cfg.GoogleCredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)
	log.Info().Str("backend", cfg.Store.Backend).Msg("Store opened")

	a.History = history.NewStore(store, cfg.Store.HistoryKey)
	a.History.Load(ctx)
	a.Credentials = settings.NewCredentials(store, cfg.Store.CredentialKey, cfg.GeminiAPIKey)

	deps := pipeline.Dependencies{
		Analyzer:    pipeline.NewGeminiAnalyzer(cfg.GeminiModel, cfg.MaxOutputTokens),
		Credentials: a.Credentials,
		History:     a.History,
	}

	if cfg.Archive.Enabled() {
		archiver, err := a.archiver(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		deps.Archiver = archiver
		log.Info().Str("bucket", cfg.Archive.Bucket).Msg("Statement archiving enabled")
	}

	runs, err := openRunLedger(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	deps.Runs = runs
	a.closers = append(a.closers, runs.Close)

	sink, err := openEventSink(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	deps.Events = sink
	a.closers = append(a.closers, sink.Close)

	a.Service = pipeline.NewService(deps, pipeline.Settings{
		Model:            cfg.GeminiModel,
		MaxDocumentBytes: int(cfg.MaxUploadBytes),
		Timeout:          cfg.AnalysisTimeout,
	})
	return a, nil
}

// ObjectStorage returns the GCS client, creating it on first use.
func (a *App) ObjectStorage(ctx context.Context) (gcs.ObjectStorage, error) {
	if a.Objects != nil {
		return a.Objects, nil
	}
	client, err := gcs.NewClient(ctx, a.Config.GoogleCredentialsFile)
	if err != nil {
		return nil, err
	}
	a.Objects = client
	a.closers = append(a.closers, client.Close)
	return client, nil
}

func (a *App) archiver(ctx context.Context) (*gcs.Archiver, error) {
	objects, err := a.ObjectStorage(ctx)
	if err != nil {
		return nil, fmt.Errorf("statement archive: %w", err)
	}
	return gcs.NewArchiver(objects, a.Config.Archive.Bucket, a.Config.Archive.Prefix), nil
}

func openRunLedger(ctx context.Context, cfg *config.Config) (runLedger, error) {
	if cfg.BigQueryProject == "" {
		return infraBQ.NopRecorder{}, nil
	}
	recorder, err := infraBQ.NewRunRecorder(ctx, cfg.BigQueryProject, cfg.BigQueryDataset, cfg.BigQueryTable, cfg.GoogleCredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("run ledger: %w", err)
	}
	logger.FromContext(ctx).Info().
		Str("project", cfg.BigQueryProject).
		Str("table", cfg.BigQueryDataset+"."+cfg.BigQueryTable).
		Msg("BigQuery run ledger enabled")
	return recorder, nil
}

func openEventSink(ctx context.Context, cfg *config.Config) (eventSink, error) {
	if cfg.AMQPURL == "" {
		return events.NopPublisher{}, nil
	}
	publisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
	if err != nil {
		return nil, fmt.Errorf("event publisher: %w", err)
	}
	logger.FromContext(ctx).Info().Str("exchange", cfg.AMQPExchange).Msg("AMQP events enabled")
	return publisher, nil
}

// Close releases every opened component in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
