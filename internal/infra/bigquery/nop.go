package bigquery

import (
	"context"

	"github.com/dvloznov/statement-insights/internal/domain"
	"github.com/dvloznov/statement-insights/internal/logger"
)

// NopRecorder logs run transitions instead of writing them. It is used when
// no BigQuery project is configured.
type NopRecorder struct{}

func (NopRecorder) StartRun(ctx context.Context, run domain.AnalysisRun) error {
	logger.FromContext(ctx).Debug().Str("run_id", run.RunID).Msg("Run started")
	return nil
}

func (NopRecorder) MarkRunSucceeded(ctx context.Context, runID string, transactions int) error {
	logger.FromContext(ctx).Debug().Str("run_id", runID).Int("transactions", transactions).Msg("Run succeeded")
	return nil
}

func (NopRecorder) MarkRunFailed(ctx context.Context, runID string, runErr error) {
	logger.FromContext(ctx).Debug().Str("run_id", runID).Err(runErr).Msg("Run failed")
}

func (NopRecorder) Close() error { return nil }
