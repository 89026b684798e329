package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/dvloznov/statement-insights/internal/domain"
	"github.com/dvloznov/statement-insights/internal/logger"
)

// maxErrorMessageLen truncates error_message values.
const maxErrorMessageLen = 2000

// RunRecorder writes the run ledger. Rows are written with DML rather than
// the streaming inserter so they can be updated right away.
type RunRecorder struct {
	client  *bigquery.Client
	dataset string
	table   string
	now     func() time.Time
}

// NewRunRecorder creates a recorder with its own BigQuery client.
func NewRunRecorder(ctx context.Context, projectID, dataset, table, credentialsFile string) (*RunRecorder, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewRunRecorder: bigquery client: %w", err)
	}
	return &RunRecorder{client: client, dataset: dataset, table: table, now: time.Now}, nil
}

// Close closes the BigQuery client.
func (r *RunRecorder) Close() error {
	return r.client.Close()
}

// EnsureTable creates the runs table if it does not exist.
func (r *RunRecorder) EnsureTable(ctx context.Context) error {
	schema, err := Schema()
	if err != nil {
		return fmt.Errorf("EnsureTable: infer schema: %w", err)
	}

	meta := &bigquery.TableMetadata{
		Schema: schema,
		TimePartitioning: &bigquery.TimePartitioning{
			Type:  bigquery.DayPartitioningType,
			Field: "started_ts",
		},
	}
	err = r.client.Dataset(r.dataset).Table(r.table).Create(ctx, meta)

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict {
		logger.FromContext(ctx).Debug().Str("table", r.tableRef()).Msg("Runs table already exists")
		return nil
	}
	if err != nil {
		return fmt.Errorf("EnsureTable: create %s: %w", r.tableRef(), err)
	}
	logger.FromContext(ctx).Info().Str("table", r.tableRef()).Msg("Runs table created")
	return nil
}

// StartRun inserts a row with status=RUNNING.
func (r *RunRecorder) StartRun(ctx context.Context, run domain.AnalysisRun) error {
	q := r.client.Query(fmt.Sprintf(`
		INSERT %s (
			run_id,
			statement_type,
			started_ts,
			model,
			parser_type,
			parser_version,
			document_bytes,
			status
		)
		VALUES (
			@run_id,
			@statement_type,
			@started_ts,
			@model,
			@parser_type,
			@parser_version,
			@document_bytes,
			@status
		)
	`, r.tableRef()))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "run_id", Value: run.RunID},
		{Name: "statement_type", Value: string(run.StatementType)},
		{Name: "started_ts", Value: run.StartedAt},
		{Name: "model", Value: run.Model},
		{Name: "parser_type", Value: run.ParserType},
		{Name: "parser_version", Value: run.ParserVersion},
		{Name: "document_bytes", Value: int64(run.DocumentBytes)},
		{Name: "status", Value: string(domain.RunStatusRunning)},
	}

	if err := runQuery(ctx, q); err != nil {
		return fmt.Errorf("StartRun: %w", err)
	}
	return nil
}

// MarkRunSucceeded sets status=SUCCESS, finished_ts and the transaction count.
func (r *RunRecorder) MarkRunSucceeded(ctx context.Context, runID string, transactions int) error {
	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    transaction_count = @transaction_count,
		    error_message = ""
		WHERE run_id = @run_id
	`, r.tableRef()))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: string(domain.RunStatusSuccess)},
		{Name: "finished_ts", Value: r.now()},
		{Name: "transaction_count", Value: int64(transactions)},
		{Name: "run_id", Value: runID},
	}

	if err := runQuery(ctx, q); err != nil {
		return fmt.Errorf("MarkRunSucceeded: %w", err)
	}
	return nil
}

// MarkRunFailed sets status=FAILED, finished_ts and error_message. Errors are logged.
func (r *RunRecorder) MarkRunFailed(ctx context.Context, runID string, runErr error) {
	q := r.client.Query(fmt.Sprintf(`
		UPDATE %s
		SET status = @status,
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE run_id = @run_id
	`, r.tableRef()))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: string(domain.RunStatusFailed)},
		{Name: "finished_ts", Value: r.now()},
		{Name: "error_message", Value: truncateError(runErr)},
		{Name: "run_id", Value: runID},
	}

	if err := runQuery(ctx, q); err != nil {
		logger.FromContext(ctx).Error().
			Err(err).
			Str("run_id", runID).
			Msg("MarkRunFailed: update failed")
	}
}

func (r *RunRecorder) tableRef() string {
	return fmt.Sprintf("`%s.%s.%s`", r.client.Project(), r.dataset, r.table)
}

func runQuery(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}

func truncateError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > maxErrorMessageLen {
		msg = msg[:maxErrorMessageLen]
	}
	return msg
}
