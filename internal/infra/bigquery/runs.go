// Package bigquery records analysis runs in a BigQuery table.
package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
)

// AnalysisRunRow is one row of the analysis runs table.
type AnalysisRunRow struct {
	RunID         string `bigquery:"run_id"`         // REQUIRED
	StatementType string `bigquery:"statement_type"` // REQUIRED

	StartedTS  time.Time              `bigquery:"started_ts"`  // REQUIRED
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"` // NULLABLE

	Model         string `bigquery:"model"`          // NULLABLE
	ParserType    string `bigquery:"parser_type"`    // NULLABLE
	ParserVersion string `bigquery:"parser_version"` // NULLABLE

	DocumentBytes    int64              `bigquery:"document_bytes"`    // NULLABLE
	TransactionCount bigquery.NullInt64 `bigquery:"transaction_count"` // NULLABLE

	Status       string `bigquery:"status"`        // NULLABLE
	ErrorMessage string `bigquery:"error_message"` // NULLABLE
}

// Schema returns the table schema inferred from AnalysisRunRow.
func Schema() (bigquery.Schema, error) {
	return bigquery.InferSchema(AnalysisRunRow{})
}
