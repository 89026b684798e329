package bigquery

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/statement-insights/internal/domain"
)

func TestSchema(t *testing.T) {
	schema, err := Schema()
	if err != nil {
		t.Fatalf("Schema() error = %v", err)
	}

	types := make(map[string]bigquery.FieldType)
	for _, f := range schema {
		types[f.Name] = f.Type
	}

	want := map[string]bigquery.FieldType{
		"run_id":            bigquery.StringFieldType,
		"statement_type":    bigquery.StringFieldType,
		"started_ts":        bigquery.TimestampFieldType,
		"finished_ts":       bigquery.TimestampFieldType,
		"document_bytes":    bigquery.IntegerFieldType,
		"transaction_count": bigquery.IntegerFieldType,
		"status":            bigquery.StringFieldType,
		"error_message":     bigquery.StringFieldType,
	}
	for name, typ := range want {
		if got, ok := types[name]; !ok || got != typ {
			t.Errorf("field %s = %v (present %v), want %v", name, got, ok, typ)
		}
	}
}

func TestTruncateError(t *testing.T) {
	if got := truncateError(nil); got != "" {
		t.Errorf("truncateError(nil) = %q", got)
	}
	if got := truncateError(errors.New("boom")); got != "boom" {
		t.Errorf("truncateError(boom) = %q", got)
	}
	long := errors.New(strings.Repeat("x", maxErrorMessageLen+50))
	if got := truncateError(long); len(got) != maxErrorMessageLen {
		t.Errorf("truncated length = %d, want %d", len(got), maxErrorMessageLen)
	}
}

func TestNopRecorder(t *testing.T) {
	ctx := context.Background()
	var rec NopRecorder
	if err := rec.StartRun(ctx, domain.AnalysisRun{RunID: "r1"}); err != nil {
		t.Errorf("StartRun() error = %v", err)
	}
	if err := rec.MarkRunSucceeded(ctx, "r1", 3); err != nil {
		t.Errorf("MarkRunSucceeded() error = %v", err)
	}
	rec.MarkRunFailed(ctx, "r1", errors.New("boom"))
}
