package jobs

import (
	"context"

	"github.com/dvloznov/statement-insights/internal/pipeline"
)

// Analyzer runs a single analysis.
type Analyzer interface {
	Analyze(ctx context.Context, req pipeline.AnalyzeRequest) (*pipeline.Outcome, error)
}

// AnalyzeHandler returns a JobHandler that runs the job through analyzer
// and copies the outcome onto the job.
func AnalyzeHandler(analyzer Analyzer) JobHandler {
	return func(ctx context.Context, job *AnalyzeStatementJob) error {
		outcome, err := analyzer.Analyze(ctx, pipeline.AnalyzeRequest{
			StatementType: job.StatementType,
			Filename:      job.Filename,
			PDF:           job.PDF,
		})
		if err != nil {
			job.ErrorKind = string(pipeline.KindOf(err))
			return err
		}

		result := outcome.Result
		job.Result = &result
		job.RunID = outcome.RunID
		job.HistoryID = outcome.HistoryID
		if outcome.Warning != nil {
			job.Warning = outcome.Warning.Error()
		}
		return nil
	}
}
