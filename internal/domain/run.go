package domain

import "time"

// RunStatus is the lifecycle state of one analysis run in the run ledger.
type RunStatus string

const (
	RunStatusRunning RunStatus = "RUNNING"
	RunStatusFailed  RunStatus = "FAILED"
	RunStatusSuccess RunStatus = "SUCCESS"
)

// AnalysisRun describes an analysis as it starts.
type AnalysisRun struct {
	RunID         string
	StatementType StatementType
	Model         string
	ParserType    string
	ParserVersion string
	DocumentBytes int
	ArchiveURI    string
	StartedAt     time.Time
}

// AnalysisCompleted is published after a successful analysis.
type AnalysisCompleted struct {
	RunID            string        `json:"run_id"`
	HistoryID        string        `json:"history_id,omitempty"`
	StatementType    StatementType `json:"statement_type"`
	Month            string        `json:"month"`
	TransactionCount int           `json:"transaction_count"`
	Warning          string        `json:"warning,omitempty"`
	CompletedAt      time.Time     `json:"completed_at"`
}
