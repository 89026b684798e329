package domain

import "time"

// HistoryEntry is one persisted past analysis.
// Entries are never updated in place; they are only created and deleted.
type HistoryEntry struct {
	// ID is the creation time in Unix milliseconds, as a decimal string.
	ID    string         `json:"id"`
	Date  time.Time      `json:"date"`
	Type  StatementType  `json:"type"`
	Month string         `json:"month"`
	Data  AnalysisResult `json:"data"`
}
