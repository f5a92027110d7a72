package jobs

import "time"

// Status follows the job lifecycle: created -> running -> completed|failed.
// Terminal jobs are eligible for expiry after the registry TTL.
type Status string

const (
	StatusCreated   Status = "created"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// MatchFailure records one match the job could not ingest after retries.
type MatchFailure struct {
	MatchID string `json:"match_id"`
	Reason  string `json:"reason"`
}

// IngestionJob tracks progress of one event ingestion run. It replaces the
// process-wide mutable progress state of earlier scraper iterations with an
// explicit registry entry.
type IngestionJob struct {
	ID             string         `json:"id"`
	EventID        int            `json:"event_id"`
	Status         Status         `json:"status"`
	TotalMatches   int            `json:"total_matches"`
	ProcessedCount int            `json:"processed_count"`
	MergedRecords  int            `json:"merged_records"`
	SkippedRecords int            `json:"skipped_records"`
	Failures       []MatchFailure `json:"failures,omitempty"`
	Error          string         `json:"error,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     *time.Time     `json:"finished_at,omitempty"`
}
