package models

import "time"

// JobStatus tracks a job through its forward-only state machine.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusProcessing JobStatus = "processing"
	StatusComplete   JobStatus = "complete"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status is an end state.
func (s JobStatus) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// Job is one asynchronous transcript-analysis request. Jobs live in memory
// only; the messages of a completed job are persisted independently and
// survive restarts, the job record itself does not.
type Job struct {
	ID          string          `json:"id"`
	Status      JobStatus       `json:"status"`
	SubmittedAt time.Time       `json:"submitted_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Result      *AnalysisResult `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
}
