package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a split job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// IsTerminal returns true if the status represents a final state.
// Once a terminal snapshot has been observed for a job, no further
// snapshots for that job are meaningful.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ParseStatus normalizes a service-reported status string to one of the
// four canonical states. The processing service historically reported
// extra intermediate states ("initializing", "processing"); anything
// unrecognized and non-terminal is folded into running.
func ParseStatus(raw string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(raw))) {
	case StatusQueued:
		return StatusQueued
	case StatusCompleted:
		return StatusCompleted
	case StatusFailed:
		return StatusFailed
	default:
		return StatusRunning
	}
}

// Job represents one submitted split job as persisted by the service.
// The JSON form travels over the work queue, so UploadPath is part of
// it; the HTTP layer never serializes a Job directly.
type Job struct {
	JobID      uuid.UUID    `json:"job_id"`
	Filename   string       `json:"filename"`
	UploadPath string       `json:"upload_path"`
	Status     Status       `json:"status"`
	Error      string       `json:"error,omitempty"`
	Result     *SplitResult `json:"result,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// JobMessage wraps a job received from the queue together with the
// acknowledgement callbacks for the underlying delivery.
type JobMessage struct {
	Job  *Job
	Ack  func() error
	Nack func(requeue bool) error
}

// SubmitResponse is returned after a successful submission.
type SubmitResponse struct {
	JobID  uuid.UUID `json:"job_id"`
	Status string    `json:"status"`
}

// ResultItem is one split document produced by a completed job.
// Page ranges are 1-indexed and inclusive.
type ResultItem struct {
	ID        int    `json:"id"`
	Filename  string `json:"filename"`
	StartPage int    `json:"start_page"`
	EndPage   int    `json:"end_page"`
}

// SplitResult is the payload of a completed job.
type SplitResult struct {
	Items []ResultItem `json:"items"`
}

// TrainedDocument describes one entry in the trained-document listing.
type TrainedDocument struct {
	Filename   string `json:"filename"`
	HasPreview bool   `json:"has_preview"`
}
