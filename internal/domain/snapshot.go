package domain

import "github.com/google/uuid"

// PageOutcome records the match result for a single processed page.
type PageOutcome struct {
	Page            int     `json:"page"`
	Matched         bool    `json:"matched"`
	MatchedDocument string  `json:"matched_document,omitempty"`
	Score           float64 `json:"score,omitempty"`
}

// IdentifiedSegment describes a document segment discovered mid-job,
// before the final result is assembled.
type IdentifiedSegment struct {
	Filename  string `json:"filename"`
	StartPage int    `json:"start_page"`
	EndPage   int    `json:"end_page"`
}

// ProgressSnapshot is an immutable point-in-time report for a job.
// ProcessedPages and IdentifiedSegments are append-only across the life
// of the job. Result is present only when Status is completed; Error is
// present only when Status is failed.
type ProgressSnapshot struct {
	JobID              uuid.UUID           `json:"job_id"`
	Status             Status              `json:"status"`
	Message            string              `json:"message,omitempty"`
	Percentage         int                 `json:"percentage"`
	CurrentPage        int                 `json:"current_page,omitempty"`
	TotalPages         int                 `json:"total_pages,omitempty"`
	ProcessedPages     []PageOutcome       `json:"processed_pages,omitempty"`
	IdentifiedSegments []IdentifiedSegment `json:"identified_segments,omitempty"`
	Result             *SplitResult        `json:"result,omitempty"`
	Error              string              `json:"error,omitempty"`
}

// IsTerminal reports whether this snapshot ends the job.
func (s *ProgressSnapshot) IsTerminal() bool {
	return s.Status.IsTerminal()
}
