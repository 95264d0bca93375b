package client

import "fmt"

// genericSubmitReason is surfaced when the service gives no usable
// error body for a failed submission.
const genericSubmitReason = "submission failed: service unavailable"

// SubmissionError is a transport failure or service-side rejection
// during Submit. It is fatal to the current attempt; the caller must
// resubmit. Reason is always human-readable: the message extracted from
// the service error body when available, a generic transport message
// otherwise.
type SubmissionError struct {
	Reason     string
	StatusCode int
	Err        error
}

func (e *SubmissionError) Error() string {
	return e.Reason
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// FetchError is a failed snapshot fetch: transport failure or unknown
// job id. A single FetchError during polling is transient and is never
// surfaced as job failure.
type FetchError struct {
	JobID      string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch snapshot for job %s: %v", e.JobID, e.Err)
	}
	return fmt.Sprintf("fetch snapshot for job %s: unexpected status %d", e.JobID, e.StatusCode)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
