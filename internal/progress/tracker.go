// Package progress tracks per-job progress snapshots while a split job
// executes. A job's progress exists only while tracked here; nothing is
// kept after Cleanup.
package progress

import (
	"context"

	"github.com/google/uuid"

	"github.com/FaryzK/filesplittingservice/internal/domain"
)

// Update carries the incremental progress of one processing step. Nil
// fields are left unchanged; PageOutcome and Segment append.
type Update struct {
	Message     string
	CurrentPage *int
	TotalPages  *int
	PageOutcome *domain.PageOutcome
	Segment     *domain.IdentifiedSegment
}

// Tracker records and serves progress snapshots. Each job has a single
// writer (the worker holding its idempotency lock); reads are
// concurrent.
type Tracker interface {
	// Create registers a job in the queued state.
	Create(ctx context.Context, id uuid.UUID) error

	// Start marks a job running with an initial message.
	Start(ctx context.Context, id uuid.UUID, message string) error

	// Update applies incremental progress to a running job.
	Update(ctx context.Context, id uuid.UUID, upd Update) error

	// Complete marks a job completed and attaches its result.
	Complete(ctx context.Context, id uuid.UUID, result *domain.SplitResult) error

	// Fail marks a job failed with a human-readable reason.
	Fail(ctx context.Context, id uuid.UUID, reason string) error

	// Get returns the current snapshot for a job, or
	// domain.ErrJobNotFound when the job is not tracked.
	Get(ctx context.Context, id uuid.UUID) (*domain.ProgressSnapshot, error)

	// Cleanup forgets a job.
	Cleanup(ctx context.Context, id uuid.UUID) error
}

// apply mutates a snapshot in place according to upd and recomputes the
// derived percentage. Shared by the tracker implementations.
func apply(snap *domain.ProgressSnapshot, upd Update) {
	if upd.Message != "" {
		snap.Message = upd.Message
	}
	if upd.CurrentPage != nil {
		snap.CurrentPage = *upd.CurrentPage
	}
	if upd.TotalPages != nil {
		snap.TotalPages = *upd.TotalPages
	}
	if upd.PageOutcome != nil {
		snap.ProcessedPages = append(snap.ProcessedPages, *upd.PageOutcome)
	}
	if upd.Segment != nil {
		snap.IdentifiedSegments = append(snap.IdentifiedSegments, *upd.Segment)
	}
	if snap.TotalPages > 0 {
		snap.Percentage = snap.CurrentPage * 100 / snap.TotalPages
	} else {
		snap.Percentage = 0
	}
}

// clone returns a copy safe to hand out while the original keeps
// mutating: the append-only slices are duplicated.
func clone(snap *domain.ProgressSnapshot) *domain.ProgressSnapshot {
	out := *snap
	if len(snap.ProcessedPages) > 0 {
		out.ProcessedPages = append([]domain.PageOutcome(nil), snap.ProcessedPages...)
	}
	if len(snap.IdentifiedSegments) > 0 {
		out.IdentifiedSegments = append([]domain.IdentifiedSegment(nil), snap.IdentifiedSegments...)
	}
	return &out
}
