// Package lifecycle implements the job lifecycle controller: it turns a
// one-shot submit into an observable, cancellable sequence of progress
// updates and reconciles them into a single UI-consumable view.
package lifecycle

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FaryzK/filesplittingservice/internal/client"
	"github.com/FaryzK/filesplittingservice/internal/domain"
	"github.com/FaryzK/filesplittingservice/internal/poller"
)

// State is the controller's position in the job lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StatePolling    State = "polling"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// ErrSuperseded is returned from Submit when a newer submission or
// reset displaced the attempt while its submit call was in flight.
var ErrSuperseded = errors.New("submission superseded")

const genericFailureReason = "processing failed"

// Service is what the controller needs from the job client.
type Service interface {
	Submit(ctx context.Context, payload client.UploadPayload) (client.JobHandle, error)
	Snapshot(ctx context.Context, id uuid.UUID) (*domain.ProgressSnapshot, error)
}

// View is an immutable copy of the controller's displayable state.
// Slices are append-only on the controller side and must be treated as
// read-only by callers.
type View struct {
	State              State
	JobID              uuid.UUID
	Message            string
	Percentage         int
	CurrentPage        int
	TotalPages         int
	ProcessedPages     []domain.PageOutcome
	IdentifiedSegments []domain.IdentifiedSegment
	Result             *domain.SplitResult
	FailureReason      string
}

// Options configures a Controller.
type Options struct {
	// Poll configures the progress poller started for each job.
	Poll poller.Options

	// OnChange, when set, is invoked with a fresh View after every
	// state change. It is called from the controller's own goroutines
	// and must not call back into the controller synchronously.
	OnChange func(View)
}

// Controller drives one job at a time through
// Idle → Submitting → Polling → {Completed | Failed}. It owns the
// active poller exclusively: at most one poller is live per controller
// instance, and every exit path (terminal snapshot, reset, new
// submission, Abandon) releases it.
type Controller struct {
	svc    Service
	logger *zap.Logger
	opts   Options

	mu     sync.Mutex
	gen    uint64
	state  State
	view   View
	active *poller.Poller
}

// New creates a Controller in the Idle state.
func New(svc Service, logger *zap.Logger, opts Options) *Controller {
	return &Controller{
		svc:    svc,
		logger: logger,
		opts:   opts,
		state:  StateIdle,
		view:   View{State: StateIdle},
	}
}

// Submit starts a fresh cycle for the given payload. Any previous
// result, error and progress display is cleared and any still-active
// poller is stopped before the submit call is issued. On submission
// failure the controller lands in Failed with a human-readable reason
// and the error is also returned.
func (c *Controller) Submit(ctx context.Context, payload client.UploadPayload) error {
	c.mu.Lock()
	old := c.detachLocked()
	gen := c.gen
	c.state = StateSubmitting
	c.view = View{State: StateSubmitting}
	c.mu.Unlock()

	if old != nil {
		old.Stop()
	}
	c.emit()

	handle, err := c.svc.Submit(ctx, payload)

	c.mu.Lock()
	if c.gen != gen {
		// A newer Submit or Reset won the race; this attempt's outcome
		// must not touch state.
		c.mu.Unlock()
		return ErrSuperseded
	}

	if err != nil {
		c.state = StateFailed
		c.view.State = StateFailed
		c.view.FailureReason = submissionReason(err)
		c.mu.Unlock()

		c.logger.Warn("Submission failed", zap.Error(err))
		c.emit()
		return err
	}

	c.state = StatePolling
	c.view.State = StatePolling
	c.view.JobID = handle.ID
	c.active = poller.Start(
		c.svc,
		handle.ID,
		c.snapshotHandler(gen),
		c.terminalHandler(gen),
		c.logger,
		c.opts.Poll,
	)
	c.mu.Unlock()

	c.logger.Info("Polling started", zap.String("job_id", handle.ID.String()))
	c.emit()
	return nil
}

// Reset returns the controller to Idle, stopping any active poller and
// clearing all displayed state.
func (c *Controller) Reset() {
	c.mu.Lock()
	old := c.detachLocked()
	c.state = StateIdle
	c.view = View{State: StateIdle}
	c.mu.Unlock()

	if old != nil {
		old.Stop()
	}
	c.emit()
}

// Abandon releases the controller's resources without surfacing a
// state transition. Call it when the consumer is torn down mid-job; it
// guarantees the active poller is stopped and that late-arriving
// snapshots are discarded.
func (c *Controller) Abandon() {
	c.mu.Lock()
	old := c.detachLocked()
	c.mu.Unlock()

	if old != nil {
		old.Stop()
	}
}

// View returns a copy of the current displayable state.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// detachLocked bumps the generation so in-flight work for the previous
// cycle is discarded, and hands back the previous poller for the caller
// to stop outside the lock. Callers must hold c.mu.
func (c *Controller) detachLocked() *poller.Poller {
	c.gen++
	old := c.active
	c.active = nil
	return old
}

func (c *Controller) snapshotHandler(gen uint64) func(*domain.ProgressSnapshot) {
	return func(snap *domain.ProgressSnapshot) {
		c.mu.Lock()
		if c.gen != gen || c.state != StatePolling {
			c.mu.Unlock()
			return
		}
		c.view.Message = snap.Message
		c.view.Percentage = snap.Percentage
		c.view.CurrentPage = snap.CurrentPage
		c.view.TotalPages = snap.TotalPages
		if len(snap.ProcessedPages) > 0 {
			c.view.ProcessedPages = snap.ProcessedPages
		}
		if len(snap.IdentifiedSegments) > 0 {
			c.view.IdentifiedSegments = snap.IdentifiedSegments
		}
		c.mu.Unlock()
		c.emit()
	}
}

func (c *Controller) terminalHandler(gen uint64) func(*domain.ProgressSnapshot) {
	return func(snap *domain.ProgressSnapshot) {
		c.mu.Lock()
		if c.gen != gen {
			c.mu.Unlock()
			return
		}
		// The poller stopped itself on the terminal snapshot; drop our
		// reference so a later Submit does not try to stop it again.
		c.active = nil

		if snap.Status == domain.StatusCompleted {
			c.state = StateCompleted
			c.view.State = StateCompleted
			c.view.Percentage = 100
			c.view.Result = snap.Result
		} else {
			c.state = StateFailed
			c.view.State = StateFailed
			reason := snap.Error
			if reason == "" {
				reason = genericFailureReason
			}
			c.view.FailureReason = reason
		}
		c.mu.Unlock()

		c.logger.Info("Job reached terminal state",
			zap.String("job_id", snap.JobID.String()),
			zap.String("status", string(snap.Status)),
		)
		c.emit()
	}
}

func (c *Controller) emit() {
	if c.opts.OnChange == nil {
		return
	}
	c.mu.Lock()
	view := c.view
	c.mu.Unlock()
	c.opts.OnChange(view)
}

// submissionReason extracts the human-readable reason for a failed
// submission, falling back to the error text.
func submissionReason(err error) string {
	var subErr *client.SubmissionError
	if errors.As(err, &subErr) {
		return subErr.Reason
	}
	return err.Error()
}
