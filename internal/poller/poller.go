// Package poller turns repeated snapshot fetches for a single job into
// an ordered stream of progress callbacks that ends at the first
// terminal snapshot or when the poller is stopped.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FaryzK/filesplittingservice/internal/domain"
)

// DefaultInterval is the fixed delay between snapshot fetches.
const DefaultInterval = 500 * time.Millisecond

// Snapshotter fetches a progress snapshot for a job id.
type Snapshotter interface {
	Snapshot(ctx context.Context, id uuid.UUID) (*domain.ProgressSnapshot, error)
}

// Options tunes a Poller.
type Options struct {
	// Interval is the delay between fetches. Zero means DefaultInterval.
	Interval time.Duration

	// FailureLimit is the number of consecutive failed fetches after
	// which the poller gives up and delivers a synthesized terminal
	// failed snapshot. Zero means fetch failures are absorbed
	// indefinitely, matching the historical best-effort behavior.
	FailureLimit int
}

// Poller owns the polling loop for exactly one job id. Create with
// Start; a stopped or terminated Poller cannot be restarted.
type Poller struct {
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// Start begins polling immediately: the first fetch happens without
// waiting for the interval. On each successful fetch onSnapshot is
// invoked; if the snapshot is terminal, onTerminal is then invoked
// exactly once and polling stops. Failed fetches are logged and
// polling continues on the next tick (subject to Options.FailureLimit).
//
// Fetches are sequential: tick n+1 never starts before tick n's
// response has resolved, so two fetches are never in flight at once.
func Start(
	client Snapshotter,
	id uuid.UUID,
	onSnapshot func(*domain.ProgressSnapshot),
	onTerminal func(*domain.ProgressSnapshot),
	logger *zap.Logger,
	opts Options,
) *Poller {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Poller{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go p.run(ctx, client, id, onSnapshot, onTerminal, logger, interval, opts.FailureLimit)
	return p
}

// Stop cancels any pending fetch and waits for the polling goroutine to
// exit. After Stop returns, no further onSnapshot or onTerminal
// invocation occurs for this instance: a fetch that was in flight when
// Stop was called resolves into a cancelled context and is discarded.
// Stop is idempotent and safe after natural termination, but must not
// be called from within this poller's own callbacks.
func (p *Poller) Stop() {
	p.stopOnce.Do(p.cancel)
	<-p.done
}

func (p *Poller) run(
	ctx context.Context,
	client Snapshotter,
	id uuid.UUID,
	onSnapshot func(*domain.ProgressSnapshot),
	onTerminal func(*domain.ProgressSnapshot),
	logger *zap.Logger,
	interval time.Duration,
	failureLimit int,
) {
	defer close(p.done)

	failures := 0

	// fetch resolves one tick. It reports whether polling should stop.
	fetch := func() bool {
		snap, err := client.Snapshot(ctx, id)

		// A fetch resolving after Stop must not invoke callbacks.
		if ctx.Err() != nil {
			return true
		}

		if err != nil {
			failures++
			logger.Debug("Snapshot fetch failed, continuing",
				zap.String("job_id", id.String()),
				zap.Int("consecutive_failures", failures),
				zap.Error(err),
			)
			if failureLimit > 0 && failures >= failureLimit {
				logger.Warn("Giving up after repeated fetch failures",
					zap.String("job_id", id.String()),
					zap.Int("failures", failures),
				)
				onTerminal(&domain.ProgressSnapshot{
					JobID:  id,
					Status: domain.StatusFailed,
					Error:  fmt.Sprintf("progress unavailable after %d failed attempts", failures),
				})
				return true
			}
			return false
		}

		failures = 0
		onSnapshot(snap)

		if snap.IsTerminal() {
			logger.Debug("Job reached terminal state, polling stops",
				zap.String("job_id", id.String()),
				zap.String("status", string(snap.Status)),
			)
			onTerminal(snap)
			return true
		}
		return false
	}

	if fetch() {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if fetch() {
				return
			}
		}
	}
}
