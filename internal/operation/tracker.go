// Package operation tracks long-running server-side operations (backups,
// restores, shard replications) by polling a status endpoint until a
// terminal status is observed.
package operation

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kailas-cloud/strata-go/internal/domain"
)

// DefaultPollInterval is the delay between consecutive status fetches.
const DefaultPollInterval = 250 * time.Millisecond

// Snapshot is one immutable observation of an operation's state. It is
// never mutated after construction; a newer snapshot supersedes it.
type Snapshot struct {
	ID         string
	Status     string
	Message    string // server-reported error message, if any
	ObservedAt time.Time
}

// FetchFunc fetches the current snapshot from the server.
type FetchFunc func(ctx context.Context) (Snapshot, error)

// CancelFunc asks the server to cancel the operation. It does not wait for
// the cancellation to take effect.
type CancelFunc func(ctx context.Context) error

// Tracker polls a server-side operation until it reaches a terminal status.
// The server is the source of truth; the tracker holds nothing beyond the
// last observed snapshot. Snapshot updates are last-write-wins, so
// concurrent Refresh/Wait calls on one tracker are safe.
type Tracker struct {
	fetch    FetchFunc
	cancel   CancelFunc
	terminal map[string]struct{}
	interval time.Duration
	timeout  time.Duration

	cur atomic.Pointer[Snapshot]
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithPollInterval overrides the fixed polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithDefaultTimeout overrides the deadline used by Wait.
func WithDefaultTimeout(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// New creates a tracker seeded with the snapshot returned by the initiating
// request. terminal lists the absorbing status values for the operation
// family. cancel may be nil for operations without a cancel endpoint.
func New(
	initial Snapshot,
	fetch FetchFunc,
	cancel CancelFunc,
	terminal []string,
	opts ...Option,
) *Tracker {
	t := &Tracker{
		fetch:    fetch,
		cancel:   cancel,
		terminal: make(map[string]struct{}, len(terminal)),
		interval: DefaultPollInterval,
		timeout:  time.Minute,
	}
	for _, s := range terminal {
		t.terminal[s] = struct{}{}
	}
	for _, o := range opts {
		o(t)
	}
	if initial.ObservedAt.IsZero() {
		initial.ObservedAt = time.Now()
	}
	t.cur.Store(&initial)
	return t
}

// Current returns the most recently observed snapshot without polling.
func (t *Tracker) Current() Snapshot { return *t.cur.Load() }

// Done reports whether the last observed status is terminal.
func (t *Tracker) Done() bool { return t.isTerminal(t.Current().Status) }

func (t *Tracker) isTerminal(status string) bool {
	_, ok := t.terminal[status]
	return ok
}

// Refresh performs exactly one status fetch. On success it replaces the
// current snapshot; on failure the error is propagated and the snapshot is
// left untouched.
func (t *Tracker) Refresh(ctx context.Context) (Snapshot, error) {
	snap, err := t.fetch(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetch status: %w", err)
	}
	if snap.ObservedAt.IsZero() {
		snap.ObservedAt = time.Now()
	}
	t.cur.Store(&snap)
	return snap, nil
}

// Wait polls until a terminal status using the tracker's default deadline.
func (t *Tracker) Wait(ctx context.Context) (Snapshot, error) {
	return t.WaitWithTimeout(ctx, t.timeout)
}

// WaitWithTimeout polls the server on a fixed interval until the operation
// reaches a terminal status, the deadline elapses, or ctx is cancelled.
//
// The returned snapshot always carries a terminal status. A deadline wraps
// domain.ErrWaitTimeout; caller cancellation wraps ctx.Err(). The deadline
// bounds the whole wait, in-flight fetches included: a status request that
// stalls cannot hold the caller past the timeout. Transient transport
// failures (server unavailable, rate limited) are absorbed by the next
// scheduled poll; any other fetch error aborts the wait. A server-reported
// failed status is returned as a normal snapshot, not an error: the wait
// succeeded, the operation did not.
//
// Expiry of the deadline abandons only the client-side wait. The server
// operation keeps running; use Cancel to stop it.
func (t *Tracker) WaitWithTimeout(ctx context.Context, timeout time.Duration) (Snapshot, error) {
	if cur := t.Current(); t.isTerminal(cur.Status) {
		// Terminal states are absorbing, no point polling further.
		return cur, nil
	}

	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		snap, err := t.Refresh(wctx)
		switch {
		case err == nil:
			if t.isTerminal(snap.Status) {
				return snap, nil
			}
		case wctx.Err() != nil:
			return Snapshot{}, t.waitExpired(ctx, timeout)
		case errors.Is(err, domain.ErrUnavailable) || errors.Is(err, domain.ErrRateLimited):
			// Transient: the loop itself is the retry policy. Keep the
			// interval fixed and try again on the next tick.
		default:
			return Snapshot{}, err
		}

		ticker := time.NewTimer(t.interval)
		select {
		case <-wctx.Done():
			ticker.Stop()
			return Snapshot{}, t.waitExpired(ctx, timeout)
		case <-ticker.C:
		}
	}
}

// waitExpired distinguishes the caller's own cancellation from the wait
// deadline running out.
func (t *Tracker) waitExpired(ctx context.Context, timeout time.Duration) error {
	if ctx.Err() != nil {
		return fmt.Errorf("wait interrupted: %w", ctx.Err())
	}
	cur := t.Current()
	return fmt.Errorf(
		"no terminal status for %s after %s (last: %s): %w",
		cur.ID, timeout, cur.Status, domain.ErrWaitTimeout,
	)
}

// Cancel issues a cancel request for the operation. It returns once the
// server acknowledges the request; the operation may still finish on its
// own before the cancellation is processed.
func (t *Tracker) Cancel(ctx context.Context) error {
	if t.cancel == nil {
		return fmt.Errorf("cancel %s: %w", t.Current().ID, domain.ErrInvalidInput)
	}
	if err := t.cancel(ctx); err != nil {
		return fmt.Errorf("cancel operation: %w", err)
	}
	return nil
}

// CancelAndWait cancels the operation and waits for a terminal status.
// Because cancellation races natural completion, the result may be the
// cancelled status or the family's success status; whichever terminal state
// the server reports first is final.
func (t *Tracker) CancelAndWait(ctx context.Context) (Snapshot, error) {
	if err := t.Cancel(ctx); err != nil {
		return Snapshot{}, err
	}
	return t.Wait(ctx)
}
