package strata

import (
	"context"
	"time"

	"github.com/kailas-cloud/strata-go/internal/operation"
)

// OperationStatus is a server-reported status of a long-running operation.
// The vocabulary differs per operation family (backup vs replication) but
// the shape is identical: zero or more progress states, then exactly one
// terminal state.
type OperationStatus string

// StatusSnapshot is one immutable observation of an operation's status.
// A failed-but-completed operation is reported as a snapshot with a
// terminal failure status and a message, not as an error: check Status,
// the wait itself did not fail.
type StatusSnapshot struct {
	ID         string
	Status     OperationStatus
	Message    string
	ObservedAt time.Time
}

// Operation is a handle on a long-running server-side operation. It holds
// the last observed snapshot and polls the server for transitions; the
// server is the sole source of truth. Handles are safe for concurrent use;
// snapshot updates are last-write-wins.
type Operation struct {
	id string
	tr *operation.Tracker
}

func newOperation(id string, tr *operation.Tracker) *Operation {
	return &Operation{id: id, tr: tr}
}

// ID returns the server-assigned operation identifier.
func (o *Operation) ID() string { return o.id }

// Current returns the most recently observed snapshot without polling.
func (o *Operation) Current() StatusSnapshot {
	return fromInternalSnapshot(o.tr.Current())
}

// Done reports whether the operation has reached a terminal status.
func (o *Operation) Done() bool { return o.tr.Done() }

// Refresh performs exactly one status fetch, replacing the current snapshot
// on success. On failure the error is propagated and Current is unchanged.
func (o *Operation) Refresh(ctx context.Context) (StatusSnapshot, error) {
	snap, err := o.tr.Refresh(ctx)
	if err != nil {
		return StatusSnapshot{}, err
	}
	return fromInternalSnapshot(snap), nil
}

// Wait polls until the operation reaches a terminal status, using the
// family's default deadline. See WaitWithTimeout.
func (o *Operation) Wait(ctx context.Context) (StatusSnapshot, error) {
	snap, err := o.tr.Wait(ctx)
	if err != nil {
		return StatusSnapshot{}, err
	}
	return fromInternalSnapshot(snap), nil
}

// WaitWithTimeout polls on a fixed interval until a terminal status is
// observed, the deadline elapses (ErrWaitTimeout), or ctx is cancelled.
// Giving up client-side leaves the server operation running.
func (o *Operation) WaitWithTimeout(ctx context.Context, timeout time.Duration) (StatusSnapshot, error) {
	snap, err := o.tr.WaitWithTimeout(ctx, timeout)
	if err != nil {
		return StatusSnapshot{}, err
	}
	return fromInternalSnapshot(snap), nil
}

// Cancel asks the server to cancel the operation without waiting for the
// cancellation to take effect. A subsequent Wait observes the eventual
// terminal state.
func (o *Operation) Cancel(ctx context.Context) error {
	return o.tr.Cancel(ctx)
}

// CancelAndWait cancels and then waits for a terminal status. Cancellation
// races natural completion: the result is the cancelled status or the
// family's success status, whichever the server reports first.
func (o *Operation) CancelAndWait(ctx context.Context) (StatusSnapshot, error) {
	snap, err := o.tr.CancelAndWait(ctx)
	if err != nil {
		return StatusSnapshot{}, err
	}
	return fromInternalSnapshot(snap), nil
}

func fromInternalSnapshot(s operation.Snapshot) StatusSnapshot {
	return StatusSnapshot{
		ID:         s.ID,
		Status:     OperationStatus(s.Status),
		Message:    s.Message,
		ObservedAt: s.ObservedAt,
	}
}

func toInternalSnapshot(s StatusSnapshot) operation.Snapshot {
	return operation.Snapshot{
		ID:         s.ID,
		Status:     string(s.Status),
		Message:    s.Message,
		ObservedAt: s.ObservedAt,
	}
}
