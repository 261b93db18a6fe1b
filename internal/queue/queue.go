// Package queue is the durable action queue: every user-intent side
// effect becomes a queue entry first, and the executor replays entries
// against the server strictly in FIFO order, one at a time.
package queue

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/sealmail/sealmail/internal/db"
	"github.com/sealmail/sealmail/internal/types"
)

// Queue wraps the persisted FIFO queue with the in-memory dequeue
// discipline: at most one entry in flight, and a blocked bit that
// freezes dequeueing until a human-verification challenge clears.
type Queue struct {
	mu         sync.Mutex
	store      *db.DB
	inProgress bool
	blocked    bool
}

// New returns a queue over the given store.
func New(store *db.DB) *Queue {
	return &Queue{store: store}
}

// Enqueue appends an action and returns it with its element ID and
// sequence number assigned.
func (q *Queue) Enqueue(target string, kind types.ActionKind, data1, data2 string) (*types.PendingAction, error) {
	a := &types.PendingAction{
		ElementID: uuid.NewString(),
		Target:    target,
		Kind:      kind,
		Data1:     data1,
		Data2:     data2,
	}
	if err := q.store.InsertAction(a); err != nil {
		return nil, err
	}
	return a, nil
}

// Next returns the queue head when the queue is idle and not blocked,
// marking it in flight. Returns nil when there is nothing to run.
// The caller must hand the entry back through Done.
func (q *Queue) Next() (*types.PendingAction, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.inProgress || q.blocked {
		return nil, nil
	}
	a, err := q.store.HeadAction()
	if err != nil || a == nil {
		return nil, err
	}
	q.inProgress = true
	return a, nil
}

// Done clears the in-flight mark. It does not remove the entry; the
// executor decides that from the outcome.
func (q *Queue) Done() {
	q.mu.Lock()
	q.inProgress = false
	q.mu.Unlock()
}

// Remove deletes an entry by element ID, wherever it sits.
func (q *Queue) Remove(elementID string) error {
	return q.store.RemoveAction(elementID)
}

// RemoveSendRelated drops every queued save-draft or send entry for a
// message. Called after that message was successfully sent so stale
// duplicates never reach the server.
func (q *Queue) RemoveSendRelated(target string) error {
	return q.store.RemoveActionsFor(target, types.ActionSaveDraft, types.ActionSend)
}

// Retarget rewrites queued entries from a provisional local ID to the
// server-assigned one.
func (q *Queue) Retarget(oldTarget, newTarget string) error {
	return q.store.RetargetActions(oldTarget, newTarget)
}

// Park moves an entry to the failed queue. It is not replayed until
// the user explicitly asks.
func (q *Queue) Park(a *types.PendingAction) error {
	if err := q.store.InsertFailedAction(a, 0); err != nil {
		return err
	}
	if err := q.store.RemoveAction(a.ElementID); err != nil {
		return fmt.Errorf("remove parked action %s: %w", a.ElementID, err)
	}
	return nil
}

// RetryFailed moves every failed entry back onto the live queue in
// their original order, with fresh sequence numbers at the tail.
func (q *Queue) RetryFailed() (int, error) {
	failed, err := q.store.FailedActions()
	if err != nil {
		return 0, err
	}
	for _, f := range failed {
		a := f.PendingAction
		a.Seq = 0
		if err := q.store.InsertAction(&a); err != nil {
			return 0, fmt.Errorf("requeue failed action %s: %w", a.ElementID, err)
		}
		if err := q.store.RemoveFailedAction(a.ElementID); err != nil {
			return 0, err
		}
	}
	return len(failed), nil
}

// Blocked reports whether dequeueing is frozen pending verification.
func (q *Queue) Blocked() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.blocked
}

// SetBlocked freezes or unfreezes dequeueing.
func (q *Queue) SetBlocked(blocked bool) {
	q.mu.Lock()
	q.blocked = blocked
	q.mu.Unlock()
}

// Pending returns the live queue in FIFO order.
func (q *Queue) Pending() ([]*types.PendingAction, error) {
	return q.store.PendingActions()
}

// Failed returns the failed queue in original order.
func (q *Queue) Failed() ([]*types.FailedAction, error) {
	return q.store.FailedActions()
}

// Depth returns live and failed queue depths.
func (q *Queue) Depth() (pending, failed int) {
	return q.store.PendingActionCount(), q.store.FailedActionCount()
}

// Clear empties the live queue.
func (q *Queue) Clear() error {
	return q.store.ClearActions()
}

// ClearFailed empties the failed queue.
func (q *Queue) ClearFailed() error {
	return q.store.ClearFailedActions()
}
