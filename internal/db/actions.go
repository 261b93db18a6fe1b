package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/sealmail/sealmail/internal/types"
)

// --- Durable action queue persistence ---
//
// Entries are FIFO by the autoincrement seq column. The queue itself
// (flags, dequeue discipline) lives in internal/queue; this layer only
// makes entries survive process restarts.

// InsertAction appends an action to the durable queue.
func (d *DB) InsertAction(a *types.PendingAction) error {
	if a.CreatedAt == "" {
		a.CreatedAt = Now()
	}
	res, err := d.conn.Exec(`
		INSERT INTO pending_actions (element_id, target, kind, data1, data2, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ElementID, a.Target, string(a.Kind), a.Data1, a.Data2, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("enqueue action %s: %w", a.Kind, err)
	}
	a.Seq, _ = res.LastInsertId()
	return nil
}

// HeadAction returns the queue head without removing it, or nil when
// the queue is empty.
func (d *DB) HeadAction() (*types.PendingAction, error) {
	var a types.PendingAction
	err := d.conn.Get(&a, `
		SELECT seq, element_id, target, kind, data1, data2, created_at
		FROM pending_actions ORDER BY seq LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("peek action queue: %w", err)
	}
	return &a, nil
}

// RemoveAction deletes one queue entry by element ID, regardless of
// its position. Removing an absent entry is a no-op.
func (d *DB) RemoveAction(elementID string) error {
	_, err := d.conn.Exec("DELETE FROM pending_actions WHERE element_id = ?", elementID)
	return err
}

// RemoveActionsFor deletes every queued entry for a target whose kind
// is in kinds. Used after a successful send to drop leftover
// save-draft/send entries for the same message.
func (d *DB) RemoveActionsFor(target string, kinds ...types.ActionKind) error {
	for _, k := range kinds {
		if _, err := d.conn.Exec(
			"DELETE FROM pending_actions WHERE target = ? AND kind = ?", target, string(k)); err != nil {
			return err
		}
	}
	return nil
}

// RetargetActions rewrites the target of every queued entry from a
// provisional local ID to the server-assigned one.
func (d *DB) RetargetActions(oldTarget, newTarget string) error {
	_, err := d.conn.Exec(
		"UPDATE pending_actions SET target = ? WHERE target = ?", newTarget, oldTarget)
	return err
}

// PendingActions returns the whole queue in FIFO order.
func (d *DB) PendingActions() ([]*types.PendingAction, error) {
	var as []*types.PendingAction
	if err := d.conn.Select(&as, `
		SELECT seq, element_id, target, kind, data1, data2, created_at
		FROM pending_actions ORDER BY seq`); err != nil {
		return nil, err
	}
	return as, nil
}

// PendingActionCount returns the durable queue depth.
func (d *DB) PendingActionCount() int {
	var n int
	d.conn.Get(&n, "SELECT COUNT(*) FROM pending_actions")
	return n
}

// ClearActions empties the durable queue. Used only during full cache
// invalidation.
func (d *DB) ClearActions() error {
	_, err := d.conn.Exec("DELETE FROM pending_actions")
	return err
}

// --- Failed-action side queue persistence ---

// InsertFailedAction parks an action snapshot on the failed queue.
func (d *DB) InsertFailedAction(a *types.PendingAction, retries int) error {
	_, err := d.conn.Exec(`
		INSERT OR REPLACE INTO failed_actions (element_id, target, kind, data1, data2, retries, created_at, failed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ElementID, a.Target, string(a.Kind), a.Data1, a.Data2, retries, a.CreatedAt, Now())
	if err != nil {
		return fmt.Errorf("park failed action %s: %w", a.ElementID, err)
	}
	return nil
}

// FailedActions returns the failed queue in original order.
func (d *DB) FailedActions() ([]*types.FailedAction, error) {
	var as []*types.FailedAction
	if err := d.conn.Select(&as, `
		SELECT seq, element_id, target, kind, data1, data2, retries, created_at, failed_at
		FROM failed_actions ORDER BY seq`); err != nil {
		return nil, err
	}
	return as, nil
}

// FailedActionCount returns the failed queue depth.
func (d *DB) FailedActionCount() int {
	var n int
	d.conn.Get(&n, "SELECT COUNT(*) FROM failed_actions")
	return n
}

// RemoveFailedAction deletes one failed-queue entry.
func (d *DB) RemoveFailedAction(elementID string) error {
	_, err := d.conn.Exec("DELETE FROM failed_actions WHERE element_id = ?", elementID)
	return err
}

// ClearFailedActions empties the failed queue.
func (d *DB) ClearFailedActions() error {
	_, err := d.conn.Exec("DELETE FROM failed_actions")
	return err
}
