// Package observer turns user-origin cache mutations into queued
// remote actions. It subscribes to the store's change hooks and
// consults a fixed implied-action table; sync-origin changes pass
// through untouched, which is what keeps echo loops impossible.
package observer

import (
	"strconv"

	"github.com/sealmail/sealmail/internal/db"
	"github.com/sealmail/sealmail/internal/types"
)

// Sink is where implied actions land, satisfied by *queue.Queue.
type Sink interface {
	Enqueue(target string, kind types.ActionKind, data1, data2 string) (*types.PendingAction, error)
}

// Recorder watches one store and records implied actions.
type Recorder struct {
	queue Sink

	// OnEnqueue fires after each recorded action; the mailbox service
	// uses it to trigger an eager drain.
	OnEnqueue func(*types.PendingAction)
	// OnError receives enqueue failures, which cannot propagate back
	// through the synchronous hook.
	OnError func(error)
}

// Attach registers a recorder on the store's change hooks.
func Attach(store *db.DB, q Sink) *Recorder {
	r := &Recorder{queue: q}
	store.OnChange(r.observe)
	return r
}

func (r *Recorder) observe(c db.FieldChange) {
	if c.Origin != types.OriginUser {
		return
	}
	kind, data1, data2, ok := implied(c)
	if !ok {
		return
	}
	a, err := r.queue.Enqueue(c.MessageID, kind, data1, data2)
	if err != nil {
		if r.OnError != nil {
			r.OnError(err)
		}
		return
	}
	if r.OnEnqueue != nil {
		r.OnEnqueue(a)
	}
}

// implied maps a watched-field transition to its remote action.
func implied(c db.FieldChange) (kind types.ActionKind, data1, data2 string, ok bool) {
	switch c.Field {
	case db.FieldRead:
		if c.To == "true" {
			return types.ActionRead, "", "", true
		}
		return types.ActionUnread, "", "", true

	case db.FieldStarred:
		if c.To == "true" {
			return types.ActionStar, "", "", true
		}
		return types.ActionUnstar, "", "", true

	case db.FieldLocation:
		from, okFrom := types.ParseLocation(c.From)
		to, okTo := types.ParseLocation(c.To)
		if !okFrom || !okTo {
			return "", "", "", false
		}
		switch to {
		case types.LocationOutbox, types.LocationDraft:
			// Send and draft-save reach the queue explicitly, not
			// through a location transition.
			return "", "", "", false
		case types.LocationInbox, types.LocationTrash, types.LocationSpam, types.LocationArchive:
			return types.ActionFolder, strconv.Itoa(int(from)), strconv.Itoa(int(to)), true
		default:
			return "", "", "", false
		}
	}
	return "", "", "", false
}
