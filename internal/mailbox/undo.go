package mailbox

import (
	"sync"
	"time"

	"github.com/sealmail/sealmail/internal/types"
)

// UndoRegistry holds recent destructive moves for a short window.
// Entries are in-memory only; restarting the client forfeits undo.
type UndoRegistry struct {
	mu      sync.Mutex
	entries map[string]types.UndoableMove
	now     func() time.Time
}

// NewUndoRegistry returns an empty registry.
func NewUndoRegistry() *UndoRegistry {
	return &UndoRegistry{entries: make(map[string]types.UndoableMove), now: time.Now}
}

// Register records a move as undoable until the window elapses. A
// second move of the same message replaces the earlier entry.
func (r *UndoRegistry) Register(messageID string, from types.Location, window time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[messageID] = types.UndoableMove{
		MessageID: messageID,
		From:      from,
		ExpiresAt: r.now().Add(window),
	}
}

// Take removes and returns the unexpired entry for a message, if any.
func (r *UndoRegistry) Take(messageID string) (types.UndoableMove, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.entries[messageID]
	if !ok {
		return types.UndoableMove{}, false
	}
	delete(r.entries, messageID)
	if r.now().After(m.ExpiresAt) {
		return types.UndoableMove{}, false
	}
	return m, true
}

// Sweep drops expired entries.
func (r *UndoRegistry) Sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for id, m := range r.entries {
		if now.After(m.ExpiresAt) {
			delete(r.entries, id)
		}
	}
}
