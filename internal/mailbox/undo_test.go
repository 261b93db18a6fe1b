package mailbox

import (
	"testing"
	"time"

	"github.com/sealmail/sealmail/internal/types"
)

func TestUndoRegistryWindow(t *testing.T) {
	r := NewUndoRegistry()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	r.Register("m1", types.LocationInbox, 10*time.Second)

	now = now.Add(5 * time.Second)
	m, ok := r.Take("m1")
	if !ok || m.From != types.LocationInbox {
		t.Fatalf("Take inside window = %+v, %v", m, ok)
	}

	// Take consumes the entry.
	if _, ok := r.Take("m1"); ok {
		t.Error("entry survived Take")
	}

	r.Register("m2", types.LocationArchive, 10*time.Second)
	now = now.Add(11 * time.Second)
	if _, ok := r.Take("m2"); ok {
		t.Error("expired entry honored")
	}
}

func TestUndoRegistryReplaceAndSweep(t *testing.T) {
	r := NewUndoRegistry()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	r.Register("m1", types.LocationInbox, 5*time.Second)
	// A second move replaces the first registration.
	r.Register("m1", types.LocationArchive, 5*time.Second)
	m, ok := r.Take("m1")
	if !ok || m.From != types.LocationArchive {
		t.Errorf("replacement not honored: %+v, %v", m, ok)
	}

	r.Register("m2", types.LocationInbox, 5*time.Second)
	now = now.Add(time.Minute)
	r.Sweep()
	if _, ok := r.Take("m2"); ok {
		t.Error("sweep left an expired entry")
	}
}
