package observer

import (
	"testing"

	"github.com/sealmail/sealmail/internal/db"
	"github.com/sealmail/sealmail/internal/queue"
	"github.com/sealmail/sealmail/internal/types"
)

func testRecorder(t *testing.T) (*db.DB, *queue.Queue) {
	t.Helper()
	store, err := db.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	q := queue.New(store)
	Attach(store, q)
	return store, q
}

func seed(t *testing.T, store *db.DB, id string, loc types.Location, unread bool) {
	t.Helper()
	if err := store.UpsertMessage(&types.Message{ID: id, Location: loc, Unread: unread, Time: 1}); err != nil {
		t.Fatal(err)
	}
}

func TestUserReadChangeIsRecorded(t *testing.T) {
	store, q := testRecorder(t)
	seed(t, store, "m1", types.LocationInbox, true)

	if err := store.SetRead("m1", true, types.OriginUser); err != nil {
		t.Fatal(err)
	}

	pending, err := q.Pending()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].Kind != types.ActionRead || pending[0].Target != "m1" {
		t.Errorf("queue = %+v", pending)
	}
}

func TestSyncOriginChangesAreIgnored(t *testing.T) {
	store, q := testRecorder(t)
	seed(t, store, "m1", types.LocationInbox, true)

	if err := store.SetRead("m1", true, types.OriginSync); err != nil {
		t.Fatal(err)
	}
	if err := store.MoveMessage("m1", types.LocationTrash, types.OriginSync); err != nil {
		t.Fatal(err)
	}

	if pending, _ := q.Depth(); pending != 0 {
		t.Errorf("sync-origin changes reached the queue: %d entries", pending)
	}
}

func TestLocationTransitions(t *testing.T) {
	cases := []struct {
		name     string
		to       types.Location
		wantKind types.ActionKind
		recorded bool
	}{
		{"to trash", types.LocationTrash, types.ActionFolder, true},
		{"to spam", types.LocationSpam, types.ActionFolder, true},
		{"to archive", types.LocationArchive, types.ActionFolder, true},
		{"back to inbox", types.LocationInbox, types.ActionFolder, true},
		{"into outbox", types.LocationOutbox, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, q := testRecorder(t)
			from := types.LocationArchive
			if tc.to == types.LocationArchive || tc.to == types.LocationInbox {
				from = types.LocationTrash
			}
			seed(t, store, "m1", from, false)

			if err := store.MoveMessage("m1", tc.to, types.OriginUser); err != nil {
				t.Fatal(err)
			}

			pending, err := q.Pending()
			if err != nil {
				t.Fatal(err)
			}
			if !tc.recorded {
				if len(pending) != 0 {
					t.Errorf("unexpected queue entries: %+v", pending)
				}
				return
			}
			if len(pending) != 1 {
				t.Fatalf("queue = %+v", pending)
			}
			a := pending[0]
			if a.Kind != tc.wantKind {
				t.Errorf("kind = %s, want %s", a.Kind, tc.wantKind)
			}
			if a.Data1 == "" || a.Data2 == "" {
				t.Errorf("source/destination not recorded: %+v", a)
			}
		})
	}
}

func TestStarChangeIsRecorded(t *testing.T) {
	store, q := testRecorder(t)
	seed(t, store, "m1", types.LocationInbox, false)

	if err := store.SetStarred("m1", true, types.OriginUser); err != nil {
		t.Fatal(err)
	}
	if err := store.SetStarred("m1", false, types.OriginUser); err != nil {
		t.Fatal(err)
	}

	pending, err := q.Pending()
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 || pending[0].Kind != types.ActionStar || pending[1].Kind != types.ActionUnstar {
		t.Errorf("queue = %+v", pending)
	}
}

func TestEnqueueCallbackFires(t *testing.T) {
	store, err := db.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	q := queue.New(store)
	rec := Attach(store, q)

	var fired []*types.PendingAction
	rec.OnEnqueue = func(a *types.PendingAction) { fired = append(fired, a) }

	seed(t, store, "m1", types.LocationInbox, true)
	if err := store.SetRead("m1", true, types.OriginUser); err != nil {
		t.Fatal(err)
	}
	if len(fired) != 1 || fired[0].Kind != types.ActionRead {
		t.Errorf("callback saw %+v", fired)
	}
}
