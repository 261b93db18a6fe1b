package mailbox

import (
	"testing"
	"time"

	"github.com/sealmail/sealmail/internal/db"
	"github.com/sealmail/sealmail/internal/queue"
	"github.com/sealmail/sealmail/internal/types"
)

type fakeEncrypter struct{}

func (fakeEncrypter) Encrypt(plaintext string) (string, error) {
	return "armored(" + plaintext + ")", nil
}

func testService(t *testing.T) (*Service, *db.DB, *queue.Queue) {
	t.Helper()
	store, err := db.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	q := queue.New(store)
	return New(store, q, 10*time.Second), store, q
}

func seed(t *testing.T, store *db.DB, id string, loc types.Location) {
	t.Helper()
	if err := store.UpsertMessage(&types.Message{ID: id, Location: loc, Time: 1}); err != nil {
		t.Fatal(err)
	}
}

func TestDeleteEnqueuesAndRemovesLocally(t *testing.T) {
	svc, store, q := testService(t)
	seed(t, store, "m1", types.LocationTrash)

	if err := svc.Delete("m1"); err != nil {
		t.Fatal(err)
	}
	if store.MessageExists("m1") {
		t.Error("message still cached")
	}
	pending, _ := q.Pending()
	if len(pending) != 1 || pending[0].Kind != types.ActionDelete {
		t.Errorf("queue = %+v", pending)
	}

	if err := svc.Delete("m1"); err == nil {
		t.Error("deleting a missing message should error")
	}
}

func TestEmptyFolder(t *testing.T) {
	svc, store, q := testService(t)
	seed(t, store, "m1", types.LocationTrash)
	seed(t, store, "m2", types.LocationTrash)
	seed(t, store, "m3", types.LocationInbox)

	n, err := svc.Empty(types.LocationTrash)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("emptied %d, want 2", n)
	}
	if !store.MessageExists("m3") {
		t.Error("inbox message deleted by trash empty")
	}
	pending, _ := q.Pending()
	if len(pending) != 1 || pending[0].Kind != types.ActionEmpty || pending[0].Target != "3" {
		t.Errorf("queue = %+v", pending)
	}
}

func TestSaveDraftAssignsLocalID(t *testing.T) {
	svc, store, q := testService(t)

	msg, err := svc.SaveDraft(fakeEncrypter{}, DraftInput{
		Subject: "hello",
		To:      "bob@example.com",
		Body:    "secret",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !types.IsLocalID(msg.ID) {
		t.Errorf("draft id %q not provisional", msg.ID)
	}
	if msg.Body != "armored(secret)" {
		t.Errorf("body stored unencrypted: %q", msg.Body)
	}

	stored, _ := store.GetMessage(msg.ID)
	if stored == nil || stored.Location != types.LocationDraft {
		t.Errorf("stored draft = %+v", stored)
	}
	pending, _ := q.Pending()
	if len(pending) != 1 || pending[0].Kind != types.ActionSaveDraft {
		t.Errorf("queue = %+v", pending)
	}

	// Updating keeps the same ID and queues another save.
	if _, err := svc.SaveDraft(fakeEncrypter{}, DraftInput{ID: msg.ID, Subject: "hello v2", Body: "x"}); err != nil {
		t.Fatal(err)
	}
	if pending, _ := q.Pending(); len(pending) != 2 {
		t.Errorf("update did not queue: %+v", pending)
	}
}

func TestSendRequiresDraft(t *testing.T) {
	svc, store, q := testService(t)
	seed(t, store, "m1", types.LocationInbox)

	if err := svc.Send("m1"); err == nil {
		t.Error("sending a non-draft should error")
	}
	if err := svc.Send("ghost"); err == nil {
		t.Error("sending a missing message should error")
	}

	seed(t, store, "d1", types.LocationDraft)
	if err := svc.Send("d1"); err != nil {
		t.Fatal(err)
	}
	pending, _ := q.Pending()
	if len(pending) != 1 || pending[0].Kind != types.ActionSend {
		t.Errorf("queue = %+v", pending)
	}
}

func TestMoveToTrashIsUndoable(t *testing.T) {
	svc, store, _ := testService(t)
	seed(t, store, "m1", types.LocationInbox)

	if err := svc.Move("m1", types.LocationTrash); err != nil {
		t.Fatal(err)
	}
	m, _ := store.GetMessage("m1")
	if m.Location != types.LocationTrash {
		t.Errorf("location = %s", m.Location)
	}

	ok, err := svc.Undo("m1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("undo refused inside the window")
	}
	m, _ = store.GetMessage("m1")
	if m.Location != types.LocationInbox {
		t.Errorf("location after undo = %s", m.Location)
	}

	// A second undo has nothing to work with.
	if ok, _ := svc.Undo("m1"); ok {
		t.Error("undo worked twice")
	}
}

// The observer never queues moves into drafts, so undoing a trashed
// draft must enqueue the reverse move itself or the server keeps the
// message in trash.
func TestUndoTrashedDraftQueuesReverseMove(t *testing.T) {
	svc, store, q := testService(t)
	seed(t, store, "d1", types.LocationDraft)

	if err := svc.Move("d1", types.LocationTrash); err != nil {
		t.Fatal(err)
	}
	ok, err := svc.Undo("d1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("undo refused inside the window")
	}
	m, _ := store.GetMessage("d1")
	if m.Location != types.LocationDraft {
		t.Errorf("location after undo = %s", m.Location)
	}

	pending, _ := q.Pending()
	var folder *types.PendingAction
	for i := range pending {
		if pending[i].Kind == types.ActionFolder {
			folder = pending[i]
		}
	}
	if folder == nil {
		t.Fatalf("no folder action queued: %+v", pending)
	}
	if folder.Target != "d1" || folder.Data2 != "1" {
		t.Errorf("folder action = %+v, want move of d1 back to drafts", folder)
	}
}

func TestQueueChangeCallback(t *testing.T) {
	svc, store, _ := testService(t)
	seed(t, store, "m1", types.LocationInbox)

	calls := 0
	svc.OnQueueChange = func() { calls++ }

	if err := svc.Delete("m1"); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("callback fired %d times, want 1", calls)
	}
}
