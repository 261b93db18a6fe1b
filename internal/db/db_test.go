package db

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sealmail/sealmail/internal/types"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	d, err := OpenMemory()
	if err != nil {
		t.Fatalf("open memory db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func msg(id string, loc types.Location, unread bool) *types.Message {
	return &types.Message{
		ID:       id,
		Subject:  "subject " + id,
		Sender:   "alice@example.com",
		Time:     1700000000,
		Location: loc,
		Unread:   unread,
	}
}

func TestUpsertMessagePreservesBody(t *testing.T) {
	d := testDB(t)

	full := msg("m1", types.LocationInbox, true)
	full.Body = "-----BEGIN PGP MESSAGE-----\nabc\n-----END PGP MESSAGE-----"
	full.Status = types.StatusFullyCached
	if err := d.UpsertMessage(full); err != nil {
		t.Fatal(err)
	}

	// A header-only update (empty body) must not erase the cached body
	// or demote the status.
	header := msg("m1", types.LocationInbox, false)
	header.Subject = "renamed"
	if err := d.UpsertMessage(header); err != nil {
		t.Fatal(err)
	}

	got, err := d.GetMessage("m1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Body != full.Body {
		t.Errorf("body was overwritten: %q", got.Body)
	}
	if got.Status != types.StatusFullyCached {
		t.Errorf("status regressed to %d", got.Status)
	}
	if got.Subject != "renamed" {
		t.Errorf("subject not updated: %q", got.Subject)
	}
}

func TestUpsertMessageKeepsSyncedMarker(t *testing.T) {
	d := testDB(t)

	m := msg("m1", types.LocationInbox, false)
	m.Synced = true
	if err := d.UpsertMessage(m); err != nil {
		t.Fatal(err)
	}

	// A later write without the marker must not clear it.
	if err := d.UpsertMessage(msg("m1", types.LocationInbox, false)); err != nil {
		t.Fatal(err)
	}
	got, err := d.GetMessage("m1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Synced {
		t.Error("synced marker regressed")
	}

	stub := msg("m2", types.LocationInbox, false)
	stub.Time = 1700000099
	if err := d.UpsertMessage(stub); err != nil {
		t.Fatal(err)
	}
	ids, err := d.UnsyncedMessageIDs(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != "m2" {
		t.Errorf("unsynced ids = %v, want [m2]", ids)
	}
}

func TestSetReadAdjustsUnreadAndNotifies(t *testing.T) {
	d := testDB(t)
	if err := d.UpsertMessage(msg("m1", types.LocationInbox, true)); err != nil {
		t.Fatal(err)
	}
	if err := d.SetCounts(types.LocationInbox.String(), 1, 1); err != nil {
		t.Fatal(err)
	}

	var changes []FieldChange
	d.OnChange(func(c FieldChange) { changes = append(changes, c) })

	if err := d.SetRead("m1", true, types.OriginUser); err != nil {
		t.Fatal(err)
	}

	b, err := d.Bookmark(types.LocationInbox.String())
	if err != nil {
		t.Fatal(err)
	}
	if b.Unread != 0 {
		t.Errorf("unread counter = %d, want 0", b.Unread)
	}

	want := []FieldChange{{
		MessageID: "m1",
		Field:     FieldRead,
		Origin:    types.OriginUser,
		From:      "false",
		To:        "true",
	}}
	if diff := cmp.Diff(want, changes); diff != "" {
		t.Errorf("changes mismatch (-want +got):\n%s", diff)
	}

	// Re-marking read is a no-op and must not fire hooks or go
	// negative on the counter.
	if err := d.SetRead("m1", true, types.OriginUser); err != nil {
		t.Fatal(err)
	}
	if len(changes) != 1 {
		t.Errorf("no-op SetRead fired a hook, %d changes", len(changes))
	}
}

func TestMoveMessageCarriesUnreadCounter(t *testing.T) {
	d := testDB(t)
	if err := d.UpsertMessage(msg("m1", types.LocationInbox, true)); err != nil {
		t.Fatal(err)
	}
	if err := d.SetCounts(types.LocationInbox.String(), 1, 1); err != nil {
		t.Fatal(err)
	}

	var got []FieldChange
	d.OnChange(func(c FieldChange) { got = append(got, c) })

	if err := d.MoveMessage("m1", types.LocationArchive, types.OriginUser); err != nil {
		t.Fatal(err)
	}

	inbox, _ := d.Bookmark(types.LocationInbox.String())
	archive, _ := d.Bookmark(types.LocationArchive.String())
	if inbox.Unread != 0 || archive.Unread != 1 {
		t.Errorf("unread counters: inbox=%d archive=%d, want 0/1", inbox.Unread, archive.Unread)
	}
	if len(got) != 1 || got[0].Field != FieldLocation || got[0].From != "inbox" || got[0].To != "archive" {
		t.Errorf("unexpected change notifications: %+v", got)
	}
}

func TestDeleteMessageDetachesLabels(t *testing.T) {
	d := testDB(t)
	if err := d.UpsertMessage(msg("m1", types.LocationInbox, false)); err != nil {
		t.Fatal(err)
	}
	if err := d.UpsertLabel(&types.Label{ID: "l1", Name: "work"}); err != nil {
		t.Fatal(err)
	}
	if err := d.AddMessageLabel("m1", "l1"); err != nil {
		t.Fatal(err)
	}

	if err := d.DeleteMessage("m1"); err != nil {
		t.Fatal(err)
	}

	var n int
	d.conn.Get(&n, "SELECT COUNT(*) FROM message_labels")
	if n != 0 {
		t.Errorf("message_labels rows left after delete: %d", n)
	}

	// Deleting again is a no-op.
	if err := d.DeleteMessage("m1"); err != nil {
		t.Errorf("second delete errored: %v", err)
	}
}

func TestLabelLinksAreIdempotent(t *testing.T) {
	d := testDB(t)
	if err := d.UpsertMessage(msg("m1", types.LocationInbox, false)); err != nil {
		t.Fatal(err)
	}
	if err := d.UpsertLabel(&types.Label{ID: "l1", Name: "work"}); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := d.AddMessageLabel("m1", "l1"); err != nil {
			t.Fatalf("add #%d: %v", i, err)
		}
	}
	ids, err := d.MessageLabelIDs("m1")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 {
		t.Errorf("label ids = %v, want one entry", ids)
	}

	for i := 0; i < 2; i++ {
		if err := d.RemoveMessageLabel("m1", "l1"); err != nil {
			t.Fatalf("remove #%d: %v", i, err)
		}
	}

	// Labeling a message that is not cached is a no-op, not an error.
	if err := d.AddMessageLabel("ghost", "l1"); err != nil {
		t.Errorf("labeling absent message errored: %v", err)
	}
	if ids, _ := d.MessageLabelIDs("ghost"); len(ids) != 0 {
		t.Errorf("ghost message got labels: %v", ids)
	}
}

func TestActionQueueFIFO(t *testing.T) {
	d := testDB(t)

	var ids []string
	for _, kind := range []types.ActionKind{types.ActionRead, types.ActionStar, types.ActionFolder} {
		a := &types.PendingAction{ElementID: "el-" + string(kind), Target: "m1", Kind: kind}
		if err := d.InsertAction(a); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, a.ElementID)
	}

	head, err := d.HeadAction()
	if err != nil {
		t.Fatal(err)
	}
	if head.ElementID != ids[0] {
		t.Errorf("head = %s, want %s", head.ElementID, ids[0])
	}

	// Removing a middle element keeps the order of the rest.
	if err := d.RemoveAction(ids[1]); err != nil {
		t.Fatal(err)
	}
	all, err := d.PendingActions()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].ElementID != ids[0] || all[1].ElementID != ids[2] {
		t.Errorf("queue after middle removal: %+v", all)
	}

	// Removing an absent element is a no-op.
	if err := d.RemoveAction("nope"); err != nil {
		t.Errorf("removing absent entry errored: %v", err)
	}
}

func TestRemoveActionsForKinds(t *testing.T) {
	d := testDB(t)
	for i, k := range []types.ActionKind{types.ActionSaveDraft, types.ActionSend, types.ActionRead} {
		a := &types.PendingAction{ElementID: string(rune('a' + i)), Target: "m1", Kind: k}
		if err := d.InsertAction(a); err != nil {
			t.Fatal(err)
		}
	}
	other := &types.PendingAction{ElementID: "z", Target: "m2", Kind: types.ActionSend}
	if err := d.InsertAction(other); err != nil {
		t.Fatal(err)
	}

	if err := d.RemoveActionsFor("m1", types.ActionSaveDraft, types.ActionSend); err != nil {
		t.Fatal(err)
	}
	all, _ := d.PendingActions()
	if len(all) != 2 {
		t.Fatalf("queue depth = %d, want 2", len(all))
	}
	for _, a := range all {
		if a.Target == "m1" && a.Kind != types.ActionRead {
			t.Errorf("unexpected survivor %+v", a)
		}
	}
}

func TestBookmarkRangeEndMonotone(t *testing.T) {
	d := testDB(t)
	if err := d.SaveBookmark(&types.SyncBookmark{LabelID: "inbox", RangeStart: 100, RangeEnd: 500}); err != nil {
		t.Fatal(err)
	}
	// A stale write must not pull range_end backwards.
	if err := d.SaveBookmark(&types.SyncBookmark{LabelID: "inbox", RangeStart: 50, RangeEnd: 300}); err != nil {
		t.Fatal(err)
	}
	b, err := d.Bookmark("inbox")
	if err != nil {
		t.Fatal(err)
	}
	if b.RangeEnd != 500 {
		t.Errorf("range_end = %d, want 500", b.RangeEnd)
	}
	if b.RangeStart != 50 {
		t.Errorf("range_start = %d, want 50", b.RangeStart)
	}
}

func TestAdjustUnreadClampsAtZero(t *testing.T) {
	d := testDB(t)
	if err := d.AdjustUnread("inbox", -5); err != nil {
		t.Fatal(err)
	}
	b, _ := d.Bookmark("inbox")
	if b.Unread != 0 {
		t.Errorf("unread = %d, want 0", b.Unread)
	}
}

func TestWipeEntitiesPreservesQueue(t *testing.T) {
	d := testDB(t)
	if err := d.UpsertMessage(msg("m1", types.LocationInbox, false)); err != nil {
		t.Fatal(err)
	}
	if err := d.SetLastEventID("ev-1"); err != nil {
		t.Fatal(err)
	}
	a := &types.PendingAction{ElementID: "e1", Target: "m1", Kind: types.ActionRead}
	if err := d.InsertAction(a); err != nil {
		t.Fatal(err)
	}

	if err := d.WipeEntities(); err != nil {
		t.Fatal(err)
	}

	if d.MessageCount() != 0 {
		t.Error("messages survived entity wipe")
	}
	if d.LastEventID() != "" {
		t.Error("event cursor survived entity wipe")
	}
	if d.PendingActionCount() != 1 {
		t.Error("pending actions did not survive entity wipe")
	}

	if err := d.WipeCache(); err != nil {
		t.Fatal(err)
	}
	if d.PendingActionCount() != 0 {
		t.Error("pending actions survived full wipe")
	}
}

func TestScopedWipes(t *testing.T) {
	d := testDB(t)
	if err := d.UpsertMessage(msg("m1", types.LocationInbox, false)); err != nil {
		t.Fatal(err)
	}
	if err := d.UpsertContact(&types.Contact{ID: "c1", Email: "bob@example.com"}); err != nil {
		t.Fatal(err)
	}
	if err := d.SetLastEventID("ev-1"); err != nil {
		t.Fatal(err)
	}

	if err := d.WipeContacts(); err != nil {
		t.Fatal(err)
	}
	if d.MessageCount() != 1 {
		t.Error("contact wipe touched messages")
	}
	if c, _ := d.GetContact("c1"); c != nil {
		t.Error("contact survived contact wipe")
	}
	if d.LastEventID() != "ev-1" {
		t.Error("contact wipe cleared the event cursor")
	}

	if err := d.UpsertContact(&types.Contact{ID: "c1", Email: "bob@example.com"}); err != nil {
		t.Fatal(err)
	}
	if err := d.WipeMail(); err != nil {
		t.Fatal(err)
	}
	if d.MessageCount() != 0 {
		t.Error("message survived mail wipe")
	}
	if c, _ := d.GetContact("c1"); c == nil {
		t.Error("mail wipe took the contacts with it")
	}
	if d.LastEventID() != "" {
		t.Error("event cursor survived mail wipe")
	}
}

func TestReplaceMessageID(t *testing.T) {
	d := testDB(t)
	m := msg(types.LocalIDPrefix+"draft", types.LocationDraft, false)
	if err := d.UpsertMessage(m); err != nil {
		t.Fatal(err)
	}
	if err := d.UpsertAttachment(&types.Attachment{ID: "a1", MessageID: m.ID, Filename: "f.txt"}); err != nil {
		t.Fatal(err)
	}

	if err := d.ReplaceMessageID(m.ID, "srv-1"); err != nil {
		t.Fatal(err)
	}
	if d.MessageExists(m.ID) {
		t.Error("old id still present")
	}
	if !d.MessageExists("srv-1") {
		t.Error("new id missing")
	}
	atts, _ := d.AttachmentsByMessage("srv-1")
	if len(atts) != 1 {
		t.Errorf("attachments not retargeted: %d", len(atts))
	}
}
