package queue

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"

	"github.com/sealmail/sealmail/internal/api"
	"github.com/sealmail/sealmail/internal/db"
	"github.com/sealmail/sealmail/internal/types"
)

// fakeAPI records calls and serves scripted errors per action name.
type fakeAPI struct {
	calls []string
	fail  map[string]error
}

func (f *fakeAPI) call(name string) error {
	f.calls = append(f.calls, name)
	return f.fail[name]
}

func (f *fakeAPI) MessageAction(_ context.Context, action string, ids []string) error {
	return f.call(action + ":" + strings.Join(ids, ","))
}
func (f *fakeAPI) LabelMessages(_ context.Context, labelID string, ids []string) error {
	return f.call("label:" + labelID + ":" + strings.Join(ids, ","))
}
func (f *fakeAPI) UnlabelMessages(_ context.Context, labelID string, ids []string) error {
	return f.call("unlabel:" + labelID + ":" + strings.Join(ids, ","))
}
func (f *fakeAPI) DeleteMessages(_ context.Context, ids []string) error {
	return f.call("delete:" + strings.Join(ids, ","))
}
func (f *fakeAPI) Empty(_ context.Context, labelID string) error {
	return f.call("empty:" + labelID)
}
func (f *fakeAPI) CreateDraft(_ context.Context, _ *api.DraftRequest) (*api.Message, error) {
	if err := f.call("create_draft"); err != nil {
		return nil, err
	}
	return &api.Message{ID: "srv-draft"}, nil
}
func (f *fakeAPI) UpdateDraft(_ context.Context, id string, _ *api.DraftRequest) (*api.Message, error) {
	if err := f.call("update_draft:" + id); err != nil {
		return nil, err
	}
	return &api.Message{ID: id}, nil
}
func (f *fakeAPI) Send(_ context.Context, id string, _ *api.SendRequest) (*api.Message, error) {
	if err := f.call("send:" + id); err != nil {
		return nil, err
	}
	return &api.Message{ID: id}, nil
}
func (f *fakeAPI) UploadAttachment(_ context.Context, req *api.UploadAttachmentRequest) (*api.Attachment, error) {
	if err := f.call("upload:" + req.Filename); err != nil {
		return nil, err
	}
	return &api.Attachment{ID: "srv-att", MessageID: req.MessageID}, nil
}
func (f *fakeAPI) DeleteAttachment(_ context.Context, id string) error {
	return f.call("delete_att:" + id)
}

type fakePackager struct{ req *api.SendRequest }

func (p *fakePackager) Packages(_ *types.Message, _ string) (*api.SendRequest, error) {
	return p.req, nil
}

type fakeCrypter struct{}

func (fakeCrypter) Decrypt(armored string) (string, error) { return "plaintext", nil }
func (fakeCrypter) EncryptAttachment(_ string, data []byte) ([]byte, []byte, error) {
	return []byte("key"), data, nil
}

func testExecutor(t *testing.T, client *fakeAPI) (*Executor, *Queue, *db.DB) {
	t.Helper()
	store, err := db.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	q := New(store)
	pkg := &fakePackager{req: &api.SendRequest{Packages: []api.SendPackage{
		{Type: api.PackageInternal, Addresses: []string{"bob@example.com"}, Body: "enc"},
	}}}
	return NewExecutor(q, store, client, pkg, fakeCrypter{}), q, store
}

func TestDrainExecutesFIFO(t *testing.T) {
	client := &fakeAPI{fail: map[string]error{}}
	exec, q, _ := testExecutor(t, client)

	q.Enqueue("m1", types.ActionRead, "", "")
	q.Enqueue("m2", types.ActionFolder, "0", "3")
	q.Enqueue("m3", types.ActionLabel, "l1", "")

	n, err := exec.Drain(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("drained %d, want 3", n)
	}
	want := []string{"read:m1", "trash:m2", "label:l1:m3"}
	if len(client.calls) != len(want) {
		t.Fatalf("calls = %v", client.calls)
	}
	for i := range want {
		if client.calls[i] != want[i] {
			t.Errorf("call %d = %s, want %s", i, client.calls[i], want[i])
		}
	}
	if pending, _ := q.Depth(); pending != 0 {
		t.Errorf("queue not empty: %d", pending)
	}
}

func TestDrainDropsOn404AndContinues(t *testing.T) {
	client := &fakeAPI{fail: map[string]error{
		"read:gone": &api.Error{StatusCode: 404, Message: "not found"},
	}}
	exec, q, _ := testExecutor(t, client)

	var notices []string
	exec.OnNotice = func(s string) { notices = append(notices, s) }

	q.Enqueue("gone", types.ActionRead, "", "")
	q.Enqueue("m2", types.ActionStar, "", "")

	n, err := exec.Drain(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("drained %d, want 1", n)
	}
	pending, failed := q.Depth()
	if pending != 0 || failed != 0 {
		t.Errorf("depth = %d/%d, want 0/0", pending, failed)
	}
	if len(notices) != 1 {
		t.Errorf("notices = %v", notices)
	}
}

func TestDrainStopsOnConnectivityLoss(t *testing.T) {
	client := &fakeAPI{fail: map[string]error{
		"read:m1": &net.OpError{Op: "dial", Err: errors.New("connection refused")},
	}}
	exec, q, _ := testExecutor(t, client)

	lost := false
	exec.OnConnectivityLost = func() { lost = true }

	q.Enqueue("m1", types.ActionRead, "", "")
	q.Enqueue("m2", types.ActionStar, "", "")

	n, err := exec.Drain(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("drained %d, want 0", n)
	}
	if !lost {
		t.Error("connectivity signal not fired")
	}
	// Both entries stay for a verbatim retry; nothing after the head ran.
	if pending, _ := q.Depth(); pending != 2 {
		t.Errorf("pending = %d, want 2", pending)
	}
	if len(client.calls) != 1 {
		t.Errorf("calls = %v", client.calls)
	}
}

func TestDrainParksOnServerError(t *testing.T) {
	client := &fakeAPI{fail: map[string]error{
		"star:m1": &api.Error{StatusCode: 500, Message: "boom"},
	}}
	exec, q, _ := testExecutor(t, client)

	q.Enqueue("m1", types.ActionStar, "", "")
	q.Enqueue("m2", types.ActionRead, "", "")

	n, err := exec.Drain(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("drained %d, want 1", n)
	}
	pending, failed := q.Depth()
	if pending != 0 || failed != 1 {
		t.Errorf("depth = %d/%d, want 0/1", pending, failed)
	}
	// Parked entries never come back on their own.
	n, err = exec.Drain(context.Background())
	if err != nil || n != 0 {
		t.Errorf("second drain = %d, %v", n, err)
	}
}

func TestDrainBlocksOnVerificationDemand(t *testing.T) {
	client := &fakeAPI{fail: map[string]error{
		"read:m1": &api.Error{StatusCode: 200, Code: api.CodeHumanVerification, Message: "verify"},
	}}
	exec, q, _ := testExecutor(t, client)

	q.Enqueue("m1", types.ActionRead, "", "")

	n, err := exec.Drain(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("drained %d, want 0", n)
	}
	if !q.Blocked() {
		t.Error("queue not blocked")
	}
	if pending, _ := q.Depth(); pending != 1 {
		t.Error("entry removed despite block")
	}
}

func TestSendMovesMessageAndDropsDuplicates(t *testing.T) {
	client := &fakeAPI{fail: map[string]error{}}
	exec, q, store := testExecutor(t, client)

	store.UpsertMessage(&types.Message{
		ID: "d1", Subject: "hi", Sender: "me@example.com",
		ToList: "bob@example.com", Body: "armored",
		Location: types.LocationDraft, Status: types.StatusFullyCached,
	})
	q.Enqueue("d1", types.ActionSend, "", "")
	q.Enqueue("d1", types.ActionSaveDraft, "", "") // stale duplicate behind the send

	n, err := exec.Drain(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("drained %d, want 1", n)
	}
	m, err := store.GetMessage("d1")
	if err != nil {
		t.Fatal(err)
	}
	if m.Location != types.LocationOutbox {
		t.Errorf("location = %s, want sent", m.Location)
	}
	if !m.IsEncrypted {
		t.Error("all-internal send not classified as encrypted")
	}
	if pending, _ := q.Depth(); pending != 0 {
		t.Error("stale save_draft survived the send")
	}
}

func TestSaveDraftCreateRewritesLocalID(t *testing.T) {
	client := &fakeAPI{fail: map[string]error{}}
	exec, q, store := testExecutor(t, client)

	local := types.LocalIDPrefix + "abc"
	store.UpsertMessage(&types.Message{
		ID: local, Subject: "draft", Body: "armored",
		Location: types.LocationDraft, Status: types.StatusFullyCached,
	})
	q.Enqueue(local, types.ActionSaveDraft, "", "")
	q.Enqueue(local, types.ActionSend, "", "")

	if _, err := exec.Drain(context.Background()); err != nil {
		t.Fatal(err)
	}

	if store.MessageExists(local) {
		t.Error("local id still in store")
	}
	if !store.MessageExists("srv-draft") {
		t.Error("server id missing from store")
	}
	// The queued send ran against the rewritten id.
	found := false
	for _, c := range client.calls {
		if c == "send:srv-draft" {
			found = true
		}
	}
	if !found {
		t.Errorf("send not retargeted: %v", client.calls)
	}
}

func TestMissingTargetIsDropped(t *testing.T) {
	client := &fakeAPI{fail: map[string]error{}}
	exec, q, _ := testExecutor(t, client)

	q.Enqueue("ghost", types.ActionSaveDraft, "", "")

	n, err := exec.Drain(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("drained %d, want 0", n)
	}
	pending, failed := q.Depth()
	if pending != 0 || failed != 0 {
		t.Errorf("depth = %d/%d, want 0/0", pending, failed)
	}
	if len(client.calls) != 0 {
		t.Errorf("server was called for a missing target: %v", client.calls)
	}
}
