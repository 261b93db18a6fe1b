package queue

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/sealmail/sealmail/internal/api"
	"github.com/sealmail/sealmail/internal/compose"
	"github.com/sealmail/sealmail/internal/db"
	"github.com/sealmail/sealmail/internal/types"
)

// errMissingTarget marks an action whose local subject vanished before
// execution. Such entries are dropped, never retried.
var errMissingTarget = errors.New("action target no longer exists")

// API is the slice of the service client the executor drives.
type API interface {
	MessageAction(ctx context.Context, action string, ids []string) error
	LabelMessages(ctx context.Context, labelID string, ids []string) error
	UnlabelMessages(ctx context.Context, labelID string, ids []string) error
	DeleteMessages(ctx context.Context, ids []string) error
	Empty(ctx context.Context, labelID string) error
	CreateDraft(ctx context.Context, d *api.DraftRequest) (*api.Message, error)
	UpdateDraft(ctx context.Context, id string, d *api.DraftRequest) (*api.Message, error)
	Send(ctx context.Context, id string, req *api.SendRequest) (*api.Message, error)
	UploadAttachment(ctx context.Context, req *api.UploadAttachmentRequest) (*api.Attachment, error)
	DeleteAttachment(ctx context.Context, id string) error
}

// Packager builds the per-recipient send packages for a draft.
type Packager interface {
	Packages(msg *types.Message, plaintext string) (*api.SendRequest, error)
}

// Crypter is the key material the send and attachment paths need.
type Crypter interface {
	Decrypt(armored string) (string, error)
	EncryptAttachment(filename string, data []byte) (keyPacket, dataPacket []byte, err error)
}

// Executor drains the queue against the server. Outcome handling
// follows a fixed ladder: connectivity loss leaves the entry queued
// and stops the drain; a 404 drops it; a 5xx parks it on the failed
// queue; a verification demand blocks the whole queue; any other
// failure drops the entry and surfaces the error.
type Executor struct {
	queue    *Queue
	store    *db.DB
	api      API
	packager Packager
	crypter  Crypter

	// OnConnectivityLost fires when a drain stops on a transport
	// failure, so callers can flip their offline indicator.
	OnConnectivityLost func()
	// OnNotice receives human-readable reports of dropped or parked
	// actions.
	OnNotice func(string)
}

// NewExecutor wires an executor. packager and crypter may be nil when
// the account key is locked; send and attachment actions then park
// with an explanatory notice instead of executing.
func NewExecutor(q *Queue, store *db.DB, client API, packager Packager, crypter Crypter) *Executor {
	return &Executor{queue: q, store: store, api: client, packager: packager, crypter: crypter}
}

func (e *Executor) notice(format string, args ...any) {
	if e.OnNotice != nil {
		e.OnNotice(fmt.Sprintf(format, args...))
	}
}

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeConnectivity
	outcomeDrop
	outcomePark
	outcomeBlocked
)

func classify(err error) outcome {
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, errMissingTarget):
		return outcomeDrop
	case api.IsHumanVerification(err):
		return outcomeBlocked
	case api.IsConnectivity(err):
		return outcomeConnectivity
	case api.StatusCode(err) == 404:
		return outcomeDrop
	case api.StatusCode(err) >= 500:
		return outcomePark
	default:
		return outcomeDrop
	}
}

// Drain executes queue entries head-first until the queue empties,
// connectivity drops, or the queue blocks. Returns how many entries
// completed successfully.
func (e *Executor) Drain(ctx context.Context) (int, error) {
	done := 0
	for {
		a, err := e.queue.Next()
		if err != nil {
			return done, err
		}
		if a == nil {
			return done, nil
		}

		execErr := e.execute(ctx, a)
		e.queue.Done()

		switch classify(execErr) {
		case outcomeSuccess:
			if err := e.queue.Remove(a.ElementID); err != nil {
				return done, err
			}
			done++
		case outcomeConnectivity:
			if e.OnConnectivityLost != nil {
				e.OnConnectivityLost()
			}
			return done, nil
		case outcomeBlocked:
			e.queue.SetBlocked(true)
			e.notice("queue blocked: verification required before %s %s can run", a.Kind, a.Target)
			return done, nil
		case outcomePark:
			if err := e.queue.Park(a); err != nil {
				return done, err
			}
			e.notice("parked %s %s after server error: %v", a.Kind, a.Target, execErr)
		case outcomeDrop:
			if err := e.queue.Remove(a.ElementID); err != nil {
				return done, err
			}
			e.notice("dropped %s %s: %v", a.Kind, a.Target, execErr)
		}
	}
}

func (e *Executor) execute(ctx context.Context, a *types.PendingAction) error {
	switch a.Kind {
	case types.ActionRead, types.ActionUnread, types.ActionStar, types.ActionUnstar:
		return e.api.MessageAction(ctx, string(a.Kind), []string{a.Target})
	case types.ActionFolder:
		return e.moveFolder(ctx, a)
	case types.ActionLabel:
		return e.api.LabelMessages(ctx, a.Data1, []string{a.Target})
	case types.ActionUnlabel:
		return e.api.UnlabelMessages(ctx, a.Data1, []string{a.Target})
	case types.ActionDelete:
		return e.api.DeleteMessages(ctx, []string{a.Target})
	case types.ActionEmpty:
		return e.api.Empty(ctx, a.Target)
	case types.ActionSaveDraft:
		return e.saveDraft(ctx, a)
	case types.ActionSend:
		return e.send(ctx, a)
	case types.ActionUploadAtt:
		return e.uploadAttachment(ctx, a)
	case types.ActionDeleteAtt:
		return e.api.DeleteAttachment(ctx, a.Target)
	default:
		return fmt.Errorf("%w: unknown action kind %q", errMissingTarget, a.Kind)
	}
}

// moveFolder maps a location move onto the server's named batch
// actions; destinations without one fall back to the label endpoint
// with the numeric system label ID.
func (e *Executor) moveFolder(ctx context.Context, a *types.PendingAction) error {
	dest, err := strconv.Atoi(a.Data2)
	if err != nil {
		return fmt.Errorf("%w: bad destination %q", errMissingTarget, a.Data2)
	}
	switch types.Location(dest) {
	case types.LocationInbox:
		return e.api.MessageAction(ctx, "inbox", []string{a.Target})
	case types.LocationTrash:
		return e.api.MessageAction(ctx, "trash", []string{a.Target})
	case types.LocationSpam:
		return e.api.MessageAction(ctx, "spam", []string{a.Target})
	case types.LocationArchive:
		return e.api.MessageAction(ctx, "archive", []string{a.Target})
	default:
		return e.api.LabelMessages(ctx, a.Data2, []string{a.Target})
	}
}

func (e *Executor) saveDraft(ctx context.Context, a *types.PendingAction) error {
	msg, err := e.store.GetMessage(a.Target)
	if err != nil {
		return err
	}
	if msg == nil {
		return fmt.Errorf("%w: draft %s", errMissingTarget, a.Target)
	}

	// The stored body is already armored ciphertext; it ships as-is.
	req := &api.DraftRequest{
		Subject:   msg.Subject,
		ToList:    compose.ParseAddresses(msg.ToList),
		CCList:    compose.ParseAddresses(msg.CCList),
		BCCList:   compose.ParseAddresses(msg.BCCList),
		Body:      msg.Body,
		AddressID: msg.AddressID,
	}

	if types.IsLocalID(a.Target) {
		created, err := e.api.CreateDraft(ctx, req)
		if err != nil {
			return err
		}
		if err := e.store.ReplaceMessageID(a.Target, created.ID); err != nil {
			return err
		}
		return e.queue.Retarget(a.Target, created.ID)
	}

	_, err = e.api.UpdateDraft(ctx, a.Target, req)
	return err
}

func (e *Executor) send(ctx context.Context, a *types.PendingAction) error {
	if e.packager == nil || e.crypter == nil {
		return &api.Error{StatusCode: 500, Message: "account key locked, cannot build send packages"}
	}
	msg, err := e.store.GetMessage(a.Target)
	if err != nil {
		return err
	}
	if msg == nil {
		return fmt.Errorf("%w: message %s", errMissingTarget, a.Target)
	}

	plaintext, err := e.crypter.Decrypt(msg.Body)
	if err != nil {
		return fmt.Errorf("decrypt draft %s: %w", a.Target, err)
	}
	req, err := e.packager.Packages(msg, plaintext)
	if err != nil {
		return err
	}

	sent, err := e.api.Send(ctx, a.Target, req)
	if err != nil {
		return err
	}

	// The message leaves drafts for sent mail, tagged with whether
	// every recipient got an end-to-end package.
	encrypted := true
	for _, p := range req.Packages {
		if p.Type != api.PackageInternal {
			encrypted = false
		}
	}
	id := a.Target
	if sent != nil && sent.ID != "" && sent.ID != id {
		if err := e.store.ReplaceMessageID(id, sent.ID); err != nil {
			return err
		}
		if err := e.queue.Retarget(id, sent.ID); err != nil {
			return err
		}
		id = sent.ID
	}
	if err := e.store.MoveMessage(id, types.LocationOutbox, types.OriginSync); err != nil {
		return err
	}
	if err := e.store.SetEncrypted(id, encrypted); err != nil {
		return err
	}
	// Drop stale duplicates for the same message.
	return e.queue.RemoveSendRelated(id)
}

func (e *Executor) uploadAttachment(ctx context.Context, a *types.PendingAction) error {
	if e.crypter == nil {
		return &api.Error{StatusCode: 500, Message: "account key locked, cannot encrypt attachment"}
	}
	att, err := e.store.GetAttachment(a.Target)
	if err != nil {
		return err
	}
	if att == nil || att.LocalPath == "" {
		return fmt.Errorf("%w: attachment %s", errMissingTarget, a.Target)
	}
	data, err := os.ReadFile(att.LocalPath)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", errMissingTarget, att.LocalPath, err)
	}
	keyPkt, dataPkt, err := e.crypter.EncryptAttachment(att.Filename, data)
	if err != nil {
		return fmt.Errorf("encrypt attachment %s: %w", att.Filename, err)
	}
	uploaded, err := e.api.UploadAttachment(ctx, &api.UploadAttachmentRequest{
		MessageID:  att.MessageID,
		Filename:   att.Filename,
		MIMEType:   att.MIMEType,
		KeyPacket:  keyPkt,
		DataPacket: dataPkt,
	})
	if err != nil {
		return err
	}

	// Replace the provisional row with the server's metadata.
	if err := e.store.DeleteAttachment(a.Target); err != nil {
		return err
	}
	return e.store.UpsertAttachment(&types.Attachment{
		ID:        uploaded.ID,
		MessageID: att.MessageID,
		Filename:  att.Filename,
		MIMEType:  att.MIMEType,
		Size:      int64(len(data)),
		KeyPacket: base64.StdEncoding.EncodeToString(keyPkt),
		LocalPath: att.LocalPath,
	})
}
