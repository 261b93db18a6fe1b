// Package mailbox is the user-facing operation layer: every command a
// person can issue against their mail goes through here, lands in the
// local cache immediately, and reaches the server later through the
// durable queue.
package mailbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/sealmail/sealmail/internal/db"
	"github.com/sealmail/sealmail/internal/queue"
	"github.com/sealmail/sealmail/internal/types"
)

// Encrypter seals draft bodies to the account key.
type Encrypter interface {
	Encrypt(plaintext string) (string, error)
}

// Service applies user intent to the cache. Flag and location changes
// reach the queue through the mutation observer; operations without a
// watched field (delete, empty, labels, drafts, sends) enqueue
// directly.
type Service struct {
	store      *db.DB
	queue      *queue.Queue
	undo       *UndoRegistry
	undoWindow time.Duration

	// OnQueueChange fires after any operation that grew the queue,
	// so the caller can drain eagerly.
	OnQueueChange func()
}

// New returns a service over the store and queue.
func New(store *db.DB, q *queue.Queue, undoWindow time.Duration) *Service {
	return &Service{store: store, queue: q, undo: NewUndoRegistry(), undoWindow: undoWindow}
}

func (s *Service) changed() {
	if s.OnQueueChange != nil {
		s.OnQueueChange()
	}
}

// MarkRead flips the read flag as a user action.
func (s *Service) MarkRead(id string, read bool) error {
	if err := s.store.SetRead(id, read, types.OriginUser); err != nil {
		return err
	}
	s.changed()
	return nil
}

// Star flips the star flag as a user action.
func (s *Service) Star(id string, starred bool) error {
	if err := s.store.SetStarred(id, starred, types.OriginUser); err != nil {
		return err
	}
	s.changed()
	return nil
}

// Move relocates a message as a user action. Moves into trash or spam
// are registered as undoable for the configured window.
func (s *Service) Move(id string, to types.Location) error {
	m, err := s.store.GetMessage(id)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("no such message %s", id)
	}
	if err := s.store.MoveMessage(id, to, types.OriginUser); err != nil {
		return err
	}
	if to == types.LocationTrash || to == types.LocationSpam {
		s.undo.Register(id, m.Location, s.undoWindow)
	}
	s.changed()
	return nil
}

// Undo reverses a recent destructive move. Returns false when the
// window has elapsed or nothing is registered. Restores into drafts or
// sent enqueue the reverse move explicitly, because the observer only
// queues moves between regular folders.
func (s *Service) Undo(id string) (bool, error) {
	m, ok := s.undo.Take(id)
	if !ok {
		return false, nil
	}
	cur, err := s.store.GetMessage(id)
	if err != nil {
		return false, err
	}
	if cur == nil {
		return false, nil
	}
	if err := s.store.MoveMessage(id, m.From, types.OriginUser); err != nil {
		return false, err
	}
	if m.From == types.LocationDraft || m.From == types.LocationOutbox {
		if _, err := s.queue.Enqueue(id, types.ActionFolder,
			strconv.Itoa(int(cur.Location)), strconv.Itoa(int(m.From))); err != nil {
			return false, err
		}
	}
	s.changed()
	return true, nil
}

// Delete removes a message permanently, locally at once and remotely
// through the queue.
func (s *Service) Delete(id string) error {
	if !s.store.MessageExists(id) {
		return fmt.Errorf("no such message %s", id)
	}
	if err := s.store.DeleteMessage(id); err != nil {
		return err
	}
	if _, err := s.queue.Enqueue(id, types.ActionDelete, "", ""); err != nil {
		return err
	}
	s.changed()
	return nil
}

// Empty permanently deletes everything in a location.
func (s *Service) Empty(loc types.Location) (int, error) {
	n, err := s.store.DeleteMessagesByLocation(loc)
	if err != nil {
		return 0, err
	}
	if _, err := s.queue.Enqueue(strconv.Itoa(int(loc)), types.ActionEmpty, "", ""); err != nil {
		return n, err
	}
	s.changed()
	return n, nil
}

// Label attaches a label locally and queues the remote attach.
func (s *Service) Label(id, labelID string) error {
	if err := s.store.AddMessageLabel(id, labelID); err != nil {
		return err
	}
	if _, err := s.queue.Enqueue(id, types.ActionLabel, labelID, ""); err != nil {
		return err
	}
	s.changed()
	return nil
}

// Unlabel detaches a label locally and queues the remote detach.
func (s *Service) Unlabel(id, labelID string) error {
	if err := s.store.RemoveMessageLabel(id, labelID); err != nil {
		return err
	}
	if _, err := s.queue.Enqueue(id, types.ActionUnlabel, labelID, ""); err != nil {
		return err
	}
	s.changed()
	return nil
}

// DraftInput is the editable surface of a draft.
type DraftInput struct {
	ID      string // empty for a new draft
	Subject string
	To      string
	CC      string
	BCC     string
	Body    string // plaintext; sealed before storage
	Sender  string
}

// SaveDraft stores a draft locally under a provisional ID when new,
// encrypts its body to the account key, and queues the remote save.
func (s *Service) SaveDraft(enc Encrypter, in DraftInput) (*types.Message, error) {
	body, err := enc.Encrypt(in.Body)
	if err != nil {
		return nil, fmt.Errorf("seal draft body: %w", err)
	}

	id := in.ID
	if id == "" {
		id = types.LocalIDPrefix + uuid.NewString()
	} else if !s.store.MessageExists(id) {
		return nil, fmt.Errorf("no such draft %s", id)
	}

	msg := &types.Message{
		ID:          id,
		Subject:     in.Subject,
		Sender:      in.Sender,
		ToList:      in.To,
		CCList:      in.CC,
		BCCList:     in.BCC,
		Body:        body,
		Time:        time.Now().Unix(),
		Location:    types.LocationDraft,
		IsEncrypted: true,
		Status:      types.StatusFullyCached,
		Synced:      true,
		FetchedAt:   db.Now(),
	}
	if err := s.store.UpsertMessage(msg); err != nil {
		return nil, err
	}
	if _, err := s.queue.Enqueue(id, types.ActionSaveDraft, "", ""); err != nil {
		return nil, err
	}
	s.changed()
	return msg, nil
}

// Send queues delivery of a draft. The actual package build happens
// in the executor so an offline send still lands in the queue.
func (s *Service) Send(id string) error {
	m, err := s.store.GetMessage(id)
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("no such message %s", id)
	}
	if m.Location != types.LocationDraft {
		return fmt.Errorf("message %s is not a draft", id)
	}
	if _, err := s.queue.Enqueue(id, types.ActionSend, "", ""); err != nil {
		return err
	}
	s.changed()
	return nil
}

// AttachFile registers a local file as a draft attachment and queues
// its encrypted upload.
func (s *Service) AttachFile(messageID, path, mimeType string) (*types.Attachment, error) {
	if !s.store.MessageExists(messageID) {
		return nil, fmt.Errorf("no such draft %s", messageID)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("attach %s: %w", path, err)
	}
	att := &types.Attachment{
		ID:        types.LocalIDPrefix + uuid.NewString(),
		MessageID: messageID,
		Filename:  filepath.Base(path),
		MIMEType:  mimeType,
		Size:      info.Size(),
		LocalPath: path,
	}
	if err := s.store.UpsertAttachment(att); err != nil {
		return nil, err
	}
	if _, err := s.queue.Enqueue(att.ID, types.ActionUploadAtt, "", ""); err != nil {
		return nil, err
	}
	s.changed()
	return att, nil
}

// RemoveAttachment drops an attachment locally and queues the remote
// delete when the attachment already exists server-side.
func (s *Service) RemoveAttachment(attachmentID string) error {
	att, err := s.store.GetAttachment(attachmentID)
	if err != nil {
		return err
	}
	if att == nil {
		return fmt.Errorf("no such attachment %s", attachmentID)
	}
	if err := s.store.DeleteAttachment(attachmentID); err != nil {
		return err
	}
	if !types.IsLocalID(attachmentID) {
		if _, err := s.queue.Enqueue(attachmentID, types.ActionDeleteAtt, "", ""); err != nil {
			return err
		}
		s.changed()
	}
	return nil
}
