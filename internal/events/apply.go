package events

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/sealmail/sealmail/internal/api"
	"github.com/sealmail/sealmail/internal/db"
	"github.com/sealmail/sealmail/internal/types"
)

// applyBatch folds one event batch into the cache: message deltas
// first, then counters, labels, contacts, and the user snapshot.
// Inserts that arrive without usable metadata land in the cache
// unsynced; the engine refetches them after the batch walk.
func (e *Engine) applyBatch(resp *api.EventsResponse, res *types.SyncResult) error {
	for i := range resp.Messages {
		if err := e.applyMessageEvent(&resp.Messages[i], res); err != nil {
			return err
		}
	}
	for _, c := range resp.MessageCounts {
		if err := e.store.SetCounts(c.LabelID, c.Total, c.Unread); err != nil {
			return err
		}
	}
	for i := range resp.Labels {
		if err := e.applyLabelEvent(&resp.Labels[i]); err != nil {
			return err
		}
	}
	for i := range resp.Contacts {
		if err := e.applyContactEvent(&resp.Contacts[i]); err != nil {
			return err
		}
	}
	if u := resp.User; u != nil {
		if err := e.store.SetMeta("user_email", u.Email); err != nil {
			return err
		}
		if err := e.store.SetMeta("user_display_name", u.DisplayName); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) applyMessageEvent(ev *api.MessageEvent, res *types.SyncResult) error {
	existing, err := e.store.GetMessage(ev.ID)
	if err != nil {
		return err
	}

	if ev.Action == api.EventDelete {
		if existing == nil {
			return nil
		}
		if existing.Unread {
			if err := e.store.AdjustUnread(existing.Location.String(), -1); err != nil {
				return err
			}
		}
		if err := e.store.DeleteMessage(ev.ID); err != nil {
			return err
		}
		res.Deleted++
		return nil
	}

	if ev.Message == nil {
		return nil
	}
	wire := ev.Message

	// Unread-counter corrections run here, against the row as it was:
	// the raw upsert below does not touch counters. An insert for a
	// message already cached is just an update, so it must not bump
	// the counter a second time.
	newLoc := types.Location(wire.Location).String()
	newUnread := wire.Unread == 1
	switch {
	case existing == nil:
		if newUnread {
			if err := e.store.AdjustUnread(newLoc, 1); err != nil {
				return err
			}
		}
	case existing.Location != types.Location(wire.Location):
		if existing.Unread {
			if err := e.store.AdjustUnread(existing.Location.String(), -1); err != nil {
				return err
			}
		}
		if newUnread {
			if err := e.store.AdjustUnread(newLoc, 1); err != nil {
				return err
			}
		}
	case existing.Unread != newUnread:
		delta := -1
		if newUnread {
			delta = 1
		}
		if err := e.store.AdjustUnread(newLoc, delta); err != nil {
			return err
		}
	}

	status := types.StatusHeaderOnly
	if ev.Action == api.EventUpdateDraft && wire.Body != "" {
		status = types.StatusFullyCached
	}
	// Inserts that carry only an ID stay unsynced until refetched.
	if err := e.upsertWireMessage(wire, status, wire.Subject != ""); err != nil {
		return err
	}

	// A flags update carries the authoritative label set.
	if wire.LabelIDs != nil {
		current, err := e.store.MessageLabelIDs(ev.ID)
		if err != nil {
			return err
		}
		want := make(map[string]bool, len(wire.LabelIDs))
		for _, id := range wire.LabelIDs {
			want[id] = true
		}
		for _, id := range current {
			if !want[id] {
				if err := e.store.RemoveMessageLabel(ev.ID, id); err != nil {
					return err
				}
			}
		}
		for _, id := range wire.LabelIDs {
			if err := e.store.AddMessageLabel(ev.ID, id); err != nil {
				return err
			}
		}
	}
	res.Applied++
	return nil
}

func (e *Engine) applyLabelEvent(ev *api.LabelEvent) error {
	if ev.Action == api.EventDelete {
		return e.store.DeleteLabel(ev.ID)
	}
	if ev.Label == nil {
		return nil
	}
	return e.store.UpsertLabel(wireLabel(ev.Label))
}

func (e *Engine) applyContactEvent(ev *api.ContactEvent) error {
	if ev.Action == api.EventDelete {
		return e.store.DeleteContact(ev.ID)
	}
	if ev.Contact == nil {
		return nil
	}
	return e.store.UpsertContact(wireContact(ev.Contact))
}

// upsertWireMessage converts a wire message and writes it through the
// merging upsert: an empty incoming body keeps the cached one, and
// neither status nor the synced marker regresses once set.
func (e *Engine) upsertWireMessage(m *api.Message, status types.MessageStatus, synced bool) error {
	msg := &types.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		AddressID:      m.AddressID,
		Subject:        m.Subject,
		Sender:         formatAddress(m.Sender),
		ToList:         joinAddresses(m.ToList),
		CCList:         joinAddresses(m.CCList),
		BCCList:        joinAddresses(m.BCCList),
		Body:           m.Body,
		MIMEType:       m.MIMEType,
		Time:           m.Time,
		Size:           m.Size,
		Location:       types.Location(m.Location),
		Unread:         m.Unread == 1,
		Starred:        m.Starred == 1,
		IsEncrypted:    m.IsEncrypted == 1,
		Status:         status,
		Synced:         synced,
		FetchedAt:      db.Now(),
	}
	if err := e.store.UpsertMessage(msg); err != nil {
		return fmt.Errorf("apply message %s: %w", m.ID, err)
	}
	return nil
}

func formatAddress(a api.EmailAddress) string {
	if a.Name == "" {
		return a.Address
	}
	return (&mail.Address{Name: a.Name, Address: a.Address}).String()
}

func joinAddresses(as []api.EmailAddress) string {
	parts := make([]string, 0, len(as))
	for _, a := range as {
		parts = append(parts, formatAddress(a))
	}
	return strings.Join(parts, ", ")
}

func wireLabel(l *api.Label) *types.Label {
	return &types.Label{ID: l.ID, Name: l.Name, Color: l.Color, Order: l.Order}
}

func wireContact(c *api.Contact) *types.Contact {
	return &types.Contact{ID: c.ID, Name: c.Name, Email: c.Email, PublicKey: c.PublicKey}
}

func wireAttachment(a *api.Attachment) *types.Attachment {
	return &types.Attachment{
		ID:        a.ID,
		MessageID: a.MessageID,
		Filename:  a.Name,
		MIMEType:  a.MIMEType,
		Size:      a.Size,
		KeyPacket: a.KeyPacket,
	}
}
