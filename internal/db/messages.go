package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/sealmail/sealmail/internal/types"
)

const messageColumns = `id, conversation_id, address_id, subject, sender, to_list, cc_list, bcc_list,
	body, mime_type, time, size, location, unread, starred, is_encrypted, status, synced, fetched_at`

// GetMessage returns a cached message by ID, or nil when absent.
func (d *DB) GetMessage(id string) (*types.Message, error) {
	var m types.Message
	err := d.conn.Get(&m, "SELECT "+messageColumns+" FROM messages WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get message %s: %w", id, err)
	}
	return &m, nil
}

// MessageExists reports whether a message ID is cached.
func (d *DB) MessageExists(id string) bool {
	var n int
	d.conn.Get(&n, "SELECT 1 FROM messages WHERE id = ?", id)
	return n == 1
}

// MessagesByLocation returns cached messages in a location, newest
// first. LocationStarred is resolved through the starred flag rather
// than a location match.
func (d *DB) MessagesByLocation(loc types.Location, limit int) ([]*types.Message, error) {
	query := "SELECT " + messageColumns + " FROM messages WHERE location = ? ORDER BY time DESC"
	arg := any(int(loc))
	if loc == types.LocationStarred {
		query = "SELECT " + messageColumns + " FROM messages WHERE starred = ? ORDER BY time DESC"
		arg = 1
	}
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	var msgs []*types.Message
	if err := d.conn.Select(&msgs, query, arg); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// MessagesByLabel returns cached messages carrying a label, newest first.
func (d *DB) MessagesByLabel(labelID string, limit int) ([]*types.Message, error) {
	query := `SELECT ` + prefixColumns("m.") + ` FROM messages m
		JOIN message_labels ml ON ml.message_id = m.id
		WHERE ml.label_id = ? ORDER BY m.time DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	var msgs []*types.Message
	if err := d.conn.Select(&msgs, query, labelID); err != nil {
		return nil, fmt.Errorf("list messages by label: %w", err)
	}
	return msgs, nil
}

// UpsertMessage inserts or replaces a cached message by identity.
// Existing watched-field values are preserved only through what the
// caller passes in; sync-engine callers merge before writing.
func (d *DB) UpsertMessage(m *types.Message) error {
	if m.FetchedAt == "" {
		m.FetchedAt = Now()
	}
	_, err := d.conn.Exec(`
		INSERT INTO messages
			(`+messageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			conversation_id = excluded.conversation_id,
			address_id      = excluded.address_id,
			subject         = excluded.subject,
			sender          = excluded.sender,
			to_list         = excluded.to_list,
			cc_list         = excluded.cc_list,
			bcc_list        = excluded.bcc_list,
			body            = CASE WHEN excluded.body != '' THEN excluded.body ELSE messages.body END,
			mime_type       = excluded.mime_type,
			time            = excluded.time,
			size            = excluded.size,
			location        = excluded.location,
			unread          = excluded.unread,
			starred         = excluded.starred,
			is_encrypted    = excluded.is_encrypted,
			status          = MAX(messages.status, excluded.status),
			synced          = MAX(messages.synced, excluded.synced),
			fetched_at      = excluded.fetched_at`,
		m.ID, m.ConversationID, m.AddressID, m.Subject, m.Sender, m.ToList, m.CCList, m.BCCList,
		m.Body, m.MIMEType, m.Time, m.Size, int(m.Location), m.Unread, m.Starred, m.IsEncrypted,
		int(m.Status), m.Synced, m.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert message %s: %w", m.ID, err)
	}
	return nil
}

// SetEncrypted records whether a message went out end-to-end
// encrypted, as classified after a successful send.
func (d *DB) SetEncrypted(id string, encrypted bool) error {
	_, err := d.conn.Exec("UPDATE messages SET is_encrypted = ? WHERE id = ?", encrypted, id)
	return err
}

// ReplaceMessageID rewrites a provisional local message ID to the
// server-assigned one across the message row and its attachments and
// label links.
func (d *DB) ReplaceMessageID(oldID, newID string) error {
	tx, err := d.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec("UPDATE messages SET id = ? WHERE id = ?", newID, oldID); err != nil {
		return fmt.Errorf("replace message id %s: %w", oldID, err)
	}
	if _, err := tx.Exec("UPDATE message_labels SET message_id = ? WHERE message_id = ?", newID, oldID); err != nil {
		return err
	}
	if _, err := tx.Exec("UPDATE attachments SET message_id = ? WHERE message_id = ?", newID, oldID); err != nil {
		return err
	}
	return tx.Commit()
}

// MarkFullyCached promotes a message to fully-cached status.
func (d *DB) MarkFullyCached(id string) error {
	_, err := d.conn.Exec("UPDATE messages SET status = ? WHERE id = ?", int(types.StatusFullyCached), id)
	return err
}

// SetRead flips the read flag. Unread counters on the message's
// location bookmark are corrected in the same transaction, and the
// change is reported to hooks with its origin.
func (d *DB) SetRead(id string, read bool, origin types.Origin) error {
	m, err := d.GetMessage(id)
	if err != nil {
		return err
	}
	if m == nil || m.Unread == !read {
		return nil
	}

	tx, err := d.conn.Beginx()
	if err != nil {
		return fmt.Errorf("begin set read: %w", err)
	}
	defer tx.Rollback()

	unread := 0
	delta := -1
	if !read {
		unread = 1
		delta = 1
	}
	if _, err := tx.Exec("UPDATE messages SET unread = ? WHERE id = ?", unread, id); err != nil {
		return fmt.Errorf("set read %s: %w", id, err)
	}
	if err := adjustUnreadTx(tx, m.Location.String(), delta); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	d.notify(FieldChange{
		MessageID: id,
		Field:     FieldRead,
		Origin:    origin,
		From:      strconv.FormatBool(!m.Unread),
		To:        strconv.FormatBool(read),
	})
	return nil
}

// SetStarred flips the star flag and reports the change with its origin.
func (d *DB) SetStarred(id string, starred bool, origin types.Origin) error {
	m, err := d.GetMessage(id)
	if err != nil {
		return err
	}
	if m == nil || m.Starred == starred {
		return nil
	}
	if _, err := d.conn.Exec("UPDATE messages SET starred = ? WHERE id = ?", starred, id); err != nil {
		return fmt.Errorf("set starred %s: %w", id, err)
	}
	d.notify(FieldChange{
		MessageID: id,
		Field:     FieldStarred,
		Origin:    origin,
		From:      strconv.FormatBool(m.Starred),
		To:        strconv.FormatBool(starred),
	})
	return nil
}

// MoveMessage changes a message's location and reports the transition
// with its origin. Unread counters follow the message between scopes.
func (d *DB) MoveMessage(id string, to types.Location, origin types.Origin) error {
	m, err := d.GetMessage(id)
	if err != nil {
		return err
	}
	if m == nil || m.Location == to {
		return nil
	}

	tx, err := d.conn.Beginx()
	if err != nil {
		return fmt.Errorf("begin move: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("UPDATE messages SET location = ? WHERE id = ?", int(to), id); err != nil {
		return fmt.Errorf("move message %s: %w", id, err)
	}
	if m.Unread {
		if err := adjustUnreadTx(tx, m.Location.String(), -1); err != nil {
			return err
		}
		if err := adjustUnreadTx(tx, to.String(), 1); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	d.notify(FieldChange{
		MessageID: id,
		Field:     FieldLocation,
		Origin:    origin,
		From:      m.Location.String(),
		To:        to.String(),
	})
	return nil
}

// DeleteMessage removes a message. Label associations are detached
// first so no dangling many-to-many rows survive.
func (d *DB) DeleteMessage(id string) error {
	tx, err := d.conn.Beginx()
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM message_labels WHERE message_id = ?", id); err != nil {
		return fmt.Errorf("detach labels for %s: %w", id, err)
	}
	if _, err := tx.Exec("DELETE FROM attachments WHERE message_id = ?", id); err != nil {
		return fmt.Errorf("delete attachments for %s: %w", id, err)
	}
	if _, err := tx.Exec("DELETE FROM messages WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete message %s: %w", id, err)
	}
	return tx.Commit()
}

// DeleteMessagesByLocation removes every message in a location,
// detaching label rows first. Used by empty-folder actions.
func (d *DB) DeleteMessagesByLocation(loc types.Location) (int, error) {
	tx, err := d.conn.Beginx()
	if err != nil {
		return 0, fmt.Errorf("begin empty: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"DELETE FROM message_labels WHERE message_id IN (SELECT id FROM messages WHERE location = ?)",
		int(loc)); err != nil {
		return 0, fmt.Errorf("detach labels: %w", err)
	}
	if _, err := tx.Exec(
		"DELETE FROM attachments WHERE message_id IN (SELECT id FROM messages WHERE location = ?)",
		int(loc)); err != nil {
		return 0, fmt.Errorf("delete attachments: %w", err)
	}
	res, err := tx.Exec("DELETE FROM messages WHERE location = ?", int(loc))
	if err != nil {
		return 0, fmt.Errorf("empty location %s: %w", loc, err)
	}
	n, _ := res.RowsAffected()
	if _, err := tx.Exec("UPDATE bookmarks SET total = 0, unread = 0 WHERE label_id = ?", loc.String()); err != nil {
		return 0, err
	}
	return int(n), tx.Commit()
}

// MessageCount returns the number of cached messages.
func (d *DB) MessageCount() int {
	var n int
	d.conn.Get(&n, "SELECT COUNT(*) FROM messages")
	return n
}

// HeaderOnlyMessageIDs returns IDs of messages that still need a
// detail fetch.
func (d *DB) HeaderOnlyMessageIDs(limit int) ([]string, error) {
	query := "SELECT id FROM messages WHERE status = ? ORDER BY time DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	var ids []string
	if err := d.conn.Select(&ids, query, int(types.StatusHeaderOnly)); err != nil {
		return nil, err
	}
	return ids, nil
}

// UnsyncedMessageIDs returns IDs of messages whose metadata never went
// through a listing or detail merge, newest first. Event inserts that
// arrive as bare IDs land here until the engine refetches them.
func (d *DB) UnsyncedMessageIDs(limit int) ([]string, error) {
	query := "SELECT id FROM messages WHERE synced = 0 ORDER BY time DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	var ids []string
	if err := d.conn.Select(&ids, query); err != nil {
		return nil, err
	}
	return ids, nil
}

// --- Label associations ---
//
// Associations are a plain set: add and remove are idempotent set
// operations, tolerant of missing messages or labels.

// AddMessageLabel attaches a label to a message. A no-op when already
// attached or when the message is not cached.
func (d *DB) AddMessageLabel(messageID, labelID string) error {
	if !d.MessageExists(messageID) {
		return nil
	}
	_, err := d.conn.Exec(
		"INSERT OR IGNORE INTO message_labels (message_id, label_id) VALUES (?, ?)",
		messageID, labelID)
	return err
}

// RemoveMessageLabel detaches a label from a message. A no-op when
// not attached.
func (d *DB) RemoveMessageLabel(messageID, labelID string) error {
	_, err := d.conn.Exec(
		"DELETE FROM message_labels WHERE message_id = ? AND label_id = ?",
		messageID, labelID)
	return err
}

// MessageLabelIDs returns the label set of a message.
func (d *DB) MessageLabelIDs(messageID string) ([]string, error) {
	var ids []string
	if err := d.conn.Select(&ids,
		"SELECT label_id FROM message_labels WHERE message_id = ? ORDER BY label_id", messageID); err != nil {
		return nil, err
	}
	return ids, nil
}

func prefixColumns(prefix string) string {
	cols := []string{
		"id", "conversation_id", "address_id", "subject", "sender", "to_list", "cc_list", "bcc_list",
		"body", "mime_type", "time", "size", "location", "unread", "starred", "is_encrypted", "status", "synced", "fetched_at",
	}
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += prefix + c
	}
	return out
}
