package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/sealmail/sealmail/internal/types"
)

// UpsertContact inserts or replaces a cached contact.
func (d *DB) UpsertContact(c *types.Contact) error {
	_, err := d.conn.Exec(`
		INSERT INTO contacts (id, name, email, public_key)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, email = excluded.email, public_key = excluded.public_key`,
		c.ID, c.Name, c.Email, c.PublicKey)
	if err != nil {
		return fmt.Errorf("upsert contact %s: %w", c.ID, err)
	}
	return nil
}

// GetContact returns a cached contact by ID, or nil when absent.
func (d *DB) GetContact(id string) (*types.Contact, error) {
	var c types.Contact
	err := d.conn.Get(&c, "SELECT id, name, email, public_key FROM contacts WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ContactByEmail returns the cached contact for an address, or nil.
func (d *DB) ContactByEmail(email string) (*types.Contact, error) {
	var c types.Contact
	err := d.conn.Get(&c, "SELECT id, name, email, public_key FROM contacts WHERE email = ?", email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Contacts returns every cached contact ordered by name.
func (d *DB) Contacts() ([]*types.Contact, error) {
	var cs []*types.Contact
	if err := d.conn.Select(&cs, "SELECT id, name, email, public_key FROM contacts ORDER BY name, email"); err != nil {
		return nil, err
	}
	return cs, nil
}

// DeleteContact removes a contact. A missing contact is a no-op.
func (d *DB) DeleteContact(id string) error {
	_, err := d.conn.Exec("DELETE FROM contacts WHERE id = ?", id)
	return err
}

// ContactCount returns the number of cached contacts.
func (d *DB) ContactCount() int {
	var n int
	d.conn.Get(&n, "SELECT COUNT(*) FROM contacts")
	return n
}

// --- Attachments ---

// UpsertAttachment inserts or replaces cached attachment metadata.
func (d *DB) UpsertAttachment(a *types.Attachment) error {
	_, err := d.conn.Exec(`
		INSERT INTO attachments (id, message_id, filename, mime_type, size, key_packet, local_path)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			message_id = excluded.message_id,
			filename   = excluded.filename,
			mime_type  = excluded.mime_type,
			size       = excluded.size,
			key_packet = excluded.key_packet,
			local_path = excluded.local_path`,
		a.ID, a.MessageID, a.Filename, a.MIMEType, a.Size, a.KeyPacket, a.LocalPath)
	if err != nil {
		return fmt.Errorf("upsert attachment %s: %w", a.ID, err)
	}
	return nil
}

// GetAttachment returns cached attachment metadata, or nil when absent.
func (d *DB) GetAttachment(id string) (*types.Attachment, error) {
	var a types.Attachment
	err := d.conn.Get(&a,
		"SELECT id, message_id, filename, mime_type, size, key_packet, local_path FROM attachments WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// AttachmentsByMessage returns attachment metadata for a message.
func (d *DB) AttachmentsByMessage(messageID string) ([]*types.Attachment, error) {
	var as []*types.Attachment
	if err := d.conn.Select(&as,
		"SELECT id, message_id, filename, mime_type, size, key_packet, local_path FROM attachments WHERE message_id = ? ORDER BY filename",
		messageID); err != nil {
		return nil, err
	}
	return as, nil
}

// DeleteAttachment removes cached attachment metadata.
func (d *DB) DeleteAttachment(id string) error {
	_, err := d.conn.Exec("DELETE FROM attachments WHERE id = ?", id)
	return err
}
