package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/sealmail/sealmail/internal/types"
)

// UpsertLabel inserts or replaces a cached label.
func (d *DB) UpsertLabel(l *types.Label) error {
	_, err := d.conn.Exec(`
		INSERT INTO labels (id, name, color, display_order)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, color = excluded.color, display_order = excluded.display_order`,
		l.ID, l.Name, l.Color, l.Order)
	if err != nil {
		return fmt.Errorf("upsert label %s: %w", l.ID, err)
	}
	return nil
}

// GetLabel returns a cached label by ID, or nil when absent.
func (d *DB) GetLabel(id string) (*types.Label, error) {
	var l types.Label
	err := d.conn.Get(&l, "SELECT id, name, color, display_order FROM labels WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// Labels returns every cached label in display order.
func (d *DB) Labels() ([]*types.Label, error) {
	var ls []*types.Label
	if err := d.conn.Select(&ls,
		"SELECT id, name, color, display_order FROM labels ORDER BY display_order, name"); err != nil {
		return nil, err
	}
	return ls, nil
}

// DeleteLabel removes a label and detaches it from every message.
// A missing label is a no-op, not an error.
func (d *DB) DeleteLabel(id string) error {
	tx, err := d.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec("DELETE FROM message_labels WHERE label_id = ?", id); err != nil {
		return fmt.Errorf("detach label %s: %w", id, err)
	}
	if _, err := tx.Exec("DELETE FROM labels WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete label %s: %w", id, err)
	}
	return tx.Commit()
}
