package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sealmail/sealmail/internal/types"
)

// Bookmark returns the sync bookmark for a scope, creating a fresh
// one when none exists yet.
func (d *DB) Bookmark(labelID string) (*types.SyncBookmark, error) {
	var b types.SyncBookmark
	err := d.conn.Get(&b,
		"SELECT label_id, range_start, range_end, total, unread, fresh, updated_at FROM bookmarks WHERE label_id = ?",
		labelID)
	if errors.Is(err, sql.ErrNoRows) {
		b = types.SyncBookmark{LabelID: labelID, Fresh: true}
		if _, err := d.conn.Exec(
			"INSERT OR IGNORE INTO bookmarks (label_id, fresh, updated_at) VALUES (?, 1, ?)",
			labelID, Now()); err != nil {
			return nil, fmt.Errorf("create bookmark %s: %w", labelID, err)
		}
		return &b, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get bookmark %s: %w", labelID, err)
	}
	return &b, nil
}

// SaveBookmark stores a bookmark after a successful fetch batch.
// RangeEnd never moves backwards outside a full reset; the caller is
// the sync engine and already enforces that, but the write guards it
// again at the SQL level.
func (d *DB) SaveBookmark(b *types.SyncBookmark) error {
	b.UpdatedAt = Now()
	_, err := d.conn.Exec(`
		INSERT INTO bookmarks (label_id, range_start, range_end, total, unread, fresh, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(label_id) DO UPDATE SET
			range_start = excluded.range_start,
			range_end   = MAX(bookmarks.range_end, excluded.range_end),
			total       = excluded.total,
			unread      = excluded.unread,
			fresh       = excluded.fresh,
			updated_at  = excluded.updated_at`,
		b.LabelID, b.RangeStart, b.RangeEnd, b.Total, b.Unread, b.Fresh, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save bookmark %s: %w", b.LabelID, err)
	}
	return nil
}

// SetCounts replaces the total/unread counters for a scope, as folded
// from a MessageCounts delta.
func (d *DB) SetCounts(labelID string, total, unread int) error {
	_, err := d.conn.Exec(`
		INSERT INTO bookmarks (label_id, total, unread, fresh, updated_at)
		VALUES (?, ?, ?, 0, ?)
		ON CONFLICT(label_id) DO UPDATE SET
			total      = excluded.total,
			unread     = excluded.unread,
			updated_at = excluded.updated_at`,
		labelID, total, unread, Now())
	return err
}

// AdjustUnread shifts the unread counter for a scope, clamped at zero.
func (d *DB) AdjustUnread(labelID string, delta int) error {
	tx, err := d.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := adjustUnreadTx(tx, labelID, delta); err != nil {
		return err
	}
	return tx.Commit()
}

func adjustUnreadTx(tx *sqlx.Tx, labelID string, delta int) error {
	if _, err := tx.Exec(
		"INSERT OR IGNORE INTO bookmarks (label_id, fresh, updated_at) VALUES (?, 1, ?)",
		labelID, Now()); err != nil {
		return err
	}
	if _, err := tx.Exec(
		"UPDATE bookmarks SET unread = MAX(0, unread + ?), updated_at = ? WHERE label_id = ?",
		delta, Now(), labelID); err != nil {
		return fmt.Errorf("adjust unread %s: %w", labelID, err)
	}
	return nil
}

// Bookmarks returns every stored bookmark.
func (d *DB) Bookmarks() ([]*types.SyncBookmark, error) {
	var bs []*types.SyncBookmark
	if err := d.conn.Select(&bs,
		"SELECT label_id, range_start, range_end, total, unread, fresh, updated_at FROM bookmarks ORDER BY label_id"); err != nil {
		return nil, err
	}
	return bs, nil
}

// ClearBookmarks drops every bookmark, as part of a scope reset.
func (d *DB) ClearBookmarks() error {
	_, err := d.conn.Exec("DELETE FROM bookmarks")
	return err
}
