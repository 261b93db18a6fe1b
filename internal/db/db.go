// Package db provides SQLite storage for the sealmail offline cache.
//
// Every mutation of a watched message field takes an explicit origin
// tag (user vs sync) and reports the change to registered hooks; the
// mutation observer uses those tags to decide what reaches the durable
// action queue.
package db

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/sealmail/sealmail/internal/types"
)

// Field names a watched message field in a change notification.
type Field string

const (
	FieldLocation Field = "location"
	FieldRead     Field = "read"
	FieldStarred  Field = "starred"
)

// FieldChange describes one watched-field transition on a cached
// message, delivered synchronously to hooks after the write commits.
type FieldChange struct {
	MessageID string
	Field     Field
	Origin    types.Origin
	From      string
	To        string
}

// ChangeHook receives field changes. Hooks run on the caller's
// goroutine; keep them short.
type ChangeHook func(FieldChange)

// DB wraps a SQLite connection for sealmail cache operations.
type DB struct {
	conn  *sqlx.DB
	path  string
	hooks []ChangeHook
}

// Open opens (or creates) a sealmail cache database at the given path.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}

	conn, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec(Schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &DB{conn: conn, path: dbPath}, nil
}

// OpenMemory opens an in-memory database, used by tests.
func OpenMemory() (*DB, error) {
	conn, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open in-memory database: %w", err)
	}
	if _, err := conn.Exec(Schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &DB{conn: conn, path: ":memory:"}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.conn != nil {
		return d.conn.Close()
	}
	return nil
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// OnChange registers a hook for watched-field changes.
func (d *DB) OnChange(h ChangeHook) {
	d.hooks = append(d.hooks, h)
}

func (d *DB) notify(c FieldChange) {
	for _, h := range d.hooks {
		h(c)
	}
}

// Now returns the current time as an ISO 8601 string.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// --- Meta operations ---

// Meta keys used across the engine.
const (
	MetaLastEventID  = "last_event_id"
	MetaCacheVersion = "cache_version"
	MetaAuthVersion  = "auth_version"
)

// GetMeta returns the value for a meta key, or "" when absent.
func (d *DB) GetMeta(key string) string {
	var v string
	d.conn.Get(&v, "SELECT value FROM meta WHERE key = ?", key)
	return v
}

// SetMeta stores a meta key/value pair.
func (d *DB) SetMeta(key, value string) error {
	_, err := d.conn.Exec(
		"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	return err
}

// DeleteMeta removes a meta key.
func (d *DB) DeleteMeta(key string) error {
	_, err := d.conn.Exec("DELETE FROM meta WHERE key = ?", key)
	return err
}

// LastEventID returns the stored event cursor, or "" when no valid
// cursor exists.
func (d *DB) LastEventID() string {
	id := d.GetMeta(MetaLastEventID)
	if id == "0" {
		return ""
	}
	return id
}

// SetLastEventID replaces the event cursor after a successful batch.
func (d *DB) SetLastEventID(id string) error {
	return d.SetMeta(MetaLastEventID, id)
}

// Wipe statements by scope. The mail scope covers everything keyed to
// the event cursor: messages, labels, attachments, bookmarks and the
// cursor itself.
var (
	wipeMailStmts = []string{
		"DELETE FROM message_labels",
		"DELETE FROM messages",
		"DELETE FROM labels",
		"DELETE FROM attachments",
		"DELETE FROM bookmarks",
		"DELETE FROM meta WHERE key = '" + MetaLastEventID + "'",
	}
	wipeContactStmts = []string{
		"DELETE FROM contacts",
	}
	wipeQueueStmts = []string{
		"DELETE FROM pending_actions",
		"DELETE FROM failed_actions",
	}
)

// WipeCache deletes every cached entity, bookmark, queue entry and the
// event cursor. Version stamps and credentials are the lifecycle
// manager's concern, not this function's.
func (d *DB) WipeCache() error {
	return d.wipe(wipeMailStmts, wipeContactStmts, wipeQueueStmts)
}

// WipeEntities deletes cached entities, bookmarks and the event
// cursor but preserves the action queues. Used when the server
// demands a refresh of both scopes: pending user intent must survive
// the reset.
func (d *DB) WipeEntities() error {
	return d.wipe(wipeMailStmts, wipeContactStmts)
}

// WipeMail deletes mail entities, bookmarks and the event cursor but
// leaves contacts and the action queues untouched. Used for a
// mail-scoped server refresh.
func (d *DB) WipeMail() error {
	return d.wipe(wipeMailStmts)
}

// WipeContacts deletes cached contacts only. Used for a
// contacts-scoped server refresh.
func (d *DB) WipeContacts() error {
	return d.wipe(wipeContactStmts)
}

func (d *DB) wipe(groups ...[]string) error {
	tx, err := d.conn.Beginx()
	if err != nil {
		return fmt.Errorf("begin wipe: %w", err)
	}
	defer tx.Rollback()
	for _, stmts := range groups {
		for _, s := range stmts {
			if _, err := tx.Exec(s); err != nil {
				return fmt.Errorf("wipe cache: %w", err)
			}
		}
	}
	return tx.Commit()
}
