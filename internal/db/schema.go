package db

// Schema is the DDL for the sealmail cache database.
const Schema = `
CREATE TABLE IF NOT EXISTS messages (
    id              TEXT PRIMARY KEY,
    conversation_id TEXT,
    address_id      TEXT,
    subject         TEXT NOT NULL DEFAULT '',
    sender          TEXT NOT NULL DEFAULT '',
    to_list         TEXT,
    cc_list         TEXT,
    bcc_list        TEXT,
    body            TEXT,
    mime_type       TEXT,
    time            INTEGER NOT NULL DEFAULT 0,
    size            INTEGER NOT NULL DEFAULT 0,
    location        INTEGER NOT NULL DEFAULT 0,
    unread          INTEGER NOT NULL DEFAULT 0,
    starred         INTEGER NOT NULL DEFAULT 0,
    is_encrypted    INTEGER NOT NULL DEFAULT 0,
    status          INTEGER NOT NULL DEFAULT 0,
    synced          INTEGER NOT NULL DEFAULT 0,
    fetched_at      TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS labels (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL,
    color         TEXT,
    display_order INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS message_labels (
    message_id TEXT NOT NULL,
    label_id   TEXT NOT NULL,
    PRIMARY KEY (message_id, label_id)
);

CREATE TABLE IF NOT EXISTS contacts (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL DEFAULT '',
    email      TEXT NOT NULL DEFAULT '',
    public_key TEXT
);

CREATE TABLE IF NOT EXISTS attachments (
    id         TEXT PRIMARY KEY,
    message_id TEXT NOT NULL,
    filename   TEXT NOT NULL DEFAULT '',
    mime_type  TEXT NOT NULL DEFAULT '',
    size       INTEGER NOT NULL DEFAULT 0,
    key_packet TEXT,
    local_path TEXT
);

CREATE TABLE IF NOT EXISTS bookmarks (
    label_id    TEXT PRIMARY KEY,
    range_start INTEGER NOT NULL DEFAULT 0,
    range_end   INTEGER NOT NULL DEFAULT 0,
    total       INTEGER NOT NULL DEFAULT 0,
    unread      INTEGER NOT NULL DEFAULT 0,
    fresh       INTEGER NOT NULL DEFAULT 1,
    updated_at  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS pending_actions (
    seq        INTEGER PRIMARY KEY AUTOINCREMENT,
    element_id TEXT NOT NULL UNIQUE,
    target     TEXT NOT NULL DEFAULT '',
    kind       TEXT NOT NULL,
    data1      TEXT NOT NULL DEFAULT '',
    data2      TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS failed_actions (
    seq        INTEGER PRIMARY KEY AUTOINCREMENT,
    element_id TEXT NOT NULL UNIQUE,
    target     TEXT NOT NULL DEFAULT '',
    kind       TEXT NOT NULL,
    data1      TEXT NOT NULL DEFAULT '',
    data2      TEXT NOT NULL DEFAULT '',
    retries    INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL DEFAULT '',
    failed_at  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_location ON messages(location, time DESC);
CREATE INDEX IF NOT EXISTS idx_messages_starred ON messages(starred) WHERE starred = 1;
CREATE INDEX IF NOT EXISTS idx_message_labels_label ON message_labels(label_id);
CREATE INDEX IF NOT EXISTS idx_attachments_message ON attachments(message_id);
CREATE INDEX IF NOT EXISTS idx_contacts_email ON contacts(email);
`
