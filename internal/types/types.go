// Package types defines core data structures for sealmail.
package types

import (
	"strings"
	"time"
)

// LocalIDPrefix marks the provisional IDs given to drafts created
// locally. The first successful save replaces them with the server ID.
const LocalIDPrefix = "local-"

// IsLocalID reports whether an ID is provisional.
func IsLocalID(id string) bool { return strings.HasPrefix(id, LocalIDPrefix) }

// Location is a mailbox folder classification assigned to a cached
// message, distinct from free-form labels. The numeric values double
// as the server's system label IDs.
type Location int

const (
	LocationInbox   Location = 0
	LocationDraft   Location = 1
	LocationOutbox  Location = 2
	LocationTrash   Location = 3
	LocationSpam    Location = 4
	LocationAllMail Location = 5
	LocationArchive Location = 6
	LocationStarred Location = 10
)

// ParseLocation maps a user-facing folder name to a Location.
func ParseLocation(name string) (Location, bool) {
	switch name {
	case "inbox":
		return LocationInbox, true
	case "drafts", "draft":
		return LocationDraft, true
	case "sent", "outbox":
		return LocationOutbox, true
	case "trash":
		return LocationTrash, true
	case "spam":
		return LocationSpam, true
	case "all":
		return LocationAllMail, true
	case "archive":
		return LocationArchive, true
	case "starred":
		return LocationStarred, true
	}
	return 0, false
}

func (l Location) String() string {
	switch l {
	case LocationInbox:
		return "inbox"
	case LocationDraft:
		return "drafts"
	case LocationOutbox:
		return "sent"
	case LocationTrash:
		return "trash"
	case LocationSpam:
		return "spam"
	case LocationAllMail:
		return "all"
	case LocationArchive:
		return "archive"
	case LocationStarred:
		return "starred"
	}
	return "unknown"
}

// MessageStatus distinguishes header-only records from fully cached ones.
type MessageStatus int

const (
	StatusHeaderOnly  MessageStatus = 0
	StatusFullyCached MessageStatus = 1
)

// Message is the locally persisted projection of a server message.
// Body stays PGP-armored at rest; decryption happens on display only.
// Two markers track cache completeness: Synced says the metadata went
// through a listing or detail merge (event stubs arrive unsynced and
// are refetched), Status says whether the body is present.
type Message struct {
	ID             string        `db:"id" json:"id"`
	ConversationID string        `db:"conversation_id" json:"conversation_id,omitempty"`
	AddressID      string        `db:"address_id" json:"address_id,omitempty"`
	Subject        string        `db:"subject" json:"subject"`
	Sender         string        `db:"sender" json:"sender"`
	ToList         string        `db:"to_list" json:"to_list,omitempty"`
	CCList         string        `db:"cc_list" json:"cc_list,omitempty"`
	BCCList        string        `db:"bcc_list" json:"bcc_list,omitempty"`
	Body           string        `db:"body" json:"body,omitempty"`
	MIMEType       string        `db:"mime_type" json:"mime_type,omitempty"`
	Time           int64         `db:"time" json:"time"`
	Size           int64         `db:"size" json:"size,omitempty"`
	Location       Location      `db:"location" json:"location"`
	Unread         bool          `db:"unread" json:"unread"`
	Starred        bool          `db:"starred" json:"starred"`
	IsEncrypted    bool          `db:"is_encrypted" json:"is_encrypted"`
	Status         MessageStatus `db:"status" json:"status"`
	Synced         bool          `db:"synced" json:"synced"`
	FetchedAt      string        `db:"fetched_at" json:"fetched_at"`
}

// Label is a cached user label or folder.
type Label struct {
	ID    string `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Color string `db:"color" json:"color,omitempty"`
	Order int    `db:"display_order" json:"order"`
}

// Contact is a cached contact with its primary email and, when known,
// an armored public key for end-to-end encryption.
type Contact struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	Email     string `db:"email" json:"email"`
	PublicKey string `db:"public_key" json:"public_key,omitempty"`
}

// Attachment is cached attachment metadata. KeyPacket holds the PGP
// session-key packet; the data packet lives server-side.
type Attachment struct {
	ID        string `db:"id" json:"id"`
	MessageID string `db:"message_id" json:"message_id"`
	Filename  string `db:"filename" json:"filename"`
	MIMEType  string `db:"mime_type" json:"mime_type"`
	Size      int64  `db:"size" json:"size"`
	KeyPacket string `db:"key_packet" json:"key_packet,omitempty"`
	LocalPath string `db:"local_path" json:"local_path,omitempty"`
}

// Origin tags a store mutation with its source so the mutation
// observer can tell user edits from sync-engine writes. Sync-origin
// writes never feed back into the action queue.
type Origin int

const (
	OriginSync Origin = iota
	OriginUser
)

// ActionKind enumerates the remote side effects the durable queue can
// carry.
type ActionKind string

const (
	ActionSaveDraft ActionKind = "save_draft"
	ActionSend      ActionKind = "send"
	ActionUploadAtt ActionKind = "upload_att"
	ActionDeleteAtt ActionKind = "delete_att"
	ActionDelete    ActionKind = "delete"
	ActionRead      ActionKind = "read"
	ActionUnread    ActionKind = "unread"
	ActionStar      ActionKind = "star"
	ActionUnstar    ActionKind = "unstar"
	ActionEmpty     ActionKind = "empty"
	ActionLabel     ActionKind = "label"
	ActionUnlabel   ActionKind = "unlabel"
	ActionFolder    ActionKind = "folder"
)

// PendingAction is one durable queue entry. Target is an opaque
// reference: a message ID, attachment ID, or label ID for empty.
// Data1/Data2 carry kind-specific extras: for label/unlabel Data1 is
// the label ID, for folder Data1 is the source and Data2 the
// destination location.
type PendingAction struct {
	ElementID string     `db:"element_id" json:"element_id"`
	Target    string     `db:"target" json:"target"`
	Kind      ActionKind `db:"kind" json:"kind"`
	Data1     string     `db:"data1" json:"data1,omitempty"`
	Data2     string     `db:"data2" json:"data2,omitempty"`
	Seq       int64      `db:"seq" json:"seq"`
	CreatedAt string     `db:"created_at" json:"created_at"`
}

// FailedAction is a queue entry parked after a retryable-later server
// failure. Never replayed automatically; see `sm queue retry-failed`.
type FailedAction struct {
	PendingAction
	Retries  int    `db:"retries" json:"retries"`
	FailedAt string `db:"failed_at" json:"failed_at"`
}

// SyncBookmark tracks the fetched time range and counters for one
// scope (a location or a label). RangeEnd only moves forward outside a
// full reset; Fresh is true exactly once, until the first successful
// batch fills RangeStart and Total.
type SyncBookmark struct {
	LabelID    string `db:"label_id" json:"label_id"`
	RangeStart int64  `db:"range_start" json:"range_start"`
	RangeEnd   int64  `db:"range_end" json:"range_end"`
	Total      int    `db:"total" json:"total"`
	Unread     int    `db:"unread" json:"unread"`
	Fresh      bool   `db:"fresh" json:"fresh"`
	UpdatedAt  string `db:"updated_at" json:"updated_at"`
}

// UndoableMove is the ephemeral record backing the timed undo
// affordance for destructive moves. Never persisted.
type UndoableMove struct {
	MessageID string
	From      Location
	ExpiresAt time.Time
}

// SyncResult summarizes one sync pass for CLI output.
type SyncResult struct {
	Mode      string `json:"mode"` // "full" or "events"
	Fetched   int    `json:"fetched"`
	Applied   int    `json:"applied"`
	Deleted   int    `json:"deleted"`
	Refreshed bool   `json:"refreshed,omitempty"`
	EventID   string `json:"event_id,omitempty"`
	Error     string `json:"error,omitempty"`
}
