package api

// Wire types mirror the JSON bodies exchanged with the mail service.
// Boolean-ish fields arrive as 0/1 integers and stay that way here;
// conversion to the cache model happens in the sync engine.

// EmailAddress is a name/address pair on a message envelope.
type EmailAddress struct {
	Name    string `json:"Name"`
	Address string `json:"Address"`
}

// Message is a message as the service serializes it. Body is empty in
// list responses and carries the armored ciphertext in single-message
// responses.
type Message struct {
	ID             string         `json:"ID"`
	ConversationID string         `json:"ConversationID"`
	AddressID      string         `json:"AddressID"`
	Subject        string         `json:"Subject"`
	Sender         EmailAddress   `json:"Sender"`
	ToList         []EmailAddress `json:"ToList"`
	CCList         []EmailAddress `json:"CCList,omitempty"`
	BCCList        []EmailAddress `json:"BCCList,omitempty"`
	Time           int64          `json:"Time"`
	Size           int64          `json:"Size"`
	Unread         int            `json:"Unread"`
	Starred        int            `json:"Starred"`
	Location       int            `json:"Location"`
	LabelIDs       []string       `json:"LabelIDs,omitempty"`
	IsEncrypted    int            `json:"IsEncrypted"`
	Body           string         `json:"Body,omitempty"`
	MIMEType       string         `json:"MIMEType,omitempty"`
	Attachments    []Attachment   `json:"Attachments,omitempty"`
}

// Attachment is attachment metadata plus the session key packet.
type Attachment struct {
	ID        string `json:"ID"`
	MessageID string `json:"MessageID"`
	Name      string `json:"Name"`
	MIMEType  string `json:"MIMEType"`
	Size      int64  `json:"Size"`
	KeyPacket string `json:"KeyPackets,omitempty"`
}

// Label is a user label or folder definition.
type Label struct {
	ID    string `json:"ID"`
	Name  string `json:"Name"`
	Color string `json:"Color"`
	Order int    `json:"Order"`
}

// Contact is an address-book entry with an optional armored public key.
type Contact struct {
	ID        string `json:"ID"`
	Name      string `json:"Name"`
	Email     string `json:"Email"`
	PublicKey string `json:"PublicKey,omitempty"`
}

// User is the account snapshot carried by full fetches and user deltas.
type User struct {
	ID          string `json:"ID"`
	Name        string `json:"Name"`
	Email       string `json:"Email"`
	DisplayName string `json:"DisplayName"`
	UsedSpace   int64  `json:"UsedSpace"`
	MaxSpace    int64  `json:"MaxSpace"`
}

// Event action codes on per-entity deltas.
const (
	EventDelete      = 0
	EventInsert      = 1
	EventUpdateDraft = 2
	EventUpdateFlags = 3
)

// Refresh flag bits in an event response.
const (
	RefreshMail     = 1
	RefreshContacts = 2
	RefreshAll      = 255
)

// MessageEvent is one message delta inside an event batch.
type MessageEvent struct {
	ID      string   `json:"ID"`
	Action  int      `json:"Action"`
	Message *Message `json:"Message,omitempty"`
}

// LabelEvent is one label delta inside an event batch.
type LabelEvent struct {
	ID     string `json:"ID"`
	Action int    `json:"Action"`
	Label  *Label `json:"Label,omitempty"`
}

// ContactEvent is one contact delta inside an event batch.
type ContactEvent struct {
	ID      string   `json:"ID"`
	Action  int      `json:"Action"`
	Contact *Contact `json:"Contact,omitempty"`
}

// MessageCount is the authoritative per-scope counter pair.
type MessageCount struct {
	LabelID string `json:"LabelID"`
	Total   int    `json:"Total"`
	Unread  int    `json:"Unread"`
}

// EventsResponse is the delta batch returned for an event cursor.
type EventsResponse struct {
	Code          int            `json:"Code"`
	EventID       string         `json:"EventID"`
	Refresh       int            `json:"Refresh"`
	More          int            `json:"More"`
	Messages      []MessageEvent `json:"Messages,omitempty"`
	Labels        []LabelEvent   `json:"Labels,omitempty"`
	Contacts      []ContactEvent `json:"Contacts,omitempty"`
	MessageCounts []MessageCount `json:"MessageCounts,omitempty"`
	User          *User          `json:"User,omitempty"`
	Notices       []string       `json:"Notices,omitempty"`
}

// MessagesResponse is one page of a mailbox listing.
type MessagesResponse struct {
	Code     int       `json:"Code"`
	Total    int       `json:"Total"`
	Messages []Message `json:"Messages"`
}

// DraftRequest creates or replaces a draft. The body is armored
// ciphertext encrypted to the account key before it leaves the client.
type DraftRequest struct {
	Subject       string         `json:"Subject"`
	ToList        []EmailAddress `json:"ToList"`
	CCList        []EmailAddress `json:"CCList,omitempty"`
	BCCList       []EmailAddress `json:"BCCList,omitempty"`
	Body          string         `json:"Body"`
	AddressID     string         `json:"AddressID,omitempty"`
	ParentID      string         `json:"ParentID,omitempty"`
	AttachmentIDs []string       `json:"AttachmentIDs,omitempty"`
}

// SendPackage is the per-recipient-class payload of a send request.
// Internal recipients get the body re-encrypted to their public key;
// external recipients get a cleartext or signed MIME package.
type SendPackage struct {
	Type      int      `json:"Type"`
	Addresses []string `json:"Addresses"`
	Body      string   `json:"Body"`
	MIMEType  string   `json:"MIMEType,omitempty"`
}

// Package type codes on SendPackage.
const (
	PackageInternal  = 1
	PackageCleartext = 4
)

// SendRequest sends an existing draft.
type SendRequest struct {
	Packages []SendPackage `json:"Packages"`
}

// UploadAttachmentRequest attaches encrypted data to a draft. Key and
// data packets are raw PGP packets, base64-encoded on the wire.
type UploadAttachmentRequest struct {
	MessageID  string
	Filename   string
	MIMEType   string
	KeyPacket  []byte
	DataPacket []byte
}

// MessagesFilter selects a mailbox listing page.
type MessagesFilter struct {
	Location *int   // location scope, nil when listing by label
	LabelID  string // label scope, empty when listing by location
	End      int64  // fetch messages at or before this unix time; 0 = newest
	Page     int
	PageSize int
}
