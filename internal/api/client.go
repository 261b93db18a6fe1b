// Package api is the HTTP client for the mail service: mailbox
// listings, the event stream, drafts, sends, attachments, and the
// batched message actions issued by the queue executor.
package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks JSON to the mail service. The underlying http.Client
// carries the OAuth2 token source, so every request is authenticated.
type Client struct {
	base string
	http *http.Client
}

// New returns a client for the given base URL. httpClient must inject
// credentials (see internal/auth); pass nil to use a plain client for
// unauthenticated calls in tests.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// do performs a request and decodes the JSON body into out. Non-2xx
// statuses and bodies with a code above CodeOKMulti become *Error.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rdr = bytes.NewReader(buf)
	}
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}

	var envelope struct {
		Code  int    `json:"Code"`
		Error string `json:"Error"`
	}
	// Tolerate an unreadable body on error statuses; the status alone
	// is enough to classify.
	_ = json.Unmarshal(raw, &envelope)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{StatusCode: resp.StatusCode, Code: envelope.Code, Message: envelope.Error}
	}
	if envelope.Code > CodeOKMulti {
		return &Error{StatusCode: resp.StatusCode, Code: envelope.Code, Message: envelope.Error}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return nil
}

// LatestEventID returns the newest event cursor without any deltas.
// Used to bootstrap a fresh cache and after a Refresh reset.
func (c *Client) LatestEventID(ctx context.Context) (string, error) {
	var out struct {
		Code    int    `json:"Code"`
		EventID string `json:"EventID"`
	}
	if err := c.do(ctx, http.MethodGet, "/events/latest", nil, nil, &out); err != nil {
		return "", err
	}
	return out.EventID, nil
}

// Events returns every delta recorded after the given cursor.
func (c *Client) Events(ctx context.Context, eventID string) (*EventsResponse, error) {
	var out EventsResponse
	if err := c.do(ctx, http.MethodGet, "/events/"+url.PathEscape(eventID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Messages returns one page of a mailbox listing, newest first.
func (c *Client) Messages(ctx context.Context, f MessagesFilter) (*MessagesResponse, error) {
	q := url.Values{}
	q.Set("Sort", "Time")
	if f.Location != nil {
		q.Set("Location", strconv.Itoa(*f.Location))
	}
	if f.LabelID != "" {
		q.Set("LabelID", f.LabelID)
	}
	if f.End > 0 {
		q.Set("End", strconv.FormatInt(f.End, 10))
	}
	if f.Page > 0 {
		q.Set("Page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		q.Set("PageSize", strconv.Itoa(f.PageSize))
	}
	var out MessagesResponse
	if err := c.do(ctx, http.MethodGet, "/messages", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Message returns one message with its full body.
func (c *Client) Message(ctx context.Context, id string) (*Message, error) {
	var out struct {
		Code    int     `json:"Code"`
		Message Message `json:"Message"`
	}
	if err := c.do(ctx, http.MethodGet, "/messages/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Message, nil
}

// CreateDraft stores a new draft and returns the server's copy,
// including the ID that replaces the client's provisional one.
func (c *Client) CreateDraft(ctx context.Context, d *DraftRequest) (*Message, error) {
	var out struct {
		Code    int     `json:"Code"`
		Message Message `json:"Message"`
	}
	if err := c.do(ctx, http.MethodPost, "/messages", nil, map[string]any{"Message": d}, &out); err != nil {
		return nil, err
	}
	return &out.Message, nil
}

// UpdateDraft replaces an existing draft's content.
func (c *Client) UpdateDraft(ctx context.Context, id string, d *DraftRequest) (*Message, error) {
	var out struct {
		Code    int     `json:"Code"`
		Message Message `json:"Message"`
	}
	if err := c.do(ctx, http.MethodPut, "/messages/"+url.PathEscape(id), nil, map[string]any{"Message": d}, &out); err != nil {
		return nil, err
	}
	return &out.Message, nil
}

// Send submits a draft for delivery with per-recipient-class packages.
func (c *Client) Send(ctx context.Context, id string, req *SendRequest) (*Message, error) {
	var out struct {
		Code    int     `json:"Code"`
		Sent    Message `json:"Sent"`
		Message Message `json:"Message"`
	}
	if err := c.do(ctx, http.MethodPost, "/messages/"+url.PathEscape(id), nil, req, &out); err != nil {
		return nil, err
	}
	if out.Sent.ID != "" {
		return &out.Sent, nil
	}
	return &out.Message, nil
}

// DeleteMessages permanently deletes messages.
func (c *Client) DeleteMessages(ctx context.Context, ids []string) error {
	return c.do(ctx, http.MethodPut, "/messages/delete", nil, map[string]any{"IDs": ids}, nil)
}

// MessageAction applies a named batch action (read, unread, star,
// unstar, trash, inbox, spam, archive) to a set of messages.
func (c *Client) MessageAction(ctx context.Context, action string, ids []string) error {
	return c.do(ctx, http.MethodPut, "/messages/"+action, nil, map[string]any{"IDs": ids}, nil)
}

// LabelMessages attaches a label to a set of messages.
func (c *Client) LabelMessages(ctx context.Context, labelID string, ids []string) error {
	return c.do(ctx, http.MethodPut, "/messages/label", nil,
		map[string]any{"LabelID": labelID, "IDs": ids}, nil)
}

// UnlabelMessages detaches a label from a set of messages.
func (c *Client) UnlabelMessages(ctx context.Context, labelID string, ids []string) error {
	return c.do(ctx, http.MethodPut, "/messages/unlabel", nil,
		map[string]any{"LabelID": labelID, "IDs": ids}, nil)
}

// Empty permanently deletes every message in a scope. labelID is a
// location rendered as a string for system scopes.
func (c *Client) Empty(ctx context.Context, labelID string) error {
	q := url.Values{}
	q.Set("LabelID", labelID)
	return c.do(ctx, http.MethodDelete, "/messages/empty", q, nil, nil)
}

// UploadAttachment streams encrypted attachment packets to a draft.
func (c *Client) UploadAttachment(ctx context.Context, req *UploadAttachmentRequest) (*Attachment, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := map[string]string{
		"MessageID":  req.MessageID,
		"Filename":   req.Filename,
		"MIMEType":   req.MIMEType,
		"KeyPackets": base64.StdEncoding.EncodeToString(req.KeyPacket),
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("upload attachment: %w", err)
		}
	}
	part, err := w.CreateFormFile("DataPacket", req.Filename)
	if err != nil {
		return nil, fmt.Errorf("upload attachment: %w", err)
	}
	if _, err := part.Write(req.DataPacket); err != nil {
		return nil, fmt.Errorf("upload attachment: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("upload attachment: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/attachments", &buf)
	if err != nil {
		return nil, fmt.Errorf("upload attachment: %w", err)
	}
	httpReq.Header.Set("Content-Type", w.FormDataContentType())
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("POST /attachments: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read attachment response: %w", err)
	}
	var out struct {
		Code       int        `json:"Code"`
		Error      string     `json:"Error"`
		Attachment Attachment `json:"Attachment"`
	}
	_ = json.Unmarshal(raw, &out)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || out.Code > CodeOKMulti {
		return nil, &Error{StatusCode: resp.StatusCode, Code: out.Code, Message: out.Error}
	}
	return &out.Attachment, nil
}

// DeleteAttachment removes an attachment from a draft.
func (c *Client) DeleteAttachment(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/attachments/"+url.PathEscape(id), nil, nil, nil)
}

// Labels returns every label defined on the account.
func (c *Client) Labels(ctx context.Context) ([]Label, error) {
	var out struct {
		Code   int     `json:"Code"`
		Labels []Label `json:"Labels"`
	}
	if err := c.do(ctx, http.MethodGet, "/labels", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Labels, nil
}

// Contacts returns the account's address book.
func (c *Client) Contacts(ctx context.Context) ([]Contact, error) {
	var out struct {
		Code     int       `json:"Code"`
		Contacts []Contact `json:"Contacts"`
	}
	if err := c.do(ctx, http.MethodGet, "/contacts", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Contacts, nil
}

// MessageCounts returns the authoritative per-scope counters.
func (c *Client) MessageCounts(ctx context.Context) ([]MessageCount, error) {
	var out struct {
		Code   int            `json:"Code"`
		Counts []MessageCount `json:"Counts"`
	}
	if err := c.do(ctx, http.MethodGet, "/messages/count", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Counts, nil
}

// User returns the account snapshot.
func (c *Client) User(ctx context.Context) (*User, error) {
	var out struct {
		Code int  `json:"Code"`
		User User `json:"User"`
	}
	if err := c.do(ctx, http.MethodGet, "/users", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}
