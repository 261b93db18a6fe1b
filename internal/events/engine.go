// Package events is the sync engine: it reconciles the local cache
// with the server through the event log, falling back to full
// paginated refetches when no valid cursor exists or the server
// demands a refresh.
package events

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sealmail/sealmail/internal/api"
	"github.com/sealmail/sealmail/internal/db"
	"github.com/sealmail/sealmail/internal/types"
)

// DefaultPageSize is the mailbox fetch page size.
const DefaultPageSize = 1000

// API is the slice of the service client the engine drives.
type API interface {
	LatestEventID(ctx context.Context) (string, error)
	Events(ctx context.Context, eventID string) (*api.EventsResponse, error)
	Messages(ctx context.Context, f api.MessagesFilter) (*api.MessagesResponse, error)
	Message(ctx context.Context, id string) (*api.Message, error)
	Labels(ctx context.Context) ([]api.Label, error)
	Contacts(ctx context.Context) ([]api.Contact, error)
	MessageCounts(ctx context.Context) ([]api.MessageCount, error)
}

// Engine applies server state to the cache. All merge work runs under
// one mutex, so event batches and full fetches never interleave.
type Engine struct {
	mu       sync.Mutex
	store    *db.DB
	api      API
	pageSize int

	// OnNotice receives server notices carried on event batches.
	OnNotice func(string)
}

// New returns an engine over the store and client. pageSize <= 0
// selects the default.
func New(store *db.DB, client API, pageSize int) *Engine {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Engine{store: store, api: client, pageSize: pageSize}
}

// Sync performs one reconciliation pass: an event poll when a cursor
// exists, otherwise a cursor bootstrap plus full fetch.
func (e *Engine) Sync(ctx context.Context) (*types.SyncResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.store.LastEventID() == "" {
		return e.bootstrap(ctx)
	}
	return e.poll(ctx)
}

// bootstrap pins the cursor to the newest event before fetching, so
// nothing that happens during the fetch is lost.
func (e *Engine) bootstrap(ctx context.Context) (*types.SyncResult, error) {
	latest, err := e.api.LatestEventID(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrap event cursor: %w", err)
	}
	res, err := e.fullFetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := e.store.SetLastEventID(latest); err != nil {
		return nil, err
	}
	res.EventID = latest
	return res, nil
}

// poll walks the event log from the stored cursor, applying each
// batch and advancing the cursor, until the server reports no more.
func (e *Engine) poll(ctx context.Context) (*types.SyncResult, error) {
	res := &types.SyncResult{Mode: "events"}
	for {
		cursor := e.store.LastEventID()
		resp, err := e.api.Events(ctx, cursor)
		if err != nil {
			if api.Code(err) == api.CodeInvalidCursor {
				// The cursor aged out of the server's log; only a
				// full reset can restore consistency.
				return e.refresh(ctx, res, api.RefreshAll)
			}
			return nil, fmt.Errorf("fetch events after %s: %w", cursor, err)
		}

		if resp.Refresh != 0 {
			return e.refresh(ctx, res, resp.Refresh)
		}

		if err := e.applyBatch(resp, res); err != nil {
			return nil, err
		}
		if resp.EventID != "" {
			if err := e.store.SetLastEventID(resp.EventID); err != nil {
				return nil, err
			}
			res.EventID = resp.EventID
		}
		for _, n := range resp.Notices {
			if e.OnNotice != nil {
				e.OnNotice(n)
			}
		}
		if resp.More == 0 {
			break
		}
	}

	if err := e.fillMissingMetadata(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// fillMissingMetadata refetches messages whose metadata never arrived.
// Some inserts come through the event log as bare IDs; their stub rows
// sit unsynced until this pulls the details, so the listing never
// shows empty rows.
func (e *Engine) fillMissingMetadata(ctx context.Context, res *types.SyncResult) error {
	ids, err := e.store.UnsyncedMessageIDs(0)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := e.fetchDetail(ctx, id); err != nil {
			if api.StatusCode(err) == 404 {
				// Gone again before we could fetch it; drop the stub.
				if err := e.dropStub(id); err != nil {
					return err
				}
				res.Deleted++
				continue
			}
			return err
		}
		res.Fetched++
	}
	return nil
}

func (e *Engine) dropStub(id string) error {
	m, err := e.store.GetMessage(id)
	if err != nil || m == nil {
		return err
	}
	if m.Unread {
		if err := e.store.AdjustUnread(m.Location.String(), -1); err != nil {
			return err
		}
	}
	return e.store.DeleteMessage(id)
}

// refresh resets the scopes named by the server's refresh bits (the
// action queues always survive), pins a fresh cursor, and refetches
// what was wiped.
func (e *Engine) refresh(ctx context.Context, res *types.SyncResult, scope int) (*types.SyncResult, error) {
	mail := scope&api.RefreshMail != 0
	contacts := scope&api.RefreshContacts != 0

	switch {
	case mail && contacts:
		if err := e.store.WipeEntities(); err != nil {
			return nil, fmt.Errorf("reset cache for refresh: %w", err)
		}
	case mail:
		if err := e.store.WipeMail(); err != nil {
			return nil, fmt.Errorf("reset mail cache for refresh: %w", err)
		}
	case contacts:
		if err := e.store.WipeContacts(); err != nil {
			return nil, fmt.Errorf("reset contact cache for refresh: %w", err)
		}
	}

	latest, err := e.api.LatestEventID(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh event cursor: %w", err)
	}

	if mail {
		full, err := e.fullFetch(ctx)
		if err != nil {
			return nil, err
		}
		res.Mode = "full"
		res.Fetched += full.Fetched
		res.Applied += full.Applied
	} else if contacts {
		list, err := e.api.Contacts(ctx)
		if err != nil {
			return nil, fmt.Errorf("refetch contacts: %w", err)
		}
		for i := range list {
			if err := e.store.UpsertContact(wireContact(&list[i])); err != nil {
				return nil, err
			}
		}
		res.Applied += len(list)
	}

	if err := e.store.SetLastEventID(latest); err != nil {
		return nil, err
	}
	res.Refreshed = true
	res.EventID = latest
	return res, nil
}

// fullFetch pulls the complete mailbox listing page by page, plus
// labels, contacts and counters. Aux fetches run concurrently; the
// message walk stays sequential because pagination is cursor-free and
// pages are addressed by time range.
func (e *Engine) fullFetch(ctx context.Context) (*types.SyncResult, error) {
	res := &types.SyncResult{Mode: "full"}

	g, gctx := errgroup.WithContext(ctx)
	var (
		labels   []api.Label
		contacts []api.Contact
		counts   []api.MessageCount
	)
	g.Go(func() error {
		var err error
		labels, err = e.api.Labels(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		contacts, err = e.api.Contacts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		counts, err = e.api.MessageCounts(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("full fetch aux data: %w", err)
	}

	for i := range labels {
		if err := e.store.UpsertLabel(wireLabel(&labels[i])); err != nil {
			return nil, err
		}
	}
	for i := range contacts {
		if err := e.store.UpsertContact(wireContact(&contacts[i])); err != nil {
			return nil, err
		}
	}

	loc := int(types.LocationAllMail)
	fetched, oldest, newest, err := e.fetchScope(ctx, api.MessagesFilter{Location: &loc, PageSize: e.pageSize})
	if err != nil {
		return nil, err
	}
	res.Fetched = fetched
	res.Applied = fetched

	for _, c := range counts {
		if err := e.store.SetCounts(c.LabelID, c.Total, c.Unread); err != nil {
			return nil, err
		}
	}
	if fetched > 0 {
		b := &types.SyncBookmark{
			LabelID:    types.LocationAllMail.String(),
			RangeStart: oldest,
			RangeEnd:   newest,
			Total:      fetched,
			Fresh:      false,
		}
		if err := e.store.SaveBookmark(b); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// fetchScope walks one listing scope newest-first until a short page.
func (e *Engine) fetchScope(ctx context.Context, f api.MessagesFilter) (fetched int, oldest, newest int64, err error) {
	for page := 0; ; page++ {
		f.Page = page
		resp, err := e.api.Messages(ctx, f)
		if err != nil {
			return fetched, oldest, newest, fmt.Errorf("fetch messages page %d: %w", page, err)
		}
		for i := range resp.Messages {
			m := &resp.Messages[i]
			if err := e.upsertWireMessage(m, types.StatusHeaderOnly, true); err != nil {
				return fetched, oldest, newest, err
			}
			fetched++
			if oldest == 0 || m.Time < oldest {
				oldest = m.Time
			}
			if m.Time > newest {
				newest = m.Time
			}
		}
		if len(resp.Messages) < e.pageSize {
			return fetched, oldest, newest, nil
		}
	}
}

// FetchOlder extends a scope's fetched range backwards by one page,
// anchored at the bookmark's range start.
func (e *Engine) FetchOlder(ctx context.Context, loc types.Location) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, err := e.store.Bookmark(loc.String())
	if err != nil {
		return 0, err
	}
	locInt := int(loc)
	f := api.MessagesFilter{Location: &locInt, PageSize: e.pageSize}
	if b.RangeStart > 0 {
		f.End = b.RangeStart
	}
	resp, err := e.api.Messages(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("fetch older messages: %w", err)
	}
	for i := range resp.Messages {
		m := &resp.Messages[i]
		if err := e.upsertWireMessage(m, types.StatusHeaderOnly, true); err != nil {
			return i, err
		}
		if b.RangeStart == 0 || m.Time < b.RangeStart {
			b.RangeStart = m.Time
		}
		if m.Time > b.RangeEnd {
			b.RangeEnd = m.Time
		}
	}
	b.Fresh = false
	b.Total = resp.Total
	if err := e.store.SaveBookmark(b); err != nil {
		return len(resp.Messages), err
	}
	return len(resp.Messages), nil
}

// FetchBody promotes a header-only message to fully cached by pulling
// its body and attachment metadata.
func (e *Engine) FetchBody(ctx context.Context, id string) (*types.Message, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.fetchDetail(ctx, id); err != nil {
		return nil, err
	}
	return e.store.GetMessage(id)
}

// fetchDetail pulls one message in full and caches it. Callers hold
// the engine mutex.
func (e *Engine) fetchDetail(ctx context.Context, id string) error {
	wire, err := e.api.Message(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch message %s: %w", id, err)
	}
	if err := e.upsertWireMessage(wire, types.StatusFullyCached, true); err != nil {
		return err
	}
	for i := range wire.Attachments {
		if err := e.store.UpsertAttachment(wireAttachment(&wire.Attachments[i])); err != nil {
			return err
		}
	}
	return nil
}

// FullSync forces a full refetch with a fresh cursor, regardless of
// the cache state. The cache is merged over, not wiped.
func (e *Engine) FullSync(ctx context.Context) (*types.SyncResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bootstrap(ctx)
}

// FetchLabel pulls the full listing of one custom label scope and
// bookmarks it.
func (e *Engine) FetchLabel(ctx context.Context, labelID string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fetched, oldest, newest, err := e.fetchScope(ctx, api.MessagesFilter{LabelID: labelID, PageSize: e.pageSize})
	if err != nil {
		return fetched, err
	}
	if fetched == 0 {
		return 0, nil
	}
	b := &types.SyncBookmark{
		LabelID:    labelID,
		RangeStart: oldest,
		RangeEnd:   newest,
		Total:      fetched,
	}
	return fetched, e.store.SaveBookmark(b)
}
