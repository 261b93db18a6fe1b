package main

import (
	"context"
	"fmt"

	"github.com/sealmail/sealmail/internal/api"
	"github.com/sealmail/sealmail/internal/auth"
	"github.com/sealmail/sealmail/internal/compose"
	"github.com/sealmail/sealmail/internal/display"
	"github.com/sealmail/sealmail/internal/events"
	"github.com/sealmail/sealmail/internal/lifecycle"
	"github.com/sealmail/sealmail/internal/mailbox"
	"github.com/sealmail/sealmail/internal/observer"
	"github.com/sealmail/sealmail/internal/pgp"
	"github.com/sealmail/sealmail/internal/queue"
	"github.com/sealmail/sealmail/internal/types"
)

// runtime bundles the wired-up engine pieces a command needs.
type runtime struct {
	creds    *auth.Store
	client   *api.Client
	keys     *pgp.Keys // nil when no account key is stored
	queue    *queue.Queue
	executor *queue.Executor
	engine   *events.Engine
	service  *mailbox.Service
}

// newRuntime assembles the full client: credential store, API client,
// queue, executor, sync engine, mailbox service and the mutation
// observer, then runs the launch lifecycle checks.
func newRuntime(ctx context.Context) (*runtime, error) {
	creds, err := auth.Open()
	if err != nil {
		return nil, err
	}

	res, err := lifecycle.LaunchCleanup(store, creds)
	if err != nil {
		return nil, err
	}
	if !quietFlag {
		if res.HardReset {
			display.ErrorMsg("cache and session invalidated — run 'sm login' again")
		} else if res.SoftReset {
			fmt.Println("cache format changed, local data cleared; next sync refetches everything")
		}
	}

	if !creds.HasToken() {
		return nil, fmt.Errorf("not logged in — run 'sm login <username>' first")
	}
	httpClient, err := creds.HTTPClient(ctx, cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	client := api.New(cfg.BaseURL, httpClient)

	var keys *pgp.Keys
	if armored, passphrase, err := creds.PrivateKey(); err == nil {
		keys, err = pgp.NewKeys(armored, passphrase)
		if err != nil {
			return nil, fmt.Errorf("unlock account key: %w", err)
		}
	}

	q := queue.New(store)
	var packager queue.Packager
	var crypter queue.Crypter
	if keys != nil {
		packager = compose.NewBuilder(keys, store)
		crypter = keys
	}
	exec := queue.NewExecutor(q, store, client, packager, crypter)
	exec.OnConnectivityLost = func() {
		if !quietFlag {
			display.ErrorMsg("offline — queued actions will retry on the next sync")
		}
	}
	exec.OnNotice = func(msg string) {
		if !quietFlag {
			fmt.Println(msg)
		}
	}

	engine := events.New(store, client, cfg.PageSize)
	engine.OnNotice = func(msg string) {
		if !quietFlag {
			fmt.Println("server: " + msg)
		}
	}

	svc := mailbox.New(store, q, cfg.UndoWindow())
	// Eager drain: anything the user does goes out right away when
	// the network allows.
	svc.OnQueueChange = func() {
		if _, err := exec.Drain(ctx); err != nil && !quietFlag {
			display.ErrorMsg("drain: %v", err)
		}
	}
	rec := observer.Attach(store, q)
	rec.OnEnqueue = func(a *types.PendingAction) { svc.OnQueueChange() }
	rec.OnError = func(err error) {
		display.ErrorMsg("record action: %v", err)
	}

	return &runtime{
		creds:    creds,
		client:   client,
		keys:     keys,
		queue:    q,
		executor: exec,
		engine:   engine,
		service:  svc,
	}, nil
}
