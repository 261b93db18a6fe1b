package lifecycle

import (
	"testing"

	"github.com/sealmail/sealmail/internal/db"
	"github.com/sealmail/sealmail/internal/types"
)

type fakeCreds struct {
	hasToken bool
	cleared  bool
}

func (f *fakeCreds) HasToken() bool { return f.hasToken }
func (f *fakeCreds) Clear() error {
	f.cleared = true
	f.hasToken = false
	return nil
}

func testStore(t *testing.T) *db.DB {
	t.Helper()
	store, err := db.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedCache(t *testing.T, store *db.DB) {
	t.Helper()
	if err := store.UpsertMessage(&types.Message{ID: "m1", Location: types.LocationInbox, Time: 1}); err != nil {
		t.Fatal(err)
	}
	if err := store.SetLastEventID("ev-1"); err != nil {
		t.Fatal(err)
	}
}

func TestFirstLaunchJustStamps(t *testing.T) {
	store := testStore(t)
	creds := &fakeCreds{hasToken: false}

	res, err := LaunchCleanup(store, creds)
	if err != nil {
		t.Fatal(err)
	}
	if res.SoftReset || res.HardReset {
		t.Errorf("fresh launch reset something: %+v", res)
	}
	if store.GetMeta(db.MetaCacheVersion) != CacheVersion {
		t.Error("cache version not stamped")
	}
	if store.GetMeta(db.MetaAuthVersion) != AuthVersion {
		t.Error("auth version not stamped")
	}
}

func TestMatchingVersionsAreUntouched(t *testing.T) {
	store := testStore(t)
	creds := &fakeCreds{hasToken: true}
	seedCache(t, store)
	store.SetMeta(db.MetaCacheVersion, CacheVersion)
	store.SetMeta(db.MetaAuthVersion, AuthVersion)

	res, err := LaunchCleanup(store, creds)
	if err != nil {
		t.Fatal(err)
	}
	if res.SoftReset || res.HardReset {
		t.Errorf("reset despite matching versions: %+v", res)
	}
	if !store.MessageExists("m1") {
		t.Error("cache lost")
	}
}

func TestCacheVersionBumpSoftResets(t *testing.T) {
	store := testStore(t)
	creds := &fakeCreds{hasToken: true}
	seedCache(t, store)
	store.SetMeta(db.MetaCacheVersion, "old")
	store.SetMeta(db.MetaAuthVersion, AuthVersion)

	res, err := LaunchCleanup(store, creds)
	if err != nil {
		t.Fatal(err)
	}
	if !res.SoftReset || res.HardReset {
		t.Errorf("want soft reset, got %+v", res)
	}
	if store.MessageExists("m1") {
		t.Error("cache survived soft reset")
	}
	if creds.cleared {
		t.Error("soft reset dropped credentials")
	}
	if store.GetMeta(db.MetaCacheVersion) != CacheVersion {
		t.Error("cache version not restamped")
	}
}

func TestAuthVersionBumpHardResets(t *testing.T) {
	store := testStore(t)
	creds := &fakeCreds{hasToken: true}
	seedCache(t, store)
	store.SetMeta(db.MetaCacheVersion, CacheVersion)
	store.SetMeta(db.MetaAuthVersion, "old")

	res, err := LaunchCleanup(store, creds)
	if err != nil {
		t.Fatal(err)
	}
	if !res.HardReset {
		t.Errorf("want hard reset, got %+v", res)
	}
	if store.MessageExists("m1") {
		t.Error("cache survived hard reset")
	}
	if !creds.cleared {
		t.Error("credentials survived hard reset")
	}
}

func TestOrphanedSessionHardResets(t *testing.T) {
	store := testStore(t)
	creds := &fakeCreds{hasToken: false}
	seedCache(t, store)
	store.SetMeta(db.MetaCacheVersion, CacheVersion)
	store.SetMeta(db.MetaAuthVersion, AuthVersion)

	res, err := LaunchCleanup(store, creds)
	if err != nil {
		t.Fatal(err)
	}
	if !res.HardReset {
		t.Errorf("cached data without credentials must hard reset, got %+v", res)
	}
	if store.MessageExists("m1") {
		t.Error("cache survived")
	}
}

func TestLogoutWipesEverything(t *testing.T) {
	store := testStore(t)
	creds := &fakeCreds{hasToken: true}
	seedCache(t, store)
	store.InsertAction(&types.PendingAction{ElementID: "e1", Target: "m1", Kind: types.ActionRead})

	if err := Logout(store, creds); err != nil {
		t.Fatal(err)
	}
	if store.MessageExists("m1") || store.PendingActionCount() != 0 {
		t.Error("logout left data behind")
	}
	if !creds.cleared {
		t.Error("logout kept credentials")
	}
}
