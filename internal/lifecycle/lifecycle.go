// Package lifecycle keeps the cache coherent across client upgrades
// and credential changes. Version stamps in the cache are compared on
// every launch: a cache-format bump wipes cached data but keeps the
// session; an auth-format bump, or cached data with no credentials
// behind it, invalidates everything.
package lifecycle

import (
	"fmt"

	"github.com/sealmail/sealmail/internal/db"
)

// Format versions stamped into the cache. Bump CacheVersion when the
// schema or cached representation changes incompatibly; bump
// AuthVersion when the credential format does.
const (
	CacheVersion = "3"
	AuthVersion  = "1"
)

// Credentials is the slice of the auth store the manager needs.
type Credentials interface {
	HasToken() bool
	Clear() error
}

// Result reports what a launch cleanup did.
type Result struct {
	SoftReset bool `json:"soft_reset,omitempty"`
	HardReset bool `json:"hard_reset,omitempty"`
}

// LaunchCleanup runs the version checks and applies the required
// reset, then stamps the current versions. Call it before any sync or
// queue work on startup.
func LaunchCleanup(store *db.DB, creds Credentials) (Result, error) {
	var res Result

	authStamp := store.GetMeta(db.MetaAuthVersion)
	cacheStamp := store.GetMeta(db.MetaCacheVersion)

	hard := authStamp != "" && authStamp != AuthVersion
	if !hard && !creds.HasToken() && store.LastEventID() != "" {
		// Cached data with no credentials behind it is an orphaned
		// session; it must not survive into a new login.
		hard = true
	}
	soft := cacheStamp != "" && cacheStamp != CacheVersion

	switch {
	case hard:
		if err := store.WipeCache(); err != nil {
			return res, fmt.Errorf("hard reset: %w", err)
		}
		if err := creds.Clear(); err != nil {
			return res, fmt.Errorf("hard reset credentials: %w", err)
		}
		res.HardReset = true
	case soft:
		if err := store.WipeCache(); err != nil {
			return res, fmt.Errorf("soft reset: %w", err)
		}
		res.SoftReset = true
	}

	if err := store.SetMeta(db.MetaCacheVersion, CacheVersion); err != nil {
		return res, err
	}
	if err := store.SetMeta(db.MetaAuthVersion, AuthVersion); err != nil {
		return res, err
	}
	return res, nil
}

// Logout wipes the cache and drops the stored credentials.
func Logout(store *db.DB, creds Credentials) error {
	if err := store.WipeCache(); err != nil {
		return fmt.Errorf("logout wipe: %w", err)
	}
	if err := creds.Clear(); err != nil {
		return fmt.Errorf("logout credentials: %w", err)
	}
	return nil
}
