// Package auth manages the account credentials: the OAuth2 token used
// on every API call and the armored account key used to decrypt mail.
// Both live in the system keyring, never on disk in the clear.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/99designs/keyring"
	"golang.org/x/oauth2"
)

const serviceName = "sealmail"

// Keyring item keys.
const (
	itemToken      = "token"
	itemPrivateKey = "private-key"
	itemPassphrase = "key-passphrase"
	itemUsername   = "username"
)

// Store reads and writes credentials through the system keyring,
// falling back to an encrypted file backend on headless machines.
type Store struct {
	ring keyring.Keyring
}

// Open returns a credential store backed by the system keyring.
func Open() (*Store, error) {
	fileDir := "~/.config/sealmail/credentials"
	if home, err := os.UserHomeDir(); err == nil {
		fileDir = home + "/.config/sealmail/credentials"
	}
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt("sealmail-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return &Store{ring: ring}, nil
}

func (s *Store) get(key string) (string, error) {
	item, err := s.ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("get credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

func (s *Store) set(key, value string) error {
	if err := s.ring.Set(keyring.Item{Key: key, Data: []byte(value)}); err != nil {
		return fmt.Errorf("set credential %q: %w", key, err)
	}
	return nil
}

// HasToken reports whether a stored API token exists. Its absence on
// launch triggers a hard cache reset.
func (s *Store) HasToken() bool {
	_, err := s.ring.Get(itemToken)
	return err == nil
}

// Token returns the stored OAuth2 token.
func (s *Store) Token() (*oauth2.Token, error) {
	raw, err := s.get(itemToken)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return nil, fmt.Errorf("parse stored token: %w", err)
	}
	return &tok, nil
}

// SaveToken stores an OAuth2 token, replacing any previous one.
func (s *Store) SaveToken(tok *oauth2.Token) error {
	raw, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	return s.set(itemToken, string(raw))
}

// Username returns the stored account name.
func (s *Store) Username() (string, error) { return s.get(itemUsername) }

// PrivateKey returns the armored account key and its passphrase.
func (s *Store) PrivateKey() (armored, passphrase string, err error) {
	armored, err = s.get(itemPrivateKey)
	if err != nil {
		return "", "", err
	}
	passphrase, err = s.get(itemPassphrase)
	if err != nil {
		return "", "", err
	}
	return armored, passphrase, nil
}

// SavePrivateKey stores the armored account key and its passphrase.
func (s *Store) SavePrivateKey(armored, passphrase string) error {
	if err := s.set(itemPrivateKey, armored); err != nil {
		return err
	}
	return s.set(itemPassphrase, passphrase)
}

// Clear removes every stored credential. Missing items are ignored so
// Clear is safe to call on a half-provisioned store.
func (s *Store) Clear() error {
	for _, key := range []string{itemToken, itemPrivateKey, itemPassphrase, itemUsername} {
		if err := s.ring.Remove(key); err != nil && err != keyring.ErrKeyNotFound {
			return fmt.Errorf("remove credential %q: %w", key, err)
		}
	}
	return nil
}

// oauthConfig builds the OAuth2 endpoint config for the mail service.
func oauthConfig(baseURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID: "sealmail-cli",
		Endpoint: oauth2.Endpoint{
			AuthURL:  baseURL + "/auth/authorize",
			TokenURL: baseURL + "/auth/token",
		},
		Scopes: []string{"mail", "contacts"},
	}
}

// Login exchanges account credentials for a token and stores it along
// with the username.
func (s *Store) Login(ctx context.Context, baseURL, username, password string) error {
	cfg := oauthConfig(baseURL)
	tok, err := cfg.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		return fmt.Errorf("login %s: %w", username, err)
	}
	if err := s.SaveToken(tok); err != nil {
		return err
	}
	return s.set(itemUsername, username)
}

// persistingSource saves refreshed tokens back to the keyring so the
// next process start does not have to refresh again.
type persistingSource struct {
	store *Store
	src   oauth2.TokenSource
	last  string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.src.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != p.last {
		p.last = tok.AccessToken
		if saveErr := p.store.SaveToken(tok); saveErr != nil {
			fmt.Fprintf(os.Stderr, "warning: could not save refreshed token: %v\n", saveErr)
		}
	}
	return tok, nil
}

// HTTPClient returns an HTTP client that injects the stored token and
// refreshes it transparently.
func (s *Store) HTTPClient(ctx context.Context, baseURL string) (*http.Client, error) {
	tok, err := s.Token()
	if err != nil {
		return nil, err
	}
	src := oauthConfig(baseURL).TokenSource(ctx, tok)
	return oauth2.NewClient(ctx, &persistingSource{store: s, src: src, last: tok.AccessToken}), nil
}
