// Package keyring stores strongbox records in the OS credential vault
// (macOS Keychain, Secret Service on Linux, Windows Credential Manager).
package keyring

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/illarion/strongbox/internal/store"
	"github.com/zalando/go-keyring"
)

// DefaultAccount is the credential account every record is filed under.
// The namespaced key is the credential's service name.
const DefaultAccount = "strongbox"

const envelopeVersion = 1

// envelope is the secret string written to the vault. The OS vault only
// holds text, and go-keyring exposes no accessibility attributes, so the
// tier travels with the payload.
type envelope struct {
	Version int        `json:"v"`
	Tier    store.Tier `json:"tier"`
	Data    []byte     `json:"data"`
}

// Store implements store.Store on top of the OS credential vault
type Store struct {
	account string
}

// New creates a Store filing credentials under account.
// An empty account selects DefaultAccount.
func New(account string) *Store {
	if account == "" {
		account = DefaultAccount
	}
	return &Store{account: account}
}

// Account returns the credential account records are filed under
func (s *Store) Account() string {
	return s.account
}

// Insert creates the credential for rec.Key. The OS vault overwrites on
// set, so the key is read first to keep insert create-only.
func (s *Store) Insert(rec store.Record) error {
	_, err := keyring.Get(rec.Key, s.account)
	switch {
	case err == nil:
		return store.ErrDuplicateKey
	case !errors.Is(err, keyring.ErrNotFound):
		return fmt.Errorf("failed to check keyring: %w", err)
	}

	secret, err := json.Marshal(envelope{Version: envelopeVersion, Tier: rec.Tier, Data: rec.Data})
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	if err := keyring.Set(rec.Key, s.account, string(secret)); err != nil {
		return fmt.Errorf("failed to write keyring: %w", err)
	}
	return nil
}

// Query reads the credential for key
func (s *Store) Query(key string) (store.Record, error) {
	secret, err := keyring.Get(key, s.account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return store.Record{}, store.ErrNotFound
		}
		return store.Record{}, fmt.Errorf("failed to read keyring: %w", err)
	}

	var env envelope
	if err := json.Unmarshal([]byte(secret), &env); err != nil {
		return store.Record{}, fmt.Errorf("failed to decode record %s: %w", key, err)
	}
	if env.Version != envelopeVersion {
		return store.Record{}, fmt.Errorf("record %s has unsupported version %d", key, env.Version)
	}
	return store.Record{Key: key, Data: env.Data, Tier: env.Tier}, nil
}

// Delete removes the credential for key
func (s *Store) Delete(key string) error {
	if err := keyring.Delete(key, s.account); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return store.ErrNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}

// Available reports whether the OS credential vault can be reached by
// reading a credential that is not expected to exist.
func Available() bool {
	_, err := keyring.Get(DefaultAccount+".available", DefaultAccount)
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
