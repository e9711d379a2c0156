package strongbox

import (
	"sync"

	"github.com/illarion/strongbox/internal/keyring"
	"github.com/illarion/strongbox/internal/storage"
	"github.com/illarion/strongbox/internal/store"
)

// MemoryStore is an in-process ProtectedStore. Nothing survives the process.
type MemoryStore = store.Memory

// KeyringStore is a ProtectedStore backed by the OS credential vault.
type KeyringStore = keyring.Store

// FileVault is a ProtectedStore backed by a password-protected encrypted
// file, for hosts without an OS credential vault. It must be initialized or
// unlocked before use.
type FileVault = storage.Storage

// FileVaultOption customizes a FileVault.
type FileVaultOption = storage.Option

// File vault errors.
var (
	ErrWrongPassword           = storage.ErrWrongPassword
	ErrVaultNotInitialized     = storage.ErrNotInitialized
	ErrVaultAlreadyInitialized = storage.ErrAlreadyInitialized
)

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return store.NewMemory()
}

// NewKeyringStore returns a store filing records in the OS credential vault
// under account. An empty account selects the default account.
func NewKeyringStore(account string) *KeyringStore {
	return keyring.New(account)
}

// KeyringAvailable reports whether the OS credential vault can be reached.
func KeyringAvailable() bool {
	return keyring.Available()
}

// OpenFileVault opens or creates the vault file at path. The vault starts locked.
func OpenFileVault(path string, opts ...FileVaultOption) (*FileVault, error) {
	return storage.Open(path, opts...)
}

// WithVaultIterations sets the PBKDF2 iteration count used when the vault
// key is created or changed.
func WithVaultIterations(n int) FileVaultOption {
	return storage.WithIterations(n)
}

var defaultBox = sync.OnceValue(func() *Strongbox {
	return New(NewKeyringStore(""))
})

// Default returns a process-wide Strongbox that stores records in the OS
// credential vault under the process identity namespace.
func Default() *Strongbox {
	return defaultBox()
}
