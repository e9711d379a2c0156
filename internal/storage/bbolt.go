package storage

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/illarion/strongbox/internal/crypto"
	"github.com/illarion/strongbox/internal/store"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	ConfigBucket  = []byte("config")  // Version, timestamps, KDF params, vault ID, check token
	IndexBucket   = []byte("index")   // Public record list for status - unencrypted
	RecordsBucket = []byte("records") // Sealed record payloads
)

// Config keys
var (
	ConfigVersion  = []byte("version")
	ConfigCreated  = []byte("created")
	ConfigModified = []byte("modified")
	ConfigSalt     = []byte("salt")
	ConfigIters    = []byte("iterations")
	ConfigVaultID  = []byte("vault_id")
	ConfigCheck    = []byte("check")
)

const (
	schemaVersion = "1"
	checkString   = "strongbox-password-check"
	checkBinding  = "\x00check"
	openTimeout   = time.Second
)

var (
	ErrNotInitialized     = errors.New("vault not initialized")
	ErrAlreadyInitialized = errors.New("vault already initialized")
	ErrWrongPassword      = errors.New("wrong password")
)

// Option customizes a Storage
type Option func(*Storage)

// WithIterations sets the PBKDF2 iteration count used when a vault is
// initialized or its password changed. Existing vaults keep the count they
// were written with.
func WithIterations(n int) Option {
	return func(s *Storage) {
		s.iterations = n
	}
}

// Storage is a BBolt-based encrypted vault implementing store.Store
type Storage struct {
	db         *bolt.DB
	iterations int

	mu     sync.RWMutex
	sealer *crypto.Sealer
}

var _ store.Store = (*Storage)(nil)

// Open opens or creates a vault database. The vault starts locked.
func Open(path string, opts ...Option) (*Storage, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Storage{db: db, iterations: crypto.DefaultIters}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close locks the vault and closes the database
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealer != nil {
		s.sealer.Destroy()
		s.sealer = nil
	}
	return s.db.Close()
}

// Path returns the vault file path
func (s *Storage) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.Path()
}

// view runs fn in a read-only transaction. Compact swaps the database
// handle, so every access outside a write path holds the read lock.
func (s *Storage) view(fn func(*bolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.View(fn)
}

func (s *Storage) update(fn func(*bolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.Update(fn)
}

// IsInitialized checks if the database has been initialized
func (s *Storage) IsInitialized() (bool, error) {
	var initialized bool
	err := s.view(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config != nil && config.Get(ConfigVersion) != nil {
			initialized = true
		}
		return nil
	})
	return initialized, err
}

// Initialize creates the bucket structure and key material for a new vault
// and leaves it unlocked
func (s *Storage) Initialize(password []byte) error {
	kdf, err := crypto.NewKDF()
	if err != nil {
		return fmt.Errorf("failed to create KDF: %w", err)
	}
	kdf.Iterations = s.iterations

	sealer, err := crypto.NewSealer(kdf.DeriveKey(password))
	if err != nil {
		return err
	}

	err = s.update(func(tx *bolt.Tx) error {
		if config := tx.Bucket(ConfigBucket); config != nil && config.Get(ConfigVersion) != nil {
			return ErrAlreadyInitialized
		}

		for _, bucket := range [][]byte{ConfigBucket, IndexBucket, RecordsBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		config := tx.Bucket(ConfigBucket)
		if err := config.Put(ConfigVersion, []byte(schemaVersion)); err != nil {
			return err
		}
		created, _ := time.Now().MarshalBinary()
		if err := config.Put(ConfigCreated, created); err != nil {
			return err
		}
		if err := config.Put(ConfigModified, created); err != nil {
			return err
		}
		if err := config.Put(ConfigVaultID, []byte(uuid.NewString())); err != nil {
			return err
		}
		return putKeyMaterial(config, kdf, sealer)
	})
	if err != nil {
		sealer.Destroy()
		return err
	}

	s.setSealer(sealer)
	return nil
}

// putKeyMaterial stores the KDF parameters and a check token sealed with
// the derived key
func putKeyMaterial(config *bolt.Bucket, kdf *crypto.KDF, sealer *crypto.Sealer) error {
	if err := config.Put(ConfigSalt, kdf.Salt); err != nil {
		return err
	}
	iters := make([]byte, 4)
	binary.BigEndian.PutUint32(iters, uint32(kdf.Iterations))
	if err := config.Put(ConfigIters, iters); err != nil {
		return err
	}

	sum := sha256.Sum256([]byte(checkString))
	check, err := sealer.Seal(checkBinding, sum[:])
	if err != nil {
		return fmt.Errorf("failed to seal check token: %w", err)
	}
	return config.Put(ConfigCheck, check)
}

// readKDF loads the KDF parameters and check token
func (s *Storage) readKDF() (*crypto.KDF, []byte, error) {
	kdf := &crypto.KDF{}
	var check []byte
	err := s.view(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil || config.Get(ConfigVersion) == nil {
			return ErrNotInitialized
		}
		salt := config.Get(ConfigSalt)
		if salt == nil {
			return fmt.Errorf("salt not found")
		}
		iters := config.Get(ConfigIters)
		if len(iters) != 4 {
			return fmt.Errorf("iterations not found")
		}
		token := config.Get(ConfigCheck)
		if token == nil {
			return fmt.Errorf("check token not found")
		}
		// Make copies since the slices are only valid during the transaction
		kdf.Salt = append([]byte(nil), salt...)
		kdf.Iterations = int(binary.BigEndian.Uint32(iters))
		check = append([]byte(nil), token...)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if err := kdf.Validate(); err != nil {
		return nil, nil, err
	}
	return kdf, check, nil
}

// deriveSealer derives the vault key from password and verifies it against
// the check token
func (s *Storage) deriveSealer(password []byte) (*crypto.Sealer, error) {
	kdf, check, err := s.readKDF()
	if err != nil {
		return nil, err
	}
	sealer, err := crypto.NewSealer(kdf.DeriveKey(password))
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256([]byte(checkString))
	opened, err := sealer.Open(checkBinding, check)
	if err != nil || !crypto.ConstantTimeCompare(opened, sum[:]) {
		sealer.Destroy()
		return nil, ErrWrongPassword
	}
	return sealer, nil
}

// Unlock derives the vault key from password. It returns ErrWrongPassword if
// the password does not open the check token.
func (s *Storage) Unlock(password []byte) error {
	sealer, err := s.deriveSealer(password)
	if err != nil {
		return err
	}
	s.setSealer(sealer)
	return nil
}

// VerifyPassword checks password without changing the lock state
func (s *Storage) VerifyPassword(password []byte) error {
	sealer, err := s.deriveSealer(password)
	if err != nil {
		return err
	}
	sealer.Destroy()
	return nil
}

// Lock discards the vault key
func (s *Storage) Lock() {
	s.setSealer(nil)
}

// Unlocked reports whether records can be read and written
func (s *Storage) Unlocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sealer != nil
}

func (s *Storage) setSealer(sealer *crypto.Sealer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealer != nil {
		s.sealer.Destroy()
	}
	s.sealer = sealer
}

// binding ties a sealed payload to the record key and tier it was written with
func binding(key string, tier store.Tier) string {
	return key + "\x00" + tier.String()
}

// Insert seals and stores rec. It returns store.ErrDuplicateKey if a record
// with the same key exists.
func (s *Storage) Insert(rec store.Record) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sealer == nil {
		return store.ErrLocked
	}

	sealed, err := s.sealer.Seal(binding(rec.Key, rec.Tier), rec.Data)
	if err != nil {
		return err
	}
	entry, err := json.Marshal(IndexEntry{Key: rec.Key, Tier: rec.Tier, Size: len(rec.Data), Created: time.Now()})
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		records, index, err := recordBuckets(tx)
		if err != nil {
			return err
		}
		if records.Get([]byte(rec.Key)) != nil {
			return store.ErrDuplicateKey
		}
		if err := records.Put([]byte(rec.Key), sealed); err != nil {
			return err
		}
		if err := index.Put([]byte(rec.Key), entry); err != nil {
			return err
		}
		return touch(tx)
	})
}

// Query opens the record stored under key
func (s *Storage) Query(key string) (store.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sealer == nil {
		return store.Record{}, store.ErrLocked
	}

	var sealed []byte
	var entry IndexEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		records, index, err := recordBuckets(tx)
		if err != nil {
			return err
		}
		data := records.Get([]byte(key))
		if data == nil {
			return store.ErrNotFound
		}
		// Make a copy since the slice is only valid during the transaction
		sealed = append([]byte(nil), data...)
		raw := index.Get([]byte(key))
		if raw == nil {
			return fmt.Errorf("index entry for %s not found", key)
		}
		return json.Unmarshal(raw, &entry)
	})
	if err != nil {
		return store.Record{}, err
	}

	data, err := s.sealer.Open(binding(key, entry.Tier), sealed)
	if err != nil {
		return store.Record{}, fmt.Errorf("failed to open record %s: %w", key, err)
	}
	return store.Record{Key: key, Data: data, Tier: entry.Tier}, nil
}

// Delete removes the record stored under key
func (s *Storage) Delete(key string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sealer == nil {
		return store.ErrLocked
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		records, index, err := recordBuckets(tx)
		if err != nil {
			return err
		}
		if records.Get([]byte(key)) == nil {
			return store.ErrNotFound
		}
		if err := records.Delete([]byte(key)); err != nil {
			return err
		}
		if err := index.Delete([]byte(key)); err != nil {
			return err
		}
		return touch(tx)
	})
}

func recordBuckets(tx *bolt.Tx) (records, index *bolt.Bucket, err error) {
	records = tx.Bucket(RecordsBucket)
	index = tx.Bucket(IndexBucket)
	if records == nil || index == nil {
		return nil, nil, ErrNotInitialized
	}
	return records, index, nil
}

// touch updates the last modified timestamp
func touch(tx *bolt.Tx) error {
	modified, _ := time.Now().MarshalBinary()
	return tx.Bucket(ConfigBucket).Put(ConfigModified, modified)
}

// Index returns all index entries. It does not require the vault to be unlocked.
func (s *Storage) Index() (Index, error) {
	var entries Index
	err := s.view(func(tx *bolt.Tx) error {
		index := tx.Bucket(IndexBucket)
		if index == nil {
			return ErrNotInitialized
		}
		return index.ForEach(func(k, v []byte) error {
			var entry IndexEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("corrupt index entry %s: %w", k, err)
			}
			entries = append(entries, entry)
			return nil
		})
	})
	return entries, err
}

// Created returns the vault creation time
func (s *Storage) Created() (time.Time, error) {
	return s.configTime(ConfigCreated)
}

// Modified returns the time of the last record change
func (s *Storage) Modified() (time.Time, error) {
	return s.configTime(ConfigModified)
}

func (s *Storage) configTime(key []byte) (time.Time, error) {
	var t time.Time
	err := s.view(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return ErrNotInitialized
		}
		data := config.Get(key)
		if data == nil {
			return fmt.Errorf("%s time not found", key)
		}
		return t.UnmarshalBinary(data)
	})
	return t, err
}

// VaultID returns the vault's unique identifier
func (s *Storage) VaultID() (string, error) {
	var vaultID string
	err := s.view(func(tx *bolt.Tx) error {
		config := tx.Bucket(ConfigBucket)
		if config == nil {
			return ErrNotInitialized
		}
		data := config.Get(ConfigVaultID)
		if data == nil {
			return fmt.Errorf("vault_id not found")
		}
		vaultID = string(data)
		return nil
	})
	return vaultID, err
}

// ChangePassword re-seals every record under a key derived from
// newPassword with a fresh salt. All changes commit in one transaction.
// The vault is left unlocked with the new key.
func (s *Storage) ChangePassword(currentPassword, newPassword []byte) error {
	current, err := s.deriveSealer(currentPassword)
	if err != nil {
		return err
	}
	defer current.Destroy()

	kdf, err := crypto.NewKDF()
	if err != nil {
		return fmt.Errorf("failed to create new KDF: %w", err)
	}
	kdf.Iterations = s.iterations
	next, err := crypto.NewSealer(kdf.DeriveKey(newPassword))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.db.Update(func(tx *bolt.Tx) error {
		records, index, err := recordBuckets(tx)
		if err != nil {
			return err
		}

		resealed := make(map[string][]byte)
		err = records.ForEach(func(k, v []byte) error {
			var entry IndexEntry
			if err := json.Unmarshal(index.Get(k), &entry); err != nil {
				return fmt.Errorf("corrupt index entry %s: %w", k, err)
			}
			bind := binding(string(k), entry.Tier)
			plain, err := current.Open(bind, v)
			if err != nil {
				return fmt.Errorf("failed to open record %s: %w", k, err)
			}
			defer crypto.ClearBytes(plain)

			sealed, err := next.Seal(bind, plain)
			if err != nil {
				return fmt.Errorf("failed to re-seal record %s: %w", k, err)
			}
			resealed[string(k)] = sealed
			return nil
		})
		if err != nil {
			return err
		}
		// Buckets must not be modified while iterating
		for k, sealed := range resealed {
			if err := records.Put([]byte(k), sealed); err != nil {
				return err
			}
		}
		return putKeyMaterial(tx.Bucket(ConfigBucket), kdf, next)
	})
	if err != nil {
		next.Destroy()
		return err
	}

	if s.sealer != nil {
		s.sealer.Destroy()
	}
	s.sealer = next
	return nil
}

// Compact rewrites the database into a fresh file, removing unused space.
// This is useful after deleting records to reclaim disk space. The lock
// state is preserved.
func (s *Storage) Compact() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	srcPath := s.db.Path()
	tmpPath := srcPath + ".compact"

	dst, err := bolt.Open(tmpPath, 0600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}
	if err := bolt.Compact(dst, s.db, 0); err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}
	if err := s.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}

	// Atomic replace
	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		return s.reopen(srcPath, fmt.Errorf("failed to backup original: %w", err))
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath) // rollback
		return s.reopen(srcPath, fmt.Errorf("failed to replace database: %w", err))
	}
	os.Remove(backupPath)

	return s.reopen(srcPath, nil)
}

// reopen reopens the database at path after Compact closed it, keeping
// cause as the reported error when there is one
func (s *Storage) reopen(path string, cause error) error {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return errors.Join(cause, fmt.Errorf("failed to reopen database: %w", err))
	}
	s.db = db
	return cause
}
