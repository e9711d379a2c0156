package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	SaltSize     = 32     // Salt size in bytes
	KeySize      = 32     // AES-256 key size
	NonceSize    = 12     // GCM nonce size
	TagSize      = 16     // GCM authentication tag size
	DefaultIters = 210000 // Default PBKDF2 iterations (OWASP minimum)
	MinIters     = 1000   // Lowest iteration count a vault may be opened with
)

var (
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrAuthFailed        = errors.New("authentication failed")
	ErrWeakParameters    = errors.New("key derivation parameters too weak")
)

// KDF holds the password-based key derivation parameters of a vault
type KDF struct {
	Salt       []byte
	Iterations int
}

// NewKDF creates a KDF with a random salt and the default iteration count
func NewKDF() (*KDF, error) {
	salt, err := GenerateRandom(SaltSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return &KDF{Salt: salt, Iterations: DefaultIters}, nil
}

// Validate rejects parameters read back from storage that would derive a
// trivially brute-forced key
func (k *KDF) Validate() error {
	if len(k.Salt) != SaltSize {
		return fmt.Errorf("%w: salt is %d bytes", ErrWeakParameters, len(k.Salt))
	}
	if k.Iterations < MinIters {
		return fmt.Errorf("%w: %d iterations", ErrWeakParameters, k.Iterations)
	}
	return nil
}

// DeriveKey derives a sealing key from a password
func (k *KDF) DeriveKey(password []byte) []byte {
	return pbkdf2.Key(password, k.Salt, k.Iterations, KeySize, sha256.New)
}

// Sealer seals and opens record payloads with AES-256-GCM
type Sealer struct {
	key  []byte
	aead cipher.AEAD
}

// NewSealer creates a Sealer that owns key; Destroy clears it
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key size %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Sealer{key: key, aead: gcm}, nil
}

// Seal encrypts plaintext for recordKey. The output is nonce || ciphertext || tag.
func (s *Sealer) Seal(recordKey string, plaintext []byte) ([]byte, error) {
	nonce, err := GenerateRandom(NonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	out := make([]byte, NonceSize, NonceSize+len(plaintext)+TagSize)
	copy(out, nonce)
	return s.aead.Seal(out, nonce, plaintext, []byte(recordKey)), nil
}

// Open decrypts a payload produced by Seal for the same recordKey
func (s *Sealer) Open(recordKey string, sealed []byte) ([]byte, error) {
	if len(sealed) < NonceSize+TagSize {
		return nil, ErrInvalidCiphertext
	}
	nonce, ciphertext := sealed[:NonceSize], sealed[NonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, []byte(recordKey))
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

// Destroy clears the sealer's key from memory
func (s *Sealer) Destroy() {
	ClearBytes(s.key)
	s.aead = nil
}

// ClearBytes securely clears a byte slice
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ConstantTimeCompare performs a constant-time comparison of two byte slices
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// GenerateRandom generates n random bytes
func GenerateRandom(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}
