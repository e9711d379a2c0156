package crypto

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSealer(t *testing.T, password string) *Sealer {
	t.Helper()
	kdf := &KDF{Salt: bytes.Repeat([]byte{7}, SaltSize), Iterations: MinIters}
	require.NoError(t, kdf.Validate())
	s, err := NewSealer(kdf.DeriveKey([]byte(password)))
	require.NoError(t, err)
	t.Cleanup(s.Destroy)
	return s
}

func TestSealOpen(t *testing.T) {
	s := testSealer(t, "test123")

	sealed, err := s.Seal("App.Token", []byte("abc123"))
	require.NoError(t, err)
	assert.Len(t, sealed, NonceSize+len("abc123")+TagSize)

	plain, err := s.Open("App.Token", sealed)
	require.NoError(t, err)
	assert.Equal(t, "abc123", string(plain))

	again, err := s.Seal("App.Token", []byte("abc123"))
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must differ per seal")
}

func TestOpenBoundToRecordKey(t *testing.T) {
	s := testSealer(t, "test123")
	sealed, err := s.Seal("App.Token", []byte("abc123"))
	require.NoError(t, err)

	_, err = s.Open("App.Other", sealed)
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestOpenWrongPassword(t *testing.T) {
	sealed, err := testSealer(t, "right").Seal("k", []byte("v"))
	require.NoError(t, err)

	_, err = testSealer(t, "wrong").Open("k", sealed)
	assert.ErrorIs(t, err, ErrAuthFailed)
}

func TestOpenTampered(t *testing.T) {
	s := testSealer(t, "test123")
	sealed, err := s.Seal("k", []byte("value"))
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xFF
	_, err = s.Open("k", sealed)
	assert.ErrorIs(t, err, ErrAuthFailed)

	_, err = s.Open("k", sealed[:NonceSize])
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestKDF(t *testing.T) {
	kdf, err := NewKDF()
	require.NoError(t, err)
	assert.Len(t, kdf.Salt, SaltSize)
	assert.Equal(t, DefaultIters, kdf.Iterations)
	assert.NoError(t, kdf.Validate())

	weak := &KDF{Salt: kdf.Salt, Iterations: 10}
	assert.ErrorIs(t, weak.Validate(), ErrWeakParameters)

	short := &KDF{Salt: []byte("short"), Iterations: DefaultIters}
	assert.ErrorIs(t, short.Validate(), ErrWeakParameters)

	fast := &KDF{Salt: kdf.Salt, Iterations: MinIters}
	assert.Equal(t, fast.DeriveKey([]byte("pw")), fast.DeriveKey([]byte("pw")))
	assert.Len(t, fast.DeriveKey([]byte("pw")), KeySize)
}

func TestNewSealerKeySize(t *testing.T) {
	_, err := NewSealer([]byte("short"))
	assert.Error(t, err)
}

func TestClearBytes(t *testing.T) {
	b := []byte("secret")
	ClearBytes(b)
	assert.Equal(t, make([]byte, 6), b)
	assert.True(t, ConstantTimeCompare([]byte("a"), []byte("a")))
	assert.False(t, ConstantTimeCompare([]byte("a"), []byte("b")))
}
