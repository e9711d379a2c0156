package store

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicateKey = errors.New("duplicate key")
	ErrNotFound     = errors.New("record not found")
	ErrLocked       = errors.New("store is locked")
)

// Status is the outcome code of a single protected-store call.
type Status int

const (
	StatusSuccess Status = iota
	StatusDuplicateKey
	StatusNotFound
	StatusFailure
	// StatusNotAttempted marks a call that failed before reaching the store.
	StatusNotAttempted
)

// String returns the string representation of Status
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusDuplicateKey:
		return "duplicate-key"
	case StatusNotFound:
		return "not-found"
	case StatusFailure:
		return "failure"
	case StatusNotAttempted:
		return "not-attempted"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// StatusOf maps a store error to its Status. A nil error is StatusSuccess.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, ErrDuplicateKey):
		return StatusDuplicateKey
	case errors.Is(err, ErrNotFound):
		return StatusNotFound
	default:
		return StatusFailure
	}
}

// Tier is the accessibility policy attached to a stored record.
// The zero value is TierWhenUnlocked.
type Tier int

const (
	TierWhenUnlocked Tier = iota
	TierAfterFirstUnlock
	TierAlways
	TierWhenPasscodeSetThisDeviceOnly
	TierWhenUnlockedThisDeviceOnly
	TierAfterFirstUnlockThisDeviceOnly
	TierAlwaysThisDeviceOnly
)

var tierNames = [...]string{
	TierWhenUnlocked:                   "when-unlocked",
	TierAfterFirstUnlock:               "after-first-unlock",
	TierAlways:                         "always",
	TierWhenPasscodeSetThisDeviceOnly:  "when-passcode-set-this-device-only",
	TierWhenUnlockedThisDeviceOnly:     "when-unlocked-this-device-only",
	TierAfterFirstUnlockThisDeviceOnly: "after-first-unlock-this-device-only",
	TierAlwaysThisDeviceOnly:           "always-this-device-only",
}

func (t Tier) String() string {
	if t < 0 || int(t) >= len(tierNames) {
		return fmt.Sprintf("tier(%d)", int(t))
	}
	return tierNames[t]
}

// ParseTier parses a tier name as produced by Tier.String. The empty string
// parses as TierWhenUnlocked.
func ParseTier(s string) (Tier, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return TierWhenUnlocked, nil
	}
	for i, name := range tierNames {
		if name == s {
			return Tier(i), nil
		}
	}
	return 0, fmt.Errorf("unknown protection tier %q", s)
}

// MarshalText implements encoding.TextMarshaler so tiers appear by name in
// JSON and YAML.
func (t Tier) MarshalText() ([]byte, error) {
	if t < 0 || int(t) >= len(tierNames) {
		return nil, fmt.Errorf("invalid protection tier %d", int(t))
	}
	return []byte(tierNames[t]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tier) UnmarshalText(text []byte) error {
	parsed, err := ParseTier(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Record is a single entry in a protected store.
type Record struct {
	Key  string
	Data []byte
	Tier Tier
}

// Store is a protected store with per-record create, read and delete.
// Implementations must be safe for concurrent use.
type Store interface {
	// Insert creates a record. It returns ErrDuplicateKey if a record with
	// the same key already exists; it never overwrites.
	Insert(rec Record) error

	// Query returns the record stored under key, or ErrNotFound.
	Query(key string) (Record, error)

	// Delete removes the record stored under key, or returns ErrNotFound.
	Delete(key string) error
}
