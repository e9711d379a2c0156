package strongbox

import (
	"fmt"

	"github.com/illarion/strongbox/internal/store"
)

// Status is the outcome code of a protected-store call.
type Status = store.Status

const (
	StatusSuccess      = store.StatusSuccess
	StatusDuplicateKey = store.StatusDuplicateKey
	StatusNotFound     = store.StatusNotFound
	StatusFailure      = store.StatusFailure
	StatusNotAttempted = store.StatusNotAttempted
)

// Tier is the accessibility policy stored with a record. Strongbox passes
// it through to the protected store without interpreting it.
type Tier = store.Tier

const (
	TierWhenUnlocked                   = store.TierWhenUnlocked
	TierAfterFirstUnlock               = store.TierAfterFirstUnlock
	TierAlways                         = store.TierAlways
	TierWhenPasscodeSetThisDeviceOnly  = store.TierWhenPasscodeSetThisDeviceOnly
	TierWhenUnlockedThisDeviceOnly     = store.TierWhenUnlockedThisDeviceOnly
	TierAfterFirstUnlockThisDeviceOnly = store.TierAfterFirstUnlockThisDeviceOnly
	TierAlwaysThisDeviceOnly           = store.TierAlwaysThisDeviceOnly
)

// ParseTier parses a tier name such as "when-unlocked".
func ParseTier(s string) (Tier, error) {
	return store.ParseTier(s)
}

// Result is the outcome of one Strongbox operation.
type Result struct {
	// Key is the namespaced key the operation addressed.
	Key string
	// Status is the status of the last protected-store call.
	Status Status
	// Err is the cause when the operation did not succeed. A missing key is
	// not an error.
	Err error

	ok bool
}

// OK reports whether the operation succeeded. For reads it reports
// whether a value was found and decoded.
func (r Result) OK() bool {
	return r.ok
}

func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", r.Key, r.Status, r.Err)
	}
	return fmt.Sprintf("%s: %s", r.Key, r.Status)
}
