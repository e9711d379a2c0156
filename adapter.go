package strongbox

import (
	"errors"

	"github.com/illarion/strongbox/internal/store"
)

// adapter translates upsert, fetch and delete intents into protected-store
// calls.
type adapter struct {
	store store.Store
}

// upsert stores data under key. The protected store only creates, so an
// existing record is deleted and the insert retried once.
//
// If the retry fails after the delete succeeded, the key is left deleted
// and the result reports the failed insert. Callers should treat a failed
// upsert as leaving the key in an unknown state.
func (a adapter) upsert(key string, data []byte, tier Tier) Result {
	rec := store.Record{Key: key, Data: data, Tier: tier}

	err := a.store.Insert(rec)
	if errors.Is(err, store.ErrDuplicateKey) {
		if derr := a.store.Delete(key); derr != nil && !errors.Is(derr, store.ErrNotFound) {
			return failed(key, derr)
		}
		err = a.store.Insert(rec)
	}
	if err != nil {
		return failed(key, err)
	}
	return Result{Key: key, Status: StatusSuccess, ok: true}
}

// fetch reads the payload stored under key. A missing key is reported as
// StatusNotFound with no error.
func (a adapter) fetch(key string) ([]byte, Result) {
	rec, err := a.store.Query(key)
	switch {
	case err == nil:
		return rec.Data, Result{Key: key, Status: StatusSuccess, ok: true}
	case errors.Is(err, store.ErrNotFound):
		return nil, Result{Key: key, Status: StatusNotFound}
	default:
		return nil, failed(key, err)
	}
}

// delete removes key. Removing a missing key succeeds.
func (a adapter) delete(key string) Result {
	err := a.store.Delete(key)
	switch {
	case err == nil:
		return Result{Key: key, Status: StatusSuccess, ok: true}
	case errors.Is(err, store.ErrNotFound):
		return Result{Key: key, Status: StatusNotFound, ok: true}
	default:
		return failed(key, err)
	}
}

func failed(key string, err error) Result {
	return Result{Key: key, Status: store.StatusOf(err), Err: err}
}
