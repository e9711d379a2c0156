package strongbox

import (
	"github.com/illarion/strongbox/codec"
)

// Encode stores *value under key as raw bytes produced by c, bypassing the
// object-graph codec. A nil value removes the key.
//
// The returned error is the encoding failure, if any. No store call is made
// in that case and the Result carries StatusNotAttempted. Store failures are
// reported by the Result.
func Encode[T any](s *Strongbox, value *T, key string, c codec.Codec, tier Tier) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nk := s.Key(key)
	if value == nil {
		return s.record("encode", s.adapter.delete(nk)), nil
	}

	data, err := codec.Marshal(c, *value)
	if err != nil {
		return Result{Key: nk, Status: StatusNotAttempted, Err: err}, err
	}
	return s.record("encode", s.adapter.upsert(nk, data, tier)), nil
}

// Decode reads the bytes stored under key and decodes them as a T with c.
//
// A missing key returns the zero T, a non-OK Result and a nil error. A
// payload that is not a valid T returns a *codec.DecodeError.
func Decode[T any](s *Strongbox, key string, c codec.Codec) (T, Result, error) {
	var zero T

	s.mu.Lock()
	defer s.mu.Unlock()

	data, res := s.adapter.fetch(s.Key(key))
	s.record("decode", res)
	if !res.OK() {
		return zero, res, nil
	}

	out, err := codec.Unmarshal[T](c, data)
	if err != nil {
		return zero, res, err
	}
	return out, res, nil
}
