// Package store defines the protected-store contract that strongbox backends
// implement.
//
// A protected store holds opaque records keyed by a fully-qualified key:
//   - Insert is create-only and fails with ErrDuplicateKey if the key exists
//   - Query returns ErrNotFound for a missing key
//   - Delete returns ErrNotFound for a missing key
//
// Backends report failures as errors; StatusOf collapses any error into the
// Status codes the strongbox façade records for diagnostics.
package store
