// Package storage provides the encrypted file vault backend for strongbox,
// built on BBolt.
//
// Database structure uses three buckets:
//   - config: version, timestamps, KDF parameters (salt, iterations), vault ID
//     and the sealed password check token
//   - index: key, tier, size and creation time of every record (unencrypted,
//     for status listings without a password)
//   - records: sealed record payloads
//
// A vault must be unlocked with its password before records can be read or
// written. Payloads are sealed with the record key and tier as additional
// data, so neither can be altered in the index without failing to open.
//
// BBolt provides ACID transactions, file locking, and corruption detection.
// Insert checks for an existing key and writes inside one transaction, which
// gives the create-only semantics store.Store requires.
package storage
