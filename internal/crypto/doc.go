// Package crypto provides the sealing primitives of the strongbox file vault.
//
// Records are sealed with AES-256-GCM using:
//   - 32-byte key derived from the vault password via PBKDF2-HMAC-SHA256
//   - 12-byte random nonce per seal operation
//   - The record key as additional authenticated data, so a sealed payload
//     only opens under the key it was written for
//
// Key derivation uses a 32-byte random salt (stored unencrypted) and
// 210,000 iterations (OWASP minimum recommendation).
//
// Call Sealer.Destroy when done and ClearBytes on plaintext buffers.
package crypto
