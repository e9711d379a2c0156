// Package cli implements the strongbox command: reading and writing
// archived values, and managing the encrypted file vault and its cached
// password.
package cli
