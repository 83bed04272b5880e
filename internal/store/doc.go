// Package store archives programs and their resolved documents in SQLite.
//
// The archive is content-addressed: a program's key is the SHA-256 of its
// canonical serialization. Putting the same program twice is idempotent,
// and a stored body re-hashes to its own key on the way out.
package store
