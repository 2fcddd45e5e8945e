// Package storage provides the persistence envelope: versioned snapshot
// serialization over a pluggable key/value backend, with quota-exhaustion
// detection and transparent fallback to an in-memory store.
package storage

import (
	"context"
	"errors"
	"strings"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Backend is the minimal key/value surface the envelope writes through.
// Implementations: SQLiteBackend (durable) and MemoryBackend (fallback,
// tests).
type Backend interface {
	// Get returns the value for key; the bool is false when absent.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set writes the value for key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the backend.
	Close() error
}

// IsQuotaExceeded reports whether err is a storage-capacity failure, as
// opposed to any other I/O error. SQLITE_FULL covers the embedded driver;
// the string checks catch OS-level disk exhaustion surfaced by the VFS.
func IsQuotaExceeded(err error) bool {
	if err == nil {
		return false
	}
	var serr *sqlite.Error
	if errors.As(err, &serr) && serr.Code() == sqlite3.SQLITE_FULL {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database or disk is full") ||
		strings.Contains(msg, "no space left on device") ||
		strings.Contains(msg, "quota")
}
