// Package store provides the durable session store: a small key/value
// surface holding the full session set plus the legacy single-session
// slot consumed once by migration.
package store

import (
	"context"
	"errors"
)

// Storage slot keys. They match the browser localStorage keys of the
// original client so exported state remains recognizable.
const (
	// SessionsKey holds the full session sequence as JSON.
	SessionsKey = "chat_sessions"
	// LegacyKey holds the pre-sessions single transcript, consumed once
	// by MigrateLegacy and then removed.
	LegacyKey = "chat_history"
)

// ErrNotFound is returned by a Backend when a key has no value.
var ErrNotFound = errors.New("not found")

// Backend is the key/value surface the session store persists through.
type Backend interface {
	// Get unmarshals the value at key into v, or returns ErrNotFound.
	Get(ctx context.Context, key string, v any) error
	// Put stores v at key, overwriting any prior value.
	Put(ctx context.Context, key string, v any) error
	// Delete removes key; deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// Exists reports whether key has a value.
	Exists(ctx context.Context, key string) bool
}
