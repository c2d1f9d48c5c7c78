package storage

import (
	"context"
)

// DefaultSessionKey is the key the wallet session is persisted under.
const DefaultSessionKey = "wallet_session_v1"

// Session is the persisted wallet session. It is read, written and deleted as a unit.
type Session struct {
	Connected bool   `json:"connected"`
	Address   string `json:"address"`
}

// SessionStore persists a single wallet session.
type SessionStore interface {
	// Load returns the stored session, or nil if nothing is stored.
	Load(ctx context.Context) (*Session, error)

	// Save replaces the stored session.
	Save(ctx context.Context, s Session) error

	// Clear deletes the stored session. Clearing an empty store is not an error.
	Clear(ctx context.Context) error

	// Close releases the backend.
	Close() error
}
