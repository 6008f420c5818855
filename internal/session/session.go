// Package session remembers what each caller is currently talking
// about. The store is keyed by a stable identifier (a phone number or
// user id) matched as an exact string. No phone-number normalization
// is performed, so "+1 555..." and "+1555..." are distinct callers.
package session

import (
	"context"
	"time"
)

// Session holds the per-caller conversation memory. At most one
// Session exists per identifier; every write overwrites the prior
// value, no history is kept.
type Session struct {
	Identifier    string    `json:"identifier"`
	Topic         string    `json:"topic"`
	ImageQuery    string    `json:"image_query,omitempty"`
	VideoQuery    string    `json:"video_query,omitempty"`
	LastUtterance string    `json:"last_utterance,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Store is the injectable session storage abstraction. Implementations
// must be safe for concurrent use.
type Store interface {
	// Get retrieves a session. Returns nil, nil when the identifier
	// has no session yet (absence is not an error).
	Get(ctx context.Context, id string) (*Session, error)

	// Put stores a session, overwriting any prior value. Last writer
	// wins.
	Put(ctx context.Context, id string, s *Session) error

	// Update applies fn to the current session (nil when absent) and
	// stores the result atomically with respect to other Updates for
	// the same identifier. Returning nil from fn leaves the store
	// unchanged. This is the read-modify-write path; plain Get/Put
	// pairs are not atomic.
	Update(ctx context.Context, id string, fn func(*Session) *Session) error

	// Close releases store resources.
	Close() error
}
