// Package repo contains draft persistence for the trip planner.
// Each backend has its own file; all of them implement DraftStore and store
// the draft as JSON. No business logic lives here.
package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkordes/trip-planner/internal/domain"
)

// KeyPrefix namespaces draft keys in shared key spaces such as Redis.
const KeyPrefix = "itinerary-draft:"

// DraftKey returns the storage key of the draft owned by session.
func DraftKey(session string) string {
	return KeyPrefix + session
}

// DraftStore persists in-progress trip drafts so an editing session can be
// resumed. The service layer depends on this interface, not on a backend.
type DraftStore interface {
	// Load returns the draft stored under key.
	// Returns domain.ErrNotFound if there is none.
	Load(ctx context.Context, key string) (domain.Trip, error)

	// Save creates or replaces the draft stored under key.
	Save(ctx context.Context, key string, trip domain.Trip) error

	// Delete removes the draft stored under key.
	// Returns domain.ErrNotFound if there is none.
	Delete(ctx context.Context, key string) error
}

func encodeTrip(t domain.Trip) ([]byte, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode draft: %w", err)
	}
	return b, nil
}

func decodeTrip(b []byte) (domain.Trip, error) {
	var t domain.Trip
	if err := json.Unmarshal(b, &t); err != nil {
		return domain.Trip{}, fmt.Errorf("decode draft: %w", err)
	}
	return t, nil
}
