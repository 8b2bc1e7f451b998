// Package presence tracks which users are alive per tenant, with a logical
// TTL refreshed by the ping cadence. Rooms keep their own in-memory view;
// the registry is the cross-node record other services can read.
package presence

import (
	"context"
	"time"

	"github.com/sisilabsai/nexenairis-collab/internal/board"
)

type Registry interface {
	// Touch marks the user alive for ttl, refreshing on repeat calls.
	Touch(ctx context.Context, tenantID string, user board.User, ttl time.Duration) error
	Remove(ctx context.Context, tenantID, userID string) error
	// Online returns the users whose TTL has not lapsed.
	Online(ctx context.Context, tenantID string) ([]board.User, error)
}
