package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/corkboard/realtime-backend/internal/core/domain"
)

// EventBus defines the port for the in-process broadcast bus.
//
// Emit delivers synchronously, in registration order, to the subscribers
// present at call time; there is no buffering and no delivery guarantee.
// Subscribe returns an idempotent unsubscribe function. The admission
// checks are advisory: callers are expected to consult them before
// TrackConnection, and TrackConnection itself never rejects.
type EventBus interface {
	Emit(channel string, event domain.Event)
	Subscribe(channel string, fn func(domain.Event)) (unsubscribe func())

	CanUserConnect(userID string) bool
	CanProjectAcceptConnection(projectID string) bool
	TrackConnection(userID, projectID string) (release func())

	ListenerCount(channel string) int
	Stats() BusStats
}

// BusStats is a point-in-time diagnostic snapshot of the bus.
type BusStats struct {
	Channels          int `json:"channels"`
	Subscriptions     int `json:"subscriptions"`
	TrackedUsers      int `json:"trackedUsers"`
	TrackedProjects   int `json:"trackedProjects"`
	ActiveConnections int `json:"activeConnections"`
}

// MembershipResolver defines the port for project membership lookups.
// The board application owns the membership data; this service only reads it.
type MembershipResolver interface {
	IsMember(ctx context.Context, userID uuid.UUID, projectID string) (bool, error)
}
