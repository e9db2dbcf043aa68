package service

import (
	"context"

	"github.com/kwachapay/emi-platform/internal/repository"
)

// QueryStore defines the minimal data access contract required by services.
type QueryStore interface {
	Queries() *repository.Queries
	RunInTx(ctx context.Context, fn func(q *repository.Queries) error) error
}

// Broadcaster pushes cache-invalidation events to connected clients.
// The websocket hub implements it; a nil-safe no-op is used in tests.
type Broadcaster interface {
	Broadcast(eventType string, data any)
}

type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(string, any) {}

func orNoop(b Broadcaster) Broadcaster {
	if b == nil {
		return noopBroadcaster{}
	}
	return b
}
