package broker

import (
	"context"

	"github.com/google/uuid"
)

// EventBroker moves room events between server nodes
type EventBroker interface {
	Publish(ctx context.Context, event Event) error
	// Subscribe delivers every published event until ctx is done
	Subscribe(ctx context.Context) (<-chan Event, error)
	Close() error
}

// Emitter is what services use to notify users. Emission is best effort
// and never reports failure to the caller.
type Emitter interface {
	Emit(ctx context.Context, room uuid.UUID, eventType string, payload interface{})
}
