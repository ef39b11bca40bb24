package testutil

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
)

// EmittedEvent is one call recorded by RecordingEmitter. Payload is the
// JSON form of what the service emitted.
type EmittedEvent struct {
	Room    uuid.UUID
	Type    string
	Payload map[string]interface{}
}

// RecordingEmitter collects emitted events instead of publishing them
type RecordingEmitter struct {
	mu     sync.Mutex
	events []EmittedEvent
}

func NewRecordingEmitter() *RecordingEmitter {
	return &RecordingEmitter{}
}

func (r *RecordingEmitter) Emit(ctx context.Context, room uuid.UUID, eventType string, payload interface{}) {
	decoded := map[string]interface{}{}
	if raw, err := json.Marshal(payload); err == nil {
		_ = json.Unmarshal(raw, &decoded)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, EmittedEvent{Room: room, Type: eventType, Payload: decoded})
}

func (r *RecordingEmitter) Events() []EmittedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EmittedEvent, len(r.events))
	copy(out, r.events)
	return out
}

// For returns the events delivered to room, in order
func (r *RecordingEmitter) For(room uuid.UUID) []EmittedEvent {
	var out []EmittedEvent
	for _, e := range r.Events() {
		if e.Room == room {
			out = append(out, e)
		}
	}
	return out
}

// Types lists the event types delivered to room
func (r *RecordingEmitter) Types(room uuid.UUID) []string {
	var out []string
	for _, e := range r.For(room) {
		out = append(out, e.Type)
	}
	return out
}

func (r *RecordingEmitter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
