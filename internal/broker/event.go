package broker

import (
	"encoding/json"
	"time"
)

// Realtime event names delivered to user rooms
const (
	EventMessageNew      = "message:new"
	EventRequestNew      = "conversation:request:new"
	EventRequestAccepted = "conversation:request:accepted"
	EventRequestRejected = "conversation:request:rejected"
	EventMessageRead     = "message:read"
	EventMessageUpdated  = "message:updated"
	EventReactionAdded   = "reaction:added"
	EventReactionRemoved = "reaction:removed"
	EventMessageEdited   = "message:edited"
	EventMessageDeleted  = "message:deleted"
)

// Event is addressed to the room of a single user
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Room      string          `json:"room"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}
