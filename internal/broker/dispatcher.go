package broker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/lify-app/lify-backend/internal/outbox"
	"github.com/lify-app/lify-backend/pkg/logger"
	"go.uber.org/zap"
)

// Dispatcher publishes room events and parks the ones the broker refused
// in the outbox for a later retry.
type Dispatcher struct {
	broker EventBroker
	outbox *outbox.Outbox
	now    func() time.Time
}

func NewDispatcher(broker EventBroker, box *outbox.Outbox) *Dispatcher {
	return &Dispatcher{
		broker: broker,
		outbox: box,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (d *Dispatcher) Emit(ctx context.Context, room uuid.UUID, eventType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Error("Dispatcher: failed to marshal payload",
			zap.String("event", eventType),
			zap.Error(err),
		)
		return
	}

	event := Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Room:      room.String(),
		Payload:   data,
		Timestamp: d.now(),
	}

	if err := d.broker.Publish(ctx, event); err != nil {
		logger.Log.Warn("Dispatcher: publish failed, parking event in outbox",
			zap.String("event", eventType),
			zap.String("room", event.Room),
			zap.Error(err),
		)
		d.park(event)
		return
	}

	logger.Log.Debug("Dispatcher: event published",
		zap.String("event", eventType),
		zap.String("room", event.Room),
	)
}

func (d *Dispatcher) park(event Event) {
	if d.outbox == nil {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := d.outbox.Append(outbox.Entry{ID: event.ID, Payload: data, Timestamp: event.Timestamp}); err != nil {
		logger.Log.Error("Dispatcher: failed to park event", zap.String("event_id", event.ID), zap.Error(err))
	}
}

// Replay republishes parked events and removes the delivered ones. It
// stops at the first publish failure since the broker is likely still down.
func (d *Dispatcher) Replay(ctx context.Context) (int, error) {
	if d.outbox == nil {
		return 0, nil
	}

	entries, err := d.outbox.ReadAll()
	if err != nil {
		return 0, err
	}

	var delivered []string
	for _, entry := range entries {
		var event Event
		if err := json.Unmarshal(entry.Payload, &event); err != nil {
			// Unreadable entries can never be delivered
			delivered = append(delivered, entry.ID)
			continue
		}
		if err := d.broker.Publish(ctx, event); err != nil {
			break
		}
		delivered = append(delivered, entry.ID)
	}

	if err := d.outbox.Remove(delivered); err != nil {
		return 0, err
	}
	return len(delivered), nil
}

// StartRetry replays the outbox every interval until ctx is done
func (d *Dispatcher) StartRetry(ctx context.Context, interval time.Duration) {
	if d.outbox == nil || interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := d.Replay(ctx)
				if err != nil {
					logger.Log.Error("Dispatcher: outbox replay failed", zap.Error(err))
					continue
				}
				if n > 0 {
					logger.Log.Info("Dispatcher: outbox replayed", zap.Int("delivered", n))
				}
			}
		}
	}()
}
