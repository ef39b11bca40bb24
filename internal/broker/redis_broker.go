package broker

import (
	"context"
	"encoding/json"

	"github.com/lify-app/lify-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisMessageBroker implements EventBroker using Redis pub/sub
type RedisMessageBroker struct {
	client  *redis.Client
	channel string
}

func NewRedisMessageBroker(redisURL, channel string) (*RedisMessageBroker, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisMessageBroker{
		client:  client,
		channel: channel,
	}, nil
}

// Client exposes the underlying connection so other Redis users (rate
// limiter) share the pool.
func (r *RedisMessageBroker) Client() *redis.Client {
	return r.client
}

func (r *RedisMessageBroker) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return r.client.Publish(ctx, r.channel, data).Err()
}

func (r *RedisMessageBroker) Subscribe(ctx context.Context) (<-chan Event, error) {
	pubsub := r.client.Subscribe(ctx, r.channel)

	// Wait for the subscription confirmation so nothing published after
	// Subscribe returns is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	events := make(chan Event, 100)

	go func() {
		defer close(events)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case redisMsg, ok := <-ch:
				if !ok {
					return
				}

				var event Event
				if err := json.Unmarshal([]byte(redisMsg.Payload), &event); err != nil {
					logger.Log.Warn("Broker: dropping malformed event", zap.Error(err))
					continue
				}

				select {
				case events <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return events, nil
}

func (r *RedisMessageBroker) Close() error {
	return r.client.Close()
}
