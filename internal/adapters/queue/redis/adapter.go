package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
	"sysinv.inventory/internal/core/logger"
	"sysinv.inventory/internal/core/ports"
)

// RedisAdapter carries messages over Redis pub/sub. Headers are not
// transported.
type RedisAdapter struct {
	client *redis.Client
}

var _ ports.MessageBus = (*RedisAdapter)(nil)

func NewRedisAdapter(url string) (*RedisAdapter, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return NewRedisAdapterFromClient(redis.NewClient(opts)), nil
}

func NewRedisAdapterFromClient(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) Publish(ctx context.Context, msg ports.Message) error {
	return r.client.Publish(ctx, msg.Topic, msg.Payload).Err()
}

// Subscribe waits for the subscription to be confirmed so that messages
// published after it returns are not missed.
func (r *RedisAdapter) Subscribe(ctx context.Context, topic string) (<-chan ports.Message, error) {
	pubsub := r.client.Subscribe(ctx, topic)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	ch := make(chan ports.Message)
	go func() {
		defer pubsub.Close()
		defer close(ch)

		in := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-in:
				if !ok {
					logger.Warn("Redis subscription closed", "topic", topic)
					return
				}
				msg := ports.Message{Topic: m.Channel, Payload: []byte(m.Payload)}
				select {
				case ch <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

func (r *RedisAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisAdapter) Close() error {
	return r.client.Close()
}
