package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"sysinv.inventory/internal/core/domain"
	"sysinv.inventory/internal/core/ports"
)

const (
	dlqKey        = "inventory:dlq"
	dlqMetaPrefix = "inventory:dlq:meta:"
)

// DeadLetterQueue indexes failed reservations in a sorted set scored by
// failure time, with each entry stored under its own key.
type DeadLetterQueue struct {
	client *redis.Client
}

var _ ports.DeadLetterQueue = (*DeadLetterQueue)(nil)

func NewDeadLetterQueue(client *redis.Client) *DeadLetterQueue {
	return &DeadLetterQueue{client: client}
}

// NewDeadLetterQueueFromURL opens its own client.
func NewDeadLetterQueueFromURL(url string) (*DeadLetterQueue, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return NewDeadLetterQueue(redis.NewClient(opts)), nil
}

func (dlq *DeadLetterQueue) Add(ctx context.Context, dl domain.DeadLetter) error {
	data, err := json.Marshal(dl)
	if err != nil {
		return fmt.Errorf("failed to marshal DLQ entry: %w", err)
	}

	_, err = dlq.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, dlqKey, redis.Z{
			Score:  float64(dl.FailedAt.UnixNano()),
			Member: dl.ID,
		})
		pipe.Set(ctx, dlqMetaPrefix+dl.ID, data, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to add to DLQ: %w", err)
	}
	return nil
}

func (dlq *DeadLetterQueue) Get(ctx context.Context, id string) (*domain.DeadLetter, error) {
	data, err := dlq.client.Get(ctx, dlqMetaPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrDeadLetterNotFound
		}
		return nil, fmt.Errorf("failed to get DLQ entry: %w", err)
	}

	var dl domain.DeadLetter
	if err := json.Unmarshal(data, &dl); err != nil {
		return nil, fmt.Errorf("failed to unmarshal DLQ entry: %w", err)
	}
	return &dl, nil
}

// List returns entries newest first.
func (dlq *DeadLetterQueue) List(ctx context.Context, offset, limit int64) ([]domain.DeadLetter, error) {
	ids, err := dlq.client.ZRevRange(ctx, dlqKey, offset, offset+limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list DLQ: %w", err)
	}

	entries := make([]domain.DeadLetter, 0, len(ids))
	for _, id := range ids {
		dl, err := dlq.Get(ctx, id)
		if err != nil {
			// metadata removed concurrently
			continue
		}
		entries = append(entries, *dl)
	}
	return entries, nil
}

func (dlq *DeadLetterQueue) Remove(ctx context.Context, id string) error {
	removed, err := dlq.client.ZRem(ctx, dlqKey, id).Result()
	if err != nil {
		return fmt.Errorf("failed to remove from DLQ: %w", err)
	}
	if removed == 0 {
		return domain.ErrDeadLetterNotFound
	}
	if err := dlq.client.Del(ctx, dlqMetaPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to remove DLQ metadata: %w", err)
	}
	return nil
}

func (dlq *DeadLetterQueue) Count(ctx context.Context) (int64, error) {
	count, err := dlq.client.ZCard(ctx, dlqKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count DLQ: %w", err)
	}
	return count, nil
}

func (dlq *DeadLetterQueue) Ping(ctx context.Context) error {
	return dlq.client.Ping(ctx).Err()
}

func (dlq *DeadLetterQueue) Close() error {
	return dlq.client.Close()
}
