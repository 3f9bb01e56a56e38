package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sysinv.inventory/internal/core/domain"
)

func TestDeadLetterQueue(t *testing.T) {
	mr := miniredis.RunT(t)
	dlq, err := NewDeadLetterQueueFromURL("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	defer dlq.Close()
	ctx := context.Background()

	require.NoError(t, dlq.Ping(ctx))

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, user := range []string{"alice", "bob", "carol"} {
		require.NoError(t, dlq.Add(ctx, domain.DeadLetter{
			ID:          user,
			Topic:       "requestSystemProperty",
			Reservation: domain.Reservation{Hostname: "h", Username: user},
			Reason:      "broker down",
			FailedAt:    base.Add(time.Duration(i) * time.Second),
		}))
	}

	count, err := dlq.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	entries, err := dlq.List(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "carol", entries[0].ID)
	assert.Equal(t, "bob", entries[1].ID)

	got, err := dlq.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Reservation.Username)
	assert.True(t, base.Equal(got.FailedAt))

	require.NoError(t, dlq.Remove(ctx, "alice"))
	assert.ErrorIs(t, dlq.Remove(ctx, "alice"), domain.ErrDeadLetterNotFound)
	_, err = dlq.Get(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrDeadLetterNotFound)
}
