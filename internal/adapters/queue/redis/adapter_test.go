package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sysinv.inventory/internal/core/ports"
)

func newTestAdapter(t *testing.T) *RedisAdapter {
	t.Helper()
	mr := miniredis.RunT(t)
	adapter, err := NewRedisAdapter("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	t.Cleanup(func() { adapter.Close() })
	return adapter
}

func TestRedisAdapter_PublishSubscribe(t *testing.T) {
	adapter := newTestAdapter(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := adapter.Subscribe(ctx, "systemLoad")
	require.NoError(t, err)

	payload := []byte(`{"hostname":"foo","loadAverage":1.5}`)
	require.NoError(t, adapter.Publish(ctx, ports.Message{Topic: "systemLoad", Payload: payload}))

	select {
	case msg := <-ch:
		assert.Equal(t, "systemLoad", msg.Topic)
		assert.Equal(t, payload, msg.Payload)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for redis message")
	}
}

func TestRedisAdapter_Ping(t *testing.T) {
	adapter := newTestAdapter(t)
	assert.NoError(t, adapter.Ping(context.Background()))
}

func TestNewRedisAdapter_BadURL(t *testing.T) {
	_, err := NewRedisAdapter("not-a-url://")
	assert.Error(t, err)
}
