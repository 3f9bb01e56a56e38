package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sysinv.inventory/internal/core/ports"
)

func recv(t *testing.T, ch <-chan ports.Message) ports.Message {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return ports.Message{}
	}
}

func TestBus_FanOut(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := bus.Subscribe(ctx, "systemLoad")
	require.NoError(t, err)
	b, err := bus.Subscribe(ctx, "systemLoad")
	require.NoError(t, err)
	other, err := bus.Subscribe(ctx, "addSystemProperty")
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, ports.Message{Topic: "systemLoad", Payload: []byte("x")}))

	assert.Equal(t, []byte("x"), recv(t, a).Payload)
	assert.Equal(t, []byte("x"), recv(t, b).Payload)
	select {
	case msg := <-other:
		t.Fatalf("unexpected message on other topic: %v", msg)
	default:
	}
}

func TestBus_UnsubscribeOnCancel(t *testing.T) {
	bus := NewBus()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := bus.Subscribe(ctx, "t")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}

	assert.NoError(t, bus.Publish(context.Background(), ports.Message{Topic: "t"}))
}

func TestBus_Close(t *testing.T) {
	bus := NewBus()
	ch, err := bus.Subscribe(context.Background(), "t")
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	_, ok := <-ch
	assert.False(t, ok)

	assert.ErrorIs(t, bus.Publish(context.Background(), ports.Message{Topic: "t"}), ErrClosed)
	assert.ErrorIs(t, bus.Ping(context.Background()), ErrClosed)
	_, err = bus.Subscribe(context.Background(), "t")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestBus_PublishDuringClose(t *testing.T) {
	for i := 0; i < 200; i++ {
		bus := NewBus()
		ch, err := bus.Subscribe(context.Background(), "t")
		require.NoError(t, err)

		var wg sync.WaitGroup
		for j := 0; j < 50; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := bus.Publish(context.Background(), ports.Message{Topic: "t"})
				if err != nil && !errors.Is(err, ErrClosed) {
					t.Errorf("publish: %v", err)
				}
			}()
		}
		require.NoError(t, bus.Close())
		wg.Wait()

		for range ch {
		}
	}
}

func TestBus_PublishDuringUnsubscribe(t *testing.T) {
	for i := 0; i < 200; i++ {
		bus := NewBus()
		ctx, cancel := context.WithCancel(context.Background())
		ch, err := bus.Subscribe(ctx, "t")
		require.NoError(t, err)

		var wg sync.WaitGroup
		for j := 0; j < 100; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, bus.Publish(context.Background(), ports.Message{Topic: "t"}))
			}()
		}
		cancel()
		wg.Wait()

		// 100 publishes overflow the buffer; the ones blocked on it must be released
		for range ch {
		}
	}
}
