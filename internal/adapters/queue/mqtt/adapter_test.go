package mqtt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAdapter_Topic(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"inventory", "inventory/systemLoad"},
		{"/inventory/", "inventory/systemLoad"},
		{"", "systemLoad"},
	}
	for _, tt := range tests {
		a := newAdapter(nil, tt.prefix)
		assert.Equal(t, tt.want, a.topic("systemLoad"))
	}
}

func TestNewAdapter_Unreachable(t *testing.T) {
	_, err := NewAdapter("tcp://127.0.0.1:1", "inventory")
	assert.Error(t, err)
}

func TestAdapter_WaitHonoursContext(t *testing.T) {
	a := newAdapter(nil, "inventory")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, a.wait(ctx, pendingToken{}), context.Canceled)
}

// pendingToken never completes.
type pendingToken struct{}

func (pendingToken) Wait() bool                       { return false }
func (pendingToken) WaitTimeout(_ time.Duration) bool { return false }
func (pendingToken) Done() <-chan struct{}            { return nil }
func (pendingToken) Error() error                     { return nil }
