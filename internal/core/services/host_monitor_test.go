package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sysinv.inventory/internal/core/domain"
)

func TestHostMonitor_StaleAndRecovery(t *testing.T) {
	notifier := &recordingNotifier{}
	m := NewHostMonitor(time.Minute, notifier)

	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	m.Seen("foo")
	m.Seen("bar")
	assert.Equal(t, map[string]string{"foo": HostOnline, "bar": HostOnline}, m.Statuses())

	clock = clock.Add(45 * time.Second)
	m.Seen("bar")
	clock = clock.Add(30 * time.Second)
	m.check()
	assert.Equal(t, map[string]string{"foo": HostStale, "bar": HostOnline}, m.Statuses())

	// already stale hosts are not announced twice
	m.check()
	assert.Equal(t, []string{domain.EventSystemStale}, notifier.types())

	m.Seen("foo")
	assert.Equal(t, HostOnline, m.Statuses()["foo"])
	assert.Equal(t, []string{domain.EventSystemStale, domain.EventSystemOnline}, notifier.types())

	m.Reset()
	assert.Empty(t, m.Statuses())
}

func TestHostMonitor_WiredThroughInventory(t *testing.T) {
	svc, _, _ := newInventory(t)
	assert.Empty(t, svc.HostStatuses())

	m := NewHostMonitor(time.Hour, nil)
	svc.SetHostMonitor(m)
	ctx := context.Background()

	require.NoError(t, svc.UpdateStatus(ctx, domain.SystemLoad{Hostname: "foo", LoadAverage: 1}))
	assert.Equal(t, map[string]string{"foo": HostOnline}, svc.HostStatuses())

	require.NoError(t, svc.ResetSystems(ctx))
	assert.Empty(t, svc.HostStatuses())
}

func TestHostMonitor_StartStopsOnCancel(t *testing.T) {
	m := NewHostMonitor(time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		m.Start(ctx, time.Millisecond)
		close(done)
	}()
	m.Seen("foo")

	assert.Eventually(t, func() bool {
		return m.Statuses()["foo"] == HostStale
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
}
