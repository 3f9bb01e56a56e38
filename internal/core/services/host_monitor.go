package services

import (
	"context"
	"sync"
	"time"

	"sysinv.inventory/internal/core/domain"
	"sysinv.inventory/internal/core/logger"
	"sysinv.inventory/internal/core/metrics"
	"sysinv.inventory/internal/core/ports"
)

const (
	HostOnline = "online"
	HostStale  = "stale"
)

type hostState struct {
	lastSeen time.Time
	stale    bool
}

// HostMonitor flags hosts whose agents stopped reporting. Stale hosts stay in
// the inventory; only their status changes.
type HostMonitor struct {
	mu         sync.Mutex
	hosts      map[string]*hostState
	staleAfter time.Duration
	notifier   ports.EventNotifier
	now        func() time.Time
}

// NewHostMonitor creates a monitor. notifier may be nil.
func NewHostMonitor(staleAfter time.Duration, notifier ports.EventNotifier) *HostMonitor {
	return &HostMonitor{
		hosts:      make(map[string]*hostState),
		staleAfter: staleAfter,
		notifier:   notifier,
		now:        time.Now,
	}
}

// Seen records a load report. A stale host comes back online.
func (m *HostMonitor) Seen(hostname string) {
	m.mu.Lock()
	st, ok := m.hosts[hostname]
	recovered := ok && st.stale
	m.hosts[hostname] = &hostState{lastSeen: m.now()}
	stale := m.staleCountLocked()
	m.mu.Unlock()

	if recovered {
		logger.Info("Host is reporting again", "hostname", hostname)
		m.notify(domain.EventSystemOnline, hostname)
		metrics.SetSystemsStale(stale)
	}
}

// Reset forgets every host.
func (m *HostMonitor) Reset() {
	m.mu.Lock()
	m.hosts = make(map[string]*hostState)
	m.mu.Unlock()
	metrics.SetSystemsStale(0)
}

// Statuses returns online or stale for each known host.
func (m *HostMonitor) Statuses() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.hosts))
	for hostname, st := range m.hosts {
		if st.stale {
			out[hostname] = HostStale
		} else {
			out[hostname] = HostOnline
		}
	}
	return out
}

// Start checks hosts every interval until ctx is done.
func (m *HostMonitor) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.check()
		}
	}
}

func (m *HostMonitor) check() {
	now := m.now()

	m.mu.Lock()
	var marked []string
	for hostname, st := range m.hosts {
		if !st.stale && now.Sub(st.lastSeen) > m.staleAfter {
			st.stale = true
			marked = append(marked, hostname)
		}
	}
	stale := m.staleCountLocked()
	m.mu.Unlock()

	for _, hostname := range marked {
		logger.Warn("Host stopped reporting", "hostname", hostname, "stale_after", m.staleAfter)
		m.notify(domain.EventSystemStale, hostname)
	}
	metrics.SetSystemsStale(stale)
}

func (m *HostMonitor) staleCountLocked() int {
	n := 0
	for _, st := range m.hosts {
		if st.stale {
			n++
		}
	}
	return n
}

func (m *HostMonitor) notify(eventType, hostname string) {
	if m.notifier != nil {
		m.notifier.Notify(eventType, map[string]string{"hostname": hostname})
	}
}
