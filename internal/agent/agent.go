package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/load"
	"sysinv.inventory/internal/core/domain"
	"sysinv.inventory/internal/core/logger"
	"sysinv.inventory/internal/core/ports"
	"sysinv.inventory/internal/core/tracing"
)

// LoadFunc returns the current 1-minute load average.
type LoadFunc func(ctx context.Context) (float64, error)

// HostLoad reads the load average of the local machine.
func HostLoad(ctx context.Context) (float64, error) {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return avg.Load1, nil
}

// Agent periodically publishes a load report for one host.
type Agent struct {
	bus      ports.MessageBus
	topic    string
	hostname string
	interval time.Duration
	readLoad LoadFunc
}

// New creates an agent. An empty hostname falls back to os.Hostname and a nil
// readLoad to HostLoad.
func New(bus ports.MessageBus, topic, hostname string, interval time.Duration, readLoad LoadFunc) (*Agent, error) {
	if hostname == "" {
		h, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve hostname: %w", err)
		}
		hostname = h
	}
	if interval <= 0 {
		return nil, fmt.Errorf("report interval must be positive, got %s", interval)
	}
	if readLoad == nil {
		readLoad = HostLoad
	}
	return &Agent{
		bus:      bus,
		topic:    topic,
		hostname: hostname,
		interval: interval,
		readLoad: readLoad,
	}, nil
}

func (a *Agent) Hostname() string {
	return a.hostname
}

// Run reports once immediately and then on every tick until ctx is done.
// Failed reports are logged and the loop carries on.
func (a *Agent) Run(ctx context.Context) error {
	logger.Info("Agent started", "hostname", a.hostname, "topic", a.topic, "interval", a.interval)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		if err := a.report(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("Failed to report load", "hostname", a.hostname, "error", err)
		}

		select {
		case <-ctx.Done():
			logger.Info("Agent stopped", "hostname", a.hostname)
			return nil
		case <-ticker.C:
		}
	}
}

func (a *Agent) report(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "agent.ReportLoad")
	defer span.End()

	avg, err := a.readLoad(ctx)
	if err != nil {
		return fmt.Errorf("read load: %w", err)
	}

	payload, err := json.Marshal(domain.SystemLoad{Hostname: a.hostname, LoadAverage: avg})
	if err != nil {
		return fmt.Errorf("marshal load report: %w", err)
	}

	msg := ports.Message{
		Topic:   a.topic,
		Key:     []byte(a.hostname),
		Payload: payload,
		Headers: map[string]string{},
	}
	tracing.Inject(ctx, msg.Headers)

	if err := a.bus.Publish(ctx, msg); err != nil {
		return fmt.Errorf("publish load report: %w", err)
	}
	logger.Debug("Load reported", "hostname", a.hostname, "load_average", avg)
	return nil
}
