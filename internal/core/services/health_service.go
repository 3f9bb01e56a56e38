package services

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"sysinv.inventory/internal/core/ports"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

// ComponentHealth represents the health of a specific component
type ComponentHealth struct {
	Status    HealthStatus `json:"status"`
	Message   string       `json:"message,omitempty"`
	Latency   string       `json:"latency,omitempty"`
	CheckedAt time.Time    `json:"checked_at"`
}

// HealthReport represents the overall health report
type HealthReport struct {
	Status     HealthStatus               `json:"status"`
	Version    string                     `json:"version"`
	CheckedAt  time.Time                  `json:"checked_at"`
	Components map[string]ComponentHealth `json:"components"`
}

type healthCheck struct {
	pinger   ports.Pinger
	critical bool
}

type HealthService struct {
	checks  map[string]healthCheck
	timeout time.Duration
	version string
}

func NewHealthService(version string) *HealthService {
	if version == "" {
		version = "0.0.1"
	}
	return &HealthService{
		checks:  make(map[string]healthCheck),
		timeout: 5 * time.Second,
		version: version,
	}
}

// Register adds a component. A failing critical component makes the service
// unhealthy; a failing non-critical one only degrades it.
func (s *HealthService) Register(name string, pinger ports.Pinger, critical bool) {
	s.checks[name] = healthCheck{pinger: pinger, critical: critical}
}

func (s *HealthService) CheckHealth(ctx context.Context) *HealthReport {
	report := &HealthReport{
		Status:     HealthStatusHealthy,
		Version:    s.version,
		CheckedAt:  time.Now(),
		Components: make(map[string]ComponentHealth),
	}

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		check := s.checks[name]
		health := s.ping(ctx, name, check.pinger)
		report.Components[name] = health
		if health.Status == HealthStatusHealthy {
			continue
		}
		if check.critical {
			report.Status = HealthStatusUnhealthy
		} else if report.Status == HealthStatusHealthy {
			report.Status = HealthStatusDegraded
		}
	}

	return report
}

func (s *HealthService) ping(ctx context.Context, name string, pinger ports.Pinger) ComponentHealth {
	start := time.Now()

	if pinger == nil {
		return ComponentHealth{
			Status:    HealthStatusUnhealthy,
			Message:   fmt.Sprintf("%s not initialized", name),
			CheckedAt: time.Now(),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := pinger.Ping(ctx); err != nil {
		return ComponentHealth{
			Status:    HealthStatusUnhealthy,
			Message:   fmt.Sprintf("%s ping failed: %v", name, err),
			Latency:   time.Since(start).String(),
			CheckedAt: time.Now(),
		}
	}

	return ComponentHealth{
		Status:    HealthStatusHealthy,
		Latency:   time.Since(start).String(),
		CheckedAt: time.Now(),
	}
}

// SimpleHealthCheck returns a simple health status for load balancers
func (s *HealthService) SimpleHealthCheck(ctx context.Context) (string, int) {
	report := s.CheckHealth(ctx)

	switch report.Status {
	case HealthStatusHealthy:
		return "ok", http.StatusOK
	case HealthStatusDegraded:
		return "degraded", http.StatusOK // Still serving requests
	default:
		return "unhealthy", http.StatusServiceUnavailable
	}
}
