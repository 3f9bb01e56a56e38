package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"sysinv.inventory/internal/core/domain"
	"sysinv.inventory/internal/core/logger"
	"sysinv.inventory/internal/core/metrics"
	"sysinv.inventory/internal/core/ports"
	"sysinv.inventory/internal/core/tracing"
)

var ErrSystemNotFound = errors.New("hostname does not exist")

type InventoryService struct {
	manager  ports.InventoryManager
	stream   *ReservationStream
	notifier ports.EventNotifier
	dlq      ports.DeadLetterQueue
	monitor  *HostMonitor
}

// NewInventoryService wires the service to its store and outbound stream.
// notifier may be nil.
func NewInventoryService(manager ports.InventoryManager, stream *ReservationStream, notifier ports.EventNotifier) *InventoryService {
	return &InventoryService{
		manager:  manager,
		stream:   stream,
		notifier: notifier,
	}
}

// SetDeadLetterQueue enables recording of reservations the relay could not
// publish.
func (s *InventoryService) SetDeadLetterQueue(dlq ports.DeadLetterQueue) {
	s.dlq = dlq
}

// SetHostMonitor enables staleness tracking for reporting hosts.
func (s *InventoryService) SetHostMonitor(m *HostMonitor) {
	s.monitor = m
}

// HostStatuses reports online or stale per host; empty without a monitor.
func (s *InventoryService) HostStatuses() map[string]string {
	if s.monitor == nil {
		return map[string]string{}
	}
	return s.monitor.Statuses()
}

func (s *InventoryService) ListSystems(ctx context.Context) ([]domain.System, error) {
	systems, err := s.manager.ListSystems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list systems: %w", err)
	}
	if systems == nil {
		systems = []domain.System{}
	}
	sort.Slice(systems, func(i, j int) bool {
		return systems[i].Hostname < systems[j].Hostname
	})
	return systems, nil
}

func (s *InventoryService) GetSystem(ctx context.Context, hostname string) (*domain.System, error) {
	system, ok, err := s.manager.GetSystem(ctx, hostname)
	if err != nil {
		return nil, fmt.Errorf("get system %s: %w", hostname, err)
	}
	if !ok {
		return nil, ErrSystemNotFound
	}
	return system, nil
}

func (s *InventoryService) ResetSystems(ctx context.Context) error {
	if err := s.manager.ResetSystems(ctx); err != nil {
		return fmt.Errorf("reset systems: %w", err)
	}
	metrics.ResetSystemLoad()
	if s.monitor != nil {
		s.monitor.Reset()
	}
	s.notify(domain.EventSystemsReset, nil)
	logger.InfoContext(ctx, "All systems were reset")
	return nil
}

func (s *InventoryService) ListReservations(ctx context.Context) (map[string][]domain.Reservation, error) {
	reservations, err := s.manager.ListReservations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	if reservations == nil {
		reservations = map[string][]domain.Reservation{}
	}
	return reservations, nil
}

// RequestProperty accepts a property name and only logs it; nothing is
// forwarded.
func (s *InventoryService) RequestProperty(ctx context.Context, propertyName string) {
	logger.InfoContext(ctx, "getSystemProperty", "property", propertyName)
}

// SubmitReservation pushes r onto the outbound stream. The store is not
// touched here; the reservation is recorded when it comes back inbound.
func (s *InventoryService) SubmitReservation(ctx context.Context, r domain.Reservation) {
	logger.InfoContext(ctx, "Reservation submitted", "hostname", r.Hostname, "username", r.Username)
	s.stream.Emit(r)
}

// UpdateStatus upserts the load reported for a host.
func (s *InventoryService) UpdateStatus(ctx context.Context, sl domain.SystemLoad) error {
	ctx, span := tracing.StartSpan(ctx, "inventory.UpdateStatus")
	defer span.End()

	_, exists, err := s.manager.GetSystem(ctx, sl.Hostname)
	if err != nil {
		return fmt.Errorf("get system %s: %w", sl.Hostname, err)
	}

	outcome := "added"
	if exists {
		outcome = "updated"
		err = s.manager.UpdateCPUStatus(ctx, sl.Hostname, sl.LoadAverage)
	} else {
		err = s.manager.AddSystem(ctx, sl.Hostname, sl.LoadAverage)
	}
	if err != nil {
		return fmt.Errorf("%s system %s: %w", outcome, sl.Hostname, err)
	}

	logger.InfoContext(ctx, "Host was "+outcome, "hostname", sl.Hostname, "load_average", sl.LoadAverage)
	metrics.RecordLoadReport(sl.Hostname, outcome, sl.LoadAverage)
	if s.monitor != nil {
		s.monitor.Seen(sl.Hostname)
	}
	if !exists {
		if systems, err := s.manager.ListSystems(ctx); err == nil {
			metrics.SetSystemsTracked(len(systems))
		}
	}
	s.notify(domain.EventSystemUpdate, sl.System())
	return nil
}

// ReceiveReservation upserts an inbound reservation under its hostname.
func (s *InventoryService) ReceiveReservation(ctx context.Context, r domain.Reservation) error {
	ctx, span := tracing.StartSpan(ctx, "inventory.ReceiveReservation")
	defer span.End()

	_, exists, err := s.manager.GetReservation(ctx, r.Hostname)
	if err != nil {
		return fmt.Errorf("get reservation %s: %w", r.Hostname, err)
	}

	outcome := "added"
	if exists {
		outcome = "updated"
		err = s.manager.UpdateReservation(ctx, r.Hostname, r)
	} else {
		err = s.manager.AddReservation(ctx, r.Hostname, r)
	}
	if err != nil {
		return fmt.Errorf("%s reservation %s: %w", outcome, r.Hostname, err)
	}

	logger.InfoContext(ctx, "Host was "+outcome, "reservation", r.String())
	metrics.RecordReservationReceived(outcome)
	s.notify(domain.EventReservationUpdate, r)
	return nil
}

// DeadLetter records a reservation that failed to publish. Without a queue
// the failure is only logged by the caller.
func (s *InventoryService) DeadLetter(ctx context.Context, topic string, r domain.Reservation, cause error) {
	if s.dlq == nil {
		return
	}
	dl := domain.DeadLetter{
		ID:          uuid.NewString(),
		Topic:       topic,
		Reservation: r,
		Reason:      cause.Error(),
		FailedAt:    time.Now().UTC(),
	}
	if err := s.dlq.Add(ctx, dl); err != nil {
		logger.ErrorContext(ctx, "Failed to record dead letter", "reservation", r.String(), "error", err)
	}
}

// ListDeadLetters returns failed reservations, newest first. It is empty
// when no queue is configured.
func (s *InventoryService) ListDeadLetters(ctx context.Context, offset, limit int64) ([]domain.DeadLetter, error) {
	if s.dlq == nil {
		return []domain.DeadLetter{}, nil
	}
	entries, err := s.dlq.List(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	return entries, nil
}

// RetryDeadLetter takes an entry off the queue and submits it again.
func (s *InventoryService) RetryDeadLetter(ctx context.Context, id string) (*domain.Reservation, error) {
	if s.dlq == nil {
		return nil, domain.ErrDeadLetterNotFound
	}
	dl, err := s.dlq.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.dlq.Remove(ctx, id); err != nil {
		return nil, err
	}
	s.SubmitReservation(ctx, dl.Reservation)
	return &dl.Reservation, nil
}

func (s *InventoryService) notify(eventType string, payload any) {
	if s.notifier != nil {
		s.notifier.Notify(eventType, payload)
	}
}
