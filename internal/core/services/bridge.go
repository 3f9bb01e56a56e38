package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/trace"
	"sysinv.inventory/internal/core/circuitbreaker"
	"sysinv.inventory/internal/core/domain"
	"sysinv.inventory/internal/core/logger"
	"sysinv.inventory/internal/core/metrics"
	"sysinv.inventory/internal/core/ports"
	"sysinv.inventory/internal/core/tracing"
)

// Topics names the three channels the bridge works with.
type Topics struct {
	SystemLoad     string
	ReservationIn  string
	ReservationOut string
}

// Bridge connects the message bus to the inventory service: load reports and
// reservations flow in, submitted reservations flow out.
type Bridge struct {
	bus       ports.MessageBus
	inventory *InventoryService
	stream    *ReservationStream
	topics    Topics
	breaker   *circuitbreaker.CircuitBreaker
}

func NewBridge(bus ports.MessageBus, inventory *InventoryService, stream *ReservationStream, topics Topics, breaker *circuitbreaker.CircuitBreaker) *Bridge {
	if breaker == nil {
		breaker = circuitbreaker.New("reservation-relay")
	}
	return &Bridge{
		bus:       bus,
		inventory: inventory,
		stream:    stream,
		topics:    topics,
		breaker:   breaker,
	}
}

// Start subscribes to both inbound topics and to the reservation stream, and
// blocks until ctx is done.
func (b *Bridge) Start(ctx context.Context) error {
	loads, err := b.bus.Subscribe(ctx, b.topics.SystemLoad)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", b.topics.SystemLoad, err)
	}
	reservations, err := b.bus.Subscribe(ctx, b.topics.ReservationIn)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", b.topics.ReservationIn, err)
	}
	outbound, err := b.stream.Subscribe(ctx)
	if err != nil {
		return err
	}

	logger.Info("Message bridge started",
		"system_load", b.topics.SystemLoad,
		"reservation_in", b.topics.ReservationIn,
		"reservation_out", b.topics.ReservationOut,
	)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		b.consume(ctx, loads, b.handleSystemLoad)
	}()
	go func() {
		defer wg.Done()
		b.consume(ctx, reservations, b.handleReservation)
	}()
	go func() {
		defer wg.Done()
		b.relay(ctx, outbound)
	}()
	wg.Wait()

	logger.Info("Message bridge stopped")
	return nil
}

func (b *Bridge) consume(ctx context.Context, ch <-chan ports.Message, handle func(context.Context, ports.Message) error) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			msgCtx := tracing.Extract(ctx, msg.Headers)
			if err := handle(msgCtx, msg); err != nil {
				logger.ErrorContext(msgCtx, "Failed to handle message", "topic", msg.Topic, "error", err)
			}
		}
	}
}

func (b *Bridge) handleSystemLoad(ctx context.Context, msg ports.Message) error {
	var sl domain.SystemLoad
	if err := json.Unmarshal(msg.Payload, &sl); err != nil || sl.Hostname == "" {
		metrics.RecordInvalidMessage(msg.Topic)
		logger.WarnContext(ctx, "Dropping malformed load report", "payload", string(msg.Payload), "error", err)
		return nil
	}
	return b.inventory.UpdateStatus(ctx, sl)
}

func (b *Bridge) handleReservation(ctx context.Context, msg ports.Message) error {
	var r domain.Reservation
	if err := json.Unmarshal(msg.Payload, &r); err != nil || r.Hostname == "" {
		metrics.RecordInvalidMessage(msg.Topic)
		logger.WarnContext(ctx, "Dropping malformed reservation", "payload", string(msg.Payload), "error", err)
		return nil
	}
	logger.InfoContext(ctx, "getPropertyMessage", "reservation", r.String())
	return b.inventory.ReceiveReservation(ctx, r)
}

// relay publishes each streamed reservation on the outbound topic. A failed
// value is not retried here; it goes to the dead letter queue if one is set.
func (b *Bridge) relay(ctx context.Context, outbound <-chan domain.Reservation) {
	for r := range outbound {
		if err := b.publishReservation(ctx, r); err != nil {
			metrics.RecordReservationPublished("error")
			logger.Error("Failed to publish reservation", "reservation", r.String(), "error", err)
			b.inventory.DeadLetter(ctx, b.topics.ReservationOut, r, err)
			continue
		}
		metrics.RecordReservationPublished("ok")
	}
}

func (b *Bridge) publishReservation(ctx context.Context, r domain.Reservation) error {
	ctx, span := tracing.StartSpan(ctx, "inventory.PublishReservation", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()

	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal reservation: %w", err)
	}
	msg := ports.Message{
		Topic:   b.topics.ReservationOut,
		Key:     []byte(r.Hostname),
		Payload: payload,
		Headers: map[string]string{},
	}
	tracing.Inject(ctx, msg.Headers)

	return b.breaker.Execute(ctx, func(ctx context.Context) error {
		return b.bus.Publish(ctx, msg)
	})
}
