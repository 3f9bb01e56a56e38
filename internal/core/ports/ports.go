package ports

import (
	"context"

	"sysinv.inventory/internal/core/domain"
)

// InventoryManager owns all inventory state. Implementations must be safe
// for concurrent use.
type InventoryManager interface {
	ListSystems(ctx context.Context) ([]domain.System, error)
	GetSystem(ctx context.Context, hostname string) (*domain.System, bool, error)
	AddSystem(ctx context.Context, hostname string, loadAverage float64) error
	UpdateCPUStatus(ctx context.Context, hostname string, loadAverage float64) error
	ResetSystems(ctx context.Context) error

	GetReservation(ctx context.Context, hostname string) ([]domain.Reservation, bool, error)
	AddReservation(ctx context.Context, hostname string, r domain.Reservation) error
	UpdateReservation(ctx context.Context, hostname string, r domain.Reservation) error
	ListReservations(ctx context.Context) (map[string][]domain.Reservation, error)
}

// Message is a transport-neutral envelope.
type Message struct {
	Topic   string
	Key     []byte
	Payload []byte
	Headers map[string]string
}

// MessageBus moves messages between this service and the broker.
type MessageBus interface {
	Publish(ctx context.Context, msg Message) error
	// Subscribe delivers messages for topic until ctx is done, then closes the channel.
	Subscribe(ctx context.Context, topic string) (<-chan Message, error)
	Ping(ctx context.Context) error
	Close() error
}

// EventNotifier receives inventory change events for fan-out to clients.
type EventNotifier interface {
	Notify(eventType string, payload any)
}

// Pinger is anything the health service can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DeadLetterQueue keeps outbound reservations that could not be published.
type DeadLetterQueue interface {
	Add(ctx context.Context, dl domain.DeadLetter) error
	Get(ctx context.Context, id string) (*domain.DeadLetter, error)
	List(ctx context.Context, offset, limit int64) ([]domain.DeadLetter, error)
	Remove(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}
