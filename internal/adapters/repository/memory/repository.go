package memory

import (
	"context"

	cmap "github.com/orcaman/concurrent-map/v2"
	"sysinv.inventory/internal/core/domain"
	"sysinv.inventory/internal/core/ports"
)

// Repository keeps the inventory in process memory.
type Repository struct {
	systems      cmap.ConcurrentMap[string, domain.System]
	reservations cmap.ConcurrentMap[string, []domain.Reservation]
}

var _ ports.InventoryManager = (*Repository)(nil)

func NewRepository() *Repository {
	return &Repository{
		systems:      cmap.New[domain.System](),
		reservations: cmap.New[[]domain.Reservation](),
	}
}

func (r *Repository) ListSystems(ctx context.Context) ([]domain.System, error) {
	items := r.systems.Items()
	systems := make([]domain.System, 0, len(items))
	for _, s := range items {
		systems = append(systems, s)
	}
	return systems, nil
}

func (r *Repository) GetSystem(ctx context.Context, hostname string) (*domain.System, bool, error) {
	s, ok := r.systems.Get(hostname)
	if !ok {
		return nil, false, nil
	}
	return &s, true, nil
}

func (r *Repository) AddSystem(ctx context.Context, hostname string, loadAverage float64) error {
	r.systems.Set(hostname, domain.System{Hostname: hostname, LoadAverage: loadAverage})
	return nil
}

func (r *Repository) UpdateCPUStatus(ctx context.Context, hostname string, loadAverage float64) error {
	r.systems.Set(hostname, domain.System{Hostname: hostname, LoadAverage: loadAverage})
	return nil
}

func (r *Repository) ResetSystems(ctx context.Context) error {
	r.systems.Clear()
	return nil
}

func (r *Repository) GetReservation(ctx context.Context, hostname string) ([]domain.Reservation, bool, error) {
	list, ok := r.reservations.Get(hostname)
	if !ok {
		return nil, false, nil
	}
	out := make([]domain.Reservation, len(list))
	copy(out, list)
	return out, true, nil
}

func (r *Repository) AddReservation(ctx context.Context, hostname string, res domain.Reservation) error {
	return r.UpdateReservation(ctx, hostname, res)
}

func (r *Repository) UpdateReservation(ctx context.Context, hostname string, res domain.Reservation) error {
	r.reservations.Upsert(hostname, nil, func(_ bool, old, _ []domain.Reservation) []domain.Reservation {
		return domain.MergeReservation(old, res)
	})
	return nil
}

func (r *Repository) ListReservations(ctx context.Context) (map[string][]domain.Reservation, error) {
	items := r.reservations.Items()
	out := make(map[string][]domain.Reservation, len(items))
	for hostname, list := range items {
		out[hostname] = append([]domain.Reservation(nil), list...)
	}
	return out, nil
}
