package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"sysinv.inventory/internal/adapters/repository/storetest"
	"sysinv.inventory/internal/core/domain"
	"sysinv.inventory/internal/core/ports"
)

func TestRepository_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ports.InventoryManager {
		return NewRepository()
	})
}

func TestRepository_ConcurrentReservations(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			repo.UpdateReservation(ctx, "h1", domain.Reservation{Hostname: "h1", Username: fmt.Sprintf("user-%d", i)})
		}(i)
	}
	wg.Wait()

	list, ok, _ := repo.GetReservation(ctx, "h1")
	if !ok || len(list) != 50 {
		t.Fatalf("expected 50 reservations, got %d (ok=%v)", len(list), ok)
	}
}
