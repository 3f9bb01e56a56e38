// Package storetest holds the behaviour every ports.InventoryManager must share.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sysinv.inventory/internal/core/domain"
	"sysinv.inventory/internal/core/ports"
)

// Run exercises newStore against the inventory manager contract. newStore
// must return an empty store each time it is called.
func Run(t *testing.T, newStore func(t *testing.T) ports.InventoryManager) {
	t.Run("GetSystem missing", func(t *testing.T) {
		store := newStore(t)
		s, ok, err := store.GetSystem(context.Background(), "foo")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, s)
	})

	t.Run("AddSystem then GetSystem", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		require.NoError(t, store.AddSystem(ctx, "foo", 1.5))

		s, ok, err := store.GetSystem(ctx, "foo")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, domain.System{Hostname: "foo", LoadAverage: 1.5}, *s)
	})

	t.Run("UpdateCPUStatus keeps one entry per host", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		require.NoError(t, store.AddSystem(ctx, "foo", 1.5))
		require.NoError(t, store.AddSystem(ctx, "bar", 0.2))
		require.NoError(t, store.UpdateCPUStatus(ctx, "foo", 3.25))

		systems, err := store.ListSystems(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, []domain.System{
			{Hostname: "foo", LoadAverage: 3.25},
			{Hostname: "bar", LoadAverage: 0.2},
		}, systems)
	})

	t.Run("AddSystem on a known host keeps the latest load", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		require.NoError(t, store.AddSystem(ctx, "foo", 1.5))
		require.NoError(t, store.AddSystem(ctx, "foo", 4))

		systems, err := store.ListSystems(ctx)
		require.NoError(t, err)
		assert.Equal(t, []domain.System{{Hostname: "foo", LoadAverage: 4}}, systems)
	})

	t.Run("ResetSystems clears systems only", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		require.NoError(t, store.AddSystem(ctx, "foo", 1))
		require.NoError(t, store.AddReservation(ctx, "foo", domain.Reservation{Hostname: "foo", Username: "alice"}))
		require.NoError(t, store.ResetSystems(ctx))

		systems, err := store.ListSystems(ctx)
		require.NoError(t, err)
		assert.Empty(t, systems)

		reservations, err := store.ListReservations(ctx)
		require.NoError(t, err)
		assert.Len(t, reservations["foo"], 1)
	})

	t.Run("reservations group by host", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		_, ok, err := store.GetReservation(ctx, "h1")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, store.AddReservation(ctx, "h1", domain.Reservation{Hostname: "h1", Username: "alice"}))
		require.NoError(t, store.UpdateReservation(ctx, "h1", domain.Reservation{Hostname: "h1", Username: "bob"}))
		require.NoError(t, store.UpdateReservation(ctx, "h1", domain.Reservation{
			Hostname: "h1", Username: "alice", Metadata: map[string]string{"slot": "2"},
		}))
		require.NoError(t, store.AddReservation(ctx, "h2", domain.Reservation{Hostname: "h2", Username: "carol"}))

		list, ok, err := store.GetReservation(ctx, "h1")
		require.NoError(t, err)
		require.True(t, ok)
		require.Len(t, list, 2)
		assert.Equal(t, "alice", list[0].Username)
		assert.Equal(t, map[string]string{"slot": "2"}, list[0].Metadata)
		assert.Equal(t, "bob", list[1].Username)

		all, err := store.ListReservations(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
		assert.Len(t, all["h2"], 1)
	})

	t.Run("ListReservations does not expose stored entries", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		require.NoError(t, store.AddReservation(ctx, "h", domain.Reservation{Hostname: "h", Username: "alice"}))

		all, err := store.ListReservations(ctx)
		require.NoError(t, err)
		require.Len(t, all["h"], 1)
		all["h"][0].Username = "mallory"
		all["h"] = append(all["h"], domain.Reservation{Hostname: "h", Username: "eve"})

		list, _, err := store.GetReservation(ctx, "h")
		require.NoError(t, err)
		assert.Equal(t, []domain.Reservation{{Hostname: "h", Username: "alice"}}, list)
	})
}
