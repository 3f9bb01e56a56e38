package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"sysinv.inventory/internal/core/domain"
)

func recv(t *testing.T, ch <-chan domain.Reservation) domain.Reservation {
	t.Helper()
	select {
	case r, ok := <-ch:
		if !ok {
			t.Fatal("stream closed")
		}
		return r
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for reservation")
	}
	return domain.Reservation{}
}

func TestReservationStream_BuffersUntilSubscribed(t *testing.T) {
	s := NewReservationStream(0)
	s.Emit(domain.Reservation{Hostname: "h", Username: "a"})
	s.Emit(domain.Reservation{Hostname: "h", Username: "b"})

	if s.Len() != 2 {
		t.Fatalf("Expected 2 buffered, got %d", s.Len())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := s.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	for _, want := range []string{"a", "b"} {
		if got := recv(t, ch); got.Username != want {
			t.Errorf("Expected %s, got %s", want, got.Username)
		}
	}
}

func TestReservationStream_PreservesOrder(t *testing.T) {
	s := NewReservationStream(0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := s.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	const n = 200
	go func() {
		for i := 0; i < n; i++ {
			s.Emit(domain.Reservation{Hostname: "h", Username: fmt.Sprintf("u%d", i)})
		}
	}()

	for i := 0; i < n; i++ {
		want := fmt.Sprintf("u%d", i)
		if got := recv(t, ch); got.Username != want {
			t.Fatalf("Expected %s at position %d, got %s", want, i, got.Username)
		}
	}
}

func TestReservationStream_EmitNeverBlocks(t *testing.T) {
	s := NewReservationStream(0)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10000; i++ {
			s.Emit(domain.Reservation{Hostname: "h"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Emit blocked without a subscriber")
	}
}

func TestReservationStream_SingleSubscriber(t *testing.T) {
	s := NewReservationStream(0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := s.Subscribe(ctx); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if _, err := s.Subscribe(ctx); !errors.Is(err, ErrStreamSubscribed) {
		t.Errorf("Expected ErrStreamSubscribed, got %v", err)
	}
}

func TestReservationStream_BoundedDropsOldest(t *testing.T) {
	s := NewReservationStream(2)
	for _, u := range []string{"a", "b", "c"} {
		s.Emit(domain.Reservation{Hostname: "h", Username: u})
	}
	if s.Len() != 2 {
		t.Fatalf("Expected 2 buffered, got %d", s.Len())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, _ := s.Subscribe(ctx)

	for _, want := range []string{"b", "c"} {
		if got := recv(t, ch); got.Username != want {
			t.Errorf("Expected %s, got %s", want, got.Username)
		}
	}
}

func TestReservationStream_ClosesOnCancel(t *testing.T) {
	s := NewReservationStream(0)
	ctx, cancel := context.WithCancel(context.Background())
	ch, _ := s.Subscribe(ctx)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("Expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestReservationStream_ConcurrentEmitters(t *testing.T) {
	s := NewReservationStream(0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, _ := s.Subscribe(ctx)

	const workers, each = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < each; i++ {
				s.Emit(domain.Reservation{Hostname: fmt.Sprintf("h%d", w), Username: fmt.Sprintf("%d", i)})
			}
		}(w)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i := 0; i < workers*each; i++ {
		r := recv(t, ch)
		key := r.Hostname + "/" + r.Username
		if seen[key] {
			t.Fatalf("Duplicate delivery of %s", key)
		}
		seen[key] = true
	}
}
