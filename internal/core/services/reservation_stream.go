package services

import (
	"context"
	"errors"
	"sync"

	"github.com/edwingeng/deque"
	"sysinv.inventory/internal/core/domain"
	"sysinv.inventory/internal/core/metrics"
)

var ErrStreamSubscribed = errors.New("reservation stream already has a subscriber")

// ReservationStream is the outbound reservation source. Producers never
// block; values wait in a FIFO buffer until the single subscriber takes them.
type ReservationStream struct {
	mu         sync.Mutex
	buf        deque.Deque
	limit      int // 0 means unbounded
	notify     chan struct{}
	subscribed bool
	removed    uint64 // values ever taken off the front; identifies the head
}

// NewReservationStream creates a stream. A positive limit caps the buffer;
// once full, the oldest buffered value is dropped for each new one.
func NewReservationStream(limit int) *ReservationStream {
	if limit < 0 {
		limit = 0
	}
	return &ReservationStream{
		buf:    deque.NewDeque(),
		limit:  limit,
		notify: make(chan struct{}, 1),
	}
}

// Emit appends r to the stream.
func (s *ReservationStream) Emit(r domain.Reservation) {
	s.mu.Lock()
	if s.limit > 0 && s.buf.Len() >= s.limit {
		s.buf.PopFront()
		s.removed++
		metrics.RecordStreamDropped()
	}
	s.buf.PushBack(r)
	depth := s.buf.Len()
	s.mu.Unlock()

	metrics.SetStreamDepth(depth)

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Len returns the number of buffered values.
func (s *ReservationStream) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Len()
}

// Subscribe attaches the only consumer. The returned channel yields values
// in emission order, starting with anything buffered before the call, and is
// closed once ctx is done.
func (s *ReservationStream) Subscribe(ctx context.Context) (<-chan domain.Reservation, error) {
	s.mu.Lock()
	if s.subscribed {
		s.mu.Unlock()
		return nil, ErrStreamSubscribed
	}
	s.subscribed = true
	s.mu.Unlock()

	out := make(chan domain.Reservation)
	go s.pump(ctx, out)
	return out, nil
}

func (s *ReservationStream) pump(ctx context.Context, out chan<- domain.Reservation) {
	defer close(out)

	for {
		r, head, ok := s.front()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-s.notify:
				continue
			}
		}

		select {
		case <-ctx.Done():
			return
		case out <- r:
			s.popFront(head)
		}
	}
}

// front peeks so that a value is only removed once it has been delivered.
func (s *ReservationStream) front() (domain.Reservation, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buf.Empty() {
		return domain.Reservation{}, 0, false
	}
	return s.buf.Front().(domain.Reservation), s.removed, true
}

// popFront removes the delivered value unless Emit already dropped it.
func (s *ReservationStream) popFront(head uint64) {
	s.mu.Lock()
	if s.removed == head && !s.buf.Empty() {
		s.buf.PopFront()
		s.removed++
	}
	depth := s.buf.Len()
	s.mu.Unlock()
	metrics.SetStreamDepth(depth)
}
