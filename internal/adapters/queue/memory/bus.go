package memory

import (
	"context"
	"errors"
	"sync"

	"sysinv.inventory/internal/core/ports"
)

var ErrClosed = errors.New("message bus closed")

const subscriberBuffer = 64

// subscription owns its data channel. ch is closed only under the write lock,
// after done has released any sender blocked on a full buffer.
type subscription struct {
	ch   chan ports.Message
	done chan struct{}

	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

func newSubscription() *subscription {
	return &subscription{
		ch:   make(chan ports.Message, subscriberBuffer),
		done: make(chan struct{}),
	}
}

func (s *subscription) send(ctx context.Context, msg ports.Message) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	select {
	case s.ch <- msg:
		return nil
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *subscription) close() {
	s.once.Do(func() {
		close(s.done)
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
}

// Bus is an in-process MessageBus. Every subscriber of a topic receives every
// message published to it.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscription]struct{}
	closed bool
}

var _ ports.MessageBus = (*Bus)(nil)

func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[*subscription]struct{})}
}

// Publish delivers msg to each current subscriber, waiting for buffer space
// until ctx is done. Subscribers that go away mid-publish are skipped.
func (b *Bus) Publish(ctx context.Context, msg ports.Message) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	targets := make([]*subscription, 0, len(b.subs[msg.Topic]))
	for sub := range b.subs[msg.Topic] {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		if err := sub.send(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan ports.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	sub := newSubscription()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[*subscription]struct{})
	}
	b.subs[topic][sub] = struct{}{}

	go func() {
		select {
		case <-ctx.Done():
			b.unsubscribe(topic, sub)
		case <-sub.done:
		}
	}()
	return sub.ch, nil
}

func (b *Bus) unsubscribe(topic string, sub *subscription) {
	b.mu.Lock()
	delete(b.subs[topic], sub)
	b.mu.Unlock()
	sub.close()
}

func (b *Bus) Ping(ctx context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	return nil
}

// Close closes every subscription channel.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	var all []*subscription
	for topic, subs := range b.subs {
		for sub := range subs {
			all = append(all, sub)
		}
		delete(b.subs, topic)
	}
	b.mu.Unlock()

	for _, sub := range all {
		sub.close()
	}
	return nil
}
