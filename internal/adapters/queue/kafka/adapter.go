package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"sysinv.inventory/internal/core/logger"
	"sysinv.inventory/internal/core/ports"
)

const readErrorBackoff = time.Second

// Adapter is a Kafka MessageBus: one shared writer, one consumer-group
// reader per subscription.
type Adapter struct {
	brokers  []string
	groupID  string
	clientID string
	writer   *kafkago.Writer

	mu      sync.Mutex
	readers []*kafkago.Reader
}

var _ ports.MessageBus = (*Adapter)(nil)

func NewAdapter(brokers []string, groupID string) (*Adapter, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	clientID := ClientID(groupID)
	return &Adapter{
		brokers:  brokers,
		groupID:  groupID,
		clientID: clientID,
		writer: &kafkago.Writer{
			Addr:                   kafkago.TCP(brokers...),
			Balancer:               &kafkago.Hash{},
			BatchTimeout:           10 * time.Millisecond,
			RequiredAcks:           kafkago.RequireOne,
			AllowAutoTopicCreation: true,
			Transport:              &kafkago.Transport{ClientID: clientID},
		},
	}, nil
}

func (a *Adapter) Publish(ctx context.Context, msg ports.Message) error {
	return a.writer.WriteMessages(ctx, kafkago.Message{
		Topic:   msg.Topic,
		Key:     msg.Key,
		Value:   msg.Payload,
		Headers: toKafkaHeaders(msg.Headers),
	})
}

func (a *Adapter) Subscribe(ctx context.Context, topic string) (<-chan ports.Message, error) {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  a.brokers,
		GroupID:  a.groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		Dialer: &kafkago.Dialer{
			ClientID:  a.clientID,
			Timeout:   10 * time.Second,
			DualStack: true,
		},
	})
	a.mu.Lock()
	a.readers = append(a.readers, reader)
	a.mu.Unlock()

	ch := make(chan ports.Message)
	go func() {
		defer close(ch)
		logger.Info("Kafka consumer started", "topic", topic, "group_id", a.groupID)

		for {
			m, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, context.Canceled) {
					logger.Info("Kafka consumer stopped", "topic", topic)
					return
				}
				logger.Error("Error reading from Kafka", "topic", topic, "error", err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(readErrorBackoff):
					continue
				}
			}

			msg := ports.Message{
				Topic:   m.Topic,
				Key:     m.Key,
				Payload: m.Value,
				Headers: fromKafkaHeaders(m.Headers),
			}
			select {
			case ch <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// Ping succeeds when any broker accepts a connection.
func (a *Adapter) Ping(ctx context.Context) error {
	var errs []error
	for _, broker := range a.brokers {
		conn, err := kafkago.DialContext(ctx, "tcp", broker)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", broker, err))
			continue
		}
		conn.Close()
		return nil
	}
	return errors.Join(errs...)
}

func (a *Adapter) Close() error {
	a.mu.Lock()
	readers := a.readers
	a.readers = nil
	a.mu.Unlock()

	var errs []error
	for _, r := range readers {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.writer.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ClientID returns a unique client id for this process.
func ClientID(service string) string {
	return fmt.Sprintf("%s-%s", service, uuid.NewString())
}

func toKafkaHeaders(headers map[string]string) []kafkago.Header {
	if len(headers) == 0 {
		return nil
	}
	out := make([]kafkago.Header, 0, len(headers))
	for k, v := range headers {
		out = append(out, kafkago.Header{Key: k, Value: []byte(v)})
	}
	return out
}

func fromKafkaHeaders(headers []kafkago.Header) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers))
	for _, h := range headers {
		out[h.Key] = string(h.Value)
	}
	return out
}
