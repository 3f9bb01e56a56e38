package mqtt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"sysinv.inventory/internal/core/logger"
	"sysinv.inventory/internal/core/ports"
)

const qos = 1

var ErrNotConnected = errors.New("mqtt client not connected")

// Adapter carries messages over an MQTT broker under a topic prefix.
// Headers are not transported.
type Adapter struct {
	client  mqtt.Client
	prefix  string
	timeout time.Duration
}

var _ ports.MessageBus = (*Adapter)(nil)

// NewAdapter connects to the broker.
func NewAdapter(brokerURL, prefix string) (*Adapter, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(fmt.Sprintf("inventory-%s", uuid.NewString()))
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", "error", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}

	logger.Info("Connected to MQTT broker", "broker", brokerURL)
	return newAdapter(client, prefix), nil
}

func newAdapter(client mqtt.Client, prefix string) *Adapter {
	return &Adapter{
		client:  client,
		prefix:  strings.Trim(prefix, "/"),
		timeout: 10 * time.Second,
	}
}

func (a *Adapter) topic(name string) string {
	if a.prefix == "" {
		return name
	}
	return a.prefix + "/" + name
}

func (a *Adapter) wait(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(a.timeout):
		return fmt.Errorf("mqtt: operation timed out after %s", a.timeout)
	}
}

func (a *Adapter) Publish(ctx context.Context, msg ports.Message) error {
	return a.wait(ctx, a.client.Publish(a.topic(msg.Topic), qos, false, msg.Payload))
}

func (a *Adapter) Subscribe(ctx context.Context, topic string) (<-chan ports.Message, error) {
	ch := make(chan ports.Message)
	var (
		mu     sync.Mutex
		closed bool
	)

	handler := func(_ mqtt.Client, m mqtt.Message) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- ports.Message{Topic: topic, Payload: m.Payload()}:
		case <-ctx.Done():
		}
	}

	full := a.topic(topic)
	if err := a.wait(ctx, a.client.Subscribe(full, qos, handler)); err != nil {
		return nil, fmt.Errorf("mqtt subscribe %s: %w", full, err)
	}
	logger.Info("MQTT subscription started", "topic", full)

	go func() {
		<-ctx.Done()
		a.client.Unsubscribe(full).WaitTimeout(a.timeout)
		mu.Lock()
		closed = true
		close(ch)
		mu.Unlock()
	}()
	return ch, nil
}

func (a *Adapter) Ping(ctx context.Context) error {
	if !a.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	return nil
}

func (a *Adapter) Close() error {
	a.client.Disconnect(250)
	return nil
}
