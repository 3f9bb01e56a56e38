package queue

import (
	"fmt"

	"sysinv.inventory/internal/adapters/queue/kafka"
	"sysinv.inventory/internal/adapters/queue/memory"
	"sysinv.inventory/internal/adapters/queue/mqtt"
	"sysinv.inventory/internal/adapters/queue/redis"
	"sysinv.inventory/internal/config"
	"sysinv.inventory/internal/core/ports"
)

// NewBus connects the transport selected by MESSAGE_TRANSPORT.
func NewBus(cfg *config.Config) (ports.MessageBus, error) {
	var (
		bus ports.MessageBus
		err error
	)
	switch cfg.Transport {
	case config.TransportMemory:
		bus = memory.NewBus()
	case config.TransportKafka:
		var a *kafka.Adapter
		if a, err = kafka.NewAdapter(cfg.KafkaBrokers, cfg.KafkaGroupID); err == nil {
			bus = a
		}
	case config.TransportRedis:
		var a *redis.RedisAdapter
		if a, err = redis.NewRedisAdapter(cfg.RedisURL); err == nil {
			bus = a
		}
	case config.TransportMQTT:
		var a *mqtt.Adapter
		if a, err = mqtt.NewAdapter(cfg.MQTTBroker, cfg.MQTTTopicPrefix); err == nil {
			bus = a
		}
	default:
		err = fmt.Errorf("unknown transport %q", cfg.Transport)
	}
	if err != nil {
		return nil, fmt.Errorf("%s transport: %w", cfg.Transport, err)
	}
	return bus, nil
}
