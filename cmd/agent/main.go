package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"sysinv.inventory/internal/adapters/queue"
	"sysinv.inventory/internal/agent"
	"sysinv.inventory/internal/config"
	"sysinv.inventory/internal/core/logger"
	"sysinv.inventory/internal/core/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger.Init(cfg.LogLevel, cfg.LogFormat)

	if cfg.Transport == config.TransportMemory {
		logger.Warn("MESSAGE_TRANSPORT is memory; reports will not leave this process")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.EnableTracing {
		shutdownTracing, err := tracing.Init(ctx, cfg.ServiceName+"-agent", cfg.OTLPEndpoint)
		if err != nil {
			logger.Error("Failed to initialize tracing", "error", err)
		} else {
			defer shutdownTracing(context.Background())
		}
	}

	bus, err := queue.NewBus(cfg)
	if err != nil {
		logger.Error("Failed to connect message bus", "error", err)
		os.Exit(1)
	}
	defer bus.Close()

	a, err := agent.New(bus, cfg.TopicSystemLoad, cfg.AgentHostname, cfg.ReportInterval, nil)
	if err != nil {
		logger.Error("Failed to initialize agent", "error", err)
		os.Exit(1)
	}

	if err := a.Run(ctx); err != nil {
		logger.Error("Agent error", "error", err)
		os.Exit(1)
	}
}
