package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	http_handler "sysinv.inventory/internal/adapters/handler/http"
	"sysinv.inventory/internal/adapters/queue"
	redis_adapter "sysinv.inventory/internal/adapters/queue/redis"
	"sysinv.inventory/internal/adapters/repository/memory"
	"sysinv.inventory/internal/adapters/repository/pg"
	"sysinv.inventory/internal/config"
	"sysinv.inventory/internal/core/logger"
	"sysinv.inventory/internal/core/ports"
	"sysinv.inventory/internal/core/services"
	"sysinv.inventory/internal/core/tracing"
)

const version = "0.1.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Initialize structured logger
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	logger.Info("Starting inventory service", "version", version, "transport", cfg.Transport, "store", cfg.StoreBackend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize tracing
	if cfg.EnableTracing {
		shutdownTracing, err := tracing.Init(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
		if err != nil {
			logger.Error("Failed to initialize tracing", "error", err)
		} else {
			defer func() {
				if err := shutdownTracing(context.Background()); err != nil {
					logger.Error("Failed to shutdown tracing", "error", err)
				}
			}()
		}
	}

	healthService := services.NewHealthService(version)

	// Initialize adapters
	var store ports.InventoryManager
	switch cfg.StoreBackend {
	case config.StorePostgres:
		repo, err := pg.Open(cfg.DatabaseURL)
		if err != nil {
			logger.Error("Failed to init postgres", "error", err)
			os.Exit(1)
		}
		defer repo.Close()
		healthService.Register("database", repo, true)
		store = repo
	default:
		store = memory.NewRepository()
	}

	bus, err := queue.NewBus(cfg)
	if err != nil {
		logger.Error("Failed to init message bus", "error", err)
		os.Exit(1)
	}
	defer bus.Close()
	healthService.Register("message_bus", bus, true)

	// Initialize domain services
	hub := http_handler.NewHub()
	go hub.Run(ctx)

	stream := services.NewReservationStream(cfg.StreamBufferLimit)
	inventory := services.NewInventoryService(store, stream, hub)

	if cfg.HostStaleAfter > 0 {
		monitor := services.NewHostMonitor(cfg.HostStaleAfter, hub)
		inventory.SetHostMonitor(monitor)
		go monitor.Start(ctx, cfg.HostCheckInterval)
	}

	if cfg.DeadLetterURL != "" {
		dlq, err := redis_adapter.NewDeadLetterQueueFromURL(cfg.DeadLetterURL)
		if err != nil {
			logger.Error("Failed to init dead letter queue", "error", err)
			os.Exit(1)
		}
		defer dlq.Close()
		healthService.Register("dead_letters", dlq, false)
		inventory.SetDeadLetterQueue(dlq)
	}

	bridge := services.NewBridge(bus, inventory, stream, services.Topics{
		SystemLoad:     cfg.TopicSystemLoad,
		ReservationIn:  cfg.TopicReservationIn,
		ReservationOut: cfg.TopicReservationOut,
	}, nil)

	bridgeDone := make(chan struct{})
	go func() {
		defer close(bridgeDone)
		if err := bridge.Start(ctx); err != nil {
			logger.Error("Message bridge failed", "error", err)
			stop()
		}
	}()

	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           http_handler.NewServer(inventory, healthService, hub, cfg.EnableMetrics).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start HTTP Server
	go func() {
		logger.Info("HTTP Server starting", "port", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}

	select {
	case <-bridgeDone:
	case <-shutdownCtx.Done():
		logger.Warn("Message bridge did not stop before the shutdown timeout")
	}
}
