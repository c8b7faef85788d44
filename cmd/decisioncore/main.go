// Command decisioncore runs the deliberation core process: it loads
// configuration, wires the event bus, the transactional outbox worker, the
// WebSocket room manager, and the retention sweep, then serves health,
// metrics, and the WebSocket upgrade over HTTP until signaled to stop.
// Grounded on the teacher's cmd/tarsy/main.go bootstrap order (flag/env ->
// config -> storage -> services -> server) and its os/signal-driven
// graceful shutdown (mirrored more directly in
// cuemby-warren/cmd/warren/main.go's signal.Notify + sigCh select).
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/decisioncore/pkg/commands"
	"github.com/codeready-toolchain/decisioncore/pkg/coreconfig"
	"github.com/codeready-toolchain/decisioncore/pkg/eventbus"
	"github.com/codeready-toolchain/decisioncore/pkg/metrics"
	"github.com/codeready-toolchain/decisioncore/pkg/outbox"
	"github.com/codeready-toolchain/decisioncore/pkg/retention"
	"github.com/codeready-toolchain/decisioncore/pkg/ws"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configPath := flag.String("config", getEnv("CONFIG_PATH", "./deploy/decisioncore.yaml"), "Path to decisioncore.yaml")
	envPath := flag.String("env-file", getEnv("ENV_FILE", "./deploy/.env"), "Path to a .env file")
	backend := flag.String("storage", getEnv("STORAGE_BACKEND", "memory"), "Storage backend: memory or postgres")
	addr := flag.String("addr", getEnv("HTTP_ADDR", ":8080"), "HTTP listen address")
	flag.Parse()

	if err := godotenv.Load(*envPath); err != nil {
		slog.Warn("could not load env file, continuing with existing environment", "path", *envPath, "error", err)
	}

	cfg, err := coreconfig.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	bus := eventbus.New()
	bus.Metrics = m

	sessionRepo, cycleRepo, membershipRepo, conversationRepo, outboxPort, processedEvents, closeStorage, err := wireStorage(ctx, *backend, cfg)
	if err != nil {
		slog.Error("failed to wire storage", "backend", *backend, "error", err)
		os.Exit(1)
	}
	defer closeStorage()

	// Command handlers publish through the outbox rather than directly on
	// the bus, so a crash between persisting an aggregate and publishing
	// its events cannot silently drop them (spec.md §9's outbox pattern).
	// This process exposes no command surface of its own (the WS upgrade
	// is read-only, per spec.md §1's framing/DTOs being out of scope) but
	// wires the handlers up for an adapter layer to call into via Go API.
	publish := commands.OutboxEnqueuer(outboxPort)
	_ = commands.NewSessionHandlers(sessionRepo, publish)
	_ = commands.NewCycleHandlers(cycleRepo, publish)
	_ = commands.NewMembershipHandlers(membershipRepo, publish)
	_ = commands.NewConversationHandlers(conversationRepo, publish)

	outboxWorker := outbox.NewWorker(outboxPort, bus, outbox.BackoffConfig{
		Base:           cfg.Outbox.BackoffBase,
		Factor:         cfg.Outbox.BackoffFactor,
		Cap:            cfg.Outbox.BackoffCap,
		JitterFraction: cfg.Outbox.JitterFraction,
		MaxAttempts:    cfg.Outbox.MaxAttempts,
	}, cfg.Outbox.PollInterval, cfg.Outbox.BatchSize)
	outboxWorker.Metrics = m
	go outboxWorker.Start(ctx)

	outboxPruner, ok := outboxPort.(retention.OutboxPruner)
	if !ok {
		slog.Error("storage backend's outbox port does not support retention pruning", "backend", *backend)
		os.Exit(1)
	}
	retentionService := retention.NewService(retention.Config{
		ProcessedEventTTL: cfg.Retention.ProcessedEventTTL,
		OutboxTTL:         cfg.Retention.OutboxTTL,
		CleanupInterval:   cfg.Retention.CleanupInterval,
	}, processedEvents, outboxPruner)
	retentionService.Start(ctx)

	rooms := ws.NewRoomManager(cfg.Room.BufferSize)
	rooms.Metrics = m
	bridge := ws.NewBridge(rooms, nil)
	bus.SubscribeAll(ws.BridgeEventTypes(), eventbus.NewIdempotentHandler(bridge, processedEvents))

	server := ws.NewServer(rooms, m)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("decisioncore HTTP server listening", "addr", *addr)
		if err := server.Start(*addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errCh:
		slog.Error("HTTP server exited unexpectedly", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("error during HTTP server shutdown", "error", err)
	}

	outboxWorker.Stop()
	retentionService.Stop()
	slog.Info("decisioncore stopped")
}
