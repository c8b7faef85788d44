// Package retention implements the TTL cleanup worker (C16): a periodic
// sweep that prunes processed-event idempotency marks and terminal outbox
// rows past their configured TTL. Grounded on pkg/cleanup/service.go's
// start/stop/ticker shape and its per-policy run methods, generalized from
// session/event retention to processed-event/outbox retention.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/codeready-toolchain/decisioncore/pkg/eventbus"
	"github.com/codeready-toolchain/decisioncore/pkg/ids"
)

// OutboxPruner is satisfied by any outbox adapter that can delete old
// terminal rows. Kept narrow so the retention worker does not need the
// full outbox.Port surface.
type OutboxPruner interface {
	DeleteOlderThan(ctx context.Context, before ids.Timestamp) (int, error)
}

// Config tunes the sweep's TTLs and cadence.
type Config struct {
	ProcessedEventTTL time.Duration
	OutboxTTL         time.Duration
	CleanupInterval   time.Duration
}

// Service periodically enforces retention policies:
//   - deletes processed-event marks older than ProcessedEventTTL
//   - deletes terminal (Published/Poisoned) outbox rows older than OutboxTTL
//
// All operations are idempotent and safe to run from multiple processes.
type Service struct {
	config          Config
	processedEvents eventbus.ProcessedEventStore
	outbox          OutboxPruner

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService constructs a Service.
func NewService(cfg Config, processedEvents eventbus.ProcessedEventStore, outbox OutboxPruner) *Service {
	return &Service{config: cfg, processedEvents: processedEvents, outbox: outbox}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("retention service started",
		"processed_event_ttl", s.config.ProcessedEventTTL,
		"outbox_ttl", s.config.OutboxTTL,
		"interval", s.config.CleanupInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("retention service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.runAll(ctx)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Service) runAll(ctx context.Context) {
	s.cleanupProcessedEvents(ctx)
	s.cleanupOutbox(ctx)
}

func (s *Service) cleanupProcessedEvents(ctx context.Context) {
	cutoff := ids.Now().Add(-s.config.ProcessedEventTTL)
	count, err := s.processedEvents.DeleteBefore(ctx, cutoff)
	if err != nil {
		slog.Error("retention: processed-event cleanup failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("retention: deleted processed-event marks", "count", count)
	}
}

func (s *Service) cleanupOutbox(ctx context.Context) {
	cutoff := ids.Now().Add(-s.config.OutboxTTL)
	count, err := s.outbox.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("retention: outbox cleanup failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("retention: deleted terminal outbox rows", "count", count)
	}
}
