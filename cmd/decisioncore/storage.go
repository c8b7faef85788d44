package main

import (
	"context"
	"fmt"

	"github.com/codeready-toolchain/decisioncore/pkg/conversation"
	"github.com/codeready-toolchain/decisioncore/pkg/coreconfig"
	"github.com/codeready-toolchain/decisioncore/pkg/cycle"
	"github.com/codeready-toolchain/decisioncore/pkg/eventbus"
	"github.com/codeready-toolchain/decisioncore/pkg/membership"
	"github.com/codeready-toolchain/decisioncore/pkg/outbox"
	"github.com/codeready-toolchain/decisioncore/pkg/session"
	"github.com/codeready-toolchain/decisioncore/pkg/storage/memory"
	"github.com/codeready-toolchain/decisioncore/pkg/storage/postgres"
)

// wireStorage selects and constructs the repository and port adapters for
// backend ("memory" or "postgres"), returning a close func that releases
// any held resources (a no-op for the in-memory backend).
func wireStorage(ctx context.Context, backend string, cfg *coreconfig.Config) (
	session.Repository,
	cycle.Repository,
	membership.Repository,
	conversation.Repository,
	outbox.Port,
	eventbus.ProcessedEventStore,
	func(),
	error,
) {
	switch backend {
	case "memory":
		backoff := outbox.BackoffConfig{
			Base:           cfg.Outbox.BackoffBase,
			Factor:         cfg.Outbox.BackoffFactor,
			Cap:            cfg.Outbox.BackoffCap,
			JitterFraction: cfg.Outbox.JitterFraction,
			MaxAttempts:    cfg.Outbox.MaxAttempts,
		}
		return memory.NewSessionRepository(),
			memory.NewCycleRepository(),
			memory.NewMembershipRepository(),
			memory.NewConversationRepository(),
			memory.NewOutboxStore(backoff),
			memory.NewProcessedEventStore(),
			func() {},
			nil

	case "postgres":
		client, err := postgres.NewClient(ctx, postgres.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Database: cfg.Database.Database,
			SSLMode:  cfg.Database.SSLMode,
		})
		if err != nil {
			return nil, nil, nil, nil, nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		backoff := outbox.BackoffConfig{
			Base:           cfg.Outbox.BackoffBase,
			Factor:         cfg.Outbox.BackoffFactor,
			Cap:            cfg.Outbox.BackoffCap,
			JitterFraction: cfg.Outbox.JitterFraction,
			MaxAttempts:    cfg.Outbox.MaxAttempts,
		}
		closeFn := func() {
			_ = client.DB.Close()
		}
		return postgres.NewSessionRepository(client.DB),
			postgres.NewCycleRepository(client.DB),
			postgres.NewMembershipRepository(client.DB),
			postgres.NewConversationRepository(client.DB),
			postgres.NewOutboxStore(client.DB, backoff),
			postgres.NewProcessedEventStore(client.DB),
			closeFn,
			nil

	default:
		return nil, nil, nil, nil, nil, nil, nil, fmt.Errorf("unknown storage backend %q (want memory or postgres)", backend)
	}
}
