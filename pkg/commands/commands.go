// Package commands implements the command handlers (C7): thin
// orchestrators that load an aggregate via its repository port, mutate it
// through the aggregate's own methods, persist the result, and publish the
// resulting event(s) — either directly through the bus or via the outbox
// for transactional callers. Grounded on the teacher's
// pkg/services/session_service.go method shape (validate, mutate inside a
// transaction, emit), generalized across all four aggregates.
package commands

import (
	"context"

	"github.com/codeready-toolchain/decisioncore/pkg/domainevent"
	"github.com/codeready-toolchain/decisioncore/pkg/eventbus"
	"github.com/codeready-toolchain/decisioncore/pkg/outbox"
)

// Metadata carries the caller identity and correlation data every command
// handler attaches to the event(s) it produces, per spec.md §4.11 step 5.
type Metadata struct {
	UserID        string
	CorrelationID string
}

func withMetadata(env domainevent.Envelope, meta Metadata) domainevent.Envelope {
	if env.Metadata.UserID == "" {
		env.Metadata.UserID = meta.UserID
	}
	if env.Metadata.CorrelationID == "" {
		env.Metadata.CorrelationID = meta.CorrelationID
	}
	return env
}

// publisher is satisfied by both *eventbus.Bus (direct, synchronous
// publish) and an outbox-backed enqueuer; handlers depend on this narrow
// interface rather than a concrete type so either publication strategy can
// be injected per spec.md §4.10's "direct or via outbox" wording.
type publisher interface {
	publish(ctx context.Context, envelopes ...domainevent.Envelope) error
}

// directBus publishes straight through the event bus, bypassing the
// outbox. Suitable for tests and for operations that do not need
// transactional persist+publish atomicity.
type directBus struct {
	bus *eventbus.Bus
}

func (d directBus) publish(ctx context.Context, envelopes ...domainevent.Envelope) error {
	return d.bus.PublishAll(ctx, envelopes)
}

// outboxEnqueuer enqueues into the outbox in the same logical unit as the
// aggregate's persistence, per spec.md §4.10's same-transaction
// requirement. The actual atomicity guarantee is the adapter's
// responsibility (e.g. a single SQL transaction covering both the
// aggregate row and the outbox row).
type outboxEnqueuer struct {
	port outbox.Port
}

func (o outboxEnqueuer) publish(ctx context.Context, envelopes ...domainevent.Envelope) error {
	return o.port.Enqueue(ctx, envelopes)
}

// DirectBus wraps bus as a publisher.
func DirectBus(bus *eventbus.Bus) publisher { return directBus{bus: bus} }

// OutboxEnqueuer wraps port as a publisher.
func OutboxEnqueuer(port outbox.Port) publisher { return outboxEnqueuer{port: port} }
