// Package eventbus implements the in-process publish/subscribe core (C8):
// per-event-type handler registration with registration-order dispatch and
// aggregated handler errors. Grounded on the teacher's
// pkg/events/manager.go (RWMutex-guarded registration table,
// snapshot-then-unlock-then-dispatch discipline) generalized from a
// PG-NOTIFY-routed connection table to a plain in-process handler registry.
package eventbus

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/codeready-toolchain/decisioncore/pkg/domainevent"
	"github.com/codeready-toolchain/decisioncore/pkg/metrics"
)

// Handler is anything that can process a published envelope. Name must be a
// stable identity used for logging and by the idempotency wrapper.
type Handler interface {
	Name() string
	Handle(ctx context.Context, envelope domainevent.Envelope) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc struct {
	HandlerName string
	Fn          func(ctx context.Context, envelope domainevent.Envelope) error
}

func (h HandlerFunc) Name() string { return h.HandlerName }
func (h HandlerFunc) Handle(ctx context.Context, envelope domainevent.Envelope) error {
	return h.Fn(ctx, envelope)
}

// HandlerErrors aggregates the errors produced by independently failing
// handlers within a single publish call.
type HandlerErrors struct {
	Errors map[string]error
}

func (e *HandlerErrors) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for name, err := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %v", name, err))
	}
	return "handler errors: " + strings.Join(parts, "; ")
}

// Bus is the publisher/subscriber registry. Zero value is not usable; use
// New.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler

	// Metrics is optional; a nil value disables instrumentation. Set it
	// directly after construction to wire in observability (C17).
	Metrics *metrics.Metrics
}

// New constructs an empty Bus.
func New() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Subscribe appends handler to eventType's dispatch list, in registration
// order.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeAll registers handler against every eventType given.
func (b *Bus) SubscribeAll(eventTypes []string, handler Handler) {
	for _, et := range eventTypes {
		b.Subscribe(et, handler)
	}
}

// Publish delivers envelope to every handler subscribed to
// envelope.EventType, in registration order. Individual handler failures
// are collected into a *HandlerErrors rather than aborting dispatch to the
// remaining handlers.
func (b *Bus) Publish(ctx context.Context, envelope domainevent.Envelope) error {
	b.mu.RLock()
	subscribed := b.handlers[envelope.EventType]
	snapshot := make([]Handler, len(subscribed))
	copy(snapshot, subscribed)
	b.mu.RUnlock()

	var failures map[string]error
	for _, h := range snapshot {
		if err := h.Handle(ctx, envelope); err != nil {
			if failures == nil {
				failures = make(map[string]error)
			}
			failures[h.Name()] = err
			b.Metrics.ObserveHandlerError(h.Name())
		}
	}

	b.Metrics.ObserveEventPublished(envelope.EventType)

	if failures != nil {
		return &HandlerErrors{Errors: failures}
	}
	return nil
}

// PublishAll publishes each envelope in order, stopping at the first
// error — callers that need all-or-nothing semantics are expected to wrap
// this with the outbox (see pkg/outbox) for atomicity, per spec.md §9's
// Open Question resolution.
func (b *Bus) PublishAll(ctx context.Context, envelopes []domainevent.Envelope) error {
	for _, env := range envelopes {
		if err := b.Publish(ctx, env); err != nil {
			return err
		}
	}
	return nil
}
