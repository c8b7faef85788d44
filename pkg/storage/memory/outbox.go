package memory

import (
	"context"
	"sync"

	"github.com/codeready-toolchain/decisioncore/pkg/domainevent"
	"github.com/codeready-toolchain/decisioncore/pkg/ids"
	"github.com/codeready-toolchain/decisioncore/pkg/outbox"
)

// OutboxStore is an in-memory outbox.Port. It owns the BackoffConfig so
// MarkFailed can compute NextAttemptAt and decide poisoning itself — the
// Port contract only passes the failing error, not the attempt schedule,
// so the schedule has to live on the adapter construction side.
type OutboxStore struct {
	mu      sync.Mutex
	records map[string]*outbox.Record
	backoff outbox.BackoffConfig
}

// NewOutboxStore constructs an empty OutboxStore driven by backoff.
func NewOutboxStore(backoff outbox.BackoffConfig) *OutboxStore {
	return &OutboxStore{
		records: make(map[string]*outbox.Record),
		backoff: backoff,
	}
}

// Enqueue inserts one Pending record per envelope, due immediately.
func (s *OutboxStore) Enqueue(ctx context.Context, envelopes []domainevent.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := ids.Now()
	for _, env := range envelopes {
		s.records[env.EventID.String()] = &outbox.Record{
			EventID:       env.EventID,
			Envelope:      env,
			EnqueuedAt:    now,
			Attempts:      0,
			NextAttemptAt: now,
			Status:        outbox.StatusPending,
		}
	}
	return nil
}

// DequeueBatch returns up to limit Pending records whose NextAttemptAt has
// arrived, in EnqueuedAt order.
func (s *OutboxStore) DequeueBatch(ctx context.Context, limit int) ([]outbox.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := ids.Now()
	var due []*outbox.Record
	for _, r := range s.records {
		if r.Status == outbox.StatusPending && !r.NextAttemptAt.IsAfter(now) {
			due = append(due, r)
		}
	}
	sortByEnqueuedAt(due)

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	out := make([]outbox.Record, len(due))
	for i, r := range due {
		out[i] = *r
	}
	return out, nil
}

func sortByEnqueuedAt(records []*outbox.Record) {
	for i := 1; i < len(records); i++ {
		for j := i; j > 0 && records[j].EnqueuedAt.Time().Before(records[j-1].EnqueuedAt.Time()); j-- {
			records[j], records[j-1] = records[j-1], records[j]
		}
	}
}

// MarkPublished marks every given event id Published.
func (s *OutboxStore) MarkPublished(ctx context.Context, eventIDs []ids.EventID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := ids.Now()
	for _, id := range eventIDs {
		if r, ok := s.records[id.String()]; ok {
			r.Status = outbox.StatusPublished
			r.PublishedAt = &now
		}
	}
	return nil
}

// MarkFailed records the failure, advances Attempts, computes the next
// backoff delay, and poisons the record once Attempts reaches MaxAttempts.
func (s *OutboxStore) MarkFailed(ctx context.Context, eventID ids.EventID, failErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[eventID.String()]
	if !ok {
		return nil
	}

	r.Attempts++
	r.LastError = failErr.Error()

	if r.Attempts >= s.backoff.MaxAttempts {
		r.Status = outbox.StatusPoisoned
		return nil
	}

	delay := s.backoff.NextDelay(r.Attempts)
	r.NextAttemptAt = ids.Now().Add(delay)
	return nil
}

// DeleteOlderThan removes terminal (Published/Poisoned) records enqueued
// before cutoff, satisfying pkg/retention.OutboxPruner.
func (s *OutboxStore) DeleteOlderThan(ctx context.Context, cutoff ids.Timestamp) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, r := range s.records {
		if r.Status == outbox.StatusPending {
			continue
		}
		if r.EnqueuedAt.IsBefore(cutoff) {
			delete(s.records, key)
			removed++
		}
	}
	return removed, nil
}
