// Package memory implements in-memory repository and port adapters for
// every aggregate plus the idempotency store and outbox, suitable for
// tests and single-process deployments. Grounded on the teacher's
// pkg/agentchat.Manager RWMutex-guarded map convention, generalized with
// optimistic concurrency via each aggregate's Version field per
// SPEC_FULL.md §4.13.
package memory

import (
	"context"
	"sync"

	"github.com/codeready-toolchain/decisioncore/pkg/apperrors"
	"github.com/codeready-toolchain/decisioncore/pkg/ids"
	"github.com/codeready-toolchain/decisioncore/pkg/session"
)

// SessionRepository is an in-memory session.Repository.
type SessionRepository struct {
	mu    sync.RWMutex
	items map[string]*session.Session
}

// NewSessionRepository constructs an empty SessionRepository.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{items: make(map[string]*session.Session)}
}

// FindByID returns a deep-enough copy of the stored session.
func (r *SessionRepository) FindByID(ctx context.Context, id ids.SessionID) (*session.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.items[id.String()]
	if !ok {
		return nil, apperrors.NewNotFoundError("session", id.String())
	}
	clone := *s
	clone.CycleIDs = append([]ids.CycleID(nil), s.CycleIDs...)
	return &clone, nil
}

// Save persists s, enforcing optimistic concurrency on Version.
func (r *SessionRepository) Save(ctx context.Context, s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := s.ID.String()
	existing, ok := r.items[key]
	if ok && existing.Version >= s.Version {
		return apperrors.NewConflictError("session", "stale version")
	}
	clone := *s
	clone.CycleIDs = append([]ids.CycleID(nil), s.CycleIDs...)
	r.items[key] = &clone
	return nil
}
