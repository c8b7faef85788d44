package memory

import (
	"context"
	"sync"

	"github.com/codeready-toolchain/decisioncore/pkg/apperrors"
	"github.com/codeready-toolchain/decisioncore/pkg/component"
	"github.com/codeready-toolchain/decisioncore/pkg/cycle"
	"github.com/codeready-toolchain/decisioncore/pkg/ids"
)

// CycleRepository is an in-memory cycle.Repository.
type CycleRepository struct {
	mu    sync.RWMutex
	items map[string]*cycle.Cycle
}

// NewCycleRepository constructs an empty CycleRepository.
func NewCycleRepository() *CycleRepository {
	return &CycleRepository{items: make(map[string]*cycle.Cycle)}
}

func cloneCycle(cy *cycle.Cycle) *cycle.Cycle {
	clone := *cy
	clone.ComponentState = make(map[component.ComponentType]cycle.ComponentStatus, len(cy.ComponentState))
	for k, v := range cy.ComponentState {
		clone.ComponentState[k] = v
	}
	clone.Outputs = make(map[component.ComponentType]any, len(cy.Outputs))
	for k, v := range cy.Outputs {
		clone.Outputs[k] = v
	}
	return &clone
}

// FindByID returns a deep-enough copy of the stored cycle.
func (r *CycleRepository) FindByID(ctx context.Context, id ids.CycleID) (*cycle.Cycle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cy, ok := r.items[id.String()]
	if !ok {
		return nil, apperrors.NewNotFoundError("cycle", id.String())
	}
	return cloneCycle(cy), nil
}

// FindBySessionID returns every cycle belonging to sessionID.
func (r *CycleRepository) FindBySessionID(ctx context.Context, sessionID ids.SessionID) ([]*cycle.Cycle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*cycle.Cycle
	for _, cy := range r.items {
		if cy.SessionID == sessionID {
			out = append(out, cloneCycle(cy))
		}
	}
	return out, nil
}

// Save persists cy, enforcing optimistic concurrency on Version.
func (r *CycleRepository) Save(ctx context.Context, cy *cycle.Cycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := cy.ID.String()
	existing, ok := r.items[key]
	if ok && existing.Version >= cy.Version {
		return apperrors.NewConflictError("cycle", "stale version")
	}
	r.items[key] = cloneCycle(cy)
	return nil
}
