package memory

import (
	"context"
	"sync"

	"github.com/codeready-toolchain/decisioncore/pkg/apperrors"
	"github.com/codeready-toolchain/decisioncore/pkg/ids"
	"github.com/codeready-toolchain/decisioncore/pkg/membership"
)

// MembershipRepository is an in-memory membership.Repository.
type MembershipRepository struct {
	mu     sync.RWMutex
	items  map[string]*membership.Membership
	byUser map[string]string
}

// NewMembershipRepository constructs an empty MembershipRepository.
func NewMembershipRepository() *MembershipRepository {
	return &MembershipRepository{
		items:  make(map[string]*membership.Membership),
		byUser: make(map[string]string),
	}
}

func cloneMembership(m *membership.Membership) *membership.Membership {
	clone := *m
	if m.PromoCode != nil {
		pc := *m.PromoCode
		clone.PromoCode = &pc
	}
	if m.CancelledAt != nil {
		ts := *m.CancelledAt
		clone.CancelledAt = &ts
	}
	return &clone
}

// FindByID returns a deep-enough copy of the stored membership.
func (r *MembershipRepository) FindByID(ctx context.Context, id ids.MembershipID) (*membership.Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.items[id.String()]
	if !ok {
		return nil, apperrors.NewNotFoundError("membership", id.String())
	}
	return cloneMembership(m), nil
}

// FindByUserID returns the membership owned by userID, if any.
func (r *MembershipRepository) FindByUserID(ctx context.Context, userID ids.UserID) (*membership.Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byUser[userID.String()]
	if !ok {
		return nil, apperrors.NewNotFoundError("membership", userID.String())
	}
	return cloneMembership(r.items[id]), nil
}

// Save persists m, enforcing optimistic concurrency on Version.
func (r *MembershipRepository) Save(ctx context.Context, m *membership.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := m.ID.String()
	existing, ok := r.items[key]
	if ok && existing.Version >= m.Version {
		return apperrors.NewConflictError("membership", "stale version")
	}
	r.items[key] = cloneMembership(m)
	r.byUser[m.UserID.String()] = key
	return nil
}
