package commands

import (
	"context"

	"github.com/codeready-toolchain/decisioncore/pkg/apperrors"
	"github.com/codeready-toolchain/decisioncore/pkg/ids"
	"github.com/codeready-toolchain/decisioncore/pkg/membership"
)

// MembershipHandlers bundles the Membership repository with a publication
// strategy.
type MembershipHandlers struct {
	Repo      membership.Repository
	Publisher publisher
}

// NewMembershipHandlers constructs a MembershipHandlers.
func NewMembershipHandlers(repo membership.Repository, pub publisher) *MembershipHandlers {
	return &MembershipHandlers{Repo: repo, Publisher: pub}
}

// CreateMembership creates a fresh Pending membership for meta.UserID.
func (h *MembershipHandlers) CreateMembership(ctx context.Context, period membership.BillingPeriod, meta Metadata) (*membership.Membership, error) {
	userID, err := ids.NewUserID(meta.UserID)
	if err != nil {
		return nil, err
	}

	m, env, err := membership.New(userID, period)
	if err != nil {
		return nil, err
	}
	if err := h.Repo.Save(ctx, m); err != nil {
		return nil, err
	}
	if err := h.Publisher.publish(ctx, withMetadata(env, meta)); err != nil {
		return nil, err
	}
	return m, nil
}

// Upgrade loads membership id and upgrades its tier.
func (h *MembershipHandlers) Upgrade(ctx context.Context, id ids.MembershipID, newTier membership.Tier, meta Metadata) (*membership.Membership, error) {
	m, err := h.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.NewNotFoundError("membership", id.String())
	}

	env, err := m.Upgrade(newTier)
	if err != nil {
		return nil, err
	}
	if err := h.Repo.Save(ctx, m); err != nil {
		return nil, err
	}
	if err := h.Publisher.publish(ctx, withMetadata(env, meta)); err != nil {
		return nil, err
	}
	return m, nil
}

// ApplyPromoCode loads membership id and attaches a validated promo code.
// No event is emitted: the promo code attachment is a pricing-adjacent
// annotation, not a billing-lifecycle transition.
func (h *MembershipHandlers) ApplyPromoCode(ctx context.Context, id ids.MembershipID, code string) (*membership.Membership, error) {
	m, err := h.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.NewNotFoundError("membership", id.String())
	}

	if err := m.ApplyPromoCode(code); err != nil {
		return nil, err
	}
	if err := h.Repo.Save(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// TransitionStatus loads membership id and moves it to newStatus.
func (h *MembershipHandlers) TransitionStatus(ctx context.Context, id ids.MembershipID, newStatus membership.Status, meta Metadata) (*membership.Membership, error) {
	m, err := h.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.NewNotFoundError("membership", id.String())
	}

	env, err := m.TransitionTo(newStatus)
	if err != nil {
		return nil, err
	}
	if err := h.Repo.Save(ctx, m); err != nil {
		return nil, err
	}
	if err := h.Publisher.publish(ctx, withMetadata(env, meta)); err != nil {
		return nil, err
	}
	return m, nil
}
