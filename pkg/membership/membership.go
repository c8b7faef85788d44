// Package membership implements the Membership aggregate (C4): a user's
// subscription tier, billing status, and access entitlement. Grounded on
// the teacher's status-enum-with-strict-transitions convention
// (pkg/config/enums.go's IsValid-style pattern, ent/schema status fields),
// generalized to the billing lifecycle spec.md §3 describes.
package membership

import (
	"context"

	"github.com/codeready-toolchain/decisioncore/pkg/apperrors"
	"github.com/codeready-toolchain/decisioncore/pkg/domainevent"
	"github.com/codeready-toolchain/decisioncore/pkg/ids"
	"github.com/codeready-toolchain/decisioncore/pkg/statemachine"
)

// Tier is the subscription tier, ranked strictly Free < Monthly < Annual.
type Tier string

const (
	TierFree    Tier = "free"
	TierMonthly Tier = "monthly"
	TierAnnual  Tier = "annual"
)

var tierRank = map[Tier]int{
	TierFree:    0,
	TierMonthly: 1,
	TierAnnual:  2,
}

// Status is the billing lifecycle enum. Trialing is carried alongside the
// five statuses spec.md §3 names explicitly, since §8's has_access
// invariant quantifies over it too — see DESIGN.md's Open Question note.
type Status string

const (
	StatusPending  Status = "pending"
	StatusTrialing Status = "trialing"
	StatusActive   Status = "active"
	StatusPastDue  Status = "past_due"
	StatusCancelled Status = "cancelled"
	StatusExpired  Status = "expired"
)

var definition = statemachine.NewDefinition(map[Status][]Status{
	StatusPending:   {StatusTrialing, StatusActive, StatusExpired},
	StatusTrialing:  {StatusActive, StatusPastDue, StatusCancelled, StatusExpired},
	StatusActive:    {StatusPastDue, StatusCancelled, StatusExpired, StatusActive},
	StatusPastDue:   {StatusActive, StatusExpired, StatusCancelled},
	StatusCancelled: {StatusActive, StatusExpired},
	StatusExpired:   {StatusPending},
})

// BillingPeriod is a closed interval [Start, End] with Start <= End.
type BillingPeriod struct {
	Start ids.Timestamp
	End   ids.Timestamp
}

// Membership is the aggregate root.
type Membership struct {
	ID                   ids.MembershipID
	UserID               ids.UserID
	Tier                 Tier
	Status               Status
	Period               BillingPeriod
	PromoCode            *PromoCode
	ExternalCustomerRef  string
	ExternalSubscription string
	CreatedAt            ids.Timestamp
	UpdatedAt            ids.Timestamp
	CancelledAt          *ids.Timestamp
	Version              int
}

// New constructs a fresh Pending membership at TierFree.
func New(userID ids.UserID, period BillingPeriod) (*Membership, domainevent.Envelope, error) {
	if period.Start.IsAfter(period.End) {
		return nil, domainevent.Envelope{}, apperrors.NewValidationError("period", "start must not be after end")
	}

	now := ids.Now()
	m := &Membership{
		ID:        ids.NewMembershipID(),
		UserID:    userID,
		Tier:      TierFree,
		Status:    StatusPending,
		Period:    period,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}

	env, err := domainevent.New("membership.created.v1", domainevent.AggregateMembership, m.ID.String(),
		map[string]any{"user_id": userID.String()}, domainevent.Metadata{UserID: userID.String()},
	)
	if err != nil {
		return nil, domainevent.Envelope{}, err
	}
	return m, env, nil
}

// Upgrade moves the membership to a strictly higher tier. Non-increasing
// tier changes are rejected.
func (m *Membership) Upgrade(newTier Tier) (domainevent.Envelope, error) {
	if tierRank[newTier] <= tierRank[m.Tier] {
		return domainevent.Envelope{}, apperrors.NewValidationError("tier", "upgrades must strictly increase rank")
	}

	oldTier := m.Tier
	m.Tier = newTier
	m.UpdatedAt = ids.Now()
	m.Version++

	return domainevent.New("membership.upgraded.v1", domainevent.AggregateMembership, m.ID.String(),
		map[string]any{"old_tier": string(oldTier), "new_tier": string(newTier)}, domainevent.Metadata{},
	)
}

// TransitionTo moves the membership to a new Status along a declared edge.
func (m *Membership) TransitionTo(newStatus Status) (domainevent.Envelope, error) {
	if !definition.CanTransitionTo(m.Status, newStatus) {
		return domainevent.Envelope{}, apperrors.NewInvalidStateTransitionError(string(m.Status), string(newStatus))
	}

	oldStatus := m.Status
	m.Status = newStatus
	m.UpdatedAt = ids.Now()
	m.Version++

	var eventType string
	switch newStatus {
	case StatusCancelled:
		now := ids.Now()
		m.CancelledAt = &now
		eventType = "membership.revoked.v1"
	case StatusActive:
		eventType = "membership.granted.v1"
	default:
		eventType = "membership.status_changed.v1"
	}

	return domainevent.New(eventType, domainevent.AggregateMembership, m.ID.String(),
		map[string]any{"old_status": string(oldStatus), "new_status": string(newStatus)}, domainevent.Metadata{},
	)
}

// ApplyPromoCode attaches a validated PromoCode to the membership.
func (m *Membership) ApplyPromoCode(code string) error {
	validated, err := NewPromoCode(code)
	if err != nil {
		return err
	}
	m.PromoCode = &validated
	m.UpdatedAt = ids.Now()
	m.Version++
	return nil
}

// HasAccess implements spec.md §3/§8's access predicate.
func (m *Membership) HasAccess(now ids.Timestamp) bool {
	switch m.Status {
	case StatusActive, StatusTrialing, StatusPastDue:
		return true
	case StatusCancelled:
		return !now.IsAfter(m.Period.End)
	default:
		return false
	}
}

// Repository is the capability contract for Membership persistence.
type Repository interface {
	FindByID(ctx context.Context, id ids.MembershipID) (*Membership, error)
	FindByUserID(ctx context.Context, userID ids.UserID) (*Membership, error)
	Save(ctx context.Context, m *Membership) error
}
