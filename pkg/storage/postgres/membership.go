package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/codeready-toolchain/decisioncore/pkg/apperrors"
	"github.com/codeready-toolchain/decisioncore/pkg/ids"
	"github.com/codeready-toolchain/decisioncore/pkg/membership"
)

// MembershipRepository is a database/sql-backed membership.Repository.
type MembershipRepository struct {
	DB *sql.DB
}

// NewMembershipRepository constructs a MembershipRepository over db.
func NewMembershipRepository(db *sql.DB) *MembershipRepository {
	return &MembershipRepository{DB: db}
}

func scanMembership(row interface {
	Scan(dest ...any) error
}) (*membership.Membership, error) {
	var (
		id, userID, tier, status                           string
		periodStart, periodEnd, createdAt, updatedAt        ids.Timestamp
		promoCode, externalCustomerRef, externalSubscription sql.NullString
		cancelledAt                                         sql.NullTime
		version                                              int
	)
	if err := row.Scan(&id, &userID, &tier, &status, &periodStart, &periodEnd, &promoCode,
		&externalCustomerRef, &externalSubscription, &createdAt, &updatedAt, &cancelledAt, &version); err != nil {
		return nil, err
	}

	uid, err := ids.NewUserID(userID)
	if err != nil {
		return nil, err
	}

	m := &membership.Membership{
		ID:                   ids.MembershipID(id),
		UserID:               uid,
		Tier:                 membership.Tier(tier),
		Status:               membership.Status(status),
		Period:               membership.BillingPeriod{Start: periodStart, End: periodEnd},
		ExternalCustomerRef:  externalCustomerRef.String,
		ExternalSubscription: externalSubscription.String,
		CreatedAt:            createdAt,
		UpdatedAt:            updatedAt,
		Version:              version,
	}
	if promoCode.Valid {
		pc, err := membership.NewPromoCode(promoCode.String)
		if err != nil {
			return nil, fmt.Errorf("decode promo_code: %w", err)
		}
		m.PromoCode = &pc
	}
	if cancelledAt.Valid {
		ts := ids.NewTimestamp(cancelledAt.Time)
		m.CancelledAt = &ts
	}
	return m, nil
}

func (r *MembershipRepository) FindByID(ctx context.Context, id ids.MembershipID) (*membership.Membership, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, user_id, tier, status, period_start, period_end, promo_code,
			external_customer_ref, external_subscription, created_at, updated_at, cancelled_at, version
		FROM memberships WHERE id = $1`, id.String())

	m, err := scanMembership(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("membership", id.String())
		}
		return nil, fmt.Errorf("scan membership: %w", err)
	}
	return m, nil
}

func (r *MembershipRepository) FindByUserID(ctx context.Context, userID ids.UserID) (*membership.Membership, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, user_id, tier, status, period_start, period_end, promo_code,
			external_customer_ref, external_subscription, created_at, updated_at, cancelled_at, version
		FROM memberships WHERE user_id = $1`, userID.String())

	m, err := scanMembership(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("membership", userID.String())
		}
		return nil, fmt.Errorf("scan membership: %w", err)
	}
	return m, nil
}

func (r *MembershipRepository) Save(ctx context.Context, m *membership.Membership) error {
	var promoCode sql.NullString
	if m.PromoCode != nil {
		promoCode = sql.NullString{String: string(*m.PromoCode), Valid: true}
	}
	var cancelledAt sql.NullTime
	if m.CancelledAt != nil {
		cancelledAt = sql.NullTime{Time: m.CancelledAt.Time(), Valid: true}
	}

	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO memberships (id, user_id, tier, status, period_start, period_end, promo_code,
			external_customer_ref, external_subscription, created_at, updated_at, cancelled_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			tier = EXCLUDED.tier,
			status = EXCLUDED.status,
			promo_code = EXCLUDED.promo_code,
			external_customer_ref = EXCLUDED.external_customer_ref,
			external_subscription = EXCLUDED.external_subscription,
			updated_at = EXCLUDED.updated_at,
			cancelled_at = EXCLUDED.cancelled_at,
			version = EXCLUDED.version
		WHERE memberships.version < EXCLUDED.version`,
		m.ID.String(), m.UserID.String(), string(m.Tier), string(m.Status), m.Period.Start, m.Period.End, promoCode,
		m.ExternalCustomerRef, m.ExternalSubscription, m.CreatedAt, m.UpdatedAt, cancelledAt, m.Version,
	)
	if err != nil {
		return fmt.Errorf("save membership: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.NewConflictError("membership", "stale version")
	}
	return nil
}
