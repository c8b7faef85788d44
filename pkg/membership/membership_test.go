package membership

import (
	"testing"
	"time"

	"github.com/codeready-toolchain/decisioncore/pkg/ids"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPeriod() BillingPeriod {
	start := ids.NewTimestamp(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	return BillingPeriod{Start: start, End: start.AddDays(30)}
}

func mustUser(t *testing.T) ids.UserID {
	t.Helper()
	u, err := ids.NewUserID("user-1")
	require.NoError(t, err)
	return u
}

func TestUpgradeRequiresStrictIncrease(t *testing.T) {
	m, _, err := New(mustUser(t), testPeriod())
	require.NoError(t, err)

	_, err = m.Upgrade(TierMonthly)
	require.NoError(t, err)
	assert.Equal(t, TierMonthly, m.Tier)

	_, err = m.Upgrade(TierMonthly)
	require.Error(t, err)

	_, err = m.Upgrade(TierFree)
	require.Error(t, err)
}

func TestHasAccessForActivePastDueTrialing(t *testing.T) {
	m, _, err := New(mustUser(t), testPeriod())
	require.NoError(t, err)

	for _, s := range []Status{StatusTrialing, StatusActive} {
		_, err := m.TransitionTo(s)
		require.NoError(t, err)
		assert.True(t, m.HasAccess(ids.Now()))
	}

	_, err = m.TransitionTo(StatusPastDue)
	require.NoError(t, err)
	assert.True(t, m.HasAccess(ids.Now()))
}

func TestHasAccessForCancelledWithinPeriod(t *testing.T) {
	m, _, err := New(mustUser(t), testPeriod())
	require.NoError(t, err)

	_, err = m.TransitionTo(StatusActive)
	require.NoError(t, err)
	_, err = m.TransitionTo(StatusCancelled)
	require.NoError(t, err)

	withinPeriod := m.Period.Start.AddDays(5)
	assert.True(t, m.HasAccess(withinPeriod))

	afterPeriod := m.Period.End.AddDays(1)
	assert.False(t, m.HasAccess(afterPeriod))
}

func TestExpiredHasNoAccess(t *testing.T) {
	m, _, err := New(mustUser(t), testPeriod())
	require.NoError(t, err)

	_, err = m.TransitionTo(StatusExpired)
	require.NoError(t, err)
	assert.False(t, m.HasAccess(ids.Now()))
}

func TestInvalidTransitionRejected(t *testing.T) {
	m, _, err := New(mustUser(t), testPeriod())
	require.NoError(t, err)

	_, err = m.TransitionTo(StatusPastDue)
	require.Error(t, err)
}

func TestPromoCodeBoundaries(t *testing.T) {
	_, err := NewPromoCode("ABCD-123456")
	require.NoError(t, err)

	code, err := NewPromoCode("abcd-abc123")
	require.NoError(t, err)
	assert.Equal(t, PromoCode("ABCD-ABC123"), code)

	_, err = NewPromoCode("ABC-123456")
	require.Error(t, err)

	_, err = NewPromoCode("ABCD-12345")
	require.Error(t, err)

	_, err = NewPromoCode("ABCD-1234567")
	require.Error(t, err)

	_, err = NewPromoCode("ABCDEFGHIJKLMNOPQRSTU-123456")
	require.Error(t, err)
}
