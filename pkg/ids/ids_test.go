package ids

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentageClampsAboveHundred(t *testing.T) {
	assert.Equal(t, 100, NewPercentage(137).Int())
}

func TestPercentageClampsBelowZero(t *testing.T) {
	assert.Equal(t, 0, NewPercentage(-5).Int())
}

func TestPercentageInRangeUnchanged(t *testing.T) {
	assert.Equal(t, 42, NewPercentage(42).Int())
}

func TestRatingRejectsOutOfRange(t *testing.T) {
	_, err := NewRating(3)
	require.Error(t, err)

	_, err = NewRating(-3)
	require.Error(t, err)
}

func TestRatingAcceptsBoundaries(t *testing.T) {
	r, err := NewRating(-2)
	require.NoError(t, err)
	assert.Equal(t, -2, r.Int())

	r, err = NewRating(2)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Int())
}

func TestUserIDRejectsEmpty(t *testing.T) {
	_, err := NewUserID("")
	require.Error(t, err)
}

func TestTimestampOrdering(t *testing.T) {
	t1 := NewTimestamp(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	t2 := t1.AddDays(1)

	assert.True(t, t2.IsAfter(t1))
	assert.True(t, t1.IsBefore(t2))
}

func TestTimestampJSONRoundTrip(t *testing.T) {
	original := NewTimestamp(time.Date(2026, 3, 15, 12, 30, 0, 0, time.UTC))

	data, err := original.MarshalJSON()
	require.NoError(t, err)

	var decoded Timestamp
	require.NoError(t, decoded.UnmarshalJSON(data))

	assert.True(t, original.Time().Equal(decoded.Time()))
}

func TestNewIDsAreDistinct(t *testing.T) {
	assert.NotEqual(t, NewSessionID(), NewSessionID())
	assert.NotEqual(t, NewCycleID(), NewCycleID())
	assert.NotEqual(t, NewComponentID(), NewComponentID())
}
