package session

import (
	"testing"

	"github.com/codeready-toolchain/decisioncore/pkg/apperrors"
	"github.com/codeready-toolchain/decisioncore/pkg/ids"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustUser(t *testing.T, raw string) ids.UserID {
	t.Helper()
	u, err := ids.NewUserID(raw)
	require.NoError(t, err)
	return u
}

func TestNewSessionRejectsEmptyTitle(t *testing.T) {
	u := mustUser(t, "user-1")
	_, _, err := New(u, "   ", "")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindValidationFailed, apperrors.Kind(err))
}

func TestNewSessionTrimsTitle(t *testing.T) {
	u := mustUser(t, "user-1")
	s, env, err := New(u, "  Relocate?  ", "")
	require.NoError(t, err)
	assert.Equal(t, "Relocate?", s.Title)
	assert.Equal(t, "session.created.v1", env.EventType)
}

func TestMutationRequiresOwnership(t *testing.T) {
	owner := mustUser(t, "user-1")
	other := mustUser(t, "user-2")
	s, _, err := New(owner, "Relocate?", "")
	require.NoError(t, err)

	_, err = s.Rename(other, "New title")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindForbidden, apperrors.Kind(err))
}

func TestArchivedSessionIsImmutable(t *testing.T) {
	owner := mustUser(t, "user-1")
	s, _, err := New(owner, "Relocate?", "")
	require.NoError(t, err)

	_, err = s.Archive(owner)
	require.NoError(t, err)
	assert.Equal(t, StatusArchived, s.Status)

	_, err = s.Rename(owner, "Attempt")
	require.Error(t, err)
}

func TestAddCycleRejectsDuplicates(t *testing.T) {
	owner := mustUser(t, "user-1")
	s, _, err := New(owner, "Relocate?", "")
	require.NoError(t, err)

	cid := ids.NewCycleID()
	_, err = s.AddCycle(owner, cid, true)
	require.NoError(t, err)

	_, err = s.AddCycle(owner, cid, false)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConflict, apperrors.Kind(err))
}
