package conversation

import (
	"testing"

	"github.com/codeready-toolchain/decisioncore/pkg/ids"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustUser(t *testing.T) ids.UserID {
	t.Helper()
	u, err := ids.NewUserID("user-1")
	require.NoError(t, err)
	return u
}

func TestNewConversationStartsInitializingIntro(t *testing.T) {
	c := New(ids.NewSessionID(), ids.NewComponentID(), mustUser(t), "system prompt")
	assert.Equal(t, StateInitializing, c.State)
	assert.Equal(t, PhaseIntro, c.AgentPhase)
}

func TestTransitionToRejectsIllegalEdge(t *testing.T) {
	c := New(ids.NewSessionID(), ids.NewComponentID(), mustUser(t), "")
	err := c.TransitionTo(StateInProgress)
	require.Error(t, err)
}

func TestCompleteIsTerminal(t *testing.T) {
	c := New(ids.NewSessionID(), ids.NewComponentID(), mustUser(t), "")
	require.NoError(t, c.TransitionTo(StateReady))
	require.NoError(t, c.TransitionTo(StateInProgress))
	require.NoError(t, c.TransitionTo(StateComplete))

	_, err := c.PostMessage(RoleUser, "hello", "objectives", baseConfig())
	require.Error(t, err)
}

func TestPostMessageAdvancesPhase(t *testing.T) {
	c := New(ids.NewSessionID(), ids.NewComponentID(), mustUser(t), "")
	require.NoError(t, c.TransitionTo(StateReady))
	require.NoError(t, c.TransitionTo(StateInProgress))

	events, err := c.PostMessage(RoleUser, "hi there", "objectives", baseConfig())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, PhaseGather, c.AgentPhase)
	assert.Equal(t, "conversation.message_posted.v1", events[0].EventType)
	assert.Equal(t, "conversation.phase_changed.v1", events[1].EventType)
}

func TestAssistantMessageDoesNotAdvancePhase(t *testing.T) {
	c := New(ids.NewSessionID(), ids.NewComponentID(), mustUser(t), "")
	require.NoError(t, c.TransitionTo(StateReady))
	require.NoError(t, c.TransitionTo(StateInProgress))

	events, err := c.PostMessage(RoleAssistant, "how can I help?", "objectives", baseConfig())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, PhaseIntro, c.AgentPhase)
}
