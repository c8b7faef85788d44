package commands_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/codeready-toolchain/decisioncore/pkg/commands"
	"github.com/codeready-toolchain/decisioncore/pkg/conversation"
	"github.com/codeready-toolchain/decisioncore/pkg/domainevent"
	"github.com/codeready-toolchain/decisioncore/pkg/eventbus"
	"github.com/codeready-toolchain/decisioncore/pkg/ids"
	"github.com/codeready-toolchain/decisioncore/pkg/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartConversationPersistsWithoutPublishing(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewConversationRepository()
	bus := eventbus.New()
	handlers := commands.NewConversationHandlers(repo, commands.DirectBus(bus))

	sessionID := ids.NewSessionID()
	componentID := ids.NewComponentID()
	c, err := handlers.StartConversation(ctx, sessionID, componentID, "you are a decision coach", commands.Metadata{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, conversation.StateInitializing, c.State)
	assert.Equal(t, conversation.PhaseIntro, c.AgentPhase)

	stored, err := repo.FindByComponentID(ctx, componentID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, stored.ID)
}

func TestTransitionStateFollowsDeclaredEdges(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewConversationRepository()
	bus := eventbus.New()
	handlers := commands.NewConversationHandlers(repo, commands.DirectBus(bus))

	c, err := handlers.StartConversation(ctx, ids.NewSessionID(), ids.NewComponentID(), "prompt", commands.Metadata{UserID: "user-2"})
	require.NoError(t, err)

	ready, err := handlers.TransitionState(ctx, c.ID, conversation.StateReady, commands.Metadata{})
	require.NoError(t, err)
	assert.Equal(t, conversation.StateReady, ready.State)

	_, err = handlers.TransitionState(ctx, c.ID, conversation.StateComplete, commands.Metadata{})
	assert.Error(t, err, "Ready -> Complete is not a declared edge")
}

func TestPostMessagePublishesMessagePostedAndPhaseChanged(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewConversationRepository()
	bus := eventbus.New()

	var receivedTypes []string
	var receivedPayloads []json.RawMessage
	recorder := eventbus.HandlerFunc{
		HandlerName: "recorder",
		Fn: func(ctx context.Context, env domainevent.Envelope) error {
			receivedTypes = append(receivedTypes, env.EventType)
			receivedPayloads = append(receivedPayloads, env.Payload)
			return nil
		},
	}
	bus.Subscribe(domainevent.TypeConversationMessagePosted, recorder)
	bus.Subscribe(domainevent.TypeConversationPhaseChanged, recorder)

	handlers := commands.NewConversationHandlers(repo, commands.DirectBus(bus))
	sid := ids.NewSessionID()
	c, err := handlers.StartConversation(ctx, sid, ids.NewComponentID(), "prompt", commands.Metadata{UserID: "user-3"})
	require.NoError(t, err)

	cfg := conversation.TransitionConfig{MinMessagesForExtraction: 1}
	updated, err := handlers.PostMessage(ctx, c.ID, conversation.RoleUser, "I want to decide between two job offers", "goal", cfg, commands.Metadata{UserID: "user-3"})
	require.NoError(t, err)

	require.Len(t, updated.Messages, 1)
	assert.Equal(t, conversation.PhaseGather, updated.AgentPhase)

	require.NotEmpty(t, receivedPayloads)
	var postedPayload struct {
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(receivedPayloads[0], &postedPayload))
	assert.Equal(t, sid.String(), postedPayload.SessionID, "message_posted payload must carry session_id for the ws bridge to route it")
	assert.Equal(t, []string{domainevent.TypeConversationMessagePosted, domainevent.TypeConversationPhaseChanged}, receivedTypes)
}

func TestPostMessageOnCompleteConversationIsRejected(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewConversationRepository()
	bus := eventbus.New()
	handlers := commands.NewConversationHandlers(repo, commands.DirectBus(bus))

	c, err := handlers.StartConversation(ctx, ids.NewSessionID(), ids.NewComponentID(), "prompt", commands.Metadata{UserID: "user-4"})
	require.NoError(t, err)
	_, err = handlers.TransitionState(ctx, c.ID, conversation.StateReady, commands.Metadata{})
	require.NoError(t, err)
	_, err = handlers.TransitionState(ctx, c.ID, conversation.StateInProgress, commands.Metadata{})
	require.NoError(t, err)
	_, err = handlers.TransitionState(ctx, c.ID, conversation.StateComplete, commands.Metadata{})
	require.NoError(t, err)

	_, err = handlers.PostMessage(ctx, c.ID, conversation.RoleUser, "one more thing", "goal", conversation.TransitionConfig{}, commands.Metadata{})
	assert.Error(t, err)
}

func TestPostMessageUnknownConversationIsNotFound(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewConversationRepository()
	bus := eventbus.New()
	handlers := commands.NewConversationHandlers(repo, commands.DirectBus(bus))

	_, err := handlers.PostMessage(ctx, ids.NewConversationID(), conversation.RoleUser, "hi", "goal", conversation.TransitionConfig{}, commands.Metadata{})
	assert.Error(t, err)
}
