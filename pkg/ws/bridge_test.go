package ws

import (
	"context"
	"testing"

	"github.com/codeready-toolchain/decisioncore/pkg/domainevent"
	"github.com/codeready-toolchain/decisioncore/pkg/ids"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeRoutesUsingSessionAggregate(t *testing.T) {
	rooms := NewRoomManager(DefaultBufferSize)
	bridge := NewBridge(rooms, nil)

	sid := ids.NewSessionID()
	recv := rooms.Join(sid, "client-1")

	env, err := domainevent.New("session.created.v1", domainevent.AggregateSession, sid.String(),
		map[string]any{"title": "Relocate?"}, domainevent.Metadata{CorrelationID: "corr-1"})
	require.NoError(t, err)

	require.NoError(t, bridge.Handle(context.Background(), env))

	update := drain(t, recv)
	assert.Equal(t, string(UpdateSessionMetadata), update.UpdateType)
	assert.Equal(t, "corr-1", update.CorrelationID)
}

func TestBridgeRoutesUsingPayloadSessionIDForCycleEvents(t *testing.T) {
	rooms := NewRoomManager(DefaultBufferSize)
	bridge := NewBridge(rooms, nil)

	sid := ids.NewSessionID()
	recv := rooms.Join(sid, "client-1")

	env, err := domainevent.New(domainevent.TypeComponentCompleted, domainevent.AggregateCycle, "cycle-1",
		map[string]any{"session_id": sid.String(), "component_type": "objectives"}, domainevent.Metadata{})
	require.NoError(t, err)

	require.NoError(t, bridge.Handle(context.Background(), env))
	update := drain(t, recv)
	assert.Equal(t, string(UpdateComponentCompleted), update.UpdateType)
}

func TestBridgeIgnoresUnknownEventTypes(t *testing.T) {
	rooms := NewRoomManager(DefaultBufferSize)
	bridge := NewBridge(rooms, nil)

	env, err := domainevent.New("unrelated.event.v1", domainevent.AggregateSession, "sess-1", map[string]any{}, domainevent.Metadata{})
	require.NoError(t, err)

	err = bridge.Handle(context.Background(), env)
	assert.NoError(t, err)
}

func TestBridgeDropsWhenSessionUnresolvable(t *testing.T) {
	rooms := NewRoomManager(DefaultBufferSize)
	bridge := NewBridge(rooms, nil)

	env, err := domainevent.New(domainevent.TypeComponentCompleted, domainevent.AggregateCycle, "cycle-1",
		map[string]any{"component_type": "objectives"}, domainevent.Metadata{})
	require.NoError(t, err)

	err = bridge.Handle(context.Background(), env)
	assert.NoError(t, err)
}

func TestBridgeRoutesConversationMessageUsingSessionIDFromPayload(t *testing.T) {
	rooms := NewRoomManager(DefaultBufferSize)
	bridge := NewBridge(rooms, nil)

	sid := ids.NewSessionID()
	recv := rooms.Join(sid, "client-1")

	// Mirrors the real shape conversation.PostMessage publishes: session_id
	// resolved by the caller through the owning Cycle, not a hand-built
	// envelope that happens to already carry it.
	env, err := domainevent.New(domainevent.TypeConversationMessagePosted, domainevent.AggregateConversation, "conv-1",
		map[string]any{"session_id": sid.String(), "role": "user", "content": "two job offers"}, domainevent.Metadata{})
	require.NoError(t, err)

	require.NoError(t, bridge.Handle(context.Background(), env))
	update := drain(t, recv)
	assert.Equal(t, string(UpdateConversationMessage), update.UpdateType)
}

func TestBridgeEventTypesMatchesFixedSet(t *testing.T) {
	types := BridgeEventTypes()
	assert.Contains(t, types, domainevent.TypeComponentStarted)
	assert.Contains(t, types, "cycle.completed.v1")
}
