// Package conversation implements the Conversation aggregate (C4): the
// per-component chat exchange through which a user's free-form input is
// gathered, clarified, and extracted into a structured component output.
// The aggregate's state machine follows the teacher's ent-schema status
// enum convention; the phase engine (phase.go) is new domain logic grounded
// directly on spec.md §4.6, with no teacher analogue.
package conversation

import (
	"context"

	"github.com/codeready-toolchain/decisioncore/pkg/apperrors"
	"github.com/codeready-toolchain/decisioncore/pkg/domainevent"
	"github.com/codeready-toolchain/decisioncore/pkg/ids"
	"github.com/codeready-toolchain/decisioncore/pkg/statemachine"
)

// State is the Conversation lifecycle enum.
type State string

const (
	StateInitializing State = "initializing"
	StateReady        State = "ready"
	StateInProgress   State = "in_progress"
	StateConfirmed    State = "confirmed"
	StateComplete     State = "complete"
)

var definition = statemachine.NewDefinition(map[State][]State{
	StateInitializing: {StateReady},
	StateReady:        {StateInProgress},
	StateInProgress:   {StateConfirmed, StateComplete},
	StateConfirmed:    {StateInProgress, StateComplete},
	StateComplete:     {},
})

// MessageRole identifies the speaker of a Message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one turn in the conversation transcript.
type Message struct {
	Role      MessageRole
	Content   string
	Timestamp ids.Timestamp
}

// Conversation is the aggregate root.
type Conversation struct {
	ID            ids.ConversationID
	SessionID     ids.SessionID
	ComponentID   ids.ComponentID
	UserID        ids.UserID
	State         State
	AgentPhase    Phase
	Messages      []Message
	SystemPrompt  string
	CreatedAt     ids.Timestamp
	UpdatedAt     ids.Timestamp
	Version       int
}

// New constructs a fresh Initializing conversation for componentID, owned by
// the Cycle (and therefore Session) the caller resolved componentID against.
func New(sessionID ids.SessionID, componentID ids.ComponentID, userID ids.UserID, systemPrompt string) *Conversation {
	now := ids.Now()
	return &Conversation{
		ID:           ids.NewConversationID(),
		SessionID:    sessionID,
		ComponentID:  componentID,
		UserID:       userID,
		State:        StateInitializing,
		AgentPhase:   PhaseIntro,
		SystemPrompt: systemPrompt,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}
}

// TransitionTo moves the conversation to a new State along a declared edge.
func (c *Conversation) TransitionTo(newState State) error {
	if !definition.CanTransitionTo(c.State, newState) {
		return apperrors.NewInvalidStateTransitionError(string(c.State), string(newState))
	}
	c.State = newState
	c.UpdatedAt = ids.Now()
	c.Version++
	return nil
}

// userMessageCount returns the number of User-role messages posted so far.
func (c *Conversation) userMessageCount() int {
	count := 0
	for _, m := range c.Messages {
		if m.Role == RoleUser {
			count++
		}
	}
	return count
}

func (c *Conversation) latestUserMessage() string {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleUser {
			return c.Messages[i].Content
		}
	}
	return ""
}

// PostMessage appends a message and recomputes the agent phase via the
// phase engine, returning the emitted events (message posted, and a phase
// changed event if the phase moved).
func (c *Conversation) PostMessage(role MessageRole, content string, componentType string, cfg TransitionConfig) ([]domainevent.Envelope, error) {
	if c.State == StateComplete {
		return nil, apperrors.NewInvalidStateTransitionError(string(c.State), string(c.State))
	}

	msg := Message{Role: role, Content: content, Timestamp: ids.Now()}
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = ids.Now()
	c.Version++

	postedEnv, err := domainevent.New(domainevent.TypeConversationMessagePosted, domainevent.AggregateConversation, c.ID.String(),
		map[string]any{"session_id": c.SessionID.String(), "role": string(role), "content": content}, domainevent.Metadata{UserID: c.UserID.String()},
	)
	if err != nil {
		return nil, err
	}
	events := []domainevent.Envelope{postedEnv}

	if role != RoleUser {
		return events, nil
	}

	snap := Snapshot{
		UserMessageCount:  c.userMessageCount(),
		LatestUserMessage: c.latestUserMessage(),
		ComponentType:     componentType,
	}
	nextPhase := NextPhase(c.AgentPhase, snap, cfg)
	if nextPhase != c.AgentPhase {
		oldPhase := c.AgentPhase
		c.AgentPhase = nextPhase
		c.UpdatedAt = ids.Now()
		c.Version++

		phaseEnv, err := domainevent.New(domainevent.TypeConversationPhaseChanged, domainevent.AggregateConversation, c.ID.String(),
			map[string]any{"session_id": c.SessionID.String(), "old_phase": string(oldPhase), "new_phase": string(nextPhase)}, domainevent.Metadata{UserID: c.UserID.String()},
		)
		if err != nil {
			return nil, err
		}
		events = append(events, phaseEnv)
	}

	return events, nil
}

// Repository is the capability contract for Conversation persistence.
type Repository interface {
	FindByID(ctx context.Context, id ids.ConversationID) (*Conversation, error)
	FindByComponentID(ctx context.Context, componentID ids.ComponentID) (*Conversation, error)
	Save(ctx context.Context, c *Conversation) error
}
