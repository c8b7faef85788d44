package commands

import (
	"context"

	"github.com/codeready-toolchain/decisioncore/pkg/apperrors"
	"github.com/codeready-toolchain/decisioncore/pkg/conversation"
	"github.com/codeready-toolchain/decisioncore/pkg/domainevent"
	"github.com/codeready-toolchain/decisioncore/pkg/ids"
)

// ConversationHandlers bundles the Conversation repository with a
// publication strategy.
type ConversationHandlers struct {
	Repo      conversation.Repository
	Publisher publisher
}

// NewConversationHandlers constructs a ConversationHandlers.
func NewConversationHandlers(repo conversation.Repository, pub publisher) *ConversationHandlers {
	return &ConversationHandlers{Repo: repo, Publisher: pub}
}

// StartConversation creates a fresh Initializing conversation for componentID
// and persists it. sessionID is the owning Session, resolved by the caller
// through the Cycle componentID belongs to, and is stamped onto every event
// the conversation later publishes so the ws bridge can route it. No event
// is emitted here: the Conversation aggregate only produces events once
// messages start flowing.
func (h *ConversationHandlers) StartConversation(ctx context.Context, sessionID ids.SessionID, componentID ids.ComponentID, systemPrompt string, meta Metadata) (*conversation.Conversation, error) {
	userID, err := ids.NewUserID(meta.UserID)
	if err != nil {
		return nil, err
	}

	c := conversation.New(sessionID, componentID, userID, systemPrompt)
	if err := h.Repo.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// TransitionState loads conversation id and moves it to newState.
func (h *ConversationHandlers) TransitionState(ctx context.Context, id ids.ConversationID, newState conversation.State, meta Metadata) (*conversation.Conversation, error) {
	c, err := h.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.NewNotFoundError("conversation", id.String())
	}

	if err := c.TransitionTo(newState); err != nil {
		return nil, err
	}
	if err := h.Repo.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// PostMessage loads conversation id, appends a message, and publishes the
// resulting message-posted (and possibly phase-changed) events.
func (h *ConversationHandlers) PostMessage(ctx context.Context, id ids.ConversationID, role conversation.MessageRole, content string, componentType string, cfg conversation.TransitionConfig, meta Metadata) (*conversation.Conversation, error) {
	c, err := h.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.NewNotFoundError("conversation", id.String())
	}

	events, err := c.PostMessage(role, content, componentType, cfg)
	if err != nil {
		return nil, err
	}
	if err := h.Repo.Save(ctx, c); err != nil {
		return nil, err
	}

	stamped := make([]domainevent.Envelope, len(events))
	for i, env := range events {
		stamped[i] = withMetadata(env, meta)
	}
	if err := h.Publisher.publish(ctx, stamped...); err != nil {
		return nil, err
	}
	return c, nil
}
