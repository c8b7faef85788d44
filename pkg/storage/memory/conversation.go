package memory

import (
	"context"
	"sync"

	"github.com/codeready-toolchain/decisioncore/pkg/apperrors"
	"github.com/codeready-toolchain/decisioncore/pkg/conversation"
	"github.com/codeready-toolchain/decisioncore/pkg/ids"
)

// ConversationRepository is an in-memory conversation.Repository.
type ConversationRepository struct {
	mu          sync.RWMutex
	items       map[string]*conversation.Conversation
	byComponent map[string]string
}

// NewConversationRepository constructs an empty ConversationRepository.
func NewConversationRepository() *ConversationRepository {
	return &ConversationRepository{
		items:       make(map[string]*conversation.Conversation),
		byComponent: make(map[string]string),
	}
}

func cloneConversation(c *conversation.Conversation) *conversation.Conversation {
	clone := *c
	clone.Messages = append([]conversation.Message(nil), c.Messages...)
	return &clone
}

// FindByID returns a deep-enough copy of the stored conversation.
func (r *ConversationRepository) FindByID(ctx context.Context, id ids.ConversationID) (*conversation.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.items[id.String()]
	if !ok {
		return nil, apperrors.NewNotFoundError("conversation", id.String())
	}
	return cloneConversation(c), nil
}

// FindByComponentID returns the conversation threading componentID's
// discussion, if any.
func (r *ConversationRepository) FindByComponentID(ctx context.Context, componentID ids.ComponentID) (*conversation.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byComponent[componentID.String()]
	if !ok {
		return nil, apperrors.NewNotFoundError("conversation", componentID.String())
	}
	return cloneConversation(r.items[id]), nil
}

// Save persists c, enforcing optimistic concurrency on Version.
func (r *ConversationRepository) Save(ctx context.Context, c *conversation.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := c.ID.String()
	existing, ok := r.items[key]
	if ok && existing.Version >= c.Version {
		return apperrors.NewConflictError("conversation", "stale version")
	}
	r.items[key] = cloneConversation(c)
	r.byComponent[c.ComponentID.String()] = key
	return nil
}
