package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/codeready-toolchain/decisioncore/pkg/apperrors"
	"github.com/codeready-toolchain/decisioncore/pkg/conversation"
	"github.com/codeready-toolchain/decisioncore/pkg/ids"
)

// ConversationRepository is a database/sql-backed conversation.Repository.
type ConversationRepository struct {
	DB *sql.DB
}

// NewConversationRepository constructs a ConversationRepository over db.
func NewConversationRepository(db *sql.DB) *ConversationRepository {
	return &ConversationRepository{DB: db}
}

func scanConversation(row interface {
	Scan(dest ...any) error
}) (*conversation.Conversation, error) {
	var (
		id, sessionID, componentID, userID, state, agentPhase, systemPrompt string
		messagesJSON                                                       []byte
		createdAt, updatedAt                                               ids.Timestamp
		version                                                            int
	)
	if err := row.Scan(&id, &sessionID, &componentID, &userID, &state, &agentPhase, &messagesJSON,
		&systemPrompt, &createdAt, &updatedAt, &version); err != nil {
		return nil, err
	}

	var messages []conversation.Message
	if err := json.Unmarshal(messagesJSON, &messages); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	uid, err := ids.NewUserID(userID)
	if err != nil {
		return nil, err
	}

	return &conversation.Conversation{
		ID:           ids.ConversationID(id),
		SessionID:    ids.SessionID(sessionID),
		ComponentID:  ids.ComponentID(componentID),
		UserID:       uid,
		State:        conversation.State(state),
		AgentPhase:   conversation.Phase(agentPhase),
		Messages:     messages,
		SystemPrompt: systemPrompt,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
		Version:      version,
	}, nil
}

func (r *ConversationRepository) FindByID(ctx context.Context, id ids.ConversationID) (*conversation.Conversation, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, session_id, component_id, user_id, state, agent_phase, messages, system_prompt, created_at, updated_at, version
		FROM conversations WHERE id = $1`, id.String())

	c, err := scanConversation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("conversation", id.String())
		}
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	return c, nil
}

func (r *ConversationRepository) FindByComponentID(ctx context.Context, componentID ids.ComponentID) (*conversation.Conversation, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, session_id, component_id, user_id, state, agent_phase, messages, system_prompt, created_at, updated_at, version
		FROM conversations WHERE component_id = $1`, componentID.String())

	c, err := scanConversation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewNotFoundError("conversation", componentID.String())
		}
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	return c, nil
}

func (r *ConversationRepository) Save(ctx context.Context, c *conversation.Conversation) error {
	messagesJSON, err := json.Marshal(c.Messages)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}

	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO conversations (id, session_id, component_id, user_id, state, agent_phase, messages, system_prompt, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			agent_phase = EXCLUDED.agent_phase,
			messages = EXCLUDED.messages,
			updated_at = EXCLUDED.updated_at,
			version = EXCLUDED.version
		WHERE conversations.version < EXCLUDED.version`,
		c.ID.String(), c.SessionID.String(), c.ComponentID.String(), c.UserID.String(), string(c.State), string(c.AgentPhase),
		messagesJSON, c.SystemPrompt, c.CreatedAt, c.UpdatedAt, c.Version,
	)
	if err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return apperrors.NewConflictError("conversation", "stale version")
	}
	return nil
}
