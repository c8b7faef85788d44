package commands

import (
	"context"

	"github.com/codeready-toolchain/decisioncore/pkg/apperrors"
	"github.com/codeready-toolchain/decisioncore/pkg/ids"
	"github.com/codeready-toolchain/decisioncore/pkg/session"
)

// SessionHandlers bundles the Session repository with a publication
// strategy so every operation follows the uniform
// load-authorize-mutate-persist-publish shape of spec.md §4.11.
type SessionHandlers struct {
	Repo      session.Repository
	Publisher publisher
}

// NewSessionHandlers constructs a SessionHandlers.
func NewSessionHandlers(repo session.Repository, pub publisher) *SessionHandlers {
	return &SessionHandlers{Repo: repo, Publisher: pub}
}

// CreateSession creates a new Session owned by meta.UserID.
func (h *SessionHandlers) CreateSession(ctx context.Context, title, description string, meta Metadata) (*session.Session, error) {
	userID, err := ids.NewUserID(meta.UserID)
	if err != nil {
		return nil, err
	}

	s, env, err := session.New(userID, title, description)
	if err != nil {
		return nil, err
	}

	if err := h.Repo.Save(ctx, s); err != nil {
		return nil, err
	}

	if err := h.Publisher.publish(ctx, withMetadata(env, meta)); err != nil {
		return nil, err
	}

	return s, nil
}

// RenameSession loads, authorizes, and renames a Session.
func (h *SessionHandlers) RenameSession(ctx context.Context, id ids.SessionID, newTitle string, meta Metadata) (*session.Session, error) {
	s, err := h.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.NewNotFoundError("session", id.String())
	}

	userID, err := ids.NewUserID(meta.UserID)
	if err != nil {
		return nil, err
	}

	env, err := s.Rename(userID, newTitle)
	if err != nil {
		return nil, err
	}

	if err := h.Repo.Save(ctx, s); err != nil {
		return nil, err
	}

	if err := h.Publisher.publish(ctx, withMetadata(env, meta)); err != nil {
		return nil, err
	}

	return s, nil
}

// ArchiveSession loads, authorizes, and archives a Session.
func (h *SessionHandlers) ArchiveSession(ctx context.Context, id ids.SessionID, meta Metadata) (*session.Session, error) {
	s, err := h.Repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.NewNotFoundError("session", id.String())
	}

	userID, err := ids.NewUserID(meta.UserID)
	if err != nil {
		return nil, err
	}

	env, err := s.Archive(userID)
	if err != nil {
		return nil, err
	}

	if err := h.Repo.Save(ctx, s); err != nil {
		return nil, err
	}

	if err := h.Publisher.publish(ctx, withMetadata(env, meta)); err != nil {
		return nil, err
	}

	return s, nil
}
