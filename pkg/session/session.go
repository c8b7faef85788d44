// Package session implements the Session aggregate (C4): the top-level
// container a user creates to work through one or more decision cycles.
// Grounded on the teacher's transactional mutate-then-event shape in
// pkg/services/session_service.go, generalized from ent-backed CRUD to a
// pure in-memory aggregate that emits domain events through its own method
// set rather than directly touching a database.
package session

import (
	"context"
	"strings"

	"github.com/codeready-toolchain/decisioncore/pkg/apperrors"
	"github.com/codeready-toolchain/decisioncore/pkg/domainevent"
	"github.com/codeready-toolchain/decisioncore/pkg/ids"
	"github.com/codeready-toolchain/decisioncore/pkg/statemachine"
)

// Status is the Session lifecycle enum.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

var definition = statemachine.NewDefinition(map[Status][]Status{
	StatusActive:   {StatusArchived},
	StatusArchived: {},
})

// Session is the aggregate root. Fields are exported for repository
// adapters; mutation must go through the methods below so every change
// emits the matching domain event.
type Session struct {
	ID          ids.SessionID
	UserID      ids.UserID
	Title       string
	Description string
	Status      Status
	CycleIDs    []ids.CycleID
	CreatedAt   ids.Timestamp
	UpdatedAt   ids.Timestamp
	Version     int
}

// New constructs a brand-new, Active session owned by userID.
func New(userID ids.UserID, title, description string) (*Session, domainevent.Envelope, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" || len(trimmed) > 500 {
		return nil, domainevent.Envelope{}, apperrors.NewValidationError("title", "must be 1-500 characters after trimming")
	}

	now := ids.Now()
	s := &Session{
		ID:          ids.NewSessionID(),
		UserID:      userID,
		Title:       trimmed,
		Description: description,
		Status:      StatusActive,
		CycleIDs:    nil,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}

	env, err := domainevent.New(domainevent.TypeSessionCreated, domainevent.AggregateSession, s.ID.String(),
		map[string]any{"user_id": userID.String(), "title": s.Title, "description": s.Description},
		domainevent.Metadata{UserID: userID.String()},
	)
	if err != nil {
		return nil, domainevent.Envelope{}, err
	}
	return s, env, nil
}

// authorize enforces that only the owning user may mutate this session.
func (s *Session) authorize(userID ids.UserID) error {
	if s.UserID != userID {
		return apperrors.ErrForbidden
	}
	return nil
}

// ensureMutable rejects mutation of an Archived session.
func (s *Session) ensureMutable() error {
	if s.Status == StatusArchived {
		return apperrors.NewInvalidStateTransitionError(string(s.Status), string(s.Status))
	}
	return nil
}

// Rename changes the session's title, emitting session.renamed.
func (s *Session) Rename(userID ids.UserID, newTitle string) (domainevent.Envelope, error) {
	if err := s.authorize(userID); err != nil {
		return domainevent.Envelope{}, err
	}
	if err := s.ensureMutable(); err != nil {
		return domainevent.Envelope{}, err
	}

	trimmed := strings.TrimSpace(newTitle)
	if trimmed == "" || len(trimmed) > 500 {
		return domainevent.Envelope{}, apperrors.NewValidationError("title", "must be 1-500 characters after trimming")
	}

	oldTitle := s.Title
	s.Title = trimmed
	s.UpdatedAt = ids.Now()
	s.Version++

	return domainevent.New(domainevent.TypeSessionRenamed, domainevent.AggregateSession, s.ID.String(),
		map[string]any{"old_title": oldTitle, "new_title": trimmed},
		domainevent.Metadata{UserID: userID.String()},
	)
}

// UpdateDescription replaces the session's description.
func (s *Session) UpdateDescription(userID ids.UserID, newDescription string) (domainevent.Envelope, error) {
	if err := s.authorize(userID); err != nil {
		return domainevent.Envelope{}, err
	}
	if err := s.ensureMutable(); err != nil {
		return domainevent.Envelope{}, err
	}

	old := s.Description
	s.Description = newDescription
	s.UpdatedAt = ids.Now()
	s.Version++

	return domainevent.New("session.description_updated.v1", domainevent.AggregateSession, s.ID.String(),
		map[string]any{"old": old, "new": newDescription},
		domainevent.Metadata{UserID: userID.String()},
	)
}

// Archive transitions the session to its terminal Archived state.
func (s *Session) Archive(userID ids.UserID) (domainevent.Envelope, error) {
	if err := s.authorize(userID); err != nil {
		return domainevent.Envelope{}, err
	}
	if !definition.CanTransitionTo(s.Status, StatusArchived) {
		return domainevent.Envelope{}, apperrors.NewInvalidStateTransitionError(string(s.Status), string(StatusArchived))
	}

	s.Status = StatusArchived
	s.UpdatedAt = ids.Now()
	s.Version++

	return domainevent.New("session.archived.v1", domainevent.AggregateSession, s.ID.String(),
		map[string]any{}, domainevent.Metadata{UserID: userID.String()},
	)
}

// AddCycle appends cycleID to the session's cycle list. isRoot indicates
// whether this is the session's first (non-branched) cycle.
func (s *Session) AddCycle(userID ids.UserID, cycleID ids.CycleID, isRoot bool) (domainevent.Envelope, error) {
	if err := s.authorize(userID); err != nil {
		return domainevent.Envelope{}, err
	}
	if err := s.ensureMutable(); err != nil {
		return domainevent.Envelope{}, err
	}
	for _, existing := range s.CycleIDs {
		if existing == cycleID {
			return domainevent.Envelope{}, apperrors.NewConflictError("session.cycle_ids", "cycle already attached to session")
		}
	}

	s.CycleIDs = append(s.CycleIDs, cycleID)
	s.UpdatedAt = ids.Now()
	s.Version++

	return domainevent.New("session.cycle_added.v1", domainevent.AggregateSession, s.ID.String(),
		map[string]any{"cycle_id": cycleID.String(), "is_root": isRoot},
		domainevent.Metadata{UserID: userID.String()},
	)
}

// Repository is the capability contract a persistence adapter must
// implement for Session aggregates, per spec.md §6.4 and §9.
type Repository interface {
	FindByID(ctx context.Context, id ids.SessionID) (*Session, error)
	Save(ctx context.Context, s *Session) error
}
