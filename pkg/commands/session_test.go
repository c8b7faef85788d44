package commands_test

import (
	"context"
	"testing"

	"github.com/codeready-toolchain/decisioncore/pkg/apperrors"
	"github.com/codeready-toolchain/decisioncore/pkg/commands"
	"github.com/codeready-toolchain/decisioncore/pkg/domainevent"
	"github.com/codeready-toolchain/decisioncore/pkg/eventbus"
	"github.com/codeready-toolchain/decisioncore/pkg/ids"
	"github.com/codeready-toolchain/decisioncore/pkg/session"
	"github.com/codeready-toolchain/decisioncore/pkg/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSessionPublishesSessionCreated(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewSessionRepository()
	bus := eventbus.New()

	var receivedTypes []string
	bus.Subscribe(domainevent.TypeSessionCreated, eventbus.HandlerFunc{
		HandlerName: "recorder",
		Fn: func(ctx context.Context, env domainevent.Envelope) error {
			receivedTypes = append(receivedTypes, env.EventType)
			return nil
		},
	})

	handlers := commands.NewSessionHandlers(repo, commands.DirectBus(bus))
	s, err := handlers.CreateSession(ctx, "Pick a job offer", "comparing two offers", commands.Metadata{UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, session.StatusActive, s.Status)
	assert.Equal(t, []string{domainevent.TypeSessionCreated}, receivedTypes)

	stored, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.Title, stored.Title)
}

func TestCreateSessionRejectsBlankTitle(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewSessionRepository()
	handlers := commands.NewSessionHandlers(repo, commands.DirectBus(eventbus.New()))

	_, err := handlers.CreateSession(ctx, "   ", "", commands.Metadata{UserID: "user-1"})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindValidationFailed, apperrors.Kind(err))
}

func TestRenameSessionRejectsWrongOwner(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewSessionRepository()
	handlers := commands.NewSessionHandlers(repo, commands.DirectBus(eventbus.New()))

	s, err := handlers.CreateSession(ctx, "Pick a job offer", "", commands.Metadata{UserID: "owner"})
	require.NoError(t, err)

	_, err = handlers.RenameSession(ctx, s.ID, "New title", commands.Metadata{UserID: "intruder"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestArchiveSessionThenRejectsFurtherMutation(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewSessionRepository()
	handlers := commands.NewSessionHandlers(repo, commands.DirectBus(eventbus.New()))

	s, err := handlers.CreateSession(ctx, "Pick a job offer", "", commands.Metadata{UserID: "owner"})
	require.NoError(t, err)

	archived, err := handlers.ArchiveSession(ctx, s.ID, commands.Metadata{UserID: "owner"})
	require.NoError(t, err)
	assert.Equal(t, session.StatusArchived, archived.Status)

	_, err = handlers.RenameSession(ctx, s.ID, "too late", commands.Metadata{UserID: "owner"})
	assert.Error(t, err)
}

func TestRenameSessionUnknownIDIsNotFound(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewSessionRepository()
	handlers := commands.NewSessionHandlers(repo, commands.DirectBus(eventbus.New()))

	_, err := handlers.RenameSession(ctx, ids.NewSessionID(), "x", commands.Metadata{UserID: "owner"})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.Kind(err))
}
