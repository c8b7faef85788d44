package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/codeready-toolchain/decisioncore/pkg/apperrors"
	"github.com/codeready-toolchain/decisioncore/pkg/domainevent"
	"github.com/codeready-toolchain/decisioncore/pkg/ids"
	"github.com/codeready-toolchain/decisioncore/pkg/membership"
	"github.com/codeready-toolchain/decisioncore/pkg/outbox"
	"github.com/codeready-toolchain/decisioncore/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepositoryRejectsStaleVersion(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()

	uid, err := ids.NewUserID("user-1")
	require.NoError(t, err)

	s, _, err := session.New(uid, "Relocate to Denver?", "")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, s))

	loadedA, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)
	loadedB, err := repo.FindByID(ctx, s.ID)
	require.NoError(t, err)

	_, err = loadedA.Rename(uid, "New title A")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, loadedA))

	_, err = loadedB.Rename(uid, "New title B")
	require.NoError(t, err)
	err = repo.Save(ctx, loadedB)
	var conflict *apperrors.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestMembershipRepositoryFindByUserID(t *testing.T) {
	repo := NewMembershipRepository()
	ctx := context.Background()

	uid, err := ids.NewUserID("user-2")
	require.NoError(t, err)
	period := membership.BillingPeriod{Start: ids.Now(), End: ids.Now().AddDays(30)}
	m, _, err := membership.New(uid, period)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, m))

	found, err := repo.FindByUserID(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, m.ID, found.ID)
}

func TestOutboxStoreDequeueRespectsNextAttemptAt(t *testing.T) {
	store := NewOutboxStore(outbox.DefaultBackoffConfig())
	ctx := context.Background()

	env, err := domainevent.New(domainevent.TypeSessionCreated, domainevent.AggregateSession, "sess-1", map[string]any{}, domainevent.Metadata{})
	require.NoError(t, err)
	require.NoError(t, store.Enqueue(ctx, []domainevent.Envelope{env}))

	batch, err := store.DequeueBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 1)

	require.NoError(t, store.MarkFailed(ctx, env.EventID, errors.New("publish failed")))

	batch, err = store.DequeueBatch(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, batch, "record should not be due again until its backoff delay elapses")
}

func TestOutboxStorePoisonsAfterMaxAttempts(t *testing.T) {
	backoff := outbox.DefaultBackoffConfig()
	backoff.MaxAttempts = 2
	backoff.Base = time.Millisecond
	store := NewOutboxStore(backoff)
	ctx := context.Background()

	env, err := domainevent.New(domainevent.TypeSessionCreated, domainevent.AggregateSession, "sess-2", map[string]any{}, domainevent.Metadata{})
	require.NoError(t, err)
	require.NoError(t, store.Enqueue(ctx, []domainevent.Envelope{env}))

	require.NoError(t, store.MarkFailed(ctx, env.EventID, errors.New("first failure")))
	require.NoError(t, store.MarkFailed(ctx, env.EventID, errors.New("second failure")))

	store.mu.Lock()
	rec := store.records[env.EventID.String()]
	store.mu.Unlock()
	assert.Equal(t, outbox.StatusPoisoned, rec.Status)
}

func TestProcessedEventStoreDeleteBefore(t *testing.T) {
	store := NewProcessedEventStore()
	ctx := context.Background()

	eventID := ids.NewEventID()
	require.NoError(t, store.MarkProcessed(ctx, eventID, "handler-a"))

	cutoff := ids.Now().Add(time.Hour)
	removed, err := store.DeleteBefore(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	contains, err := store.Contains(ctx, eventID, "handler-a")
	require.NoError(t, err)
	assert.False(t, contains)
}
