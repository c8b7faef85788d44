package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/codeready-toolchain/decisioncore/pkg/domainevent"
	"github.com/codeready-toolchain/decisioncore/pkg/ids"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	marked  map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{marked: make(map[string]bool)}
}

func key(eventID ids.EventID, handlerName string) string {
	return string(eventID) + "|" + handlerName
}

func (f *fakeStore) Contains(ctx context.Context, eventID ids.EventID, handlerName string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.marked[key(eventID, handlerName)], nil
}

func (f *fakeStore) MarkProcessed(ctx context.Context, eventID ids.EventID, handlerName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.marked[key(eventID, handlerName)] = true
	return nil
}

func (f *fakeStore) DeleteBefore(ctx context.Context, before ids.Timestamp) (int, error) {
	return 0, nil
}

func TestIdempotentHandlerSkipsDuplicates(t *testing.T) {
	store := newFakeStore()
	count := 0
	inner := HandlerFunc{HandlerName: "counter", Fn: func(ctx context.Context, e domainevent.Envelope) error {
		count++
		return nil
	}}
	wrapped := NewIdempotentHandler(inner, store)

	env, err := domainevent.New("x.v1", domainevent.AggregateSession, "s1", map[string]string{}, domainevent.Metadata{})
	require.NoError(t, err)

	require.NoError(t, wrapped.Handle(context.Background(), env))
	require.NoError(t, wrapped.Handle(context.Background(), env))

	assert.Equal(t, 1, count)
}

func TestIdempotentHandlerRetriesAfterFailure(t *testing.T) {
	store := newFakeStore()
	attempts := 0
	inner := HandlerFunc{HandlerName: "flaky", Fn: func(ctx context.Context, e domainevent.Envelope) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	}}
	wrapped := NewIdempotentHandler(inner, store)

	env, err := domainevent.New("x.v1", domainevent.AggregateSession, "s1", map[string]string{}, domainevent.Metadata{})
	require.NoError(t, err)

	require.Error(t, wrapped.Handle(context.Background(), env))
	require.Error(t, wrapped.Handle(context.Background(), env))
	require.NoError(t, wrapped.Handle(context.Background(), env))
	require.NoError(t, wrapped.Handle(context.Background(), env))

	assert.Equal(t, 3, attempts)

	contained, err := store.Contains(context.Background(), env.EventID, "flaky")
	require.NoError(t, err)
	assert.True(t, contained)
}

func TestWithKeyedLockSerializesDuplicateDelivery(t *testing.T) {
	store := newFakeStore()
	count := 0
	inner := HandlerFunc{HandlerName: "counter", Fn: func(ctx context.Context, e domainevent.Envelope) error {
		count++
		return nil
	}}
	wrapped := NewIdempotentHandler(inner, store)
	locks := NewKeyedLock()
	serialized := WithKeyedLock(wrapped, locks)

	env, err := domainevent.New("x.v1", domainevent.AggregateSession, "s1", map[string]string{}, domainevent.Metadata{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = serialized.Handle(context.Background(), env)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, count)
}
