package memory

import (
	"context"
	"sync"

	"github.com/codeready-toolchain/decisioncore/pkg/ids"
)

// ProcessedEventStore is an in-memory eventbus.ProcessedEventStore.
type ProcessedEventStore struct {
	mu    sync.RWMutex
	marks map[string]ids.Timestamp
}

// NewProcessedEventStore constructs an empty ProcessedEventStore.
func NewProcessedEventStore() *ProcessedEventStore {
	return &ProcessedEventStore{marks: make(map[string]ids.Timestamp)}
}

func key(eventID ids.EventID, handlerName string) string {
	return eventID.String() + "|" + handlerName
}

// Contains reports whether (eventID, handlerName) was already marked.
func (s *ProcessedEventStore) Contains(ctx context.Context, eventID ids.EventID, handlerName string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.marks[key(eventID, handlerName)]
	return ok, nil
}

// MarkProcessed records (eventID, handlerName) as processed now.
func (s *ProcessedEventStore) MarkProcessed(ctx context.Context, eventID ids.EventID, handlerName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marks[key(eventID, handlerName)] = ids.Now()
	return nil
}

// DeleteBefore removes every mark recorded strictly before cutoff, returning
// the count removed.
func (s *ProcessedEventStore) DeleteBefore(ctx context.Context, cutoff ids.Timestamp) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k, ts := range s.marks {
		if ts.IsBefore(cutoff) {
			delete(s.marks, k)
			removed++
		}
	}
	return removed, nil
}
