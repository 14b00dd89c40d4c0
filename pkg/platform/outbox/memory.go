package outbox

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	txcontext "barangay/pkg/platform/tx"
)

// InMemoryStore keeps outbox entries in memory for tests and local runs.
type InMemoryStore struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*Entry
	order   []uuid.UUID
}

// NewInMemoryStore constructs an empty outbox.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[uuid.UUID]*Entry)}
}

func (s *InMemoryStore) Append(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("outbox entry is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	previous, existed := s.entries[entry.ID]
	if !existed {
		s.order = append(s.order, entry.ID)
	}
	copyEntry := *entry
	s.entries[entry.ID] = &copyEntry
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if existed {
			s.entries[entry.ID] = previous
			return
		}
		delete(s.entries, entry.ID)
		s.order = slices.DeleteFunc(s.order, func(entryID uuid.UUID) bool { return entryID == entry.ID })
	})
	return nil
}

func (s *InMemoryStore) FetchUnprocessed(_ context.Context, limit int) ([]*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := make([]*Entry, 0)
	for _, entryID := range s.order {
		if e, ok := s.entries[entryID]; ok && e.IsPending() {
			copyEntry := *e
			pending = append(pending, &copyEntry)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (s *InMemoryStore) MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok || !e.IsPending() {
		return fmt.Errorf("outbox entry not found or already processed: %s", id)
	}
	t := processedAt
	e.ProcessedAt = &t
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if e, ok := s.entries[id]; ok {
			e.ProcessedAt = nil
		}
	})
	return nil
}

func (s *InMemoryStore) CountPending(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, e := range s.entries {
		if e.IsPending() {
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	kept := s.order[:0]
	for _, entryID := range s.order {
		e := s.entries[entryID]
		if e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			delete(s.entries, entryID)
			n++
			continue
		}
		kept = append(kept, entryID)
	}
	s.order = kept
	return n, nil
}

// List returns every entry, pending or not, oldest first. Test helper.
func (s *InMemoryStore) List() []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Entry, 0, len(s.order))
	for _, entryID := range s.order {
		copyEntry := *s.entries[entryID]
		out = append(out, &copyEntry)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
