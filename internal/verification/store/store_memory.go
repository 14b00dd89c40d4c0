package store

import (
	"context"
	"slices"
	"sync"

	"barangay/internal/verification/models"
	id "barangay/pkg/domain"
	txcontext "barangay/pkg/platform/tx"
)

// InMemoryResidentStore keeps residents in memory for tests and local runs.
type InMemoryResidentStore struct {
	mu        sync.RWMutex
	residents map[id.ResidentID]*models.Resident
}

// NewInMemoryResidentStore constructs an empty resident store.
func NewInMemoryResidentStore() *InMemoryResidentStore {
	return &InMemoryResidentStore{residents: make(map[id.ResidentID]*models.Resident)}
}

func (s *InMemoryResidentStore) Create(ctx context.Context, resident *models.Resident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.residents[resident.ID]; ok {
		return ErrConflict
	}
	copyResident := *resident
	s.residents[resident.ID] = &copyResident
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.residents, resident.ID)
	})
	return nil
}

func (s *InMemoryResidentStore) FindByID(_ context.Context, residentID id.ResidentID) (*models.Resident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	resident, ok := s.residents[residentID]
	if !ok {
		return nil, ErrNotFound
	}
	copyResident := *resident
	return &copyResident, nil
}

// LockByID reads the resident; the in-memory transaction runner already
// serializes writers on the same resident.
func (s *InMemoryResidentStore) LockByID(ctx context.Context, residentID id.ResidentID) (*models.Resident, error) {
	return s.FindByID(ctx, residentID)
}

// CompareAndSwap stores resident only if the stored version still equals expectedVersion.
func (s *InMemoryResidentStore) CompareAndSwap(ctx context.Context, resident *models.Resident, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.residents[resident.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != expectedVersion {
		return ErrVersionMoved
	}
	copyResident := *resident
	s.residents[resident.ID] = &copyResident
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.residents[current.ID] = current
	})
	return nil
}

// InMemoryAuditStore is an append-only audit log held in memory.
type InMemoryAuditStore struct {
	mu      sync.RWMutex
	entries map[id.ResidentID][]models.AuditEntry
}

// NewInMemoryAuditStore constructs an empty audit log.
func NewInMemoryAuditStore() *InMemoryAuditStore {
	return &InMemoryAuditStore{entries: make(map[id.ResidentID][]models.AuditEntry)}
}

func (s *InMemoryAuditStore) Append(ctx context.Context, entry *models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.ResidentID] = append(s.entries[entry.ResidentID], *entry)
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.entries[entry.ResidentID] = slices.DeleteFunc(s.entries[entry.ResidentID], func(e models.AuditEntry) bool {
			return e.ID == entry.ID
		})
	})
	return nil
}

// ListByResident returns entries in append order, which is chronological.
func (s *InMemoryAuditStore) ListByResident(_ context.Context, residentID id.ResidentID) ([]*models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.entries[residentID]
	out := make([]*models.AuditEntry, 0, len(stored))
	for i := range stored {
		entry := stored[i]
		out = append(out, &entry)
	}
	return out, nil
}
