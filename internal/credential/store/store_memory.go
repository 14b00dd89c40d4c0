package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"barangay/internal/credential/models"
	vmodels "barangay/internal/verification/models"
	id "barangay/pkg/domain"
	txcontext "barangay/pkg/platform/tx"
)

// InMemoryStore keeps credentials in memory for tests and local runs.
type InMemoryStore struct {
	mu          sync.RWMutex
	credentials map[id.CredentialID]*models.Credential
	byResident  map[id.ResidentID][]id.CredentialID
}

// NewInMemoryStore constructs an empty credential store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		credentials: make(map[id.CredentialID]*models.Credential),
		byResident:  make(map[id.ResidentID][]id.CredentialID),
	}
}

func (s *InMemoryStore) Create(ctx context.Context, credential *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.credentials[credential.ID]; ok {
		return ErrConflict
	}
	for _, existingID := range s.byResident[credential.ResidentID] {
		existing := s.credentials[existingID]
		if existing.Version == credential.Version {
			return ErrConflict
		}
		if existing.Status == credential.Status && existing.IssuedAt.Equal(credential.IssuedAt) {
			return ErrConflict
		}
		if existing.IsActive() && credential.IsActive() {
			return ErrConflict
		}
	}
	s.credentials[credential.ID] = cloneCredential(credential)
	s.byResident[credential.ResidentID] = append(s.byResident[credential.ResidentID], credential.ID)
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.credentials, credential.ID)
		s.byResident[credential.ResidentID] = slices.DeleteFunc(s.byResident[credential.ResidentID], func(c id.CredentialID) bool {
			return c == credential.ID
		})
	})
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, credentialID id.CredentialID) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	credential, ok := s.credentials[credentialID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneCredential(credential), nil
}

func (s *InMemoryStore) FindActiveByResident(_ context.Context, residentID id.ResidentID) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, credentialID := range s.byResident[residentID] {
		if c := s.credentials[credentialID]; c.IsActive() {
			return cloneCredential(c), nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) FindByIssuance(_ context.Context, residentID id.ResidentID, status vmodels.Status, issuedAt time.Time) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, credentialID := range s.byResident[residentID] {
		c := s.credentials[credentialID]
		if c.Status == status && c.IssuedAt.Equal(issuedAt) {
			return cloneCredential(c), nil
		}
	}
	return nil, ErrNotFound
}

// NextVersion returns one past the highest version issued to the resident.
func (s *InMemoryStore) NextVersion(_ context.Context, residentID id.ResidentID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	highest := 0
	for _, credentialID := range s.byResident[residentID] {
		if v := s.credentials[credentialID].Version; v > highest {
			highest = v
		}
	}
	return highest + 1, nil
}

// SupersedeActive retires the resident's active credential and returns it.
// ErrNotFound means there was nothing to retire.
func (s *InMemoryStore) SupersedeActive(ctx context.Context, residentID id.ResidentID, at time.Time) (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, credentialID := range s.byResident[residentID] {
		if c := s.credentials[credentialID]; c.IsActive() {
			c.Supersede(at)
			txcontext.OnRollback(ctx, func() {
				s.mu.Lock()
				defer s.mu.Unlock()
				if c, ok := s.credentials[credentialID]; ok {
					c.SupersededAt = nil
				}
			})
			return cloneCredential(c), nil
		}
	}
	return nil, ErrNotFound
}

// AppendScan stores the scan and bumps the credential's counters.
func (s *InMemoryStore) AppendScan(ctx context.Context, scan *models.ScanEvent) (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.credentials[scan.CredentialID]
	if !ok {
		return nil, ErrNotFound
	}
	scans, scanCount, lastScannedAt := c.Scans, c.ScanCount, c.LastScannedAt
	c.RecordScan(*scan)
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.credentials[scan.CredentialID]; ok {
			c.Scans, c.ScanCount, c.LastScannedAt = scans, scanCount, lastScannedAt
		}
	})
	return cloneCredential(c), nil
}

func cloneCredential(c *models.Credential) *models.Credential {
	out := *c
	if c.LastScannedAt != nil {
		t := *c.LastScannedAt
		out.LastScannedAt = &t
	}
	if c.SupersededAt != nil {
		t := *c.SupersededAt
		out.SupersededAt = &t
	}
	out.Scans = make([]models.ScanEvent, len(c.Scans))
	copy(out.Scans, c.Scans)
	return &out
}
