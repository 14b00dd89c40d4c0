package service

import (
	"context"
	"errors"

	"barangay/internal/verification/models"
	"barangay/internal/verification/store"
	id "barangay/pkg/domain"
	dErrors "barangay/pkg/domain-errors"
	"barangay/pkg/platform/middleware/requesttime"
	"barangay/pkg/platform/outbox"
	txcontext "barangay/pkg/platform/tx"
)

// RegisterResident creates the verification record for a newly registered
// profile, starting at NonVerified.
func (s *Service) RegisterResident(ctx context.Context, residentID id.ResidentID) (*models.Resident, error) {
	if residentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "resident ID is required")
	}
	now := requesttime.Now(ctx)
	resident, err := models.NewResident(residentID, now)
	if err != nil {
		return nil, err
	}

	ctx = txcontext.WithLockKey(ctx, residentID.String())
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.residents.Create(ctx, resident); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "resident already registered")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to register resident")
		}
		return s.appendEvent(ctx, outbox.EventResidentRegistered, residentEvent{
			ResidentID: resident.ID.String(),
			NewStatus:  resident.Status,
			Version:    resident.Version,
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementRegistrations()
	}
	s.logger.InfoContext(ctx, "resident registered", "resident_id", resident.ID.String())
	return resident, nil
}

// GetResident returns the resident's current verification state.
func (s *Service) GetResident(ctx context.Context, residentID id.ResidentID) (*models.Resident, error) {
	return s.loadResident(ctx, residentID)
}

// AuditHistory returns the resident's audit trail oldest first.
func (s *Service) AuditHistory(ctx context.Context, residentID id.ResidentID) ([]*models.AuditEntry, error) {
	if _, err := s.loadResident(ctx, residentID); err != nil {
		return nil, err
	}
	entries, err := s.audit.ListByResident(ctx, residentID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load audit history")
	}
	return entries, nil
}
