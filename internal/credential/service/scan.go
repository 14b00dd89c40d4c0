package service

import (
	"context"
	"errors"
	"time"

	"barangay/internal/credential/models"
	"barangay/internal/credential/store"
	"barangay/internal/platform/tracer"
	id "barangay/pkg/domain"
	dErrors "barangay/pkg/domain-errors"
	txcontext "barangay/pkg/platform/tx"
)

// RecordScan appends a presentation event whatever the validation outcome.
// The only refusal is an unknown credential, which has nothing to append to.
func (s *Service) RecordScan(ctx context.Context, cmd *models.ScanCommand, now time.Time) (recorded *models.Credential, err error) {
	ctx, span := s.tracer.Start(ctx, "credential.record_scan")
	defer func() { span.End(err) }()

	cmd.Normalize()
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	span.SetAttributes(tracer.String("credential_id", cmd.CredentialID.String()))

	scan := &models.ScanEvent{
		ID:           id.NewScanID(),
		CredentialID: cmd.CredentialID,
		Timestamp:    now,
		Location:     cmd.Location,
		ScannedBy:    cmd.ScannedBy,
		Device:       cmd.Device,
		Outcome:      cmd.Outcome,
	}

	ctx = txcontext.WithLockKey(ctx, cmd.CredentialID.String())
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var txErr error
		recorded, txErr = s.store.AppendScan(ctx, scan)
		if errors.Is(txErr, store.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "credential not found")
		}
		if txErr != nil {
			return dErrors.Wrap(txErr, dErrors.CodeInternal, "failed to record scan")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementScans()
	}
	s.logger.InfoContext(ctx, "credential scanned",
		"credential_id", cmd.CredentialID.String(),
		"location", cmd.Location,
		"scanned_by", cmd.ScannedBy.String(),
		"scan_count", recorded.ScanCount,
	)
	return recorded, nil
}

// NeedsRefresh reports whether less than the refresh threshold remains before
// expiry. It is advisory and never affects Validate.
func (s *Service) NeedsRefresh(credential *models.Credential, now time.Time) bool {
	return credential.NeedsRefreshAt(now, s.refreshThreshold)
}

// Get loads a credential with its scan history.
func (s *Service) Get(ctx context.Context, credentialID id.CredentialID) (*models.Credential, error) {
	credential, err := s.store.FindByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "credential not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential")
	}
	return credential, nil
}

// GetActive returns the resident's active credential with its scan history.
// The read always goes to the store; the snapshot it yields warms the cache
// for the validations that usually follow.
func (s *Service) GetActive(ctx context.Context, residentID id.ResidentID) (*models.Credential, error) {
	credential, err := s.store.FindActiveByResident(ctx, residentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "resident has no active credential")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load active credential")
	}
	s.remember(ctx, credential.Snapshot())
	return credential, nil
}

// remember caches a snapshot; failures only cost a later store read.
func (s *Service) remember(ctx context.Context, snapshot *models.ActiveSnapshot) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, snapshot); err != nil {
		s.logger.WarnContext(ctx, "failed to cache active credential",
			"resident_id", snapshot.ResidentID.String(),
			"error", err,
		)
	}
}
