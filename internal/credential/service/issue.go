package service

import (
	"context"
	"errors"
	"time"

	"barangay/internal/credential/models"
	"barangay/internal/credential/store"
	"barangay/internal/platform/tracer"
	vmodels "barangay/internal/verification/models"
	id "barangay/pkg/domain"
	dErrors "barangay/pkg/domain-errors"
	"barangay/pkg/platform/outbox"
	txcontext "barangay/pkg/platform/tx"
)

// Issue mints a credential for a resident who reached a qualifying status and
// retires the previous active one.
//
// Retrying with the same (residentID, status, now) returns the credential the
// first call created instead of minting another. Called from inside a
// transition it joins that transaction.
func (s *Service) Issue(ctx context.Context, residentID id.ResidentID, status vmodels.Status, now time.Time) (issued *models.Credential, err error) {
	ctx, span := s.tracer.Start(ctx, "credential.issue",
		tracer.String("resident_id", residentID.String()),
		tracer.String("status", status.String()),
	)
	defer func() { span.End(err) }()

	if residentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "resident ID is required")
	}
	if !status.QualifiesForCredential() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "status "+status.String()+" does not qualify for a credential")
	}
	issuedAt := models.CanonicalTime(now)

	var replayed bool
	var superseded *models.Credential
	ctx = txcontext.WithLockKey(ctx, residentID.String())
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var txErr error
		issued, replayed, superseded, txErr = s.issueInTx(ctx, residentID, status, issuedAt)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	if replayed {
		span.AddEvent("credential.replayed", tracer.String("credential_id", issued.ID.String()))
		return issued, nil
	}
	s.invalidate(ctx, residentID)
	if s.metrics != nil {
		s.metrics.IncrementIssued(status.String())
		if superseded != nil {
			s.metrics.IncrementSuperseded()
		}
	}
	s.logger.InfoContext(ctx, "credential issued",
		"resident_id", residentID.String(),
		"credential_id", issued.ID.String(),
		"status", status.String(),
		"version", issued.Version,
	)
	return issued, nil
}

func (s *Service) issueInTx(ctx context.Context, residentID id.ResidentID, status vmodels.Status, issuedAt time.Time) (*models.Credential, bool, *models.Credential, error) {
	existing, err := s.store.FindByIssuance(ctx, residentID, status, issuedAt)
	if err == nil {
		return existing, true, nil, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check prior issuance")
	}

	version, err := s.store.NextVersion(ctx, residentID)
	if err != nil {
		return nil, false, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate credential version")
	}
	credential, err := models.NewCredential(id.NewCredentialID(), residentID, status, issuedAt, s.validityWindow, version, s.checksum)
	if err != nil {
		return nil, false, nil, err
	}

	superseded, err := s.store.SupersedeActive(ctx, residentID, issuedAt)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, false, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to supersede active credential")
	}
	if err := s.store.Create(ctx, credential); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// A concurrent issuer committed the same issuance first.
			if superseded == nil {
				if existing, findErr := s.store.FindByIssuance(ctx, residentID, status, issuedAt); findErr == nil {
					return existing, true, nil, nil
				}
			}
			return nil, false, nil, dErrors.Wrap(err, dErrors.CodeConcurrentModification,
				"credential was issued concurrently for this resident")
		}
		return nil, false, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save credential")
	}

	if superseded != nil {
		if err := s.appendEvent(ctx, outbox.EventCredentialSuperseded, superseded, issuedAt); err != nil {
			return nil, false, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record supersede event")
		}
	}
	if err := s.appendEvent(ctx, outbox.EventCredentialIssued, credential, issuedAt); err != nil {
		return nil, false, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record issue event")
	}
	return credential, false, superseded, nil
}

// IssueForResident re-issues a credential for the resident's current status,
// e.g. when the active one needs a refresh. The resident must hold a
// qualifying status.
func (s *Service) IssueForResident(ctx context.Context, residentID id.ResidentID, now time.Time) (*models.Credential, error) {
	if residentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "resident ID is required")
	}

	var issued *models.Credential
	ctx = txcontext.WithLockKey(ctx, residentID.String())
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		resident, err := s.residents.LockByID(ctx, residentID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "resident not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load resident")
		}
		if !resident.Status.QualifiesForCredential() {
			return dErrors.New(dErrors.CodeInvariantViolation,
				"resident status "+resident.Status.String()+" does not qualify for a credential")
		}
		issued, err = s.Issue(ctx, residentID, resident.Status, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return issued, nil
}

// Retire supersedes the resident's active credential without issuing a new
// one. Having nothing to retire is not an error.
func (s *Service) Retire(ctx context.Context, residentID id.ResidentID, now time.Time) error {
	var retired *models.Credential
	ctx = txcontext.WithLockKey(ctx, residentID.String())
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		retired, err = s.store.SupersedeActive(ctx, residentID, models.CanonicalTime(now))
		if errors.Is(err, store.ErrNotFound) {
			retired = nil
			return nil
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to retire credential")
		}
		if err := s.appendEvent(ctx, outbox.EventCredentialSuperseded, retired, now); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record supersede event")
		}
		return nil
	})
	if err != nil {
		return err
	}
	if retired != nil {
		s.invalidate(ctx, residentID)
		if s.metrics != nil {
			s.metrics.IncrementSuperseded()
		}
	}
	return nil
}
