package service

import (
	"context"
	"errors"
	"time"

	"barangay/internal/credential/models"
	"barangay/internal/credential/store"
	"barangay/internal/platform/tracer"
	id "barangay/pkg/domain"
)

// Validate judges a presented payload. It never fails: every problem is a
// reason code the counter operator can act on. Reasons are reported in the
// order malformed, checksum_mismatch, expired, resident_mismatch, superseded;
// malformed is always alone.
//
// When the credential is on record its stored fields are authoritative: a
// payload that disagrees with them counts as tampered, and expiry uses the
// stored expires_at. Store failures are logged, counted and the dependent
// checks skipped.
func (s *Service) Validate(ctx context.Context, raw string, now time.Time, expectedResidentID *id.ResidentID) models.ValidationResult {
	ctx, span := s.tracer.Start(ctx, "credential.validate")
	result := s.validate(ctx, raw, now, expectedResidentID)
	span.SetAttributes(tracer.Bool("valid", result.Valid), tracer.Int("reasons", len(result.Reasons)))
	span.End(nil)

	if s.metrics != nil {
		reasons := make([]string, 0, len(result.Reasons))
		for _, r := range result.Reasons {
			reasons = append(reasons, string(r))
		}
		s.metrics.ObserveValidation(result.Valid, reasons)
	}
	return result
}

func (s *Service) validate(ctx context.Context, raw string, now time.Time, expectedResidentID *id.ResidentID) models.ValidationResult {
	payload, err := models.ParsePayload(raw)
	if err != nil {
		return models.ValidationResult{Valid: false, Reasons: []models.ReasonCode{models.ReasonMalformed}}
	}

	record, superseded := s.lookup(ctx, payload)

	reasons := make([]models.ReasonCode, 0)
	if !s.checksum.Matches(payload) || (record != nil && !matchesRecord(payload, record)) {
		reasons = append(reasons, models.ReasonChecksumMismatch)
	}

	expiresAt := payload.ExpiresAt
	if record != nil {
		expiresAt = record.ExpiresAt
	}
	if !now.Before(expiresAt) {
		reasons = append(reasons, models.ReasonExpired)
	}

	if expectedResidentID != nil && expectedResidentID.String() != payload.ResidentID {
		reasons = append(reasons, models.ReasonResidentMismatch)
	}

	if superseded {
		reasons = append(reasons, models.ReasonSuperseded)
	}

	return models.ValidationResult{
		Valid:   len(reasons) == 0,
		Reasons: reasons,
		Payload: &payload,
	}
}

// lookup finds the record the payload claims to be and whether it has been
// superseded. With a cache configured, a payload for the resident's active
// credential is answered from the cached snapshot; any other id is read from
// the store. A nil record means the credential is unknown or the store could
// not answer.
func (s *Service) lookup(ctx context.Context, p models.Payload) (*models.ActiveSnapshot, bool) {
	credentialID, err := id.ParseCredentialID(p.CredentialID)
	if err != nil {
		return nil, false
	}

	if s.cache != nil {
		if residentID, err := id.ParseResidentID(p.ResidentID); err == nil {
			active, err := s.activeSnapshot(ctx, residentID)
			if err != nil {
				s.lookupFailed(ctx, credentialID, err)
				return nil, false
			}
			if active != nil && active.CredentialID == credentialID {
				return active, false
			}
		}
	}

	stored, err := s.store.FindByID(ctx, credentialID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.lookupFailed(ctx, credentialID, err)
		}
		return nil, false
	}
	return stored.Snapshot(), !stored.IsActive()
}

// activeSnapshot reads through the cache. A resident without an active
// credential yields nil and no error.
func (s *Service) activeSnapshot(ctx context.Context, residentID id.ResidentID) (*models.ActiveSnapshot, error) {
	snapshot, err := s.cache.Get(ctx, residentID)
	if err == nil {
		if s.metrics != nil {
			s.metrics.IncrementCacheHit()
		}
		return snapshot, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		s.logger.WarnContext(ctx, "active credential cache unavailable", "error", err)
	}
	if s.metrics != nil {
		s.metrics.IncrementCacheMiss()
	}

	active, err := s.store.FindActiveByResident(ctx, residentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	snapshot = active.Snapshot()
	s.remember(ctx, snapshot)
	return snapshot, nil
}

func (s *Service) lookupFailed(ctx context.Context, credentialID id.CredentialID, err error) {
	s.logger.WarnContext(ctx, "credential lookup failed during validation",
		"credential_id", credentialID.String(),
		"error", err,
	)
	if s.metrics != nil {
		s.metrics.IncrementLookupErrors()
	}
}

func matchesRecord(p models.Payload, r *models.ActiveSnapshot) bool {
	return p.ResidentID == r.ResidentID.String() &&
		p.Checksum == r.Checksum &&
		p.Version == r.Version &&
		p.IssuedAt.Equal(r.IssuedAt) &&
		p.ExpiresAt.Equal(r.ExpiresAt)
}
