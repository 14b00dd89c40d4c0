package service

import (
	"context"
	"time"

	"barangay/internal/platform/tracer"
	"barangay/internal/verification/models"
	dErrors "barangay/pkg/domain-errors"
	"barangay/pkg/platform/middleware/requesttime"
	"barangay/pkg/platform/outbox"
	txcontext "barangay/pkg/platform/tx"
)

// Transition moves a resident along one edge of the legal-edge table.
//
// The resident is read, the edge is judged against the status the caller
// observed, and the write is a compare-and-swap on the version read. The
// status write, the audit entry, the outbox event and any credential
// issuance commit together or not at all.
//
// Errors:
//   - CodeInvalidTransition when the edge is not in the table
//   - CodeConcurrentModification when the resident changed since the caller
//     (or this call) read it
//   - CodeNotFound, CodeForbidden, CodeValidation for bad input
func (s *Service) Transition(ctx context.Context, cmd *models.TransitionCommand) (result *TransitionResult, err error) {
	start := time.Now()
	cmd.Normalize()
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "verification.transition",
		tracer.String("resident_id", cmd.ResidentID.String()),
		tracer.String("target_status", cmd.Target.String()),
		tracer.String("actor_role", string(cmd.Actor.Role)),
	)
	defer func() {
		span.End(err)
		if err != nil {
			s.observeRejected(err)
		}
	}()

	if err := cmd.Authorize(); err != nil {
		return nil, err
	}
	now := requesttime.Now(ctx)

	snapshot, err := s.loadResident(ctx, cmd.ResidentID)
	if err != nil {
		return nil, err
	}
	observed := snapshot.Status
	if cmd.ExpectedStatus != nil {
		observed = *cmd.ExpectedStatus
	}

	resident := *snapshot
	if err := resident.ApplyTransition(observed, cmd.Target, now); err != nil {
		return nil, err
	}
	if cmd.ExpectedVersion != nil && *cmd.ExpectedVersion != snapshot.Version {
		return nil, models.ConcurrentModificationError(cmd.ResidentID)
	}

	entry, err := models.NewAuditEntry(resident.ID, models.ActionFor(cmd.Target), snapshot.Status, cmd.Target, cmd.Actor, cmd.Reason, now)
	if err != nil {
		return nil, err
	}
	result = &TransitionResult{Resident: &resident, Entry: entry}

	ctx = txcontext.WithLockKey(ctx, resident.ID.String())
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.swap(ctx, &resident, snapshot.Version); err != nil {
			return err
		}
		if err := s.audit.Append(ctx, entry); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append audit entry")
		}
		if err := s.appendEvent(ctx, outbox.EventVerificationTransition, residentEvent{
			ResidentID:     resident.ID.String(),
			PreviousStatus: snapshot.Status,
			NewStatus:      resident.Status,
			Version:        resident.Version,
			Actor:          &cmd.Actor,
			Reason:         cmd.Reason,
			OccurredAt:     now,
		}); err != nil {
			return err
		}
		return s.applyCredentialEffects(ctx, result, now)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementTransition(snapshot.Status.String(), resident.Status.String())
		s.metrics.ObserveTransitionLatency(time.Since(start).Seconds())
	}
	logArgs := []any{
		"resident_id", resident.ID.String(),
		"previous_status", snapshot.Status.String(),
		"new_status", resident.Status.String(),
		"version", resident.Version,
		"actor_id", cmd.Actor.ID.String(),
		"actor_role", string(cmd.Actor.Role),
	}
	if result.Credential != nil {
		logArgs = append(logArgs, "credential_id", result.Credential.ID.String())
	}
	s.logger.InfoContext(ctx, "verification status changed", logArgs...)
	return result, nil
}

// applyCredentialEffects issues on qualifying statuses and retires the
// active credential on rejection.
func (s *Service) applyCredentialEffects(ctx context.Context, result *TransitionResult, now time.Time) error {
	if s.issuer == nil {
		return nil
	}
	status := result.Resident.Status
	switch {
	case status.QualifiesForCredential():
		credential, err := s.issuer.Issue(ctx, result.Resident.ID, status, now)
		if err != nil {
			return err
		}
		result.Credential = credential
	case status == models.StatusRejected:
		if err := s.issuer.Retire(ctx, result.Resident.ID, now); err != nil {
			return err
		}
	}
	return nil
}

// Reopen returns a rejected resident to NonVerified. It is a separate,
// staff-only operation with a mandatory reason, audited as "reopened".
func (s *Service) Reopen(ctx context.Context, cmd *models.ReopenCommand) (result *TransitionResult, err error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	ctx, span := s.tracer.Start(ctx, "verification.reopen",
		tracer.String("resident_id", cmd.ResidentID.String()),
	)
	defer func() {
		span.End(err)
		if err != nil {
			s.observeRejected(err)
		}
	}()

	now := requesttime.Now(ctx)
	snapshot, err := s.loadResident(ctx, cmd.ResidentID)
	if err != nil {
		return nil, err
	}
	resident := *snapshot
	if err := resident.Reopen(now); err != nil {
		return nil, err
	}
	entry, err := models.NewAuditEntry(resident.ID, models.AuditActionReopened, snapshot.Status, resident.Status, cmd.Actor, cmd.Reason, now)
	if err != nil {
		return nil, err
	}

	ctx = txcontext.WithLockKey(ctx, resident.ID.String())
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.swap(ctx, &resident, snapshot.Version); err != nil {
			return err
		}
		if err := s.audit.Append(ctx, entry); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append audit entry")
		}
		return s.appendEvent(ctx, outbox.EventVerificationReopened, residentEvent{
			ResidentID:     resident.ID.String(),
			PreviousStatus: snapshot.Status,
			NewStatus:      resident.Status,
			Version:        resident.Version,
			Actor:          &cmd.Actor,
			Reason:         cmd.Reason,
			OccurredAt:     now,
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementReopens()
	}
	s.logger.InfoContext(ctx, "rejected case reopened",
		"resident_id", resident.ID.String(),
		"actor_id", cmd.Actor.ID.String(),
		"version", resident.Version,
	)
	return &TransitionResult{Resident: &resident, Entry: entry}, nil
}
