package service

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/mock/gomock"

	cmodels "barangay/internal/credential/models"
	"barangay/internal/verification/models"
	"barangay/internal/verification/store"
	id "barangay/pkg/domain"
	dErrors "barangay/pkg/domain-errors"
	"barangay/pkg/platform/middleware/requesttime"
)

// =============================================================================
// Transition - refusals never write
// =============================================================================

func (s *ServiceSuite) TestTransition_IllegalEdgeWritesNothing() {
	s.mockResidents.EXPECT().FindByID(gomock.Any(), s.residentID).Return(s.resident(models.StatusNonVerified, 0), nil)

	_, err := s.service.Transition(context.Background(), &models.TransitionCommand{
		ResidentID: s.residentID,
		Target:     models.StatusVerified,
		Actor:      s.official,
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.TransitionsRejected.WithLabelValues("invalid_transition")))
}

func (s *ServiceSuite) TestTransition_StaleObservedStatus() {
	s.Run("illegal edge from the observed status wins", func() {
		s.mockResidents.EXPECT().FindByID(gomock.Any(), s.residentID).Return(s.resident(models.StatusSemiVerified, 2), nil)
		observed := models.StatusNonVerified

		_, err := s.service.Transition(context.Background(), &models.TransitionCommand{
			ResidentID:     s.residentID,
			Target:         models.StatusVerified,
			Actor:          s.official,
			ExpectedStatus: &observed,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("legal edge from a stale status is a concurrent modification", func() {
		s.mockResidents.EXPECT().FindByID(gomock.Any(), s.residentID).Return(s.resident(models.StatusVerified, 3), nil)
		observed := models.StatusSemiVerified

		_, err := s.service.Transition(context.Background(), &models.TransitionCommand{
			ResidentID:     s.residentID,
			Target:         models.StatusRejected,
			Actor:          s.official,
			ExpectedStatus: &observed,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConcurrentModification))
	})

	s.Run("stale version is a concurrent modification", func() {
		s.mockResidents.EXPECT().FindByID(gomock.Any(), s.residentID).Return(s.resident(models.StatusDetailsUpdated, 4), nil)
		version := 1

		_, err := s.service.Transition(context.Background(), &models.TransitionCommand{
			ResidentID:      s.residentID,
			Target:          models.StatusSemiVerified,
			Actor:           s.official,
			ExpectedVersion: &version,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConcurrentModification))
	})
}

func (s *ServiceSuite) TestTransition_LostCompareAndSwap() {
	s.mockResidents.EXPECT().FindByID(gomock.Any(), s.residentID).Return(s.resident(models.StatusSemiVerified, 2), nil)
	s.mockResidents.EXPECT().CompareAndSwap(gomock.Any(), gomock.Any(), 2).Return(store.ErrVersionMoved)

	_, err := s.service.Transition(context.Background(), &models.TransitionCommand{
		ResidentID: s.residentID,
		Target:     models.StatusVerified,
		Actor:      s.official,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeConcurrentModification))
}

func (s *ServiceSuite) TestTransition_UnknownResident() {
	s.mockResidents.EXPECT().FindByID(gomock.Any(), s.residentID).Return(nil, store.ErrNotFound)

	_, err := s.service.Transition(context.Background(), &models.TransitionCommand{
		ResidentID: s.residentID,
		Target:     models.StatusDetailsUpdated,
		Actor:      s.official,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestTransition_ActorPolicy() {
	s.Run("resident cannot approve themselves", func() {
		_, err := s.service.Transition(context.Background(), &models.TransitionCommand{
			ResidentID: s.residentID,
			Target:     models.StatusSemiVerified,
			Actor:      models.Actor{ID: id.ActorID(s.residentID.String()), Role: models.RoleResident},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("resident cannot update someone else", func() {
		_, err := s.service.Transition(context.Background(), &models.TransitionCommand{
			ResidentID: s.residentID,
			Target:     models.StatusDetailsUpdated,
			Actor:      models.Actor{ID: "someone-else", Role: models.RoleResident},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *ServiceSuite) TestTransition_IssuerFailureFailsTheTransition() {
	s.mockResidents.EXPECT().FindByID(gomock.Any(), s.residentID).Return(s.resident(models.StatusDetailsUpdated, 1), nil)
	s.mockResidents.EXPECT().CompareAndSwap(gomock.Any(), gomock.Any(), 1).Return(nil)
	s.mockAudit.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
	s.mockOutbox.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
	s.mockIssuer.EXPECT().Issue(gomock.Any(), s.residentID, models.StatusSemiVerified, gomock.Any()).
		Return(nil, dErrors.New(dErrors.CodeInternal, "credential store down"))

	_, err := s.service.Transition(context.Background(), &models.TransitionCommand{
		ResidentID: s.residentID,
		Target:     models.StatusSemiVerified,
		Actor:      s.official,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ServiceSuite) TestTransition_AuditFailureIsInternal() {
	s.mockResidents.EXPECT().FindByID(gomock.Any(), s.residentID).Return(s.resident(models.StatusNonVerified, 0), nil)
	s.mockResidents.EXPECT().CompareAndSwap(gomock.Any(), gomock.Any(), 0).Return(nil)
	s.mockAudit.EXPECT().Append(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	_, err := s.service.Transition(context.Background(), &models.TransitionCommand{
		ResidentID: s.residentID,
		Target:     models.StatusDetailsUpdated,
		Actor:      s.official,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

// =============================================================================
// Transition - accepted changes
// =============================================================================

func (s *ServiceSuite) TestTransition_QualifyingStatusIssues() {
	ctx := requesttime.WithTime(context.Background(), s.t0)
	issued := &cmodels.Credential{ID: id.NewCredentialID(), ResidentID: s.residentID, Status: models.StatusVerified}

	s.mockResidents.EXPECT().FindByID(gomock.Any(), s.residentID).Return(s.resident(models.StatusSemiVerified, 2), nil)
	gomock.InOrder(
		s.mockResidents.EXPECT().CompareAndSwap(gomock.Any(), gomock.Any(), 2).DoAndReturn(
			func(_ context.Context, r *models.Resident, _ int) error {
				s.Equal(models.StatusVerified, r.Status)
				s.Equal(3, r.Version)
				return nil
			}),
		s.mockAudit.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, e *models.AuditEntry) error {
				s.Equal(models.StatusSemiVerified, e.PreviousStatus)
				s.Equal(models.StatusVerified, e.NewStatus)
				s.Equal(s.official, e.ApprovedBy)
				s.Equal(s.t0, e.Timestamp)
				return nil
			}),
		s.mockOutbox.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil),
		s.mockIssuer.EXPECT().Issue(gomock.Any(), s.residentID, models.StatusVerified, s.t0).Return(issued, nil),
	)

	result, err := s.service.Transition(ctx, &models.TransitionCommand{
		ResidentID: s.residentID,
		Target:     models.StatusVerified,
		Actor:      s.official,
		Reason:     "  documents checked at the hall  ",
	})
	s.Require().NoError(err)
	s.Equal(issued, result.Credential)
	s.Equal("documents checked at the hall", result.Entry.Reason)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.TransitionsTotal.WithLabelValues("semi_verified", "verified")))
}

func (s *ServiceSuite) TestTransition_RejectionRetiresCredential() {
	s.mockResidents.EXPECT().FindByID(gomock.Any(), s.residentID).Return(s.resident(models.StatusSemiVerified, 2), nil)
	s.mockResidents.EXPECT().CompareAndSwap(gomock.Any(), gomock.Any(), 2).Return(nil)
	s.mockAudit.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
	s.mockOutbox.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)
	s.mockIssuer.EXPECT().Retire(gomock.Any(), s.residentID, gomock.Any()).Return(nil)

	result, err := s.service.Transition(context.Background(), &models.TransitionCommand{
		ResidentID: s.residentID,
		Target:     models.StatusRejected,
		Actor:      s.official,
		Reason:     "forged document",
	})
	s.Require().NoError(err)
	s.Nil(result.Credential)
	s.Equal(models.StatusRejected, result.Resident.Status)
}

// =============================================================================
// Reopen / Register / History
// =============================================================================

func (s *ServiceSuite) TestReopen() {
	s.Run("only rejected cases reopen", func() {
		s.mockResidents.EXPECT().FindByID(gomock.Any(), s.residentID).Return(s.resident(models.StatusVerified, 3), nil)

		_, err := s.service.Reopen(context.Background(), &models.ReopenCommand{ResidentID: s.residentID, Actor: s.official, Reason: "appeal"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("audits the reopen", func() {
		s.mockResidents.EXPECT().FindByID(gomock.Any(), s.residentID).Return(s.resident(models.StatusRejected, 3), nil)
		s.mockResidents.EXPECT().CompareAndSwap(gomock.Any(), gomock.Any(), 3).Return(nil)
		s.mockAudit.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, e *models.AuditEntry) error {
				s.Equal(models.AuditActionReopened, e.Action)
				s.Equal(models.StatusRejected, e.PreviousStatus)
				s.Equal(models.StatusNonVerified, e.NewStatus)
				return nil
			})
		s.mockOutbox.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)

		result, err := s.service.Reopen(context.Background(), &models.ReopenCommand{ResidentID: s.residentID, Actor: s.official, Reason: "appeal upheld"})
		s.Require().NoError(err)
		s.Equal(4, result.Resident.Version)
	})

	s.Run("residents cannot reopen", func() {
		_, err := s.service.Reopen(context.Background(), &models.ReopenCommand{
			ResidentID: s.residentID,
			Actor:      models.Actor{ID: "r", Role: models.RoleResident},
			Reason:     "please",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *ServiceSuite) TestRegisterResident() {
	s.Run("duplicate registration conflicts", func() {
		s.mockResidents.EXPECT().Create(gomock.Any(), gomock.Any()).Return(store.ErrConflict)

		_, err := s.service.RegisterResident(context.Background(), s.residentID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("starts at non_verified", func() {
		s.mockResidents.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		s.mockOutbox.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)

		r, err := s.service.RegisterResident(context.Background(), s.residentID)
		s.Require().NoError(err)
		s.Equal(models.StatusNonVerified, r.Status)
		s.Zero(r.Version)
	})
}

func (s *ServiceSuite) TestAuditHistory_StoreFailure() {
	s.mockResidents.EXPECT().FindByID(gomock.Any(), s.residentID).Return(s.resident(models.StatusNonVerified, 0), nil)
	s.mockAudit.EXPECT().ListByResident(gomock.Any(), s.residentID).Return(nil, errors.New("timeout"))

	_, err := s.service.AuditHistory(context.Background(), s.residentID)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}
