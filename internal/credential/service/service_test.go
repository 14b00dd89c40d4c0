package service

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/mock/gomock"

	"barangay/internal/credential/models"
	"barangay/internal/credential/store"
	vmodels "barangay/internal/verification/models"
	id "barangay/pkg/domain"
	dErrors "barangay/pkg/domain-errors"
)

// =============================================================================
// Issue - error propagation
// =============================================================================

func (s *ServiceSuite) TestIssue_RejectsNonQualifyingStatus() {
	_, err := s.service.Issue(context.Background(), s.residentID, vmodels.StatusDetailsUpdated, s.t0)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *ServiceSuite) TestIssue_ReplayReturnsExistingCredential() {
	existing := &models.Credential{ID: id.NewCredentialID(), ResidentID: s.residentID, Status: vmodels.StatusSemiVerified, Version: 1}
	s.mockStore.EXPECT().FindByIssuance(gomock.Any(), s.residentID, vmodels.StatusSemiVerified, s.t0).Return(existing, nil)

	got, err := s.service.Issue(context.Background(), s.residentID, vmodels.StatusSemiVerified, s.t0)
	s.Require().NoError(err)
	s.Equal(existing.ID, got.ID)
}

func (s *ServiceSuite) TestIssue_SupersedesThenCreates() {
	prior := &models.Credential{ID: id.NewCredentialID(), ResidentID: s.residentID, Status: vmodels.StatusSemiVerified, Version: 1}

	gomock.InOrder(
		s.mockStore.EXPECT().FindByIssuance(gomock.Any(), s.residentID, vmodels.StatusVerified, s.t0).Return(nil, store.ErrNotFound),
		s.mockStore.EXPECT().NextVersion(gomock.Any(), s.residentID).Return(2, nil),
		s.mockStore.EXPECT().SupersedeActive(gomock.Any(), s.residentID, s.t0).Return(prior, nil),
		s.mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, c *models.Credential) error {
				s.Equal(2, c.Version)
				s.Equal(vmodels.StatusVerified, c.Status)
				s.True(c.IsActive())
				return nil
			}),
	)
	s.mockOutbox.EXPECT().Append(gomock.Any(), gomock.Any()).Times(2).Return(nil)
	s.mockCache.EXPECT().Invalidate(gomock.Any(), s.residentID).Return(nil)

	got, err := s.service.Issue(context.Background(), s.residentID, vmodels.StatusVerified, s.t0)
	s.Require().NoError(err)
	s.Equal(s.t0.Add(s.service.ValidityWindow()), got.ExpiresAt)
}

func (s *ServiceSuite) TestIssue_CreateConflictIsConcurrentModification() {
	s.mockStore.EXPECT().FindByIssuance(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(2).Return(nil, store.ErrNotFound)
	s.mockStore.EXPECT().NextVersion(gomock.Any(), s.residentID).Return(1, nil)
	s.mockStore.EXPECT().SupersedeActive(gomock.Any(), s.residentID, gomock.Any()).Return(nil, store.ErrNotFound)
	s.mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(store.ErrConflict)

	_, err := s.service.Issue(context.Background(), s.residentID, vmodels.StatusSemiVerified, s.t0)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConcurrentModification))
}

func (s *ServiceSuite) TestIssue_SkippedInsertReturnsTheConcurrentIssuance() {
	winner := &models.Credential{ID: id.NewCredentialID(), ResidentID: s.residentID, Status: vmodels.StatusSemiVerified, Version: 1}

	gomock.InOrder(
		s.mockStore.EXPECT().FindByIssuance(gomock.Any(), s.residentID, vmodels.StatusSemiVerified, s.t0).Return(nil, store.ErrNotFound),
		s.mockStore.EXPECT().NextVersion(gomock.Any(), s.residentID).Return(1, nil),
		s.mockStore.EXPECT().SupersedeActive(gomock.Any(), s.residentID, s.t0).Return(nil, store.ErrNotFound),
		s.mockStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(store.ErrConflict),
		s.mockStore.EXPECT().FindByIssuance(gomock.Any(), s.residentID, vmodels.StatusSemiVerified, s.t0).Return(winner, nil),
	)

	got, err := s.service.Issue(context.Background(), s.residentID, vmodels.StatusSemiVerified, s.t0)
	s.Require().NoError(err)
	s.Equal(winner.ID, got.ID)
	s.Zero(testutil.ToFloat64(s.metrics.IssuedTotal.WithLabelValues("semi_verified")), "replay is not a new issuance")
}

func (s *ServiceSuite) TestIssue_StoreFailureIsInternal() {
	s.mockStore.EXPECT().FindByIssuance(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("connection reset"))

	_, err := s.service.Issue(context.Background(), s.residentID, vmodels.StatusSemiVerified, s.t0)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

// =============================================================================
// IssueForResident
// =============================================================================

func (s *ServiceSuite) TestIssueForResident() {
	s.Run("unknown resident is not found", func() {
		s.mockResidents.EXPECT().LockByID(gomock.Any(), s.residentID).Return(nil, store.ErrNotFound)

		_, err := s.service.IssueForResident(context.Background(), s.residentID, s.t0)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("non-qualifying status violates the issuance invariant", func() {
		s.mockResidents.EXPECT().LockByID(gomock.Any(), s.residentID).Return(
			&vmodels.Resident{ID: s.residentID, Status: vmodels.StatusRejected}, nil)

		_, err := s.service.IssueForResident(context.Background(), s.residentID, s.t0)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

// =============================================================================
// Validate - the active snapshot cache and store failures
// =============================================================================

func (s *ServiceSuite) credential(status vmodels.Status, version int) *models.Credential {
	c, err := models.NewCredential(id.NewCredentialID(), s.residentID, status, s.t0, s.service.ValidityWindow(), version, s.service.checksum)
	s.Require().NoError(err)
	return c
}

func (s *ServiceSuite) TestValidate_ActiveSnapshot() {
	s.Run("cached snapshot answers without a store read", func() {
		active := s.credential(vmodels.StatusVerified, 2)
		s.mockCache.EXPECT().Get(gomock.Any(), s.residentID).Return(active.Snapshot(), nil)

		result := s.service.Validate(context.Background(), active.Payload().Encode(), s.t0.Add(1), nil)
		s.True(result.Valid)
		s.Empty(result.Reasons)
	})

	s.Run("cached expiry is authoritative", func() {
		active := s.credential(vmodels.StatusVerified, 2)
		snapshot := active.Snapshot()
		snapshot.ExpiresAt = s.t0.Add(1)
		s.mockCache.EXPECT().Get(gomock.Any(), s.residentID).Return(snapshot, nil)

		result := s.service.Validate(context.Background(), active.Payload().Encode(), s.t0.Add(2), nil)
		s.Equal([]models.ReasonCode{models.ReasonChecksumMismatch, models.ReasonExpired}, result.Reasons)
	})

	s.Run("older credential is superseded", func() {
		old := s.credential(vmodels.StatusSemiVerified, 1)
		current := s.credential(vmodels.StatusVerified, 2)
		old.Supersede(s.t0)
		s.mockCache.EXPECT().Get(gomock.Any(), s.residentID).Return(current.Snapshot(), nil)
		s.mockStore.EXPECT().FindByID(gomock.Any(), old.ID).Return(old, nil)

		result := s.service.Validate(context.Background(), old.Payload().Encode(), s.t0.Add(1), nil)
		s.Equal([]models.ReasonCode{models.ReasonSuperseded}, result.Reasons)
	})

	s.Run("miss reads the active row and fills the cache", func() {
		active := s.credential(vmodels.StatusVerified, 2)
		s.mockCache.EXPECT().Get(gomock.Any(), s.residentID).Return(nil, store.ErrNotFound)
		s.mockStore.EXPECT().FindActiveByResident(gomock.Any(), s.residentID).Return(active, nil)
		s.mockCache.EXPECT().Set(gomock.Any(), active.Snapshot()).Return(nil)

		result := s.service.Validate(context.Background(), active.Payload().Encode(), s.t0.Add(1), nil)
		s.True(result.Valid)
	})

	s.Run("cache outage falls back to the store", func() {
		active := s.credential(vmodels.StatusVerified, 2)
		s.mockCache.EXPECT().Get(gomock.Any(), s.residentID).Return(nil, errors.New("dial tcp: refused"))
		s.mockStore.EXPECT().FindActiveByResident(gomock.Any(), s.residentID).Return(active, nil)
		s.mockCache.EXPECT().Set(gomock.Any(), gomock.Any()).Return(errors.New("dial tcp: refused"))

		result := s.service.Validate(context.Background(), active.Payload().Encode(), s.t0.Add(1), nil)
		s.True(result.Valid)
	})

	s.Equal(float64(2), testutil.ToFloat64(s.metrics.ActiveCacheLookups.WithLabelValues("miss")))
	s.Equal(float64(3), testutil.ToFloat64(s.metrics.ActiveCacheLookups.WithLabelValues("hit")))
	s.Zero(testutil.ToFloat64(s.metrics.LookupErrors))
}

func (s *ServiceSuite) TestValidate_StoreFailureSkipsRecordChecks() {
	s.Run("active row lookup fails", func() {
		c := s.credential(vmodels.StatusVerified, 1)
		s.mockCache.EXPECT().Get(gomock.Any(), s.residentID).Return(nil, store.ErrNotFound)
		s.mockStore.EXPECT().FindActiveByResident(gomock.Any(), s.residentID).Return(nil, errors.New("timeout"))

		result := s.service.Validate(context.Background(), c.Payload().Encode(), s.t0.Add(1), nil)
		s.True(result.Valid)
		s.Empty(result.Reasons)
	})

	s.Run("credential row lookup fails", func() {
		c := s.credential(vmodels.StatusSemiVerified, 1)
		other := s.credential(vmodels.StatusVerified, 2)
		s.mockCache.EXPECT().Get(gomock.Any(), s.residentID).Return(other.Snapshot(), nil)
		s.mockStore.EXPECT().FindByID(gomock.Any(), c.ID).Return(nil, errors.New("timeout"))

		result := s.service.Validate(context.Background(), c.Payload().Encode(), s.t0.Add(1), nil)
		s.True(result.Valid)
	})

	s.Run("unknown credential is not a lookup error", func() {
		c := s.credential(vmodels.StatusSemiVerified, 1)
		s.mockCache.EXPECT().Get(gomock.Any(), s.residentID).Return(nil, store.ErrNotFound)
		s.mockStore.EXPECT().FindActiveByResident(gomock.Any(), s.residentID).Return(nil, store.ErrNotFound)
		s.mockStore.EXPECT().FindByID(gomock.Any(), c.ID).Return(nil, store.ErrNotFound)

		result := s.service.Validate(context.Background(), c.Payload().Encode(), s.t0.Add(1), nil)
		s.True(result.Valid)
	})

	s.Equal(float64(2), testutil.ToFloat64(s.metrics.LookupErrors))
}

// =============================================================================
// RecordScan / GetActive
// =============================================================================

func (s *ServiceSuite) TestRecordScan_UnknownCredentialIsNotFound() {
	s.mockStore.EXPECT().AppendScan(gomock.Any(), gomock.Any()).Return(nil, store.ErrNotFound)

	_, err := s.service.RecordScan(context.Background(), &models.ScanCommand{
		CredentialID: id.NewCredentialID(),
		Location:     "Counter 1",
		ScannedBy:    "official-a",
	}, s.t0)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestRecordScan_InvalidCommand() {
	_, err := s.service.RecordScan(context.Background(), &models.ScanCommand{CredentialID: id.NewCredentialID(), Location: "  "}, s.t0)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestGetActive_Cache() {
	active := &models.Credential{ID: id.NewCredentialID(), ResidentID: s.residentID, Status: vmodels.StatusVerified, Version: 2}

	s.Run("store read warms the cache", func() {
		s.mockStore.EXPECT().FindActiveByResident(gomock.Any(), s.residentID).Return(active, nil)
		s.mockCache.EXPECT().Set(gomock.Any(), active.Snapshot()).Return(nil)

		got, err := s.service.GetActive(context.Background(), s.residentID)
		s.Require().NoError(err)
		s.Equal(active.ID, got.ID)
	})

	s.Run("cache outage does not fail the read", func() {
		s.mockStore.EXPECT().FindActiveByResident(gomock.Any(), s.residentID).Return(active, nil)
		s.mockCache.EXPECT().Set(gomock.Any(), gomock.Any()).Return(errors.New("dial tcp: refused"))

		got, err := s.service.GetActive(context.Background(), s.residentID)
		s.Require().NoError(err)
		s.Equal(active.ID, got.ID)
	})

	s.Run("no active credential is not found", func() {
		s.mockStore.EXPECT().FindActiveByResident(gomock.Any(), s.residentID).Return(nil, store.ErrNotFound)

		_, err := s.service.GetActive(context.Background(), s.residentID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestRetire_InvalidatesAfterCommit() {
	prior := &models.Credential{ID: id.NewCredentialID(), ResidentID: s.residentID, Status: vmodels.StatusVerified, Version: 1}
	s.mockStore.EXPECT().SupersedeActive(gomock.Any(), s.residentID, s.t0).Return(prior, nil)
	s.mockOutbox.EXPECT().Append(gomock.Any(), gomock.Any()).Return(nil)

	err := s.service.tx.RunInTx(context.Background(), func(ctx context.Context) error {
		s.Require().NoError(s.service.Retire(ctx, s.residentID, s.t0))
		// Registered only now, so an Invalidate inside the unit would be unexpected.
		s.mockCache.EXPECT().Invalidate(gomock.Any(), s.residentID).Return(nil)
		return nil
	})
	s.Require().NoError(err)
}
