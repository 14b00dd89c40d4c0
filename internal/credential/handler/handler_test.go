package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"barangay/internal/credential/handler/mocks"
	"barangay/internal/credential/models"
	vmodels "barangay/internal/verification/models"
	id "barangay/pkg/domain"
	dErrors "barangay/pkg/domain-errors"
	"barangay/pkg/platform/middleware/requesttime"
	"barangay/pkg/requestcontext"
	"barangay/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

type HandlerSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	service    *mocks.MockService
	router     chi.Router
	residentID id.ResidentID
	credential *models.Credential
	now        time.Time
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
	s.residentID = testutil.TestIDs.ResidentID1
	s.credential = testutil.NewCredential(s.residentID, vmodels.StatusVerified, testutil.T0, 1, nil)
	s.now = testutil.T0.Add(23 * time.Hour)
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

type requestOpts struct {
	actor  vmodels.Actor
	device string
}

func (s *HandlerSuite) do(method, path string, body any, opts requestOpts) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	ctx := requesttime.WithTime(req.Context(), s.now)
	if !opts.actor.ID.IsNil() {
		ctx = requestcontext.WithActor(ctx, opts.actor.ID, string(opts.actor.Role))
	}
	if opts.device != "" {
		ctx = requestcontext.WithDeviceLabel(ctx, opts.device)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req.WithContext(ctx))
	return w
}

func (s *HandlerSuite) assertError(w *httptest.ResponseRecorder, status int, code string) {
	s.Equal(status, w.Code)
	var body map[string]string
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.Equal(code, body["error"])
}

func (s *HandlerSuite) decodeCredential(w *httptest.ResponseRecorder) models.CredentialResponse {
	var resp models.CredentialResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (s *HandlerSuite) TestIssue() {
	path := "/residents/" + s.residentID.String() + "/credential"

	s.Run("resident refreshes their own credential", func() {
		s.service.EXPECT().IssueForResident(gomock.Any(), s.residentID, s.now).Return(s.credential, nil)
		s.service.EXPECT().NeedsRefresh(s.credential, s.now).Return(false)

		w := s.do(http.MethodPost, path, nil, requestOpts{actor: testutil.Self(s.residentID)})

		s.Equal(http.StatusCreated, w.Code)
		resp := s.decodeCredential(w)
		s.Equal(s.credential.ID.String(), resp.ID)
		s.Equal(s.credential.Payload().Encode(), resp.Payload)
		s.True(resp.Active)
	})

	s.Run("non-qualifying status is unprocessable", func() {
		s.service.EXPECT().IssueForResident(gomock.Any(), s.residentID, s.now).
			Return(nil, dErrors.New(dErrors.CodeInvariantViolation, "resident status rejected does not qualify for a credential"))

		w := s.do(http.MethodPost, path, nil, requestOpts{actor: testutil.Official("official-a")})
		s.assertError(w, http.StatusUnprocessableEntity, "invariant_violation")
	})

	s.Run("other residents are refused", func() {
		w := s.do(http.MethodPost, path, nil, requestOpts{actor: testutil.Self(testutil.TestIDs.ResidentID2)})
		s.assertError(w, http.StatusForbidden, "forbidden")
	})
}

func (s *HandlerSuite) TestGetActiveReportsRefresh() {
	s.service.EXPECT().GetActive(gomock.Any(), s.residentID).Return(s.credential, nil)
	s.service.EXPECT().NeedsRefresh(s.credential, s.now).Return(true)

	w := s.do(http.MethodGet, "/residents/"+s.residentID.String()+"/credential", nil,
		requestOpts{actor: testutil.Self(s.residentID)})

	s.Equal(http.StatusOK, w.Code)
	s.True(s.decodeCredential(w).NeedsRefresh)
}

func (s *HandlerSuite) TestValidate() {
	official := requestOpts{actor: testutil.Official("official-a")}

	s.Run("invalid credential is still a 200 answer", func() {
		s.service.EXPECT().Validate(gomock.Any(), "garbage", s.now, (*id.ResidentID)(nil)).
			Return(models.ValidationResult{Valid: false, Reasons: []models.ReasonCode{models.ReasonMalformed}})

		w := s.do(http.MethodPost, "/credentials/validate", map[string]string{"payload": "garbage"}, official)

		s.Equal(http.StatusOK, w.Code)
		var resp models.ValidationResponse
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
		s.False(resp.Valid)
		s.Equal([]models.ReasonCode{models.ReasonMalformed}, resp.Reasons)
	})

	s.Run("resident binding is passed through", func() {
		payload := s.credential.Payload().Encode()
		s.service.EXPECT().Validate(gomock.Any(), payload, s.now, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, _ time.Time, expected *id.ResidentID) models.ValidationResult {
				s.Require().NotNil(expected)
				s.Equal(s.residentID, *expected)
				return models.ValidationResult{Valid: true}
			})

		w := s.do(http.MethodPost, "/credentials/validate", map[string]string{
			"payload":              payload,
			"expected_resident_id": s.residentID.String(),
		}, official)

		s.Equal(http.StatusOK, w.Code)
		s.JSONEq(`{"valid":true,"reasons":[]}`, w.Body.String())
	})

	s.Run("empty or oversized payload reaches the validator", func() {
		for _, payload := range []string{"", "   ", strings.Repeat("a", 3000)} {
			s.service.EXPECT().Validate(gomock.Any(), strings.TrimSpace(payload), s.now, (*id.ResidentID)(nil)).
				Return(models.ValidationResult{Valid: false, Reasons: []models.ReasonCode{models.ReasonMalformed}})

			w := s.do(http.MethodPost, "/credentials/validate", map[string]string{"payload": payload}, official)

			s.Equal(http.StatusOK, w.Code, "payload length %d", len(payload))
			s.JSONEq(`{"valid":false,"reasons":["malformed"]}`, w.Body.String())
		}
	})

	s.Run("blank resident binding is ignored", func() {
		s.service.EXPECT().Validate(gomock.Any(), "garbage", s.now, (*id.ResidentID)(nil)).
			Return(models.ValidationResult{Valid: false, Reasons: []models.ReasonCode{models.ReasonMalformed}})

		w := s.do(http.MethodPost, "/credentials/validate", map[string]string{
			"payload":              "garbage",
			"expected_resident_id": "   ",
		}, official)

		s.Equal(http.StatusOK, w.Code)
	})

	s.Run("malformed resident binding is a bad request", func() {
		w := s.do(http.MethodPost, "/credentials/validate", map[string]string{
			"payload":              "garbage",
			"expected_resident_id": "not-a-uuid",
		}, official)
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *HandlerSuite) TestRecordScan() {
	path := "/credentials/" + s.credential.ID.String() + "/scans"

	s.Run("official scan carries actor and device", func() {
		scanned := *s.credential
		scanned.ScanCount = 1
		s.service.EXPECT().RecordScan(gomock.Any(), gomock.Any(), s.now).
			DoAndReturn(func(_ context.Context, cmd *models.ScanCommand, _ time.Time) (*models.Credential, error) {
				s.Equal(s.credential.ID, cmd.CredentialID)
				s.Equal("Barangay Hall", cmd.Location)
				s.Equal(id.ActorID("official-a"), cmd.ScannedBy)
				s.Equal("Chrome on Android 13", cmd.Device)
				return &scanned, nil
			})
		s.service.EXPECT().NeedsRefresh(&scanned, s.now).Return(false)

		w := s.do(http.MethodPost, path, map[string]string{"location": "Barangay Hall"},
			requestOpts{actor: testutil.Official("official-a"), device: "Chrome on Android 13"})

		s.Equal(http.StatusCreated, w.Code)
		s.Equal(1, s.decodeCredential(w).ScanCount)
	})

	s.Run("residents cannot record scans", func() {
		w := s.do(http.MethodPost, path, map[string]string{"location": "Barangay Hall"},
			requestOpts{actor: testutil.Self(s.residentID)})
		s.assertError(w, http.StatusForbidden, "forbidden")
	})

	s.Run("unknown credential", func() {
		s.service.EXPECT().RecordScan(gomock.Any(), gomock.Any(), s.now).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "credential not found"))

		w := s.do(http.MethodPost, path, map[string]string{"location": "Barangay Hall"},
			requestOpts{actor: testutil.Official("official-a")})
		s.assertError(w, http.StatusNotFound, "not_found")
	})

	s.Run("malformed credential id", func() {
		w := s.do(http.MethodPost, "/credentials/abc/scans", map[string]string{"location": "Barangay Hall"},
			requestOpts{actor: testutil.Official("official-a")})
		s.assertError(w, http.StatusBadRequest, "bad_request")
	})
}

func (s *HandlerSuite) TestGet() {
	path := "/credentials/" + s.credential.ID.String()

	s.Run("owner sees it", func() {
		s.service.EXPECT().Get(gomock.Any(), s.credential.ID).Return(s.credential, nil)
		s.service.EXPECT().NeedsRefresh(s.credential, s.now).Return(true)

		w := s.do(http.MethodGet, path, nil, requestOpts{actor: testutil.Self(s.residentID)})
		s.Equal(http.StatusOK, w.Code)
		s.True(s.decodeCredential(w).NeedsRefresh)
	})

	s.Run("another resident does not", func() {
		s.service.EXPECT().Get(gomock.Any(), s.credential.ID).Return(s.credential, nil)

		w := s.do(http.MethodGet, path, nil, requestOpts{actor: testutil.Self(testutil.TestIDs.ResidentID2)})
		s.assertError(w, http.StatusForbidden, "forbidden")
	})
}
