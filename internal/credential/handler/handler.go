package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"barangay/internal/credential/models"
	vmodels "barangay/internal/verification/models"
	id "barangay/pkg/domain"
	dErrors "barangay/pkg/domain-errors"
	"barangay/pkg/platform/httputil"
	"barangay/pkg/platform/middleware/requesttime"
	"barangay/pkg/requestcontext"
)

// Service is the credential surface the handler drives.
type Service interface {
	IssueForResident(ctx context.Context, residentID id.ResidentID, now time.Time) (*models.Credential, error)
	GetActive(ctx context.Context, residentID id.ResidentID) (*models.Credential, error)
	Get(ctx context.Context, credentialID id.CredentialID) (*models.Credential, error)
	Validate(ctx context.Context, raw string, now time.Time, expectedResidentID *id.ResidentID) models.ValidationResult
	RecordScan(ctx context.Context, cmd *models.ScanCommand, now time.Time) (*models.Credential, error)
	NeedsRefresh(credential *models.Credential, now time.Time) bool
}

// Handler serves credential issuance, validation and scan endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/residents/{id}/credential", h.HandleIssue)
	r.Get("/residents/{id}/credential", h.HandleGetActive)
	r.Post("/credentials/validate", h.HandleValidate)
	r.Post("/credentials/{id}/scans", h.HandleRecordScan)
	r.Get("/credentials/{id}", h.HandleGet)
}

// HandleIssue handles POST /residents/{id}/credential, re-issuing for the
// resident's current qualifying status.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	residentID, ok := h.authorizedResident(w, r, requestID)
	if !ok {
		return
	}
	now := requesttime.Now(ctx)
	credential, err := h.service.IssueForResident(ctx, residentID, now)
	if err != nil {
		h.logger.WarnContext(ctx, "credential issue refused",
			"request_id", requestID,
			"resident_id", residentID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated,
		models.ToCredentialResponse(credential, h.service.NeedsRefresh(credential, now)))
}

// HandleGetActive handles GET /residents/{id}/credential.
func (h *Handler) HandleGetActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	residentID, ok := h.authorizedResident(w, r, requestID)
	if !ok {
		return
	}
	credential, err := h.service.GetActive(ctx, residentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	now := requesttime.Now(ctx)
	httputil.WriteJSON(w, http.StatusOK,
		models.ToCredentialResponse(credential, h.service.NeedsRefresh(credential, now)))
}

// HandleValidate handles POST /credentials/validate. An invalid credential is
// a normal 200 answer with reasons; only a bad request body is an error.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if _, err := h.actor(ctx, requestID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.ValidateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	expected, err := req.ExpectedResident()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result := h.service.Validate(ctx, req.Payload, requesttime.Now(ctx), expected)
	httputil.WriteJSON(w, http.StatusOK, models.ToValidationResponse(result))
}

// HandleRecordScan handles POST /credentials/{id}/scans. Scans are recorded
// by staff at a checkpoint; the device label comes from the scanner's
// User-Agent.
func (h *Handler) HandleRecordScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor, err := h.actor(ctx, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !actor.Role.IsStaff() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "only staff may record scans"))
		return
	}
	credentialID, err := id.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.ScanRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	now := requesttime.Now(ctx)
	credential, err := h.service.RecordScan(ctx, &models.ScanCommand{
		CredentialID: credentialID,
		Location:     req.Location,
		ScannedBy:    actor.ID,
		Device:       requestcontext.DeviceLabel(ctx),
		Outcome:      req.Outcome,
	}, now)
	if err != nil {
		h.logger.WarnContext(ctx, "scan not recorded",
			"request_id", requestID,
			"credential_id", credentialID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated,
		models.ToCredentialResponse(credential, h.service.NeedsRefresh(credential, now)))
}

// HandleGet handles GET /credentials/{id}, including the scan history.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor, err := h.actor(ctx, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	credentialID, err := id.ParseCredentialID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	credential, err := h.service.Get(ctx, credentialID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !actor.CanAccess(credential.ResidentID) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "not allowed to access this credential"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK,
		models.ToCredentialResponse(credential, h.service.NeedsRefresh(credential, requesttime.Now(ctx))))
}

func (h *Handler) authorizedResident(w http.ResponseWriter, r *http.Request, requestID string) (id.ResidentID, bool) {
	actor, err := h.actor(r.Context(), requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return id.ResidentID{}, false
	}
	residentID, err := id.ParseResidentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.ResidentID{}, false
	}
	if !actor.CanAccess(residentID) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "not allowed to access this resident"))
		return id.ResidentID{}, false
	}
	return residentID, true
}

func (h *Handler) actor(ctx context.Context, requestID string) (vmodels.Actor, error) {
	actorID, role, err := httputil.RequireActor(ctx, h.logger, requestID)
	if err != nil {
		return vmodels.Actor{}, err
	}
	actor := vmodels.Actor{ID: actorID, Role: vmodels.Role(role)}
	if err := actor.Validate(); err != nil {
		return vmodels.Actor{}, dErrors.New(dErrors.CodeForbidden, "unknown actor role")
	}
	return actor, nil
}
