package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	cmodels "barangay/internal/credential/models"
	"barangay/internal/verification/models"
	"barangay/internal/verification/service"
	id "barangay/pkg/domain"
	dErrors "barangay/pkg/domain-errors"
	"barangay/pkg/platform/httputil"
	"barangay/pkg/requestcontext"
)

// Service is the verification surface the handler drives.
type Service interface {
	RegisterResident(ctx context.Context, residentID id.ResidentID) (*models.Resident, error)
	GetResident(ctx context.Context, residentID id.ResidentID) (*models.Resident, error)
	Transition(ctx context.Context, cmd *models.TransitionCommand) (*service.TransitionResult, error)
	Reopen(ctx context.Context, cmd *models.ReopenCommand) (*service.TransitionResult, error)
	AuditHistory(ctx context.Context, residentID id.ResidentID) ([]*models.AuditEntry, error)
}

// Handler serves the resident verification endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the resident routes. The router must already carry the
// actor middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/residents", h.HandleRegister)
	r.Get("/residents/{id}", h.HandleGet)
	r.Post("/residents/{id}/transitions", h.HandleTransition)
	r.Post("/residents/{id}/reopen", h.HandleReopen)
	r.Get("/residents/{id}/audit", h.HandleAuditHistory)
}

// TransitionResponse reports the new state, the audit row written and any
// credential issued in the same transaction.
type TransitionResponse struct {
	Resident   models.ResidentResponse     `json:"resident"`
	AuditEntry models.AuditEntryResponse   `json:"audit_entry"`
	Credential *cmodels.CredentialResponse `json:"credential,omitempty"`
}

func toTransitionResponse(result *service.TransitionResult) TransitionResponse {
	resp := TransitionResponse{
		Resident:   models.ToResidentResponse(result.Resident),
		AuditEntry: models.ToAuditEntryResponse(result.Entry),
	}
	if result.Credential != nil {
		// A credential issued just now cannot be inside its refresh window.
		c := cmodels.ToCredentialResponse(result.Credential, false)
		resp.Credential = &c
	}
	return resp
}

// HandleRegister handles POST /residents.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor, err := h.actor(ctx, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	residentID, err := id.ParseResidentID(req.ResidentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !actor.CanAccess(residentID) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "residents may only register themselves"))
		return
	}

	resident, err := h.service.RegisterResident(ctx, residentID)
	if err != nil {
		h.logFailure(ctx, "failed to register resident", requestID, residentID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.ToResidentResponse(resident))
}

// HandleGet handles GET /residents/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	residentID, _, ok := h.authorizedResident(w, r, requestID)
	if !ok {
		return
	}
	resident, err := h.service.GetResident(ctx, residentID)
	if err != nil {
		h.logFailure(ctx, "failed to load resident", requestID, residentID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToResidentResponse(resident))
}

// HandleTransition handles POST /residents/{id}/transitions. Role policy for
// the requested edge is enforced by the service.
func (h *Handler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	residentID, actor, ok := h.authorizedResident(w, r, requestID)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.TransitionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Transition(ctx, req.ToCommand(residentID, actor))
	if err != nil {
		h.logFailure(ctx, "transition refused", requestID, residentID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTransitionResponse(result))
}

// HandleReopen handles POST /residents/{id}/reopen.
func (h *Handler) HandleReopen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	residentID, actor, ok := h.authorizedResident(w, r, requestID)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.ReopenRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Reopen(ctx, &models.ReopenCommand{
		ResidentID: residentID,
		Actor:      actor,
		Reason:     req.Reason,
	})
	if err != nil {
		h.logFailure(ctx, "reopen refused", requestID, residentID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toTransitionResponse(result))
}

// HandleAuditHistory handles GET /residents/{id}/audit.
func (h *Handler) HandleAuditHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	residentID, _, ok := h.authorizedResident(w, r, requestID)
	if !ok {
		return
	}
	entries, err := h.service.AuditHistory(ctx, residentID)
	if err != nil {
		h.logFailure(ctx, "failed to load audit history", requestID, residentID, err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToAuditHistoryResponse(residentID.String(), entries))
}

// authorizedResident parses the path resident and checks the actor may see
// it. It writes the error response itself when it returns false.
func (h *Handler) authorizedResident(w http.ResponseWriter, r *http.Request, requestID string) (id.ResidentID, models.Actor, bool) {
	actor, err := h.actor(r.Context(), requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return id.ResidentID{}, models.Actor{}, false
	}
	residentID, err := id.ParseResidentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.ResidentID{}, models.Actor{}, false
	}
	if !actor.CanAccess(residentID) {
		h.logger.WarnContext(r.Context(), "actor denied access to resident",
			"request_id", requestID,
			"resident_id", residentID.String(),
			"actor_id", actor.ID.String(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "not allowed to access this resident"))
		return id.ResidentID{}, models.Actor{}, false
	}
	return residentID, actor, true
}

func (h *Handler) actor(ctx context.Context, requestID string) (models.Actor, error) {
	actorID, role, err := httputil.RequireActor(ctx, h.logger, requestID)
	if err != nil {
		return models.Actor{}, err
	}
	actor := models.Actor{ID: actorID, Role: models.Role(role)}
	if err := actor.Validate(); err != nil {
		return models.Actor{}, dErrors.New(dErrors.CodeForbidden, "unknown actor role")
	}
	return actor, nil
}

// logFailure logs expected refusals at warn and everything else at error.
func (h *Handler) logFailure(ctx context.Context, msg, requestID string, residentID id.ResidentID, err error) {
	args := []any{
		"request_id", requestID,
		"resident_id", residentID.String(),
		"error", err,
	}
	if dErrors.HasCode(err, dErrors.CodeInternal) || !isDomainError(err) {
		h.logger.ErrorContext(ctx, msg, args...)
		return
	}
	h.logger.WarnContext(ctx, msg, args...)
}

func isDomainError(err error) bool {
	var de *dErrors.Error
	return errors.As(err, &de)
}
