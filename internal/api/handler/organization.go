package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kwachapay/emi-platform/internal/service"
	"go.uber.org/zap"
)

// OrganizationHandler handles organization and KYC review endpoints.
type OrganizationHandler struct {
	orgSvc *service.OrganizationService
}

func NewOrganizationHandler(orgSvc *service.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{orgSvc: orgSvc}
}

type createOrganizationRequest struct {
	BusinessName string `json:"business_name"`
	PacraNumber  string `json:"pacra_number"`
	ZraTPIN      string `json:"zra_tpin"`
}

// CreateOrganization handles POST /v1/organizations (admin).
func (h *OrganizationHandler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	var req createOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	org, err := h.orgSvc.Create(r.Context(), service.CreateOrganizationRequest{
		BusinessName: strings.TrimSpace(req.BusinessName),
		PacraNumber:  strings.TrimSpace(req.PacraNumber),
		ZraTPIN:      strings.TrimSpace(req.ZraTPIN),
		ActorID:      actorID,
	})
	if err != nil {
		if status, ptype, msg, ok := mapDBError(err); ok {
			RespondError(w, r, status, ptype, msg)
			return
		}
		zap.L().Error("create organization failed", zap.Error(err))
		RespondError(w, r, http.StatusBadRequest, "organization/create-failed", err.Error())
		return
	}

	RespondJSON(w, http.StatusCreated, org)
}

type reviewKYCRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

// ReviewKYC handles POST /v1/organizations/{id}/kyc (finance or admin).
func (h *OrganizationHandler) ReviewKYC(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}
	orgID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-organization-id", "Invalid organization ID")
		return
	}

	var req reviewKYCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	org, err := h.orgSvc.ReviewKYC(r.Context(), service.ReviewKYCRequest{
		OrganizationID: orgID,
		NextStatus:     req.Status,
		Notes:          strings.TrimSpace(req.Notes),
		ReviewerID:     actorID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrganizationNotFound):
			RespondError(w, r, http.StatusNotFound, "organization/not-found", "Organization not found")
			return
		case errors.Is(err, service.ErrInvalidKYCTransition):
			RespondError(w, r, http.StatusConflict, "organization/invalid-kyc-transition", "KYC status does not allow this change")
			return
		}
		zap.L().Error("review kyc failed", zap.Error(err), zap.String("organization_id", orgID.String()))
		RespondError(w, r, http.StatusInternalServerError, "organization/kyc-review-failed", "Failed to review KYC")
		return
	}

	RespondJSON(w, http.StatusOK, org)
}

// GetOrganization handles GET /v1/organizations/{id}.
func (h *OrganizationHandler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-organization-id", "Invalid organization ID")
		return
	}

	org, err := h.orgSvc.Get(r.Context(), orgID)
	if err != nil {
		if errors.Is(err, service.ErrOrganizationNotFound) {
			RespondError(w, r, http.StatusNotFound, "organization/not-found", "Organization not found")
			return
		}
		zap.L().Error("get organization failed", zap.Error(err), zap.String("organization_id", orgID.String()))
		RespondError(w, r, http.StatusInternalServerError, "organization/read-failed", "Failed to get organization")
		return
	}

	RespondJSON(w, http.StatusOK, org)
}

// ListOrganizations handles GET /v1/organizations (finance or admin).
func (h *OrganizationHandler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-pagination", err.Error())
		return
	}

	orgs, err := h.orgSvc.List(r.Context(), limit, offset)
	if err != nil {
		zap.L().Error("list organizations failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "organization/list-failed", "Failed to list organizations")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"items":  orgs,
		"limit":  limit,
		"offset": offset,
		"count":  len(orgs),
	})
}
