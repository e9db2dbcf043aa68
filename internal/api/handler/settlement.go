package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kwachapay/emi-platform/internal/api/middleware"
	"github.com/kwachapay/emi-platform/internal/domain"
	"github.com/kwachapay/emi-platform/internal/models"
	"github.com/kwachapay/emi-platform/internal/repository"
	"github.com/kwachapay/emi-platform/internal/service"
	"go.uber.org/zap"
)

// SettlementHandler handles HTTP requests for the settlement pipeline.
type SettlementHandler struct {
	settlementSvc *service.SettlementService
}

func NewSettlementHandler(settlementSvc *service.SettlementService) *SettlementHandler {
	return &SettlementHandler{settlementSvc: settlementSvc}
}

// CreateSettlementRequest represents the request body for a settlement.
// organization_id is accepted from finance officers acting on behalf of an
// organization; merchants always settle their own.
type CreateSettlementRequest struct {
	Amount            int64  `json:"amount"`
	BankName          string `json:"bank_name"`
	BankAccountNumber string `json:"bank_account_number"`
	BankAccountName   string `json:"bank_account_name"`
	OrganizationID    string `json:"organization_id,omitempty"`
}

// CreateSettlement handles POST /v1/settlements (merchant or finance).
func (h *SettlementHandler) CreateSettlement(w http.ResponseWriter, r *http.Request) {
	actorID, role, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		RespondError(w, r, http.StatusBadRequest, "idempotency/missing-key", "Idempotency-Key header is required")
		return
	}

	var req CreateSettlementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	if req.Amount <= 0 {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-amount", "Amount must be greater than zero")
		return
	}

	var orgID uuid.UUID
	if role == domain.RoleFinance && req.OrganizationID != "" {
		orgID, err = uuid.Parse(req.OrganizationID)
		if err != nil {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-organization-id", "Invalid organization_id")
			return
		}
	} else {
		orgID, err = uuid.Parse(middleware.OrganizationIDFromContext(r.Context()))
		if err != nil {
			RespondError(w, r, http.StatusForbidden, "settlement/no-organization", "Caller has no organization")
			return
		}
	}

	settlement, err := h.settlementSvc.Create(r.Context(), service.CreateSettlementRequest{
		OrganizationID:    orgID,
		RequesterID:       actorID,
		Amount:            req.Amount,
		BankName:          strings.TrimSpace(req.BankName),
		BankAccountNumber: strings.TrimSpace(req.BankAccountNumber),
		BankAccountName:   strings.TrimSpace(req.BankAccountName),
		ReferenceID:       idempotencyKey,
	})
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInsufficientFunds):
			RespondError(w, r, http.StatusUnprocessableEntity, "settlement/insufficient-funds", "Available balance does not cover the requested amount")
			return
		case errors.Is(err, service.ErrOrganizationNotKYCed):
			RespondError(w, r, http.StatusForbidden, "settlement/kyc-required", "Organization must pass KYC before settling")
			return
		case errors.Is(err, service.ErrNoSettlementWallet):
			RespondError(w, r, http.StatusUnprocessableEntity, "settlement/no-wallet", "Organization has no merchant wallet to settle from")
			return
		case errors.Is(err, service.ErrOrganizationNotFound):
			RespondError(w, r, http.StatusNotFound, "organization/not-found", "Organization not found")
			return
		}
		if status, ptype, msg, ok := mapDBError(err); ok {
			RespondError(w, r, status, ptype, msg)
			return
		}
		zap.L().Error("create settlement failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "settlement/create-failed", "Failed to create settlement request")
		return
	}

	RespondJSON(w, http.StatusCreated, settlement)
}

type reviewSettlementRequest struct {
	Reason  string `json:"reason,omitempty"`
	Comment string `json:"comment,omitempty"`
}

// ReviewSettlement handles POST /v1/settlements/{id}/{action} for
// approve, hold, and reject (finance).
func (h *SettlementHandler) ReviewSettlement(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, _, err := requestActor(r)
		if err != nil {
			RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
			return
		}
		settlementID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-settlement-id", "Invalid settlement ID")
			return
		}

		var req reviewSettlementRequest
		if r.Body != nil {
			// Hold and approve allow an empty body.
			_ = json.NewDecoder(r.Body).Decode(&req)
		}

		svcReq := service.ReviewSettlementRequest{
			SettlementID: settlementID,
			ReviewerID:   actorID,
			Reason:       strings.TrimSpace(req.Reason),
			Comment:      strings.TrimSpace(req.Comment),
		}

		var settlement *models.SettlementRequest
		switch action {
		case domain.SettlementStatusApproved:
			settlement, err = h.settlementSvc.Approve(r.Context(), svcReq)
		case domain.SettlementStatusHold:
			settlement, err = h.settlementSvc.Hold(r.Context(), svcReq)
		case domain.SettlementStatusRejected:
			settlement, err = h.settlementSvc.Reject(r.Context(), svcReq)
		default:
			RespondError(w, r, http.StatusBadRequest, "settlement/invalid-action", "Unknown settlement action")
			return
		}
		if err != nil {
			switch {
			case errors.Is(err, service.ErrSettlementNotFound):
				RespondError(w, r, http.StatusNotFound, "settlement/not-found", "Settlement request not found")
				return
			case errors.Is(err, service.ErrInvalidSettlementMove):
				RespondError(w, r, http.StatusConflict, "settlement/invalid-transition", "Settlement request does not allow this action")
				return
			case errors.Is(err, service.ErrSettlementCommentLong):
				RespondError(w, r, http.StatusBadRequest, "settlement/comment-too-long", "Comment exceeds 125 characters")
				return
			case errors.Is(err, models.ErrInsufficientFunds):
				RespondError(w, r, http.StatusUnprocessableEntity, "settlement/insufficient-funds", "Available balance no longer covers the requested amount")
				return
			}
			if req.Reason == "" && action == domain.SettlementStatusRejected {
				RespondError(w, r, http.StatusBadRequest, "request/missing-reason", "reason is required")
				return
			}
			zap.L().Error("review settlement failed", zap.Error(err), zap.String("settlement_id", settlementID.String()), zap.String("action", action))
			RespondError(w, r, http.StatusInternalServerError, "settlement/review-failed", "Failed to review settlement request")
			return
		}

		RespondJSON(w, http.StatusOK, settlement)
	}
}

// CompleteSettlement handles POST /v1/settlements/{id}/complete (finance).
func (h *SettlementHandler) CompleteSettlement(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}
	settlementID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-settlement-id", "Invalid settlement ID")
		return
	}

	settlement, err := h.settlementSvc.Complete(r.Context(), settlementID, actorID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSettlementNotFound):
			RespondError(w, r, http.StatusNotFound, "settlement/not-found", "Settlement request not found")
			return
		case errors.Is(err, service.ErrInvalidSettlementMove):
			RespondError(w, r, http.StatusConflict, "settlement/invalid-transition", "Settlement request is not approved")
			return
		case errors.Is(err, models.ErrInsufficientFunds):
			RespondError(w, r, http.StatusUnprocessableEntity, "settlement/insufficient-funds", "Wallet balance no longer covers the settlement")
			return
		}
		zap.L().Error("complete settlement failed", zap.Error(err), zap.String("settlement_id", settlementID.String()))
		RespondError(w, r, http.StatusBadGateway, "settlement/transfer-failed", "Bank transfer failed; settlement remains approved")
		return
	}

	RespondJSON(w, http.StatusOK, settlement)
}

// GetSettlement handles GET /v1/settlements/{id}.
func (h *SettlementHandler) GetSettlement(w http.ResponseWriter, r *http.Request) {
	_, role, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}
	settlementID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-settlement-id", "Invalid settlement ID")
		return
	}

	settlement, err := h.settlementSvc.Get(r.Context(), settlementID)
	if err != nil {
		if errors.Is(err, service.ErrSettlementNotFound) {
			RespondError(w, r, http.StatusNotFound, "settlement/not-found", "Settlement request not found")
			return
		}
		zap.L().Error("get settlement failed", zap.Error(err), zap.String("settlement_id", settlementID.String()))
		RespondError(w, r, http.StatusInternalServerError, "settlement/read-failed", "Failed to get settlement request")
		return
	}

	if role == domain.RoleMerchant {
		orgClaim := middleware.OrganizationIDFromContext(r.Context())
		if orgClaim == "" || orgClaim != settlement.OrganizationID.String() {
			RespondError(w, r, http.StatusForbidden, "auth/insufficient-permissions", "insufficient permissions")
			return
		}
	}

	RespondJSON(w, http.StatusOK, settlement)
}

// ListSettlements handles GET /v1/settlements.
func (h *SettlementHandler) ListSettlements(w http.ResponseWriter, r *http.Request) {
	_, role, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}
	limit, offset, err := pagination(r)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-pagination", err.Error())
		return
	}

	arg := repository.ListSettlementRequestsParams{Limit: limit, Offset: offset}
	if v := strings.TrimSpace(r.URL.Query().Get("status")); v != "" {
		arg.Status = &v
	}
	if role == domain.RoleMerchant {
		orgID, perr := uuid.Parse(middleware.OrganizationIDFromContext(r.Context()))
		if perr != nil {
			RespondError(w, r, http.StatusForbidden, "settlement/no-organization", "Caller has no organization")
			return
		}
		arg.OrganizationID = &orgID
	} else if v := strings.TrimSpace(r.URL.Query().Get("organization_id")); v != "" {
		orgID, perr := uuid.Parse(v)
		if perr != nil {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-organization-id", "Invalid organization_id")
			return
		}
		arg.OrganizationID = &orgID
	}

	settlements, err := h.settlementSvc.List(r.Context(), arg)
	if err != nil {
		zap.L().Error("list settlements failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "settlement/list-failed", "Failed to list settlement requests")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"items":  settlements,
		"limit":  limit,
		"offset": offset,
		"count":  len(settlements),
	})
}
