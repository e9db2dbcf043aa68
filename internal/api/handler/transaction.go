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

// TransactionHandler handles HTTP requests for the collection lifecycle.
type TransactionHandler struct {
	txSvc *service.TransactionService
}

func NewTransactionHandler(txSvc *service.TransactionService) *TransactionHandler {
	return &TransactionHandler{txSvc: txSvc}
}

// CreateTransactionRequest represents the request body for a collection request.
type CreateTransactionRequest struct {
	Amount     int64           `json:"amount"`
	Type       string          `json:"type"`
	VMFNumber  string          `json:"vmf_number"`
	CashierOTP string          `json:"cashier_otp,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}

// CreateTransaction handles POST /v1/transactions (merchant).
func (h *TransactionHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")
	if idempotencyKey == "" {
		RespondError(w, r, http.StatusBadRequest, "idempotency/missing-key", "Idempotency-Key header is required")
		return
	}

	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	if req.Amount <= 0 {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-amount", "Amount must be greater than zero")
		return
	}
	if req.Type == "" {
		req.Type = domain.TxTypeCashDigitization
	}

	tx, err := h.txSvc.CreateRequest(r.Context(), service.CreateTransactionRequest{
		MerchantID:  actorID,
		Amount:      req.Amount,
		Type:        req.Type,
		VMFNumber:   strings.TrimSpace(req.VMFNumber),
		CashierOTP:  strings.TrimSpace(req.CashierOTP),
		ReferenceID: idempotencyKey,
		Metadata:    req.Metadata,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedTxType):
			RespondError(w, r, http.StatusBadRequest, "transaction/unsupported-type", "Unsupported transaction type")
			return
		case errors.Is(err, service.ErrInvalidOTP):
			RespondError(w, r, http.StatusBadRequest, "transaction/invalid-otp", "Invalid or expired cashier OTP")
			return
		}
		if status, ptype, msg, ok := mapDBError(err); ok {
			RespondError(w, r, status, ptype, msg)
			return
		}
		zap.L().Error("create transaction failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "transaction/create-failed", "Failed to create transaction")
		return
	}

	RespondJSON(w, http.StatusCreated, tx)
}

type verifyTransactionRequest struct {
	CountedAmount int64  `json:"counted_amount"`
	VMFNumber     string `json:"vmf_number"`
}

// VerifyTransaction handles POST /v1/transactions/{id}/verify (cashier).
func (h *TransactionHandler) VerifyTransaction(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}
	txID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-transaction-id", "Invalid transaction ID")
		return
	}

	var req verifyTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	if req.CountedAmount <= 0 {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-amount", "counted_amount must be greater than zero")
		return
	}

	tx, err := h.txSvc.Verify(r.Context(), service.VerifyTransactionRequest{
		TransactionID: txID,
		CashierID:     actorID,
		CountedAmount: req.CountedAmount,
		CountedVMF:    strings.TrimSpace(req.VMFNumber),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTransactionNotFound):
			RespondError(w, r, http.StatusNotFound, "transaction/not-found", "Transaction not found")
			return
		case errors.Is(err, models.ErrTransactionNotPending):
			RespondError(w, r, http.StatusConflict, "transaction/not-pending", "Transaction is not pending")
			return
		case errors.Is(err, models.ErrDailyLimitExceeded):
			RespondError(w, r, http.StatusUnprocessableEntity, "transaction/daily-limit-exceeded", "Daily collection limit exceeded")
			return
		}
		zap.L().Error("verify transaction failed", zap.Error(err), zap.String("transaction_id", txID.String()))
		RespondError(w, r, http.StatusInternalServerError, "transaction/verify-failed", "Failed to verify transaction")
		return
	}

	RespondJSON(w, http.StatusOK, tx)
}

type rejectTransactionRequest struct {
	Reason string `json:"reason"`
}

// RejectTransaction handles POST /v1/transactions/{id}/reject (cashier or finance).
func (h *TransactionHandler) RejectTransaction(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}
	txID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-transaction-id", "Invalid transaction ID")
		return
	}

	var req rejectTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		RespondError(w, r, http.StatusBadRequest, "request/missing-reason", "reason is required")
		return
	}

	tx, err := h.txSvc.Reject(r.Context(), service.RejectTransactionRequest{
		TransactionID: txID,
		ActorID:       actorID,
		Reason:        req.Reason,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTransactionNotFound):
			RespondError(w, r, http.StatusNotFound, "transaction/not-found", "Transaction not found")
			return
		case errors.Is(err, models.ErrTransactionNotPending):
			RespondError(w, r, http.StatusConflict, "transaction/not-pending", "Transaction is not pending")
			return
		}
		zap.L().Error("reject transaction failed", zap.Error(err), zap.String("transaction_id", txID.String()))
		RespondError(w, r, http.StatusInternalServerError, "transaction/reject-failed", "Failed to reject transaction")
		return
	}

	RespondJSON(w, http.StatusOK, tx)
}

// GetTransaction handles GET /v1/transactions/{id}.
func (h *TransactionHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	actorID, role, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}
	txID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-transaction-id", "Invalid transaction ID")
		return
	}

	tx, err := h.txSvc.Get(r.Context(), txID)
	if err != nil {
		if errors.Is(err, service.ErrTransactionNotFound) {
			RespondError(w, r, http.StatusNotFound, "transaction/not-found", "Transaction not found")
			return
		}
		zap.L().Error("get transaction failed", zap.Error(err), zap.String("transaction_id", txID.String()))
		RespondError(w, r, http.StatusInternalServerError, "transaction/read-failed", "Failed to get transaction")
		return
	}

	// Merchants only see their own transactions.
	if role == domain.RoleMerchant && tx.MerchantID != actorID {
		RespondError(w, r, http.StatusForbidden, "auth/insufficient-permissions", "insufficient permissions")
		return
	}

	RespondJSON(w, http.StatusOK, tx)
}

// ListTransactions handles GET /v1/transactions with status/merchant filters.
func (h *TransactionHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	actorID, role, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}
	limit, offset, err := pagination(r)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-pagination", err.Error())
		return
	}

	arg := repository.ListTransactionsParams{Limit: limit, Offset: offset}
	if v := strings.TrimSpace(r.URL.Query().Get("status")); v != "" {
		arg.Status = &v
	}
	if role == domain.RoleMerchant {
		arg.MerchantID = &actorID
	} else if v := strings.TrimSpace(r.URL.Query().Get("merchant_id")); v != "" {
		merchantID, perr := uuid.Parse(v)
		if perr != nil {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-merchant-id", "Invalid merchant_id")
			return
		}
		arg.MerchantID = &merchantID
	}
	if v := middleware.OrganizationIDFromContext(r.Context()); v != "" && role != domain.RoleAdmin && role != domain.RoleFinance {
		if orgID, perr := uuid.Parse(v); perr == nil {
			arg.OrganizationID = &orgID
		}
	}

	txs, err := h.txSvc.List(r.Context(), arg)
	if err != nil {
		zap.L().Error("list transactions failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "transaction/list-failed", "Failed to list transactions")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"items":  txs,
		"limit":  limit,
		"offset": offset,
		"count":  len(txs),
	})
}
