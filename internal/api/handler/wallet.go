package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kwachapay/emi-platform/internal/service"
	"go.uber.org/zap"
)

// WalletHandler exposes the caller's wallet.
type WalletHandler struct {
	walletSvc *service.WalletService
}

func NewWalletHandler(walletSvc *service.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// GetMyWallet handles GET /v1/wallet.
func (h *WalletHandler) GetMyWallet(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	wallet, err := h.walletSvc.GetByUser(r.Context(), actorID)
	if err != nil {
		zap.L().Error("get wallet failed", zap.Error(err), zap.String("user_id", actorID.String()))
		RespondError(w, r, http.StatusNotFound, "wallet/not-found", "Wallet not found")
		return
	}

	RespondJSON(w, http.StatusOK, wallet)
}

// GetUserWallet handles GET /v1/wallets/{userID} (finance or admin).
func (h *WalletHandler) GetUserWallet(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-user-id", "Invalid user ID")
		return
	}

	wallet, err := h.walletSvc.GetByUser(r.Context(), userID)
	if err != nil {
		zap.L().Error("get wallet failed", zap.Error(err), zap.String("user_id", userID.String()))
		RespondError(w, r, http.StatusNotFound, "wallet/not-found", "Wallet not found")
		return
	}

	RespondJSON(w, http.StatusOK, wallet)
}
