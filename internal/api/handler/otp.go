package handler

import (
	"net/http"

	"github.com/kwachapay/emi-platform/internal/service"
	"go.uber.org/zap"
)

// OTPHandler issues cashier session codes.
type OTPHandler struct {
	otpSvc *service.OTPService
}

func NewOTPHandler(otpSvc *service.OTPService) *OTPHandler {
	return &OTPHandler{otpSvc: otpSvc}
}

// IssueOTP handles POST /v1/otp (cashier). The returned code is shown to the
// merchant so their collection request binds to this cashier session.
func (h *OTPHandler) IssueOTP(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	code, err := h.otpSvc.Issue(r.Context(), actorID)
	if err != nil {
		zap.L().Error("issue otp failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "otp/issue-failed", "Failed to issue OTP")
		return
	}

	RespondJSON(w, http.StatusCreated, map[string]string{"otp": code})
}
