package service

import (
	"strings"

	"github.com/kwachapay/emi-platform/internal/domain"
)

// verificationOutcome is the cashier-side decision for a pending transaction.
type verificationOutcome struct {
	Status string
	Reason string // empty when Status is completed
}

// decideVerification applies the teller cross-check: the counted cash amount
// and the VMF number must both match the merchant's request exactly. The
// amount is checked first, so a double mismatch reports the amount reason.
func decideVerification(requestedAmount, countedAmount int64, requestedVMF, countedVMF string) verificationOutcome {
	if countedAmount != requestedAmount {
		return verificationOutcome{Status: domain.TxStatusRejected, Reason: domain.RejectReasonAmountMismatch}
	}
	if strings.TrimSpace(countedVMF) != strings.TrimSpace(requestedVMF) {
		return verificationOutcome{Status: domain.TxStatusRejected, Reason: domain.RejectReasonVMFMismatch}
	}
	return verificationOutcome{Status: domain.TxStatusCompleted}
}
