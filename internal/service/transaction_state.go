package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kwachapay/emi-platform/internal/repository"
)

// A pending transaction can resolve exactly one way; nothing leaves a
// terminal state.
var transactionTransitions = map[string]map[string]struct{}{
	"pending": {
		"completed": {},
		"rejected":  {},
		"expired":   {},
	},
	"completed": {},
	"rejected":  {},
	"expired":   {},
}

// Settlement requests move pending -> {approved, hold, rejected}; a held
// request can still be approved or rejected; only approved completes.
var settlementTransitions = map[string]map[string]struct{}{
	"pending": {
		"approved": {},
		"hold":     {},
		"rejected": {},
	},
	"hold": {
		"approved": {},
		"rejected": {},
	},
	"approved": {
		"completed": {},
	},
	"rejected":  {},
	"completed": {},
}

// KYC review runs pending -> in_review -> {verified, rejected}; a rejected
// organization may be re-reviewed after resubmitting documents.
var kycTransitions = map[string]map[string]struct{}{
	"pending": {
		"in_review": {},
	},
	"in_review": {
		"verified": {},
		"rejected": {},
	},
	"rejected": {
		"in_review": {},
	},
	"verified": {},
}

func normalizeState(state string) string {
	return strings.ToLower(strings.TrimSpace(state))
}

func canTransition(table map[string]map[string]struct{}, current, next string) bool {
	current = normalizeState(current)
	next = normalizeState(next)
	nextStates, ok := table[current]
	if !ok {
		return false
	}
	_, ok = nextStates[next]
	return ok
}

func transitionTransactionState(ctx context.Context, qtx *repository.Queries, audit *AuditService, transactionID uuid.UUID, currentState, nextState string, actorID, cashierID *uuid.UUID, reason *string, action string, metadata []byte) error {
	if normalizeState(currentState) == normalizeState(nextState) {
		return nil
	}
	if !canTransition(transactionTransitions, currentState, nextState) {
		return fmt.Errorf("invalid transaction state transition: %s -> %s", currentState, nextState)
	}

	rows, err := qtx.UpdateTransactionStatus(ctx, repository.UpdateTransactionStatusParams{
		ID:              transactionID,
		Status:          nextState,
		CashierID:       cashierID,
		RejectionReason: reason,
	})
	if err != nil {
		return fmt.Errorf("update transaction state: %w", err)
	}
	if err := requireExactlyOne(rows, "update transaction state"); err != nil {
		return err
	}

	return audit.Write(ctx, qtx, "transaction", transactionID, actorID, action, currentState, nextState, metadata)
}

func transitionSettlementState(ctx context.Context, qtx *repository.Queries, audit *AuditService, arg repository.UpdateSettlementStatusParams, currentState, action string, actorID *uuid.UUID, metadata []byte) error {
	if !canTransition(settlementTransitions, currentState, arg.Status) {
		return fmt.Errorf("invalid settlement state transition: %s -> %s", currentState, arg.Status)
	}

	rows, err := qtx.UpdateSettlementStatus(ctx, arg)
	if err != nil {
		return fmt.Errorf("update settlement state: %w", err)
	}
	if err := requireExactlyOne(rows, "update settlement state"); err != nil {
		return err
	}

	return audit.Write(ctx, qtx, "settlement_request", arg.ID, actorID, action, currentState, arg.Status, metadata)
}
