package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransactionTransitions(t *testing.T) {
	assert.True(t, canTransition(transactionTransitions, "pending", "completed"))
	assert.True(t, canTransition(transactionTransitions, "pending", "rejected"))
	assert.True(t, canTransition(transactionTransitions, "pending", "expired"))

	// Terminal states stay terminal.
	for _, terminal := range []string{"completed", "rejected", "expired"} {
		for _, next := range []string{"pending", "completed", "rejected", "expired"} {
			assert.False(t, canTransition(transactionTransitions, terminal, next),
				"%s -> %s should not be allowed", terminal, next)
		}
	}
}

func TestSettlementTransitions(t *testing.T) {
	assert.True(t, canTransition(settlementTransitions, "pending", "approved"))
	assert.True(t, canTransition(settlementTransitions, "pending", "hold"))
	assert.True(t, canTransition(settlementTransitions, "pending", "rejected"))
	assert.True(t, canTransition(settlementTransitions, "hold", "approved"))
	assert.True(t, canTransition(settlementTransitions, "hold", "rejected"))
	assert.True(t, canTransition(settlementTransitions, "approved", "completed"))

	assert.False(t, canTransition(settlementTransitions, "pending", "completed"))
	assert.False(t, canTransition(settlementTransitions, "hold", "completed"))
	assert.False(t, canTransition(settlementTransitions, "rejected", "approved"))
	assert.False(t, canTransition(settlementTransitions, "completed", "approved"))
	assert.False(t, canTransition(settlementTransitions, "approved", "hold"))
}

func TestKYCTransitions(t *testing.T) {
	assert.True(t, canTransition(kycTransitions, "pending", "in_review"))
	assert.True(t, canTransition(kycTransitions, "in_review", "verified"))
	assert.True(t, canTransition(kycTransitions, "in_review", "rejected"))
	assert.True(t, canTransition(kycTransitions, "rejected", "in_review"))

	assert.False(t, canTransition(kycTransitions, "pending", "verified"))
	assert.False(t, canTransition(kycTransitions, "verified", "rejected"))
	assert.False(t, canTransition(kycTransitions, "verified", "in_review"))
}

func TestCanTransitionNormalizesInput(t *testing.T) {
	assert.True(t, canTransition(transactionTransitions, " Pending ", "COMPLETED"))
	assert.False(t, canTransition(transactionTransitions, "unknown", "completed"))
}
