package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/kwachapay/emi-platform/internal/domain"
	"github.com/kwachapay/emi-platform/internal/models"
	"github.com/kwachapay/emi-platform/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskScoreFor(t *testing.T) {
	// 60,000 over a 50,000 threshold scales to 3.00.
	assert.True(t, riskScoreFor(6_000_000, 5_000_000).Equal(decimal.NewFromInt(3)))

	// At the threshold the base score is 2.5.
	assert.True(t, riskScoreFor(5_000_000, 5_000_000).Equal(decimal.NewFromFloat(2.5)))

	// Far past the threshold the score caps at 10.
	assert.True(t, riskScoreFor(50_000_000, 5_000_000).Equal(decimal.NewFromInt(10)))

	// A zero threshold cannot be scaled against; treat as maximal risk.
	assert.True(t, riskScoreFor(1, 0).Equal(decimal.NewFromInt(10)))
}

func TestEvaluateRules(t *testing.T) {
	updatedBy := uuid.New()
	configs := []models.AmlConfiguration{
		{ID: uuid.New(), RuleType: domain.AmlRuleSingleTransaction, Threshold: 5_000_000, Enabled: true, UpdatedBy: updatedBy},
		{ID: uuid.New(), RuleType: domain.AmlRuleDailyTotal, Threshold: 20_000_000, Enabled: true, UpdatedBy: updatedBy},
		{ID: uuid.New(), RuleType: domain.AmlRuleWeeklyVolume, Threshold: 50_000_000, Enabled: false, UpdatedBy: updatedBy},
	}

	t.Run("no_breach", func(t *testing.T) {
		drafts := evaluateRules(configs, ruleMeasurements{
			TransactionAmount: 4_000_000,
			DailyTotal:        10_000_000,
			WeeklyVolume:      60_000_000,
		})
		// Weekly rule is disabled, the rest are under threshold.
		assert.Empty(t, drafts)
	})

	t.Run("single_transaction_breach", func(t *testing.T) {
		drafts := evaluateRules(configs, ruleMeasurements{
			TransactionAmount: 6_000_000,
			DailyTotal:        6_000_000,
			WeeklyVolume:      6_000_000,
		})
		require.Len(t, drafts, 1)
		assert.Equal(t, domain.AmlRuleSingleTransaction, drafts[0].RuleType)
		assert.Equal(t, int64(6_000_000), drafts[0].Measured)
		assert.Equal(t, int64(5_000_000), drafts[0].Threshold)
		assert.True(t, drafts[0].RiskScore.Equal(decimal.NewFromInt(3)))
	})

	t.Run("multiple_breaches", func(t *testing.T) {
		drafts := evaluateRules(configs, ruleMeasurements{
			TransactionAmount: 6_000_000,
			DailyTotal:        25_000_000,
			WeeklyVolume:      90_000_000,
		})
		require.Len(t, drafts, 2)
	})

	t.Run("at_threshold_does_not_alert", func(t *testing.T) {
		drafts := evaluateRules(configs, ruleMeasurements{
			TransactionAmount: 5_000_000,
			DailyTotal:        20_000_000,
			WeeklyVolume:      0,
		})
		assert.Empty(t, drafts)
	})
}

func TestConfigureRuleValidation(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	amlSvc := NewAmlService(store)
	ctx := context.Background()
	actor := uuid.New()

	err := amlSvc.ConfigureRule(ctx, ConfigureRuleRequest{RuleType: "velocity", Threshold: 1, UpdatedBy: actor})
	require.ErrorIs(t, err, ErrUnknownAmlRule)

	err = amlSvc.ConfigureRule(ctx, ConfigureRuleRequest{RuleType: domain.AmlRuleDailyTotal, Threshold: 0, UpdatedBy: actor})
	require.Error(t, err)

	require.NoError(t, amlSvc.ConfigureRule(ctx, ConfigureRuleRequest{
		RuleType:  domain.AmlRuleDailyTotal,
		Threshold: 5_000_000,
		Enabled:   true,
		UpdatedBy: actor,
	}))

	// Upsert keeps one row per rule type.
	require.NoError(t, amlSvc.ConfigureRule(ctx, ConfigureRuleRequest{
		RuleType:  domain.AmlRuleDailyTotal,
		Threshold: 8_000_000,
		Enabled:   true,
		UpdatedBy: actor,
	}))

	configs, err := amlSvc.ListConfigurations(ctx)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, int64(8_000_000), configs[0].Threshold)
}

func TestVerifyRaisesSingleTransactionAlert(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	amlSvc := NewAmlService(store)
	txSvc := NewTransactionService(store, amlSvc, nil, nil, 0)
	ctx := context.Background()

	merchantID, _, _ := createTestMerchant(t, db, 0, 10_000_000)
	cashierID := createTestUser(t, db, domain.RoleCashier, nil)

	require.NoError(t, amlSvc.ConfigureRule(ctx, ConfigureRuleRequest{
		RuleType:  domain.AmlRuleSingleTransaction,
		Threshold: 5_000_000,
		Enabled:   true,
		UpdatedBy: uuid.New(),
	}))

	tx, err := txSvc.CreateRequest(ctx, CreateTransactionRequest{
		MerchantID:  merchantID,
		Amount:      6_000_000,
		Type:        domain.TxTypeCashDigitization,
		VMFNumber:   "VMF-900",
		ReferenceID: "aml-breach-1",
	})
	require.NoError(t, err)

	verified, err := txSvc.Verify(ctx, VerifyTransactionRequest{
		TransactionID: tx.ID,
		CashierID:     cashierID,
		CountedAmount: 6_000_000,
		CountedVMF:    "VMF-900",
	})
	require.NoError(t, err)
	require.Equal(t, domain.TxStatusCompleted, verified.Status)

	alerts, err := amlSvc.ListAlerts(ctx, nil, 10, 0)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.AmlRuleSingleTransaction, alerts[0].AlertType)
	assert.Equal(t, tx.ID, alerts[0].TransactionID)
	assert.Equal(t, int64(6_000_000), alerts[0].Amount)
	assert.Equal(t, domain.AlertStatusOpen, alerts[0].Status)
	assert.True(t, alerts[0].RiskScore.Equal(decimal.NewFromInt(3)), "risk score %s", alerts[0].RiskScore)
}

func TestVerifyCountsDailyTotalOnce(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	amlSvc := NewAmlService(store)
	txSvc := NewTransactionService(store, amlSvc, nil, nil, 0)
	ctx := context.Background()

	merchantID, _, _ := createTestMerchant(t, db, 0, 10_000_000)
	cashierID := createTestUser(t, db, domain.RoleCashier, nil)

	require.NoError(t, amlSvc.ConfigureRule(ctx, ConfigureRuleRequest{
		RuleType:  domain.AmlRuleDailyTotal,
		Threshold: 5_000_000,
		Enabled:   true,
		UpdatedBy: uuid.New(),
	}))

	verify := func(reference string) {
		tx, err := txSvc.CreateRequest(ctx, CreateTransactionRequest{
			MerchantID:  merchantID,
			Amount:      3_000_000,
			Type:        domain.TxTypeCashDigitization,
			VMFNumber:   "VMF-910",
			ReferenceID: reference,
		})
		require.NoError(t, err)
		_, err = txSvc.Verify(ctx, VerifyTransactionRequest{
			TransactionID: tx.ID,
			CashierID:     cashierID,
			CountedAmount: 3_000_000,
			CountedVMF:    "VMF-910",
		})
		require.NoError(t, err)
	}

	// A single 3M collection must not trip a 5M daily threshold: the
	// transaction under evaluation counts exactly once.
	verify("daily-total-1")
	alerts, err := amlSvc.ListAlerts(ctx, nil, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, alerts)

	// The second collection brings the day to 6M and breaches.
	verify("daily-total-2")
	alerts, err = amlSvc.ListAlerts(ctx, nil, 10, 0)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.AmlRuleDailyTotal, alerts[0].AlertType)
	assert.Equal(t, int64(6_000_000), alerts[0].Amount)
}

func TestReviewAlert(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	amlSvc := NewAmlService(store)
	ctx := context.Background()

	alert, err := repository.New(db).CreateAmlAlert(ctx, repository.CreateAmlAlertParams{
		ID:            uuid.New(),
		AlertType:     domain.AmlRuleSingleTransaction,
		TransactionID: uuid.New(),
		Amount:        6_000_000,
		Threshold:     5_000_000,
		RiskScore:     decimal.NewFromInt(3),
		Status:        domain.AlertStatusOpen,
	})
	require.NoError(t, err)

	reviewer := uuid.New()

	_, err = amlSvc.ReviewAlert(ctx, ReviewAlertRequest{
		AlertID:    alert.ID,
		Resolution: "ignored",
		ReviewerID: reviewer,
	})
	require.ErrorIs(t, err, ErrInvalidAlertResolution)

	reviewed, err := amlSvc.ReviewAlert(ctx, ReviewAlertRequest{
		AlertID:    alert.ID,
		Resolution: domain.AlertStatusCleared,
		Notes:      "false positive, known customer",
		ReviewerID: reviewer,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AlertStatusCleared, reviewed.Status)
	require.NotNil(t, reviewed.ReviewerID)
	assert.Equal(t, reviewer, *reviewed.ReviewerID)

	_, err = amlSvc.ReviewAlert(ctx, ReviewAlertRequest{
		AlertID:    uuid.New(),
		Resolution: domain.AlertStatusCleared,
		ReviewerID: reviewer,
	})
	require.ErrorIs(t, err, ErrAlertNotFound)
}
