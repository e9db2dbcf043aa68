package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kwachapay/emi-platform/internal/domain"
	"github.com/kwachapay/emi-platform/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateReportAggregatesActivity(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewComplianceService(store)
	ctx := context.Background()

	merchantID, _, _ := createTestMerchant(t, db, 0, 10_000_000)
	queries := repository.New(db)

	seed := []struct {
		status string
		amount int64
	}{
		{domain.TxStatusCompleted, 2_000_000},
		{domain.TxStatusCompleted, 1_000_000},
		{domain.TxStatusRejected, 500_000},
		{domain.TxStatusExpired, 300_000},
		{domain.TxStatusPending, 400_000},
	}
	for i, s := range seed {
		_, err := queries.CreateTransaction(ctx, repository.CreateTransactionParams{
			ID:          uuid.New(),
			Amount:      s.amount,
			Currency:    domain.Currency,
			Type:        domain.TxTypeCashDigitization,
			Status:      s.status,
			MerchantID:  merchantID,
			ReferenceID: "report-" + string(rune('a'+i)),
		})
		require.NoError(t, err)
	}

	_, err := queries.CreateAmlAlert(ctx, repository.CreateAmlAlertParams{
		ID:            uuid.New(),
		AlertType:     domain.AmlRuleSingleTransaction,
		TransactionID: uuid.New(),
		Amount:        6_000_000,
		Threshold:     5_000_000,
		RiskScore:     decimal.NewFromInt(3),
		Status:        domain.AlertStatusOpen,
	})
	require.NoError(t, err)

	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(time.Hour)
	report, err := svc.GenerateReport(ctx, start, end, "")
	require.NoError(t, err)

	assert.Equal(t, int64(5), report.TotalTransactions)
	assert.Equal(t, int64(3_000_000), report.TotalVolume, "volume counts completed transactions only")
	assert.Equal(t, int64(2), report.CompletedCount)
	assert.Equal(t, int64(1), report.RejectedCount)
	assert.Equal(t, int64(1), report.ExpiredCount)
	assert.Equal(t, int64(1), report.OpenAlertCount)
	assert.Equal(t, "manual", report.GeneratedBy)

	reports, err := svc.ListReports(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, report.ID, reports[0].ID)
}

func TestGenerateReportRejectsInvalidPeriod(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewComplianceService(store)

	now := time.Now()
	_, err := svc.GenerateReport(context.Background(), now, now, "manual")
	require.Error(t, err)
}

func TestGenerateDailyReportCoversPreviousDay(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewComplianceService(store)

	report, err := svc.GenerateDailyReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "worker", report.GeneratedBy)
	assert.Equal(t, truncateToDay(time.Now()), report.PeriodEnd)
	assert.Equal(t, report.PeriodEnd.AddDate(0, 0, -1), report.PeriodStart)
}
