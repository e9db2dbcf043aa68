package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kwachapay/emi-platform/internal/models"
	"github.com/kwachapay/emi-platform/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyWindowExpired(t *testing.T) {
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		lastReset time.Time
		expired   bool
	}{
		{"same_day_midnight", time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), false},
		{"same_day_later", time.Date(2026, 8, 30, 9, 59, 0, 0, time.UTC), false},
		{"yesterday", time.Date(2026, 8, 29, 23, 59, 0, 0, time.UTC), true},
		{"last_month", time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC), true},
		{"last_year", time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC), true},
		{"future_reset", time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expired, dailyWindowExpired(tc.lastReset, now))
		})
	}
}

func TestWalletLazyDailyReset(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewWalletService(store)
	ctx := context.Background()

	userID := createTestUser(t, db, "merchant", nil)

	yesterday := truncateToDay(time.Now().AddDate(0, 0, -1))
	wallet := &models.Wallet{
		ID:               uuid.New(),
		UserID:           userID,
		Balance:          3_000_000,
		DailyLimit:       10_000_000,
		DailyCollected:   2_500_000,
		DailyTransferred: 500_000,
		LastResetDate:    yesterday,
	}
	require.NoError(t, repository.New(db).CreateWallet(ctx, wallet))

	got, err := svc.GetByUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(3_000_000), got.Balance, "balance survives the daily rollover")
	assert.Equal(t, int64(0), got.DailyCollected)
	assert.Equal(t, int64(0), got.DailyTransferred)
	assert.False(t, dailyWindowExpired(got.LastResetDate, time.Now()), "reset date moved to today")
}

func TestWalletGetByUserSameDayKeepsCounters(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewWalletService(store)
	ctx := context.Background()

	userID := createTestUser(t, db, "merchant", nil)
	wallet := &models.Wallet{
		ID:             uuid.New(),
		UserID:         userID,
		Balance:        1_000_000,
		DailyLimit:     10_000_000,
		DailyCollected: 400_000,
		LastResetDate:  truncateToDay(time.Now()),
	}
	require.NoError(t, repository.New(db).CreateWallet(ctx, wallet))

	got, err := svc.GetByUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(400_000), got.DailyCollected)
}

func TestWalletCreateValidatesLimit(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	svc := NewWalletService(store)

	_, err := svc.Create(context.Background(), uuid.New(), 0)
	require.Error(t, err)
}
