package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kwachapay/emi-platform/internal/models"
	"github.com/kwachapay/emi-platform/internal/repository"
)

// WalletService reads wallets and keeps the daily counters honest.
type WalletService struct {
	store QueryStore
}

func NewWalletService(store QueryStore) *WalletService {
	return &WalletService{store: store}
}

// dailyWindowExpired reports whether the counters belong to a previous day.
// Comparison is by calendar date in the given location, not a 24h delta.
func dailyWindowExpired(lastReset, now time.Time) bool {
	ly, lm, ld := lastReset.Date()
	ny, nm, nd := now.Date()
	if ny != ly {
		return ny > ly
	}
	if nm != lm {
		return nm > lm
	}
	return nd > ld
}

// GetByUser returns the user's wallet, lazily resetting the daily counters
// when the reset date has rolled over.
func (s *WalletService) GetByUser(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	wallet, err := s.store.Queries().GetWalletByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}

	now := time.Now()
	if !dailyWindowExpired(wallet.LastResetDate, now) {
		return wallet, nil
	}

	err = s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		locked, err := qtx.GetWalletForUpdate(ctx, wallet.ID)
		if err != nil {
			return fmt.Errorf("lock wallet: %w", err)
		}
		// Another request may have reset it between the read and the lock.
		if !dailyWindowExpired(locked.LastResetDate, now) {
			wallet = locked
			return nil
		}
		rows, err := qtx.ResetWalletDailyCounters(ctx, repository.ResetWalletDailyCountersParams{
			ID:        wallet.ID,
			ResetDate: truncateToDay(now),
		})
		if err != nil {
			return err
		}
		if err := requireExactlyOne(rows, "reset wallet daily counters"); err != nil {
			return err
		}
		wallet = locked
		wallet.DailyCollected = 0
		wallet.DailyTransferred = 0
		wallet.LastResetDate = truncateToDay(now)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// Create provisions a wallet for a new user.
func (s *WalletService) Create(ctx context.Context, userID uuid.UUID, dailyLimit int64) (*models.Wallet, error) {
	if dailyLimit <= 0 {
		return nil, fmt.Errorf("invalid daily limit: %d", dailyLimit)
	}
	wallet := &models.Wallet{
		ID:            uuid.New(),
		UserID:        userID,
		Balance:       0,
		DailyLimit:    dailyLimit,
		LastResetDate: truncateToDay(time.Now()),
	}
	if err := s.store.Queries().CreateWallet(ctx, wallet); err != nil {
		return nil, err
	}
	return wallet, nil
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
