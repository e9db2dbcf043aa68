package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kwachapay/emi-platform/internal/models"
)

const walletColumns = `id, user_id, balance, daily_limit, daily_collected, daily_transferred, last_reset_date, created_at, updated_at`

func scanWallet(row interface{ Scan(dest ...any) error }) (*models.Wallet, error) {
	var w models.Wallet
	err := row.Scan(&w.ID, &w.UserID, &w.Balance, &w.DailyLimit, &w.DailyCollected, &w.DailyTransferred, &w.LastResetDate, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (q *Queries) CreateWallet(ctx context.Context, wallet *models.Wallet) error {
	query := `INSERT INTO wallets (id, user_id, balance, daily_limit, daily_collected, daily_transferred, last_reset_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW()) RETURNING created_at, updated_at`
	err := q.db.QueryRow(ctx, query, wallet.ID, wallet.UserID, wallet.Balance, wallet.DailyLimit,
		wallet.DailyCollected, wallet.DailyTransferred, wallet.LastResetDate).Scan(&wallet.CreatedAt, &wallet.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create wallet: %w", err)
	}
	return nil
}

func (q *Queries) GetWallet(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	row := q.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1`, id)
	return scanWallet(row)
}

func (q *Queries) GetWalletByUser(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	row := q.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, userID)
	return scanWallet(row)
}

func (q *Queries) GetWalletForUpdate(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	row := q.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1 FOR UPDATE`, id)
	return scanWallet(row)
}

func (q *Queries) GetWalletByUserForUpdate(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	row := q.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1 FOR UPDATE`, userID)
	return scanWallet(row)
}

// GetOrganizationWalletForUpdate locks the wallet backing an organization's
// merchant account. Settlements draw on this wallet no matter who files the
// request; the oldest wallet wins if the organization has several merchants.
func (q *Queries) GetOrganizationWalletForUpdate(ctx context.Context, orgID uuid.UUID) (*models.Wallet, error) {
	row := q.db.QueryRow(ctx,
		`SELECT w.id, w.user_id, w.balance, w.daily_limit, w.daily_collected, w.daily_transferred, w.last_reset_date, w.created_at, w.updated_at
		 FROM wallets w
		 JOIN users u ON u.id = w.user_id
		 WHERE u.organization_id = $1 AND u.role = 'merchant'
		 ORDER BY w.created_at
		 LIMIT 1
		 FOR UPDATE OF w`, orgID)
	return scanWallet(row)
}

type ResetWalletDailyCountersParams struct {
	ID        uuid.UUID
	ResetDate time.Time
}

func (q *Queries) ResetWalletDailyCounters(ctx context.Context, arg ResetWalletDailyCountersParams) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE wallets SET daily_collected = 0, daily_transferred = 0, last_reset_date = $1, updated_at = NOW() WHERE id = $2`,
		arg.ResetDate, arg.ID)
	if err != nil {
		return 0, fmt.Errorf("reset wallet daily counters: %w", err)
	}
	return tag.RowsAffected(), nil
}

type CreditWalletCollectionParams struct {
	ID     uuid.UUID
	Amount int64
}

// CreditWalletCollection credits the balance and the daily-collected counter
// in one statement so a completed verification moves both together.
func (q *Queries) CreditWalletCollection(ctx context.Context, arg CreditWalletCollectionParams) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE wallets SET balance = balance + $1, daily_collected = daily_collected + $1, updated_at = NOW() WHERE id = $2`,
		arg.Amount, arg.ID)
	if err != nil {
		return 0, fmt.Errorf("credit wallet collection: %w", err)
	}
	return tag.RowsAffected(), nil
}

type DebitWalletBalanceParams struct {
	ID     uuid.UUID
	Amount int64
}

// DebitWalletBalance debits the balance and bumps daily_transferred. The
// balance guard in the WHERE clause makes an over-debit affect zero rows.
func (q *Queries) DebitWalletBalance(ctx context.Context, arg DebitWalletBalanceParams) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE wallets SET balance = balance - $1, daily_transferred = daily_transferred + $1, updated_at = NOW()
		 WHERE id = $2 AND balance >= $1`,
		arg.Amount, arg.ID)
	if err != nil {
		return 0, fmt.Errorf("debit wallet balance: %w", err)
	}
	return tag.RowsAffected(), nil
}
