package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kwachapay/emi-platform/internal/models"
)

const transactionColumns = `id, amount, currency, type, status, merchant_id, organization_id, cashier_id,
	vmf_number, rejection_reason, reference_id, expires_at, metadata, created_at, updated_at`

func scanTransaction(row interface{ Scan(dest ...any) error }) (*models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.Amount, &t.Currency, &t.Type, &t.Status, &t.MerchantID, &t.OrganizationID,
		&t.CashierID, &t.VMFNumber, &t.RejectionReason, &t.ReferenceID, &t.ExpiresAt, &t.Metadata,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type CreateTransactionParams struct {
	ID             uuid.UUID
	Amount         int64
	Currency       string
	Type           string
	Status         string
	MerchantID     uuid.UUID
	OrganizationID *uuid.UUID
	CashierID      *uuid.UUID
	VMFNumber      *string
	ReferenceID    string
	ExpiresAt      *time.Time
	Metadata       []byte
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (*models.Transaction, error) {
	query := `INSERT INTO transactions
		(id, amount, currency, type, status, merchant_id, organization_id, cashier_id, vmf_number, reference_id, expires_at, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		RETURNING ` + transactionColumns
	row := q.db.QueryRow(ctx, query, arg.ID, arg.Amount, arg.Currency, arg.Type, arg.Status, arg.MerchantID,
		arg.OrganizationID, arg.CashierID, arg.VMFNumber, arg.ReferenceID, arg.ExpiresAt, arg.Metadata)
	return scanTransaction(row)
}

func (q *Queries) GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	row := q.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
	return scanTransaction(row)
}

// GetTransactionForUpdate locks the row so concurrent verifiers serialize.
func (q *Queries) GetTransactionForUpdate(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	row := q.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id)
	return scanTransaction(row)
}

func (q *Queries) GetTransactionByReference(ctx context.Context, referenceID string) (*models.Transaction, error) {
	row := q.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE reference_id = $1`, referenceID)
	return scanTransaction(row)
}

type UpdateTransactionStatusParams struct {
	ID              uuid.UUID
	Status          string
	CashierID       *uuid.UUID
	RejectionReason *string
}

func (q *Queries) UpdateTransactionStatus(ctx context.Context, arg UpdateTransactionStatusParams) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE transactions SET status = $1, cashier_id = COALESCE($2, cashier_id), rejection_reason = COALESCE($3, rejection_reason), updated_at = NOW()
		 WHERE id = $4`,
		arg.Status, arg.CashierID, arg.RejectionReason, arg.ID)
	if err != nil {
		return 0, fmt.Errorf("update transaction status: %w", err)
	}
	return tag.RowsAffected(), nil
}

type ListTransactionsParams struct {
	MerchantID     *uuid.UUID
	OrganizationID *uuid.UUID
	Status         *string
	Limit          int32
	Offset         int32
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE ($1::uuid IS NULL OR merchant_id = $1)
		  AND ($2::uuid IS NULL OR organization_id = $2)
		  AND ($3::text IS NULL OR status = $3)
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5`
	rows, err := q.db.Query(ctx, query, arg.MerchantID, arg.OrganizationID, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}

type ListExpiredPendingTransactionsParams struct {
	Now   time.Time
	Limit int32
}

// ListExpiredPendingTransactions claims overdue pending rows for the expiry
// sweep. SKIP LOCKED keeps concurrent sweepers and verifiers out of each
// other's way.
func (q *Queries) ListExpiredPendingTransactions(ctx context.Context, arg ListExpiredPendingTransactionsParams) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE status = 'pending' AND expires_at IS NOT NULL AND expires_at < $1
		ORDER BY expires_at
		LIMIT $2
		FOR UPDATE SKIP LOCKED`
	rows, err := q.db.Query(ctx, query, arg.Now, arg.Limit)
	if err != nil {
		return nil, fmt.Errorf("list expired pending transactions: %w", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expired transaction: %w", err)
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}

type SumCompletedAmountSinceParams struct {
	MerchantID uuid.UUID
	Since      time.Time
	ExcludeID  uuid.UUID
}

// SumCompletedAmountSince totals completed transaction amounts for a merchant
// from the given instant, used by the AML daily/weekly volume rules. ExcludeID
// skips the transaction under evaluation, which is already completed when the
// sums run in the same database transaction.
func (q *Queries) SumCompletedAmountSince(ctx context.Context, arg SumCompletedAmountSinceParams) (int64, error) {
	var total int64
	err := q.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM transactions
		 WHERE merchant_id = $1 AND status = 'completed' AND created_at >= $2 AND id <> $3`,
		arg.MerchantID, arg.Since, arg.ExcludeID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum completed amount: %w", err)
	}
	return total, nil
}
