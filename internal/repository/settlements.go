package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kwachapay/emi-platform/internal/models"
)

const settlementColumns = `id, organization_id, wallet_id, amount, bank_name, bank_account_number, bank_account_name,
	status, reviewer_id, reason, comment, bank_reference, reference_id, created_at, updated_at`

func scanSettlement(row interface{ Scan(dest ...any) error }) (*models.SettlementRequest, error) {
	var s models.SettlementRequest
	err := row.Scan(&s.ID, &s.OrganizationID, &s.WalletID, &s.Amount, &s.BankName, &s.BankAccountNumber,
		&s.BankAccountName, &s.Status, &s.ReviewerID, &s.Reason, &s.Comment, &s.BankReference, &s.ReferenceID,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

type CreateSettlementRequestParams struct {
	ID                uuid.UUID
	OrganizationID    uuid.UUID
	WalletID          uuid.UUID
	Amount            int64
	BankName          string
	BankAccountNumber string
	BankAccountName   string
	Status            string
	ReferenceID       string
}

func (q *Queries) CreateSettlementRequest(ctx context.Context, arg CreateSettlementRequestParams) (*models.SettlementRequest, error) {
	query := `INSERT INTO settlement_requests
		(id, organization_id, wallet_id, amount, bank_name, bank_account_number, bank_account_name, status, reference_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING ` + settlementColumns
	row := q.db.QueryRow(ctx, query, arg.ID, arg.OrganizationID, arg.WalletID, arg.Amount, arg.BankName,
		arg.BankAccountNumber, arg.BankAccountName, arg.Status, arg.ReferenceID)
	return scanSettlement(row)
}

func (q *Queries) GetSettlementRequest(ctx context.Context, id uuid.UUID) (*models.SettlementRequest, error) {
	row := q.db.QueryRow(ctx, `SELECT `+settlementColumns+` FROM settlement_requests WHERE id = $1`, id)
	return scanSettlement(row)
}

func (q *Queries) GetSettlementRequestForUpdate(ctx context.Context, id uuid.UUID) (*models.SettlementRequest, error) {
	row := q.db.QueryRow(ctx, `SELECT `+settlementColumns+` FROM settlement_requests WHERE id = $1 FOR UPDATE`, id)
	return scanSettlement(row)
}

func (q *Queries) GetSettlementByReference(ctx context.Context, referenceID string) (*models.SettlementRequest, error) {
	row := q.db.QueryRow(ctx, `SELECT `+settlementColumns+` FROM settlement_requests WHERE reference_id = $1`, referenceID)
	return scanSettlement(row)
}

// SumOutstandingSettlements totals settlement amounts that still hold a claim
// on the wallet (pending, hold, approved-but-not-completed).
func (q *Queries) SumOutstandingSettlements(ctx context.Context, walletID uuid.UUID) (int64, error) {
	var total int64
	err := q.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM settlement_requests
		 WHERE wallet_id = $1 AND status IN ('pending', 'hold', 'approved')`,
		walletID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum outstanding settlements: %w", err)
	}
	return total, nil
}

type UpdateSettlementStatusParams struct {
	ID            uuid.UUID
	Status        string
	ReviewerID    *uuid.UUID
	Reason        *string
	Comment       *string
	BankReference *string
}

func (q *Queries) UpdateSettlementStatus(ctx context.Context, arg UpdateSettlementStatusParams) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE settlement_requests
		 SET status = $1,
		     reviewer_id = COALESCE($2, reviewer_id),
		     reason = COALESCE($3, reason),
		     comment = COALESCE($4, comment),
		     bank_reference = COALESCE($5, bank_reference),
		     updated_at = NOW()
		 WHERE id = $6`,
		arg.Status, arg.ReviewerID, arg.Reason, arg.Comment, arg.BankReference, arg.ID)
	if err != nil {
		return 0, fmt.Errorf("update settlement status: %w", err)
	}
	return tag.RowsAffected(), nil
}

type ListSettlementRequestsParams struct {
	OrganizationID *uuid.UUID
	Status         *string
	Limit          int32
	Offset         int32
}

func (q *Queries) ListSettlementRequests(ctx context.Context, arg ListSettlementRequestsParams) ([]models.SettlementRequest, error) {
	query := `SELECT ` + settlementColumns + ` FROM settlement_requests
		WHERE ($1::uuid IS NULL OR organization_id = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4`
	rows, err := q.db.Query(ctx, query, arg.OrganizationID, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, fmt.Errorf("list settlement requests: %w", err)
	}
	defer rows.Close()

	var out []models.SettlementRequest
	for rows.Next() {
		s, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan settlement request: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}
