package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kwachapay/emi-platform/internal/models"
)

const organizationColumns = `id, business_name, pacra_number, zra_tpin, kyc_status, kyc_reviewer_id, kyc_review_notes, created_at, updated_at`

func scanOrganization(row interface{ Scan(dest ...any) error }) (*models.Organization, error) {
	var o models.Organization
	err := row.Scan(&o.ID, &o.BusinessName, &o.PacraNumber, &o.ZraTPIN, &o.KYCStatus, &o.KYCReviewerID, &o.KYCReviewNotes, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (q *Queries) CreateOrganization(ctx context.Context, org *models.Organization) error {
	query := `INSERT INTO organizations (id, business_name, pacra_number, zra_tpin, kyc_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW()) RETURNING created_at, updated_at`
	err := q.db.QueryRow(ctx, query, org.ID, org.BusinessName, org.PacraNumber, org.ZraTPIN, org.KYCStatus).Scan(&org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create organization: %w", err)
	}
	return nil
}

func (q *Queries) GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	row := q.db.QueryRow(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE id = $1`, id)
	return scanOrganization(row)
}

func (q *Queries) GetOrganizationForUpdate(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	row := q.db.QueryRow(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE id = $1 FOR UPDATE`, id)
	return scanOrganization(row)
}

func (q *Queries) ListOrganizations(ctx context.Context, limit, offset int32) ([]models.Organization, error) {
	rows, err := q.db.Query(ctx, `SELECT `+organizationColumns+` FROM organizations ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []models.Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		orgs = append(orgs, *o)
	}
	return orgs, rows.Err()
}

type UpdateOrganizationKYCStatusParams struct {
	ID          uuid.UUID
	KYCStatus   string
	ReviewerID  *uuid.UUID
	ReviewNotes *string
}

func (q *Queries) UpdateOrganizationKYCStatus(ctx context.Context, arg UpdateOrganizationKYCStatusParams) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE organizations SET kyc_status = $1, kyc_reviewer_id = $2, kyc_review_notes = $3, updated_at = NOW() WHERE id = $4`,
		arg.KYCStatus, arg.ReviewerID, arg.ReviewNotes, arg.ID)
	if err != nil {
		return 0, fmt.Errorf("update organization kyc status: %w", err)
	}
	return tag.RowsAffected(), nil
}
