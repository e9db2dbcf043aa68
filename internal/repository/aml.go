package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kwachapay/emi-platform/internal/models"
	"github.com/shopspring/decimal"
)

type UpsertAmlConfigurationParams struct {
	ID        uuid.UUID
	RuleType  string
	Threshold int64
	Enabled   bool
	UpdatedBy uuid.UUID
}

// UpsertAmlConfiguration keeps one row per rule type.
func (q *Queries) UpsertAmlConfiguration(ctx context.Context, arg UpsertAmlConfigurationParams) error {
	_, err := q.db.Exec(ctx,
		`INSERT INTO aml_configuration (id, rule_type, threshold, enabled, updated_by, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW())
		 ON CONFLICT (rule_type) DO UPDATE
		 SET threshold = EXCLUDED.threshold, enabled = EXCLUDED.enabled, updated_by = EXCLUDED.updated_by, updated_at = NOW()`,
		arg.ID, arg.RuleType, arg.Threshold, arg.Enabled, arg.UpdatedBy)
	if err != nil {
		return fmt.Errorf("upsert aml configuration: %w", err)
	}
	return nil
}

func (q *Queries) ListAmlConfigurations(ctx context.Context) ([]models.AmlConfiguration, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, rule_type, threshold, enabled, updated_by, updated_at FROM aml_configuration ORDER BY rule_type`)
	if err != nil {
		return nil, fmt.Errorf("list aml configurations: %w", err)
	}
	defer rows.Close()

	var configs []models.AmlConfiguration
	for rows.Next() {
		var c models.AmlConfiguration
		if err := rows.Scan(&c.ID, &c.RuleType, &c.Threshold, &c.Enabled, &c.UpdatedBy, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan aml configuration: %w", err)
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}

const amlAlertColumns = `id, alert_type, transaction_id, organization_id, amount, threshold, risk_score,
	status, reviewer_id, review_notes, created_at, updated_at`

func scanAmlAlert(row interface{ Scan(dest ...any) error }) (*models.AmlAlert, error) {
	var a models.AmlAlert
	var score string
	err := row.Scan(&a.ID, &a.AlertType, &a.TransactionID, &a.OrganizationID, &a.Amount, &a.Threshold,
		&score, &a.Status, &a.ReviewerID, &a.ReviewNotes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.RiskScore, err = decimal.NewFromString(score)
	if err != nil {
		return nil, fmt.Errorf("parse risk score: %w", err)
	}
	return &a, nil
}

type CreateAmlAlertParams struct {
	ID             uuid.UUID
	AlertType      string
	TransactionID  uuid.UUID
	OrganizationID *uuid.UUID
	Amount         int64
	Threshold      int64
	RiskScore      decimal.Decimal
	Status         string
}

func (q *Queries) CreateAmlAlert(ctx context.Context, arg CreateAmlAlertParams) (*models.AmlAlert, error) {
	query := `INSERT INTO aml_alerts
		(id, alert_type, transaction_id, organization_id, amount, threshold, risk_score, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING ` + amlAlertColumns
	row := q.db.QueryRow(ctx, query, arg.ID, arg.AlertType, arg.TransactionID, arg.OrganizationID,
		arg.Amount, arg.Threshold, arg.RiskScore.String(), arg.Status)
	return scanAmlAlert(row)
}

func (q *Queries) GetAmlAlertForUpdate(ctx context.Context, id uuid.UUID) (*models.AmlAlert, error) {
	row := q.db.QueryRow(ctx, `SELECT `+amlAlertColumns+` FROM aml_alerts WHERE id = $1 FOR UPDATE`, id)
	return scanAmlAlert(row)
}

type UpdateAmlAlertStatusParams struct {
	ID          uuid.UUID
	Status      string
	ReviewerID  *uuid.UUID
	ReviewNotes *string
}

func (q *Queries) UpdateAmlAlertStatus(ctx context.Context, arg UpdateAmlAlertStatusParams) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE aml_alerts SET status = $1, reviewer_id = $2, review_notes = COALESCE($3, review_notes), updated_at = NOW() WHERE id = $4`,
		arg.Status, arg.ReviewerID, arg.ReviewNotes, arg.ID)
	if err != nil {
		return 0, fmt.Errorf("update aml alert status: %w", err)
	}
	return tag.RowsAffected(), nil
}

type ListAmlAlertsParams struct {
	Status *string
	Limit  int32
	Offset int32
}

func (q *Queries) ListAmlAlerts(ctx context.Context, arg ListAmlAlertsParams) ([]models.AmlAlert, error) {
	query := `SELECT ` + amlAlertColumns + ` FROM aml_alerts
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := q.db.Query(ctx, query, arg.Status, arg.Limit, arg.Offset)
	if err != nil {
		return nil, fmt.Errorf("list aml alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.AmlAlert
	for rows.Next() {
		a, err := scanAmlAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan aml alert: %w", err)
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

func (q *Queries) CountOpenAmlAlerts(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, `SELECT COUNT(*) FROM aml_alerts WHERE status IN ('open', 'under_review')`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count open aml alerts: %w", err)
	}
	return count, nil
}
