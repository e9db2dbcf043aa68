package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/kwachapay/emi-platform/internal/models"
)

type TransactionStatsRow struct {
	TotalTransactions int64
	TotalVolume       int64
	CompletedCount    int64
	RejectedCount     int64
	ExpiredCount      int64
}

// GetTransactionStats aggregates per-period counts for compliance snapshots.
func (q *Queries) GetTransactionStats(ctx context.Context, start, end time.Time) (TransactionStatsRow, error) {
	var row TransactionStatsRow
	err := q.db.QueryRow(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(amount) FILTER (WHERE status = 'completed'), 0),
		        COUNT(*) FILTER (WHERE status = 'completed'),
		        COUNT(*) FILTER (WHERE status = 'rejected'),
		        COUNT(*) FILTER (WHERE status = 'expired')
		 FROM transactions
		 WHERE created_at >= $1 AND created_at < $2`,
		start, end).Scan(&row.TotalTransactions, &row.TotalVolume, &row.CompletedCount, &row.RejectedCount, &row.ExpiredCount)
	if err != nil {
		return TransactionStatsRow{}, fmt.Errorf("transaction stats: %w", err)
	}
	return row, nil
}

func (q *Queries) CreateComplianceReport(ctx context.Context, report *models.ComplianceReport) error {
	query := `INSERT INTO compliance_reports
		(id, period_start, period_end, total_transactions, total_volume, completed_count, rejected_count, expired_count, open_alert_count, generated_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW()) RETURNING created_at`
	err := q.db.QueryRow(ctx, query, report.ID, report.PeriodStart, report.PeriodEnd, report.TotalTransactions,
		report.TotalVolume, report.CompletedCount, report.RejectedCount, report.ExpiredCount,
		report.OpenAlertCount, report.GeneratedBy).Scan(&report.CreatedAt)
	if err != nil {
		return fmt.Errorf("create compliance report: %w", err)
	}
	return nil
}

func (q *Queries) ListComplianceReports(ctx context.Context, limit, offset int32) ([]models.ComplianceReport, error) {
	rows, err := q.db.Query(ctx,
		`SELECT id, period_start, period_end, total_transactions, total_volume, completed_count, rejected_count, expired_count, open_alert_count, generated_by, created_at
		 FROM compliance_reports ORDER BY period_start DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list compliance reports: %w", err)
	}
	defer rows.Close()

	var reports []models.ComplianceReport
	for rows.Next() {
		var r models.ComplianceReport
		if err := rows.Scan(&r.ID, &r.PeriodStart, &r.PeriodEnd, &r.TotalTransactions, &r.TotalVolume,
			&r.CompletedCount, &r.RejectedCount, &r.ExpiredCount, &r.OpenAlertCount, &r.GeneratedBy, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan compliance report: %w", err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
