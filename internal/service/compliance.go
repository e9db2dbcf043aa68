package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kwachapay/emi-platform/internal/models"
	"github.com/kwachapay/emi-platform/internal/repository"
	"go.uber.org/zap"
)

// ComplianceService snapshots transaction activity into periodic reports,
// either on demand or from the compliance worker.
type ComplianceService struct {
	store QueryStore
}

func NewComplianceService(store QueryStore) *ComplianceService {
	return &ComplianceService{store: store}
}

// GenerateReport aggregates activity over [start, end) into a stored report.
func (s *ComplianceService) GenerateReport(ctx context.Context, start, end time.Time, generatedBy string) (*models.ComplianceReport, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("invalid report period: %s - %s", start, end)
	}
	if generatedBy == "" {
		generatedBy = "manual"
	}

	var report *models.ComplianceReport
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		stats, err := qtx.GetTransactionStats(ctx, start, end)
		if err != nil {
			return err
		}
		openAlerts, err := qtx.CountOpenAmlAlerts(ctx)
		if err != nil {
			return err
		}

		report = &models.ComplianceReport{
			ID:                uuid.New(),
			PeriodStart:       start,
			PeriodEnd:         end,
			TotalTransactions: stats.TotalTransactions,
			TotalVolume:       stats.TotalVolume,
			CompletedCount:    stats.CompletedCount,
			RejectedCount:     stats.RejectedCount,
			ExpiredCount:      stats.ExpiredCount,
			OpenAlertCount:    openAlerts,
			GeneratedBy:       generatedBy,
		}
		return qtx.CreateComplianceReport(ctx, report)
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("compliance report generated",
		zap.String("report_id", report.ID.String()),
		zap.Time("period_start", start),
		zap.Time("period_end", end),
		zap.Int64("total_transactions", report.TotalTransactions),
		zap.Int64("open_alerts", report.OpenAlertCount),
	)
	return report, nil
}

// GenerateDailyReport covers the previous full calendar day.
func (s *ComplianceService) GenerateDailyReport(ctx context.Context) (*models.ComplianceReport, error) {
	end := truncateToDay(time.Now())
	start := end.AddDate(0, 0, -1)
	return s.GenerateReport(ctx, start, end, "worker")
}

func (s *ComplianceService) ListReports(ctx context.Context, limit, offset int32) ([]models.ComplianceReport, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.Queries().ListComplianceReports(ctx, limit, offset)
}
