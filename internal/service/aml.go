package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kwachapay/emi-platform/internal/domain"
	"github.com/kwachapay/emi-platform/internal/models"
	"github.com/kwachapay/emi-platform/internal/observability"
	"github.com/kwachapay/emi-platform/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrAlertNotFound          = errors.New("aml alert not found")
	ErrInvalidAlertResolution = errors.New("invalid aml alert resolution")
	ErrUnknownAmlRule         = errors.New("unknown aml rule type")
)

// AmlService evaluates threshold rules against completed transactions and
// manages the resulting alerts.
type AmlService struct {
	store QueryStore
	audit *AuditService
}

func NewAmlService(store QueryStore) *AmlService {
	return &AmlService{store: store, audit: NewAuditService(store)}
}

// ruleMeasurements carries the observed values a transaction is judged by.
type ruleMeasurements struct {
	TransactionAmount int64
	DailyTotal        int64 // completed volume for the merchant today, incl. this tx
	WeeklyVolume      int64 // completed volume for the merchant over 7 days, incl. this tx
}

type alertDraft struct {
	RuleType  string
	Measured  int64
	Threshold int64
	RiskScore decimal.Decimal
}

// riskScoreFor scales how far past the threshold the measured value landed
// onto a 0-10 score: 2.5 at the threshold, capped at 10, two decimals.
func riskScoreFor(measured, threshold int64) decimal.Decimal {
	if threshold <= 0 {
		return decimal.NewFromInt(10)
	}
	score := decimal.NewFromInt(measured).
		Div(decimal.NewFromInt(threshold)).
		Mul(decimal.NewFromFloat(2.5)).
		Round(2)
	ten := decimal.NewFromInt(10)
	if score.GreaterThan(ten) {
		return ten
	}
	return score
}

// evaluateRules compares the measurements against every enabled rule and
// returns a draft alert per breach.
func evaluateRules(configs []models.AmlConfiguration, m ruleMeasurements) []alertDraft {
	var drafts []alertDraft
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		var measured int64
		switch cfg.RuleType {
		case domain.AmlRuleSingleTransaction:
			measured = m.TransactionAmount
		case domain.AmlRuleDailyTotal:
			measured = m.DailyTotal
		case domain.AmlRuleWeeklyVolume:
			measured = m.WeeklyVolume
		default:
			continue
		}
		if measured > cfg.Threshold {
			drafts = append(drafts, alertDraft{
				RuleType:  cfg.RuleType,
				Measured:  measured,
				Threshold: cfg.Threshold,
				RiskScore: riskScoreFor(measured, cfg.Threshold),
			})
		}
	}
	return drafts
}

// EvaluateOnCompletion runs inside the verification transaction so the alert
// and the completed transaction commit together.
func (s *AmlService) EvaluateOnCompletion(ctx context.Context, qtx *repository.Queries, tx *models.Transaction) error {
	configs, err := qtx.ListAmlConfigurations(ctx)
	if err != nil {
		return fmt.Errorf("load aml configuration: %w", err)
	}
	if len(configs) == 0 {
		return nil
	}

	now := time.Now()
	dayStart := truncateToDay(now)
	weekStart := now.AddDate(0, 0, -7)

	dailyPrior, err := qtx.SumCompletedAmountSince(ctx, repository.SumCompletedAmountSinceParams{
		MerchantID: tx.MerchantID,
		Since:      dayStart,
		ExcludeID:  tx.ID,
	})
	if err != nil {
		return err
	}
	weeklyPrior, err := qtx.SumCompletedAmountSince(ctx, repository.SumCompletedAmountSinceParams{
		MerchantID: tx.MerchantID,
		Since:      weekStart,
		ExcludeID:  tx.ID,
	})
	if err != nil {
		return err
	}

	drafts := evaluateRules(configs, ruleMeasurements{
		TransactionAmount: tx.Amount,
		DailyTotal:        dailyPrior + tx.Amount,
		WeeklyVolume:      weeklyPrior + tx.Amount,
	})

	for _, draft := range drafts {
		alert, err := qtx.CreateAmlAlert(ctx, repository.CreateAmlAlertParams{
			ID:             uuid.New(),
			AlertType:      draft.RuleType,
			TransactionID:  tx.ID,
			OrganizationID: tx.OrganizationID,
			Amount:         draft.Measured,
			Threshold:      draft.Threshold,
			RiskScore:      draft.RiskScore,
			Status:         domain.AlertStatusOpen,
		})
		if err != nil {
			return fmt.Errorf("create aml alert: %w", err)
		}
		observability.IncrementAmlAlert(draft.RuleType)
		zap.L().Warn("aml alert raised",
			zap.String("alert_id", alert.ID.String()),
			zap.String("rule", draft.RuleType),
			zap.String("transaction_id", tx.ID.String()),
			zap.Stringer("measured", domain.NewMoney(draft.Measured, domain.Currency)),
			zap.Stringer("threshold", domain.NewMoney(draft.Threshold, domain.Currency)),
		)
	}
	return nil
}

type ReviewAlertRequest struct {
	AlertID    uuid.UUID
	Resolution string
	Notes      string
	ReviewerID uuid.UUID
}

// ReviewAlert moves an alert to cleared, escalated, or under_review.
func (s *AmlService) ReviewAlert(ctx context.Context, req ReviewAlertRequest) (*models.AmlAlert, error) {
	switch normalizeState(req.Resolution) {
	case domain.AlertStatusCleared, domain.AlertStatusEscalated, domain.AlertStatusUnderReview:
	default:
		return nil, ErrInvalidAlertResolution
	}

	var reviewed *models.AmlAlert
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		alert, err := qtx.GetAmlAlertForUpdate(ctx, req.AlertID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrAlertNotFound
			}
			return fmt.Errorf("lock aml alert: %w", err)
		}

		resolution := normalizeState(req.Resolution)
		rows, err := qtx.UpdateAmlAlertStatus(ctx, repository.UpdateAmlAlertStatusParams{
			ID:          req.AlertID,
			Status:      resolution,
			ReviewerID:  &req.ReviewerID,
			ReviewNotes: textParam(req.Notes),
		})
		if err != nil {
			return err
		}
		if err := requireExactlyOne(rows, "update aml alert status"); err != nil {
			return err
		}
		if err := s.audit.Write(ctx, qtx, "aml_alert", req.AlertID, &req.ReviewerID, "reviewed", alert.Status, resolution, nil); err != nil {
			return err
		}

		alert.Status = resolution
		alert.ReviewerID = &req.ReviewerID
		alert.ReviewNotes = textParam(req.Notes)
		reviewed = alert
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reviewed, nil
}

type ConfigureRuleRequest struct {
	RuleType  string
	Threshold int64
	Enabled   bool
	UpdatedBy uuid.UUID
}

// ConfigureRule upserts one threshold rule.
func (s *AmlService) ConfigureRule(ctx context.Context, req ConfigureRuleRequest) error {
	switch req.RuleType {
	case domain.AmlRuleSingleTransaction, domain.AmlRuleDailyTotal, domain.AmlRuleWeeklyVolume:
	default:
		return ErrUnknownAmlRule
	}
	if req.Threshold <= 0 {
		return fmt.Errorf("invalid threshold: %d", req.Threshold)
	}
	return s.store.Queries().UpsertAmlConfiguration(ctx, repository.UpsertAmlConfigurationParams{
		ID:        uuid.New(),
		RuleType:  req.RuleType,
		Threshold: req.Threshold,
		Enabled:   req.Enabled,
		UpdatedBy: req.UpdatedBy,
	})
}

func (s *AmlService) ListConfigurations(ctx context.Context) ([]models.AmlConfiguration, error) {
	return s.store.Queries().ListAmlConfigurations(ctx)
}

func (s *AmlService) ListAlerts(ctx context.Context, status *string, limit, offset int32) ([]models.AmlAlert, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.Queries().ListAmlAlerts(ctx, repository.ListAmlAlertsParams{
		Status: status,
		Limit:  limit,
		Offset: offset,
	})
}
