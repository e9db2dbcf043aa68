package service

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kwachapay/emi-platform/internal/domain"
	"github.com/kwachapay/emi-platform/internal/gateway"
	"github.com/kwachapay/emi-platform/internal/models"
	"github.com/kwachapay/emi-platform/internal/observability"
	"github.com/kwachapay/emi-platform/internal/repository"
	"go.uber.org/zap"
)

var (
	ErrSettlementNotFound    = errors.New("settlement request not found")
	ErrOrganizationNotKYCed  = errors.New("organization has not passed kyc verification")
	ErrNoSettlementWallet    = errors.New("organization has no merchant wallet to settle from")
	ErrSettlementCommentLong = errors.New("settlement comment exceeds maximum length")
	ErrInvalidSettlementMove = errors.New("settlement request is not in a state that allows this action")
)

// SettlementService runs the payout pipeline: merchant request, finance
// review (approve / hold / reject), and bank transfer completion.
type SettlementService struct {
	store  QueryStore
	bank   gateway.BankGateway
	audit  *AuditService
	events Broadcaster
}

func NewSettlementService(store QueryStore, bank gateway.BankGateway, events Broadcaster) *SettlementService {
	return &SettlementService{
		store:  store,
		bank:   bank,
		audit:  NewAuditService(store),
		events: orNoop(events),
	}
}

type CreateSettlementRequest struct {
	OrganizationID    uuid.UUID
	RequesterID       uuid.UUID
	Amount            int64
	BankName          string
	BankAccountNumber string
	BankAccountName   string
	ReferenceID       string
}

// Create files a settlement request against the organization's merchant
// wallet, whether a merchant or a finance officer files it. The wallet is
// locked and the amount is checked against the available balance: current
// balance minus every settlement that is still pending, held, or approved but
// not yet paid out.
func (s *SettlementService) Create(ctx context.Context, req CreateSettlementRequest) (*models.SettlementRequest, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("invalid settlement amount: %d", req.Amount)
	}
	if req.BankName == "" || req.BankAccountNumber == "" || req.BankAccountName == "" {
		return nil, errors.New("bank name, account number and account name are required")
	}
	if req.ReferenceID == "" {
		return nil, errors.New("reference_id is required")
	}

	queries := s.store.Queries()

	existing, err := queries.GetSettlementByReference(ctx, req.ReferenceID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check settlement reference: %w", err)
	}

	org, err := queries.GetOrganization(ctx, req.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("load organization: %w", err)
	}
	if org.KYCStatus != domain.KYCStatusVerified {
		return nil, ErrOrganizationNotKYCed
	}

	var created *models.SettlementRequest
	err = s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		wallet, err := qtx.GetOrganizationWalletForUpdate(ctx, req.OrganizationID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNoSettlementWallet
			}
			return fmt.Errorf("lock organization wallet: %w", err)
		}

		outstanding, err := qtx.SumOutstandingSettlements(ctx, wallet.ID)
		if err != nil {
			return err
		}
		if req.Amount > wallet.Balance-outstanding {
			return models.ErrInsufficientFunds
		}

		created, err = qtx.CreateSettlementRequest(ctx, repository.CreateSettlementRequestParams{
			ID:                uuid.New(),
			OrganizationID:    req.OrganizationID,
			WalletID:          wallet.ID,
			Amount:            req.Amount,
			BankName:          req.BankName,
			BankAccountNumber: req.BankAccountNumber,
			BankAccountName:   req.BankAccountName,
			Status:            domain.SettlementStatusPending,
			ReferenceID:       req.ReferenceID,
		})
		if err != nil {
			return fmt.Errorf("create settlement request: %w", err)
		}
		return s.audit.Write(ctx, qtx, "settlement_request", created.ID, &req.RequesterID, "created", "", domain.SettlementStatusPending, nil)
	})
	if err != nil {
		return nil, err
	}

	s.broadcastStatus(created)
	return created, nil
}

type ReviewSettlementRequest struct {
	SettlementID uuid.UUID
	ReviewerID   uuid.UUID
	Reason       string
	Comment      string
}

// Approve re-validates the available balance under lock before marking the
// request approved. The balance can have shrunk since the request was filed.
func (s *SettlementService) Approve(ctx context.Context, req ReviewSettlementRequest) (*models.SettlementRequest, error) {
	return s.review(ctx, req, domain.SettlementStatusApproved, "approved", func(qtx *repository.Queries, sr *models.SettlementRequest) error {
		wallet, err := qtx.GetWalletForUpdate(ctx, sr.WalletID)
		if err != nil {
			return fmt.Errorf("lock wallet: %w", err)
		}
		outstanding, err := qtx.SumOutstandingSettlements(ctx, wallet.ID)
		if err != nil {
			return err
		}
		// This request is part of outstanding; exclude it from the claim.
		if sr.Amount > wallet.Balance-(outstanding-sr.Amount) {
			return models.ErrInsufficientFunds
		}
		return nil
	})
}

// Hold parks a pending request for further review.
func (s *SettlementService) Hold(ctx context.Context, req ReviewSettlementRequest) (*models.SettlementRequest, error) {
	return s.review(ctx, req, domain.SettlementStatusHold, "held", nil)
}

// Reject declines a pending or held request with a reason.
func (s *SettlementService) Reject(ctx context.Context, req ReviewSettlementRequest) (*models.SettlementRequest, error) {
	if req.Reason == "" {
		return nil, errors.New("rejection reason is required")
	}
	return s.review(ctx, req, domain.SettlementStatusRejected, "rejected", nil)
}

func (s *SettlementService) review(ctx context.Context, req ReviewSettlementRequest, nextStatus, action string, check func(*repository.Queries, *models.SettlementRequest) error) (*models.SettlementRequest, error) {
	if utf8.RuneCountInString(req.Comment) > domain.SettlementCommentMaxLen {
		return nil, ErrSettlementCommentLong
	}

	var reviewed *models.SettlementRequest
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		sr, err := qtx.GetSettlementRequestForUpdate(ctx, req.SettlementID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrSettlementNotFound
			}
			return fmt.Errorf("lock settlement request: %w", err)
		}
		if !canTransition(settlementTransitions, sr.Status, nextStatus) {
			return ErrInvalidSettlementMove
		}
		if check != nil {
			if err := check(qtx, sr); err != nil {
				return err
			}
		}

		err = transitionSettlementState(ctx, qtx, s.audit, repository.UpdateSettlementStatusParams{
			ID:         sr.ID,
			Status:     nextStatus,
			ReviewerID: &req.ReviewerID,
			Reason:     textParam(req.Reason),
			Comment:    textParam(req.Comment),
		}, sr.Status, action, &req.ReviewerID, nil)
		if err != nil {
			return err
		}

		sr.Status = nextStatus
		sr.ReviewerID = &req.ReviewerID
		sr.Reason = textParam(req.Reason)
		sr.Comment = textParam(req.Comment)
		reviewed = sr
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.IncrementSettlementTransition(nextStatus)
	s.broadcastStatus(reviewed)
	return reviewed, nil
}

// Complete debits the wallet and sends the bank transfer for an approved
// request. The debit and the status change commit together; a gateway
// failure rolls both back and leaves the request approved for retry.
func (s *SettlementService) Complete(ctx context.Context, settlementID, actorID uuid.UUID) (*models.SettlementRequest, error) {
	var completed *models.SettlementRequest
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		sr, err := qtx.GetSettlementRequestForUpdate(ctx, settlementID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrSettlementNotFound
			}
			return fmt.Errorf("lock settlement request: %w", err)
		}
		if !canTransition(settlementTransitions, sr.Status, domain.SettlementStatusCompleted) {
			return ErrInvalidSettlementMove
		}

		rows, err := qtx.DebitWalletBalance(ctx, repository.DebitWalletBalanceParams{
			ID:     sr.WalletID,
			Amount: sr.Amount,
		})
		if err != nil {
			return err
		}
		if rows == 0 {
			return models.ErrInsufficientFunds
		}

		bankRef, err := s.bank.SendTransfer(ctx, sr.BankName, sr.BankAccountNumber, sr.BankAccountName, sr.Amount)
		if err != nil {
			zap.L().Error("bank transfer failed",
				zap.String("settlement_id", sr.ID.String()),
				zap.Stringer("amount", domain.NewMoney(sr.Amount, domain.Currency)),
				zap.Error(err),
			)
			return fmt.Errorf("send bank transfer: %w", err)
		}
		zap.L().Info("bank transfer sent",
			zap.String("settlement_id", sr.ID.String()),
			zap.Stringer("amount", domain.NewMoney(sr.Amount, domain.Currency)),
			zap.String("bank_reference", bankRef),
		)

		err = transitionSettlementState(ctx, qtx, s.audit, repository.UpdateSettlementStatusParams{
			ID:            sr.ID,
			Status:        domain.SettlementStatusCompleted,
			ReviewerID:    &actorID,
			BankReference: &bankRef,
		}, sr.Status, "completed", &actorID, nil)
		if err != nil {
			return err
		}

		sr.Status = domain.SettlementStatusCompleted
		sr.BankReference = &bankRef
		completed = sr
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.IncrementSettlementTransition(domain.SettlementStatusCompleted)
	s.broadcastStatus(completed)
	return completed, nil
}

func (s *SettlementService) Get(ctx context.Context, id uuid.UUID) (*models.SettlementRequest, error) {
	sr, err := s.store.Queries().GetSettlementRequest(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSettlementNotFound
		}
		return nil, fmt.Errorf("get settlement request: %w", err)
	}
	return sr, nil
}

func (s *SettlementService) List(ctx context.Context, arg repository.ListSettlementRequestsParams) ([]models.SettlementRequest, error) {
	if arg.Limit <= 0 {
		arg.Limit = 50
	}
	if arg.Limit > 500 {
		arg.Limit = 500
	}
	if arg.Offset < 0 {
		arg.Offset = 0
	}
	return s.store.Queries().ListSettlementRequests(ctx, arg)
}

func (s *SettlementService) broadcastStatus(sr *models.SettlementRequest) {
	s.events.Broadcast(domain.EventSettlementStatusUpdated, map[string]any{
		"settlement_id": sr.ID,
		"status":        sr.Status,
	})
}
