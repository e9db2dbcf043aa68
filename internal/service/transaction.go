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
	"go.uber.org/zap"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidOTP          = errors.New("invalid or expired cashier otp")
	ErrUnsupportedTxType   = errors.New("unsupported transaction type")
)

// TransactionService owns the cash-digitization lifecycle: merchant request,
// cashier verification, rejection, and expiry.
type TransactionService struct {
	store  QueryStore
	aml    *AmlService
	otp    *OTPService
	audit  *AuditService
	events Broadcaster
	qrTTL  time.Duration
}

func NewTransactionService(store QueryStore, aml *AmlService, otp *OTPService, events Broadcaster, qrTTL time.Duration) *TransactionService {
	if qrTTL <= 0 {
		qrTTL = 5 * time.Minute
	}
	return &TransactionService{
		store:  store,
		aml:    aml,
		otp:    otp,
		audit:  NewAuditService(store),
		events: orNoop(events),
		qrTTL:  qrTTL,
	}
}

type CreateTransactionRequest struct {
	MerchantID  uuid.UUID
	Amount      int64
	Type        string
	VMFNumber   string
	CashierOTP  string
	ReferenceID string
	Metadata    []byte
}

// CreateRequest records a merchant's collection request. QR payments carry an
// expiry; an OTP binds the request to the cashier session that issued it.
func (s *TransactionService) CreateRequest(ctx context.Context, req CreateTransactionRequest) (*models.Transaction, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("invalid amount: %d", req.Amount)
	}
	if req.ReferenceID == "" {
		return nil, errors.New("reference_id is required")
	}
	switch req.Type {
	case domain.TxTypeCashDigitization, domain.TxTypeRTP, domain.TxTypeQRCodePayment:
	default:
		return nil, ErrUnsupportedTxType
	}
	if req.Type == domain.TxTypeCashDigitization && req.VMFNumber == "" {
		return nil, errors.New("vmf_number is required for cash digitization")
	}

	queries := s.store.Queries()

	// Replay: same reference returns the original row.
	existing, err := queries.GetTransactionByReference(ctx, req.ReferenceID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("check transaction reference: %w", err)
	}

	merchant, err := queries.GetUser(ctx, req.MerchantID)
	if err != nil {
		return nil, fmt.Errorf("load merchant: %w", err)
	}

	var cashierID *uuid.UUID
	if req.CashierOTP != "" {
		if s.otp == nil {
			return nil, ErrInvalidOTP
		}
		resolved, err := s.otp.Resolve(ctx, req.CashierOTP)
		if err != nil {
			return nil, err
		}
		cashierID = &resolved
	}

	var expiresAt *time.Time
	if req.Type == domain.TxTypeQRCodePayment {
		t := time.Now().Add(s.qrTTL)
		expiresAt = &t
	}

	var created *models.Transaction
	err = s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		created, err = qtx.CreateTransaction(ctx, repository.CreateTransactionParams{
			ID:             uuid.New(),
			Amount:         req.Amount,
			Currency:       domain.Currency,
			Type:           req.Type,
			Status:         domain.TxStatusPending,
			MerchantID:     req.MerchantID,
			OrganizationID: merchant.OrganizationID,
			CashierID:      cashierID,
			VMFNumber:      textParam(req.VMFNumber),
			ReferenceID:    req.ReferenceID,
			ExpiresAt:      expiresAt,
			Metadata:       req.Metadata,
		})
		if err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		return s.audit.Write(ctx, qtx, "transaction", created.ID, &req.MerchantID, "created", "", domain.TxStatusPending, req.Metadata)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

type VerifyTransactionRequest struct {
	TransactionID uuid.UUID
	CashierID     uuid.UUID
	CountedAmount int64
	CountedVMF    string
}

// Verify applies the cashier's count. An exact amount+VMF match completes the
// transaction and credits the merchant wallet's daily-collected counter; any
// mismatch auto-rejects with the canned reason. The transaction row is locked
// so a second concurrent verifier observes a non-pending row and fails.
func (s *TransactionService) Verify(ctx context.Context, req VerifyTransactionRequest) (*models.Transaction, error) {
	var result *models.Transaction
	var expiredInline *models.Transaction
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		tx, err := qtx.GetTransactionForUpdate(ctx, req.TransactionID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrTransactionNotFound
			}
			return fmt.Errorf("lock transaction: %w", err)
		}
		if tx.Status != domain.TxStatusPending {
			return models.ErrTransactionNotPending
		}
		if tx.ExpiresAt != nil && tx.ExpiresAt.Before(time.Now()) {
			// Overdue but not yet swept; expire it rather than verify it.
			// Returning nil commits the expiry before the error is surfaced.
			if err := transitionTransactionState(ctx, qtx, s.audit, tx.ID, tx.Status, domain.TxStatusExpired, nil, nil, nil, "expired_on_verify", nil); err != nil {
				return err
			}
			expiredInline = tx
			return nil
		}

		var requestedVMF string
		if tx.VMFNumber != nil {
			requestedVMF = *tx.VMFNumber
		}
		outcome := decideVerification(tx.Amount, req.CountedAmount, requestedVMF, req.CountedVMF)

		if outcome.Status == domain.TxStatusRejected {
			reason := outcome.Reason
			if err := transitionTransactionState(ctx, qtx, s.audit, tx.ID, tx.Status, domain.TxStatusRejected, &req.CashierID, &req.CashierID, &reason, "auto_rejected", nil); err != nil {
				return err
			}
			tx.Status = domain.TxStatusRejected
			tx.RejectionReason = &reason
			tx.CashierID = &req.CashierID
			result = tx
			observability.IncrementVerification("rejected")
			return nil
		}

		wallet, err := qtx.GetWalletByUserForUpdate(ctx, tx.MerchantID)
		if err != nil {
			return fmt.Errorf("lock merchant wallet: %w", err)
		}

		now := time.Now()
		collectedToday := wallet.DailyCollected
		if dailyWindowExpired(wallet.LastResetDate, now) {
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
			collectedToday = 0
		}

		if collectedToday+tx.Amount > wallet.DailyLimit {
			return models.ErrDailyLimitExceeded
		}

		rows, err := qtx.CreditWalletCollection(ctx, repository.CreditWalletCollectionParams{
			ID:     wallet.ID,
			Amount: tx.Amount,
		})
		if err != nil {
			return err
		}
		if err := requireExactlyOne(rows, "credit wallet collection"); err != nil {
			return err
		}

		if err := transitionTransactionState(ctx, qtx, s.audit, tx.ID, tx.Status, domain.TxStatusCompleted, &req.CashierID, &req.CashierID, nil, "verified", nil); err != nil {
			return err
		}
		tx.Status = domain.TxStatusCompleted
		tx.CashierID = &req.CashierID

		if err := s.aml.EvaluateOnCompletion(ctx, qtx, tx); err != nil {
			return err
		}

		result = tx
		observability.IncrementVerification("completed")
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expiredInline != nil {
		s.events.Broadcast(domain.EventQRCodeExpired, map[string]any{
			"transaction_id": expiredInline.ID,
			"status":         domain.TxStatusExpired,
		})
		return nil, models.ErrTransactionNotPending
	}

	s.events.Broadcast(domain.EventTransactionStatusUpdated, map[string]any{
		"transaction_id": result.ID,
		"status":         result.Status,
	})
	return result, nil
}

type RejectTransactionRequest struct {
	TransactionID uuid.UUID
	ActorID       uuid.UUID
	Reason        string
}

// Reject lets a cashier or finance officer reject a pending transaction with
// a free-text or preset reason.
func (s *TransactionService) Reject(ctx context.Context, req RejectTransactionRequest) (*models.Transaction, error) {
	if req.Reason == "" {
		return nil, errors.New("reason is required")
	}

	var result *models.Transaction
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		tx, err := qtx.GetTransactionForUpdate(ctx, req.TransactionID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrTransactionNotFound
			}
			return fmt.Errorf("lock transaction: %w", err)
		}
		if tx.Status != domain.TxStatusPending {
			return models.ErrTransactionNotPending
		}
		if err := transitionTransactionState(ctx, qtx, s.audit, tx.ID, tx.Status, domain.TxStatusRejected, &req.ActorID, nil, &req.Reason, "rejected", nil); err != nil {
			return err
		}
		tx.Status = domain.TxStatusRejected
		tx.RejectionReason = &req.Reason
		result = tx
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.IncrementVerification("rejected")
	s.events.Broadcast(domain.EventTransactionStatusUpdated, map[string]any{
		"transaction_id": result.ID,
		"status":         result.Status,
	})
	return result, nil
}

// ExpireOverdue sweeps pending transactions whose expiry has passed and is
// called periodically by the expiry worker. Returns the number of rows
// transitioned.
func (s *TransactionService) ExpireOverdue(ctx context.Context, batchSize int32) (int, error) {
	var expired []models.Transaction
	err := s.store.RunInTx(ctx, func(qtx *repository.Queries) error {
		rows, err := qtx.ListExpiredPendingTransactions(ctx, repository.ListExpiredPendingTransactionsParams{
			Now:   time.Now(),
			Limit: batchSize,
		})
		if err != nil {
			return err
		}
		for _, tx := range rows {
			if err := transitionTransactionState(ctx, qtx, s.audit, tx.ID, tx.Status, domain.TxStatusExpired, nil, nil, nil, "expired", nil); err != nil {
				return fmt.Errorf("expire transaction %s: %w", tx.ID, err)
			}
		}
		expired = rows
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, tx := range expired {
		s.events.Broadcast(domain.EventQRCodeExpired, map[string]any{
			"transaction_id": tx.ID,
			"status":         domain.TxStatusExpired,
		})
	}
	if len(expired) > 0 {
		zap.L().Info("expired overdue transactions", zap.Int("count", len(expired)))
	}
	return len(expired), nil
}

func (s *TransactionService) Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	tx, err := s.store.Queries().GetTransaction(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (s *TransactionService) List(ctx context.Context, arg repository.ListTransactionsParams) ([]models.Transaction, error) {
	if arg.Limit <= 0 {
		arg.Limit = 50
	}
	if arg.Limit > 500 {
		arg.Limit = 500
	}
	if arg.Offset < 0 {
		arg.Offset = 0
	}
	return s.store.Queries().ListTransactions(ctx, arg)
}
