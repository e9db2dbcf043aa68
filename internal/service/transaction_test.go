package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kwachapay/emi-platform/internal/domain"
	"github.com/kwachapay/emi-platform/internal/models"
	"github.com/kwachapay/emi-platform/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransactionService(store QueryStore) *TransactionService {
	return NewTransactionService(store, NewAmlService(store), nil, nil, 5*time.Minute)
}

type recordingBroadcaster struct {
	events []string
}

func (r *recordingBroadcaster) Broadcast(eventType string, _ any) {
	r.events = append(r.events, eventType)
}

func TestVerifyExactMatchCompletes(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	txSvc := newTestTransactionService(store)
	ctx := context.Background()

	merchantID, orgID, walletID := createTestMerchant(t, db, 1_000_000, 10_000_000)
	cashierID := createTestUser(t, db, domain.RoleCashier, nil)

	tx, err := txSvc.CreateRequest(ctx, CreateTransactionRequest{
		MerchantID:  merchantID,
		Amount:      2_500_000,
		Type:        domain.TxTypeCashDigitization,
		VMFNumber:   "VMF-001",
		ReferenceID: "verify-match-1",
	})
	require.NoError(t, err)
	require.Equal(t, domain.TxStatusPending, tx.Status)
	require.NotNil(t, tx.OrganizationID)
	require.Equal(t, orgID, *tx.OrganizationID)

	verified, err := txSvc.Verify(ctx, VerifyTransactionRequest{
		TransactionID: tx.ID,
		CashierID:     cashierID,
		CountedAmount: 2_500_000,
		CountedVMF:    "VMF-001",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusCompleted, verified.Status)
	require.NotNil(t, verified.CashierID)
	assert.Equal(t, cashierID, *verified.CashierID)

	wallet, err := repository.New(db).GetWallet(ctx, walletID)
	require.NoError(t, err)
	assert.Equal(t, int64(3_500_000), wallet.Balance)
	assert.Equal(t, int64(2_500_000), wallet.DailyCollected)
}

func TestVerifyAmountMismatchAutoRejects(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	txSvc := newTestTransactionService(store)
	ctx := context.Background()

	merchantID, _, walletID := createTestMerchant(t, db, 0, 10_000_000)
	cashierID := createTestUser(t, db, domain.RoleCashier, nil)

	tx, err := txSvc.CreateRequest(ctx, CreateTransactionRequest{
		MerchantID:  merchantID,
		Amount:      2_500_000,
		Type:        domain.TxTypeCashDigitization,
		VMFNumber:   "VMF-001",
		ReferenceID: "verify-amount-mismatch",
	})
	require.NoError(t, err)

	rejected, err := txSvc.Verify(ctx, VerifyTransactionRequest{
		TransactionID: tx.ID,
		CashierID:     cashierID,
		CountedAmount: 2_400_000,
		CountedVMF:    "VMF-001",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, domain.RejectReasonAmountMismatch, *rejected.RejectionReason)

	// The wallet stays untouched on a rejection.
	wallet, err := repository.New(db).GetWallet(ctx, walletID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), wallet.Balance)
	assert.Equal(t, int64(0), wallet.DailyCollected)
}

func TestVerifyVMFMismatchAutoRejects(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	txSvc := newTestTransactionService(store)
	ctx := context.Background()

	merchantID, _, _ := createTestMerchant(t, db, 0, 10_000_000)
	cashierID := createTestUser(t, db, domain.RoleCashier, nil)

	tx, err := txSvc.CreateRequest(ctx, CreateTransactionRequest{
		MerchantID:  merchantID,
		Amount:      2_500_000,
		Type:        domain.TxTypeCashDigitization,
		VMFNumber:   "VMF-001",
		ReferenceID: "verify-vmf-mismatch",
	})
	require.NoError(t, err)

	rejected, err := txSvc.Verify(ctx, VerifyTransactionRequest{
		TransactionID: tx.ID,
		CashierID:     cashierID,
		CountedAmount: 2_500_000,
		CountedVMF:    "VMF-002",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, domain.RejectReasonVMFMismatch, *rejected.RejectionReason)
}

func TestVerifySecondAttemptFails(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	txSvc := newTestTransactionService(store)
	ctx := context.Background()

	merchantID, _, walletID := createTestMerchant(t, db, 0, 10_000_000)
	cashierID := createTestUser(t, db, domain.RoleCashier, nil)

	tx, err := txSvc.CreateRequest(ctx, CreateTransactionRequest{
		MerchantID:  merchantID,
		Amount:      1_000_000,
		Type:        domain.TxTypeCashDigitization,
		VMFNumber:   "VMF-010",
		ReferenceID: "verify-twice",
	})
	require.NoError(t, err)

	_, err = txSvc.Verify(ctx, VerifyTransactionRequest{
		TransactionID: tx.ID,
		CashierID:     cashierID,
		CountedAmount: 1_000_000,
		CountedVMF:    "VMF-010",
	})
	require.NoError(t, err)

	_, err = txSvc.Verify(ctx, VerifyTransactionRequest{
		TransactionID: tx.ID,
		CashierID:     cashierID,
		CountedAmount: 1_000_000,
		CountedVMF:    "VMF-010",
	})
	require.ErrorIs(t, err, models.ErrTransactionNotPending)

	// Credited exactly once.
	wallet, err := repository.New(db).GetWallet(ctx, walletID)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), wallet.Balance)
	assert.Equal(t, int64(1_000_000), wallet.DailyCollected)
}

func TestVerifyDailyLimitExceeded(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	txSvc := newTestTransactionService(store)
	ctx := context.Background()

	merchantID, _, walletID := createTestMerchant(t, db, 0, 2_000_000)
	cashierID := createTestUser(t, db, domain.RoleCashier, nil)

	tx, err := txSvc.CreateRequest(ctx, CreateTransactionRequest{
		MerchantID:  merchantID,
		Amount:      2_500_000,
		Type:        domain.TxTypeCashDigitization,
		VMFNumber:   "VMF-020",
		ReferenceID: "verify-over-limit",
	})
	require.NoError(t, err)

	_, err = txSvc.Verify(ctx, VerifyTransactionRequest{
		TransactionID: tx.ID,
		CashierID:     cashierID,
		CountedAmount: 2_500_000,
		CountedVMF:    "VMF-020",
	})
	require.ErrorIs(t, err, models.ErrDailyLimitExceeded)

	// The transaction stays pending and the wallet is untouched.
	row, err := repository.New(db).GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusPending, row.Status)

	wallet, err := repository.New(db).GetWallet(ctx, walletID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), wallet.Balance)
}

func TestCreateRequestReplaysByReference(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	txSvc := newTestTransactionService(store)
	ctx := context.Background()

	merchantID, _, _ := createTestMerchant(t, db, 0, 10_000_000)

	first, err := txSvc.CreateRequest(ctx, CreateTransactionRequest{
		MerchantID:  merchantID,
		Amount:      500_000,
		Type:        domain.TxTypeCashDigitization,
		VMFNumber:   "VMF-030",
		ReferenceID: "replay-ref",
	})
	require.NoError(t, err)

	second, err := txSvc.CreateRequest(ctx, CreateTransactionRequest{
		MerchantID:  merchantID,
		Amount:      500_000,
		Type:        domain.TxTypeCashDigitization,
		VMFNumber:   "VMF-030",
		ReferenceID: "replay-ref",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestCreateRequestValidation(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	txSvc := newTestTransactionService(store)
	ctx := context.Background()

	merchantID, _, _ := createTestMerchant(t, db, 0, 10_000_000)

	_, err := txSvc.CreateRequest(ctx, CreateTransactionRequest{
		MerchantID: merchantID, Amount: 0, Type: domain.TxTypeCashDigitization, VMFNumber: "V", ReferenceID: "r1",
	})
	require.Error(t, err)

	_, err = txSvc.CreateRequest(ctx, CreateTransactionRequest{
		MerchantID: merchantID, Amount: 100, Type: "wire", ReferenceID: "r2",
	})
	require.ErrorIs(t, err, ErrUnsupportedTxType)

	_, err = txSvc.CreateRequest(ctx, CreateTransactionRequest{
		MerchantID: merchantID, Amount: 100, Type: domain.TxTypeCashDigitization, ReferenceID: "r3",
	})
	require.Error(t, err, "vmf number is mandatory for cash digitization")

	_, err = txSvc.CreateRequest(ctx, CreateTransactionRequest{
		MerchantID: merchantID, Amount: 100, Type: domain.TxTypeCashDigitization, VMFNumber: "V",
	})
	require.Error(t, err, "reference id is mandatory")
}

func TestQRCodeRequestCarriesExpiry(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	txSvc := newTestTransactionService(store)
	ctx := context.Background()

	merchantID, _, _ := createTestMerchant(t, db, 0, 10_000_000)

	tx, err := txSvc.CreateRequest(ctx, CreateTransactionRequest{
		MerchantID:  merchantID,
		Amount:      300_000,
		Type:        domain.TxTypeQRCodePayment,
		ReferenceID: "qr-expiry",
	})
	require.NoError(t, err)
	require.NotNil(t, tx.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), *tx.ExpiresAt, 30*time.Second)
}

func TestExpireOverdueSweep(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	txSvc := newTestTransactionService(store)
	ctx := context.Background()

	merchantID, _, _ := createTestMerchant(t, db, 0, 10_000_000)
	cashierID := createTestUser(t, db, domain.RoleCashier, nil)

	past := time.Now().Add(-time.Minute)
	overdue, err := repository.New(db).CreateTransaction(ctx, repository.CreateTransactionParams{
		ID:          uuid.New(),
		Amount:      300_000,
		Currency:    domain.Currency,
		Type:        domain.TxTypeQRCodePayment,
		Status:      domain.TxStatusPending,
		MerchantID:  merchantID,
		ReferenceID: "qr-overdue",
		ExpiresAt:   &past,
	})
	require.NoError(t, err)

	// A pending transaction without an expiry must survive the sweep.
	open, err := txSvc.CreateRequest(ctx, CreateTransactionRequest{
		MerchantID:  merchantID,
		Amount:      300_000,
		Type:        domain.TxTypeCashDigitization,
		VMFNumber:   "VMF-040",
		ReferenceID: "still-open",
	})
	require.NoError(t, err)

	count, err := txSvc.ExpireOverdue(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	row, err := repository.New(db).GetTransaction(ctx, overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusExpired, row.Status)

	row, err = repository.New(db).GetTransaction(ctx, open.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusPending, row.Status)

	// Verifying the expired row now fails.
	_, err = txSvc.Verify(ctx, VerifyTransactionRequest{
		TransactionID: overdue.ID,
		CashierID:     cashierID,
		CountedAmount: 300_000,
	})
	require.ErrorIs(t, err, models.ErrTransactionNotPending)
}

func TestVerifyExpiresOverdueRowInline(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	rec := &recordingBroadcaster{}
	txSvc := NewTransactionService(store, NewAmlService(store), nil, rec, 5*time.Minute)
	ctx := context.Background()

	merchantID, _, _ := createTestMerchant(t, db, 0, 10_000_000)
	cashierID := createTestUser(t, db, domain.RoleCashier, nil)

	past := time.Now().Add(-time.Second)
	tx, err := repository.New(db).CreateTransaction(ctx, repository.CreateTransactionParams{
		ID:          uuid.New(),
		Amount:      300_000,
		Currency:    domain.Currency,
		Type:        domain.TxTypeQRCodePayment,
		Status:      domain.TxStatusPending,
		MerchantID:  merchantID,
		ReferenceID: "qr-verify-late",
		ExpiresAt:   &past,
	})
	require.NoError(t, err)

	_, err = txSvc.Verify(ctx, VerifyTransactionRequest{
		TransactionID: tx.ID,
		CashierID:     cashierID,
		CountedAmount: 300_000,
	})
	require.ErrorIs(t, err, models.ErrTransactionNotPending)

	row, err := repository.New(db).GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusExpired, row.Status)

	// Clients watching the row hear the same event the sweep would emit.
	assert.Equal(t, []string{domain.EventQRCodeExpired}, rec.events)
}

func TestRejectPendingTransaction(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	txSvc := newTestTransactionService(store)
	ctx := context.Background()

	merchantID, _, _ := createTestMerchant(t, db, 0, 10_000_000)
	financeID := createTestUser(t, db, domain.RoleFinance, nil)

	tx, err := txSvc.CreateRequest(ctx, CreateTransactionRequest{
		MerchantID:  merchantID,
		Amount:      400_000,
		Type:        domain.TxTypeCashDigitization,
		VMFNumber:   "VMF-050",
		ReferenceID: "manual-reject",
	})
	require.NoError(t, err)

	_, err = txSvc.Reject(ctx, RejectTransactionRequest{TransactionID: tx.ID, ActorID: financeID})
	require.Error(t, err, "reason is mandatory")

	rejected, err := txSvc.Reject(ctx, RejectTransactionRequest{
		TransactionID: tx.ID,
		ActorID:       financeID,
		Reason:        "suspected duplicate deposit",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TxStatusRejected, rejected.Status)

	_, err = txSvc.Reject(ctx, RejectTransactionRequest{
		TransactionID: tx.ID,
		ActorID:       financeID,
		Reason:        "again",
	})
	require.ErrorIs(t, err, models.ErrTransactionNotPending)

	_, err = txSvc.Reject(ctx, RejectTransactionRequest{
		TransactionID: uuid.New(),
		ActorID:       financeID,
		Reason:        "missing",
	})
	require.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestListTransactionsFilters(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	store := repository.NewStore(db)
	txSvc := newTestTransactionService(store)
	ctx := context.Background()

	merchantA, _, _ := createTestMerchant(t, db, 0, 10_000_000)
	merchantB, _, _ := createTestMerchant(t, db, 0, 10_000_000)

	for i, m := range []uuid.UUID{merchantA, merchantA, merchantB} {
		_, err := txSvc.CreateRequest(ctx, CreateTransactionRequest{
			MerchantID:  m,
			Amount:      100_000,
			Type:        domain.TxTypeCashDigitization,
			VMFNumber:   "VMF-060",
			ReferenceID: "list-" + string(rune('a'+i)),
		})
		require.NoError(t, err)
	}

	all, err := txSvc.List(ctx, repository.ListTransactionsParams{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := txSvc.List(ctx, repository.ListTransactionsParams{MerchantID: &merchantA})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	status := domain.TxStatusCompleted
	none, err := txSvc.List(ctx, repository.ListTransactionsParams{Status: &status})
	require.NoError(t, err)
	assert.Empty(t, none)
}
