package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrDailyLimitExceeded    = errors.New("daily collection limit exceeded")
	ErrTransactionNotPending = errors.New("transaction is not pending")
)

type User struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"-"`
	FullName       string     `json:"full_name"`
	Role           string     `json:"role"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	Active         bool       `json:"active"`
	CreatedAt      time.Time  `json:"created_at"`
}

type Organization struct {
	ID             uuid.UUID  `json:"id"`
	BusinessName   string     `json:"business_name"`
	PacraNumber    string     `json:"pacra_number"`
	ZraTPIN        string     `json:"zra_tpin"`
	KYCStatus      string     `json:"kyc_status"`
	KYCReviewerID  *uuid.UUID `json:"kyc_reviewer_id,omitempty"`
	KYCReviewNotes *string    `json:"kyc_review_notes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Wallet holds a user's balance plus running daily counters. Counters are
// reset lazily when LastResetDate falls before the current day.
type Wallet struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	Balance          int64     `json:"balance"` // ngwee
	DailyLimit       int64     `json:"daily_limit"`
	DailyCollected   int64     `json:"daily_collected"`
	DailyTransferred int64     `json:"daily_transferred"`
	LastResetDate    time.Time `json:"last_reset_date"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Transaction struct {
	ID              uuid.UUID  `json:"id"`
	Amount          int64      `json:"amount"` // ngwee
	Currency        string     `json:"currency"`
	Type            string     `json:"type"`
	Status          string     `json:"status"`
	MerchantID      uuid.UUID  `json:"merchant_id"`
	OrganizationID  *uuid.UUID `json:"organization_id,omitempty"`
	CashierID       *uuid.UUID `json:"cashier_id,omitempty"`
	VMFNumber       *string    `json:"vmf_number,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	ReferenceID     string     `json:"reference_id"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	Metadata        []byte     `json:"metadata,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type SettlementRequest struct {
	ID                uuid.UUID  `json:"id"`
	OrganizationID    uuid.UUID  `json:"organization_id"`
	WalletID          uuid.UUID  `json:"wallet_id"`
	Amount            int64      `json:"amount"` // ngwee
	BankName          string     `json:"bank_name"`
	BankAccountNumber string     `json:"bank_account_number"`
	BankAccountName   string     `json:"bank_account_name"`
	Status            string     `json:"status"`
	ReviewerID        *uuid.UUID `json:"reviewer_id,omitempty"`
	Reason            *string    `json:"reason,omitempty"`
	Comment           *string    `json:"comment,omitempty"`
	BankReference     *string    `json:"bank_reference,omitempty"`
	ReferenceID       string     `json:"reference_id"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type Document struct {
	ID             uuid.UUID  `json:"id"`
	OwnerID        uuid.UUID  `json:"owner_id"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	Kind           string     `json:"kind"`
	FileName       string     `json:"file_name"`
	ContentType    string     `json:"content_type"`
	SizeBytes      int64      `json:"size_bytes"`
	Checksum       string     `json:"checksum"`
	StoragePath    string     `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
}

type AmlConfiguration struct {
	ID        uuid.UUID `json:"id"`
	RuleType  string    `json:"rule_type"`
	Threshold int64     `json:"threshold"` // ngwee
	Enabled   bool      `json:"enabled"`
	UpdatedBy uuid.UUID `json:"updated_by"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AmlAlert struct {
	ID             uuid.UUID       `json:"id"`
	AlertType      string          `json:"alert_type"`
	TransactionID  uuid.UUID       `json:"transaction_id"`
	OrganizationID *uuid.UUID      `json:"organization_id,omitempty"`
	Amount         int64           `json:"amount"` // ngwee
	Threshold      int64           `json:"threshold"`
	RiskScore      decimal.Decimal `json:"risk_score"`
	Status         string          `json:"status"`
	ReviewerID     *uuid.UUID      `json:"reviewer_id,omitempty"`
	ReviewNotes    *string         `json:"review_notes,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type ComplianceReport struct {
	ID                uuid.UUID `json:"id"`
	PeriodStart       time.Time `json:"period_start"`
	PeriodEnd         time.Time `json:"period_end"`
	TotalTransactions int64     `json:"total_transactions"`
	TotalVolume       int64     `json:"total_volume"` // ngwee
	CompletedCount    int64     `json:"completed_count"`
	RejectedCount     int64     `json:"rejected_count"`
	ExpiredCount      int64     `json:"expired_count"`
	OpenAlertCount    int64     `json:"open_alert_count"`
	GeneratedBy       string    `json:"generated_by"` // "worker" or "manual"
	CreatedAt         time.Time `json:"created_at"`
}
