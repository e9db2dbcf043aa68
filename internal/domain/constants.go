package domain

// Currency is the only settlement currency the platform operates in.
const Currency = "ZMW"

// User roles.
const (
	RoleMerchant = "merchant"
	RoleCashier  = "cashier"
	RoleFinance  = "finance"
	RoleAdmin    = "admin"
)

// Transaction types.
const (
	TxTypeCashDigitization = "cash_digitization"
	TxTypeRTP              = "rtp"
	TxTypeQRCodePayment    = "qr_code_payment"
	TxTypeSettlement       = "settlement"
)

// Transaction statuses.
const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusRejected  = "rejected"
	TxStatusExpired   = "expired"
)

// Canned cashier rejection reasons. Verification compares the counted amount
// and VMF number against the merchant's request and rejects with exactly
// these strings on mismatch.
const (
	RejectReasonAmountMismatch = "Amount Not Same as Merchant's"
	RejectReasonVMFMismatch    = "VMF Number Not Same as Merchant's"
)

// Settlement request statuses.
const (
	SettlementStatusPending   = "pending"
	SettlementStatusApproved  = "approved"
	SettlementStatusHold      = "hold"
	SettlementStatusRejected  = "rejected"
	SettlementStatusCompleted = "completed"
)

// SettlementCommentMaxLen caps the free-text comment on settlement reviews.
const SettlementCommentMaxLen = 125

// Organization KYC statuses.
const (
	KYCStatusPending  = "pending"
	KYCStatusInReview = "in_review"
	KYCStatusVerified = "verified"
	KYCStatusRejected = "rejected"
)

// AML rule types.
const (
	AmlRuleSingleTransaction = "single_transaction"
	AmlRuleDailyTotal        = "daily_total"
	AmlRuleWeeklyVolume      = "weekly_volume"
)

// AML alert statuses.
const (
	AlertStatusOpen        = "open"
	AlertStatusUnderReview = "under_review"
	AlertStatusCleared     = "cleared"
	AlertStatusEscalated   = "escalated"
)

// Document kinds and upload limits.
const (
	DocumentKindKYC = "kyc"
	DocumentKindVMF = "vmf"

	DocumentMaxSizeBytes = 5 << 20 // 5 MiB
)

// WebSocket event types pushed to clients for cache invalidation.
const (
	EventTransactionStatusUpdated = "transaction_status_updated"
	EventQRCodeExpired            = "qr_code_expired"
	EventSettlementStatusUpdated  = "settlement_status_updated"
)
