package gateway

import "context"

// BankGateway represents the external bank transfer interface used to pay
// out approved settlements.
type BankGateway interface {
	// SendTransfer sends a transfer to the given bank account.
	// Returns a bank reference ID and an error if the transfer failed.
	SendTransfer(ctx context.Context, bankName, accountNumber, accountName string, amount int64) (string, error)
}
