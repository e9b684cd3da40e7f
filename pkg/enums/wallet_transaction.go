package enums

import "fmt"

// WalletTransactionType classifies entries in the wallet audit log.
type WalletTransactionType string

const (
	WalletTransactionTypeEscrowRelease WalletTransactionType = "ESCROW_RELEASE"
	WalletTransactionTypeWithdrawal    WalletTransactionType = "WITHDRAWAL"
	WalletTransactionTypeDeposit       WalletTransactionType = "DEPOSIT"
)

var validWalletTransactionTypes = []WalletTransactionType{
	WalletTransactionTypeEscrowRelease,
	WalletTransactionTypeWithdrawal,
	WalletTransactionTypeDeposit,
}

// String implements fmt.Stringer.
func (t WalletTransactionType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known WalletTransactionType.
func (t WalletTransactionType) IsValid() bool {
	for _, candidate := range validWalletTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseWalletTransactionType converts raw input into a WalletTransactionType.
func ParseWalletTransactionType(value string) (WalletTransactionType, error) {
	for _, candidate := range validWalletTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet transaction type %q", value)
}

// WalletTransactionStatus is the settlement state of a wallet movement.
// Withdrawals complete synchronously today, so COMPLETED is the common case.
type WalletTransactionStatus string

const (
	WalletTransactionStatusPending   WalletTransactionStatus = "PENDING"
	WalletTransactionStatusCompleted WalletTransactionStatus = "COMPLETED"
	WalletTransactionStatusFailed    WalletTransactionStatus = "FAILED"
)

var validWalletTransactionStatuses = []WalletTransactionStatus{
	WalletTransactionStatusPending,
	WalletTransactionStatusCompleted,
	WalletTransactionStatusFailed,
}

// String implements fmt.Stringer.
func (s WalletTransactionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known WalletTransactionStatus.
func (s WalletTransactionStatus) IsValid() bool {
	for _, candidate := range validWalletTransactionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}
