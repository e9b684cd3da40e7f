package wallets

import (
	"time"

	"github.com/google/uuid"

	"github.com/vibebridge/vibebridge-backend/pkg/db/models"
	"github.com/vibebridge/vibebridge-backend/pkg/enums"
)

// WalletDTO is the transport shape for a wallet plus its recent transactions.
type WalletDTO struct {
	ID             uuid.UUID              `json:"id"`
	UserID         uuid.UUID              `json:"user_id"`
	Balance        int64                  `json:"balance"`
	LockedBalance  int64                  `json:"locked_balance"`
	TotalEarned    int64                  `json:"total_earned"`
	TotalWithdrawn int64                  `json:"total_withdrawn"`
	Transactions   []WalletTransactionDTO `json:"transactions"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// WalletTransactionDTO is a single row from the append-only audit log.
type WalletTransactionDTO struct {
	ID                  uuid.UUID                     `json:"id"`
	EscrowTransactionID *uuid.UUID                    `json:"escrow_transaction_id,omitempty"`
	Type                enums.WalletTransactionType   `json:"type"`
	Amount              int64                         `json:"amount"`
	Status              enums.WalletTransactionStatus `json:"status"`
	Description         string                        `json:"description"`
	Reference           *string                       `json:"reference,omitempty"`
	CreatedAt           time.Time                     `json:"created_at"`
}

// WithdrawRequest is the body for POST /wallet/withdraw.
type WithdrawRequest struct {
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	BankName    string `json:"bank_name" validate:"required"`
	BankAccount string `json:"bank_account" validate:"required"`
}

func walletToDTO(w *models.Wallet, txns []models.WalletTransaction) *WalletDTO {
	if w == nil {
		return nil
	}
	dto := &WalletDTO{
		ID:             w.ID,
		UserID:         w.UserID,
		Balance:        w.Balance,
		LockedBalance:  w.LockedBalance,
		TotalEarned:    w.TotalEarned,
		TotalWithdrawn: w.TotalWithdrawn,
		Transactions:   make([]WalletTransactionDTO, 0, len(txns)),
		CreatedAt:      w.CreatedAt,
		UpdatedAt:      w.UpdatedAt,
	}
	for _, t := range txns {
		dto.Transactions = append(dto.Transactions, transactionToDTO(t))
	}
	return dto
}

func transactionToDTO(t models.WalletTransaction) WalletTransactionDTO {
	return WalletTransactionDTO{
		ID:                  t.ID,
		EscrowTransactionID: t.EscrowTransactionID,
		Type:                t.Type,
		Amount:              t.Amount,
		Status:              t.Status,
		Description:         t.Description,
		Reference:           t.Reference,
		CreatedAt:           t.CreatedAt,
	}
}
