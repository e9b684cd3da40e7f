package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vibebridge/vibebridge-backend/pkg/enums"
)

// WalletTransaction is the append-only record behind every wallet balance
// change. Amounts are stored positive; the type decides the direction.
type WalletTransaction struct {
	ID                  uuid.UUID                     `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	WalletID            uuid.UUID                     `gorm:"column:wallet_id;type:uuid;not null;index"`
	EscrowTransactionID *uuid.UUID                    `gorm:"column:escrow_transaction_id;type:uuid"`
	Type                enums.WalletTransactionType   `gorm:"column:type;type:wallet_transaction_type;not null"`
	Amount              int64                         `gorm:"column:amount;not null"`
	Status              enums.WalletTransactionStatus `gorm:"column:status;type:wallet_transaction_status;not null"`
	Description         string                        `gorm:"column:description;type:text;not null"`
	Reference           *string                       `gorm:"column:reference;type:text"`
	CreatedAt           time.Time                     `gorm:"column:created_at;autoCreateTime"`
}
