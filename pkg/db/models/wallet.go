package models

import (
	"time"

	"github.com/google/uuid"
)

// Wallet carries a vibecoder's running balances. Balance mutations always pair
// with a WalletTransaction row inside the same database transaction.
type Wallet struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Balance        int64     `gorm:"column:balance;not null;default:0"`
	LockedBalance  int64     `gorm:"column:locked_balance;not null;default:0"`
	TotalEarned    int64     `gorm:"column:total_earned;not null;default:0"`
	TotalWithdrawn int64     `gorm:"column:total_withdrawn;not null;default:0"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
