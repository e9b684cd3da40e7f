package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vibebridge/vibebridge-backend/pkg/enums"
)

// EscrowTransaction holds client funds for one milestone. The unique index on
// milestone_id blocks double funding at the database level.
type EscrowTransaction struct {
	ID          uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProjectID   uuid.UUID          `gorm:"column:project_id;type:uuid;not null;index"`
	MilestoneID *uuid.UUID         `gorm:"column:milestone_id;type:uuid;uniqueIndex:idx_escrow_milestone"`
	Amount      int64              `gorm:"column:amount;not null"`
	PlatformFee int64              `gorm:"column:platform_fee;not null"`
	NetAmount   int64              `gorm:"column:net_amount;not null"`
	Status      enums.EscrowStatus `gorm:"column:status;type:escrow_status;not null;default:'LOCKED'"`
	LockedAt    time.Time          `gorm:"column:locked_at;not null"`
	ReleasedAt  *time.Time         `gorm:"column:released_at"`
	RefundedAt  *time.Time         `gorm:"column:refunded_at"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
