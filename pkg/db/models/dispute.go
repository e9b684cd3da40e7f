package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vibebridge/vibebridge-backend/pkg/enums"
)

// Dispute freezes a project's money movement until an admin resolves it.
type Dispute struct {
	ID          uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProjectID   uuid.UUID           `gorm:"column:project_id;type:uuid;not null;index"`
	ClientID    uuid.UUID           `gorm:"column:client_id;type:uuid;not null"`
	VibecoderID uuid.UUID           `gorm:"column:vibecoder_id;type:uuid;not null"`
	Reason      enums.DisputeReason `gorm:"column:reason;type:dispute_reason;not null"`
	Description string              `gorm:"column:description;type:text;not null"`
	Status      enums.DisputeStatus `gorm:"column:status;type:dispute_status;not null;default:'OPEN'"`
	Resolution  *string             `gorm:"column:resolution;type:text"`
	AdminNotes  *string             `gorm:"column:admin_notes;type:text"`
	ResolvedAt  *time.Time          `gorm:"column:resolved_at"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
