package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/vibebridge/vibebridge-backend/pkg/enums"
)

// Project is the engagement between a client and a vibecoder. Money fields are
// whole rupiah; platform_fee and net_amount are frozen at creation time.
type Project struct {
	ID            uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Title         string                `gorm:"column:title;type:text;not null"`
	Description   string                `gorm:"column:description;type:text;not null"`
	Category      enums.ProjectCategory `gorm:"column:category;type:project_category;not null"`
	Status        enums.ProjectStatus   `gorm:"column:status;type:project_status;not null;default:'PROJECT_CREATED'"`
	TotalAmount   int64                 `gorm:"column:total_amount;not null"`
	PlatformFee   int64                 `gorm:"column:platform_fee;not null"`
	NetAmount     int64                 `gorm:"column:net_amount;not null"`
	Deadline      *time.Time            `gorm:"column:deadline"`
	RevisionLimit int                   `gorm:"column:revision_limit;not null;default:3"`
	RevisionsUsed int                   `gorm:"column:revisions_used;not null;default:0"`
	TechStack     pq.StringArray        `gorm:"type:text[];column:tech_stack;not null;default:ARRAY[]::text[]"`
	Requirements  *string               `gorm:"column:requirements;type:text"`
	ClientID      uuid.UUID             `gorm:"column:client_id;type:uuid;not null;index"`
	VibecoderID   *uuid.UUID            `gorm:"column:vibecoder_id;type:uuid;index"`
	FundedAt      *time.Time            `gorm:"column:funded_at"`
	CompletedAt   *time.Time            `gorm:"column:completed_at"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time             `gorm:"column:updated_at;autoUpdateTime"`

	Milestones []Milestone `gorm:"foreignKey:ProjectID"`
}
