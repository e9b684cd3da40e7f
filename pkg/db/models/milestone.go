package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/vibebridge/vibebridge-backend/pkg/enums"
)

// Milestone is a percentage slice of a project's total amount. Percentages
// across a project sum to exactly 100; amount is derived once at creation.
type Milestone struct {
	ID          uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProjectID   uuid.UUID             `gorm:"column:project_id;type:uuid;not null;index"`
	Title       string                `gorm:"column:title;type:text;not null"`
	Description *string               `gorm:"column:description;type:text"`
	Percentage  int                   `gorm:"column:percentage;not null"`
	Amount      int64                 `gorm:"column:amount;not null"`
	Status      enums.MilestoneStatus `gorm:"column:status;type:milestone_status;not null;default:'PENDING'"`
	Order       int                   `gorm:"column:sort_order;not null"`
	Deadline    *time.Time            `gorm:"column:deadline"`
	SubmittedAt *time.Time            `gorm:"column:submitted_at"`
	ApprovedAt  *time.Time            `gorm:"column:approved_at"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
