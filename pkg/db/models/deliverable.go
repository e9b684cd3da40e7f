package models

import (
	"time"

	"github.com/google/uuid"
)

// Deliverable is the work artifact attached to a milestone submission.
type Deliverable struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProjectID      uuid.UUID `gorm:"column:project_id;type:uuid;not null;index"`
	MilestoneID    uuid.UUID `gorm:"column:milestone_id;type:uuid;not null;index"`
	RepoLink       string    `gorm:"column:repo_link;type:text;not null"`
	DemoURL        *string   `gorm:"column:demo_url;type:text"`
	DeploymentLink *string   `gorm:"column:deployment_link;type:text"`
	Documentation  *string   `gorm:"column:documentation;type:text"`
	Notes          *string   `gorm:"column:notes;type:text"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
