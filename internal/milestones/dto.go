package milestones

import (
	"time"

	"github.com/google/uuid"

	"github.com/vibebridge/vibebridge-backend/pkg/db/models"
	"github.com/vibebridge/vibebridge-backend/pkg/enums"
)

// SubmitRequest is the body for POST /milestones/{id}/submit.
type SubmitRequest struct {
	RepoLink       string  `json:"repo_link" validate:"required,url"`
	DemoURL        *string `json:"demo_url,omitempty" validate:"omitempty,url"`
	DeploymentLink *string `json:"deployment_link,omitempty" validate:"omitempty,url"`
	Documentation  *string `json:"documentation,omitempty"`
	Notes          *string `json:"notes,omitempty"`
}

// DeliverableDTO is the transport shape for a submitted work artifact.
type DeliverableDTO struct {
	ID             uuid.UUID `json:"id"`
	ProjectID      uuid.UUID `json:"project_id"`
	MilestoneID    uuid.UUID `json:"milestone_id"`
	RepoLink       string    `json:"repo_link"`
	DemoURL        *string   `json:"demo_url,omitempty"`
	DeploymentLink *string   `json:"deployment_link,omitempty"`
	Documentation  *string   `json:"documentation,omitempty"`
	Notes          *string   `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// MilestoneDTO is the transport shape for a milestone.
type MilestoneDTO struct {
	ID          uuid.UUID             `json:"id"`
	ProjectID   uuid.UUID             `json:"project_id"`
	Title       string                `json:"title"`
	Description *string               `json:"description,omitempty"`
	Percentage  int                   `json:"percentage"`
	Amount      int64                 `json:"amount"`
	Status      enums.MilestoneStatus `json:"status"`
	Order       int                   `json:"order"`
	Deadline    *time.Time            `json:"deadline,omitempty"`
	SubmittedAt *time.Time            `json:"submitted_at,omitempty"`
	ApprovedAt  *time.Time            `json:"approved_at,omitempty"`
}

func toDTO(m *models.Milestone) *MilestoneDTO {
	if m == nil {
		return nil
	}
	return &MilestoneDTO{
		ID:          m.ID,
		ProjectID:   m.ProjectID,
		Title:       m.Title,
		Description: m.Description,
		Percentage:  m.Percentage,
		Amount:      m.Amount,
		Status:      m.Status,
		Order:       m.Order,
		Deadline:    m.Deadline,
		SubmittedAt: m.SubmittedAt,
		ApprovedAt:  m.ApprovedAt,
	}
}

func deliverableToDTO(d *models.Deliverable) *DeliverableDTO {
	if d == nil {
		return nil
	}
	return &DeliverableDTO{
		ID:             d.ID,
		ProjectID:      d.ProjectID,
		MilestoneID:    d.MilestoneID,
		RepoLink:       d.RepoLink,
		DemoURL:        d.DemoURL,
		DeploymentLink: d.DeploymentLink,
		Documentation:  d.Documentation,
		Notes:          d.Notes,
		CreatedAt:      d.CreatedAt,
	}
}
