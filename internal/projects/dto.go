package projects

import (
	"time"

	"github.com/google/uuid"

	"github.com/vibebridge/vibebridge-backend/pkg/db/models"
	"github.com/vibebridge/vibebridge-backend/pkg/enums"
)

// MilestoneInput is one percentage slice supplied at project creation.
type MilestoneInput struct {
	Title       string     `json:"title" validate:"required"`
	Description *string    `json:"description,omitempty"`
	Percentage  int        `json:"percentage" validate:"required,gt=0,lte=100"`
	Deadline    *time.Time `json:"deadline,omitempty"`
}

// CreateProjectRequest is the body for POST /projects.
type CreateProjectRequest struct {
	Title         string                `json:"title" validate:"required"`
	Description   string                `json:"description" validate:"required"`
	Category      enums.ProjectCategory `json:"category,omitempty"`
	TotalAmount   int64                 `json:"total_amount" validate:"required,gt=0"`
	Deadline      *time.Time            `json:"deadline,omitempty"`
	RevisionLimit int                   `json:"revision_limit,omitempty"`
	TechStack     []string              `json:"tech_stack,omitempty"`
	Requirements  *string               `json:"requirements,omitempty"`
	Milestones    []MilestoneInput      `json:"milestones,omitempty" validate:"omitempty,dive"`
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

// ProjectDTO is the transport shape for a project with its milestones.
type ProjectDTO struct {
	ID            uuid.UUID             `json:"id"`
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	Category      enums.ProjectCategory `json:"category"`
	Status        enums.ProjectStatus   `json:"status"`
	TotalAmount   int64                 `json:"total_amount"`
	PlatformFee   int64                 `json:"platform_fee"`
	NetAmount     int64                 `json:"net_amount"`
	Deadline      *time.Time            `json:"deadline,omitempty"`
	RevisionLimit int                   `json:"revision_limit"`
	RevisionsUsed int                   `json:"revisions_used"`
	TechStack     []string              `json:"tech_stack"`
	Requirements  *string               `json:"requirements,omitempty"`
	ClientID      uuid.UUID             `json:"client_id"`
	VibecoderID   *uuid.UUID            `json:"vibecoder_id,omitempty"`
	FundedAt      *time.Time            `json:"funded_at,omitempty"`
	CompletedAt   *time.Time            `json:"completed_at,omitempty"`
	Milestones    []MilestoneDTO        `json:"milestones"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// ListFilter narrows project listings.
type ListFilter struct {
	Status   *enums.ProjectStatus
	Category *enums.ProjectCategory
	Assigned bool
}

func milestoneToDTO(m models.Milestone) MilestoneDTO {
	return MilestoneDTO{
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

func toDTO(p *models.Project) *ProjectDTO {
	if p == nil {
		return nil
	}
	dto := &ProjectDTO{
		ID:            p.ID,
		Title:         p.Title,
		Description:   p.Description,
		Category:      p.Category,
		Status:        p.Status,
		TotalAmount:   p.TotalAmount,
		PlatformFee:   p.PlatformFee,
		NetAmount:     p.NetAmount,
		Deadline:      p.Deadline,
		RevisionLimit: p.RevisionLimit,
		RevisionsUsed: p.RevisionsUsed,
		TechStack:     append([]string(nil), []string(p.TechStack)...),
		Requirements:  p.Requirements,
		ClientID:      p.ClientID,
		VibecoderID:   p.VibecoderID,
		FundedAt:      p.FundedAt,
		CompletedAt:   p.CompletedAt,
		Milestones:    make([]MilestoneDTO, 0, len(p.Milestones)),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	for _, m := range p.Milestones {
		dto.Milestones = append(dto.Milestones, milestoneToDTO(m))
	}
	return dto
}
