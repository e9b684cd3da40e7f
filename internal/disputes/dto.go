package disputes

import (
	"time"

	"github.com/google/uuid"

	"github.com/vibebridge/vibebridge-backend/pkg/db/models"
	"github.com/vibebridge/vibebridge-backend/pkg/enums"
)

// OpenRequest is the body for POST /projects/{id}/disputes.
type OpenRequest struct {
	Reason      enums.DisputeReason `json:"reason" validate:"required"`
	Description string              `json:"description" validate:"required"`
}

// ResolveRequest is the admin verdict for PATCH /disputes/{id}/resolve.
type ResolveRequest struct {
	Decision      enums.DisputeDecision `json:"decision" validate:"required"`
	Resolution    string                `json:"resolution" validate:"required"`
	AdminNotes    *string               `json:"admin_notes,omitempty"`
	RefundPercent *int64                `json:"refund_percent,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// DisputeDTO is the transport shape for a dispute.
type DisputeDTO struct {
	ID          uuid.UUID           `json:"id"`
	ProjectID   uuid.UUID           `json:"project_id"`
	ClientID    uuid.UUID           `json:"client_id"`
	VibecoderID uuid.UUID           `json:"vibecoder_id"`
	Reason      enums.DisputeReason `json:"reason"`
	Description string              `json:"description"`
	Status      enums.DisputeStatus `json:"status"`
	Resolution  *string             `json:"resolution,omitempty"`
	AdminNotes  *string             `json:"admin_notes,omitempty"`
	ResolvedAt  *time.Time          `json:"resolved_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func toDTO(d *models.Dispute) *DisputeDTO {
	if d == nil {
		return nil
	}
	return &DisputeDTO{
		ID:          d.ID,
		ProjectID:   d.ProjectID,
		ClientID:    d.ClientID,
		VibecoderID: d.VibecoderID,
		Reason:      d.Reason,
		Description: d.Description,
		Status:      d.Status,
		Resolution:  d.Resolution,
		AdminNotes:  d.AdminNotes,
		ResolvedAt:  d.ResolvedAt,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}
