package escrow

import (
	"time"

	"github.com/google/uuid"

	"github.com/vibebridge/vibebridge-backend/pkg/db/models"
	"github.com/vibebridge/vibebridge-backend/pkg/enums"
)

// EscrowTransactionDTO is the transport shape for one held amount.
type EscrowTransactionDTO struct {
	ID          uuid.UUID          `json:"id"`
	ProjectID   uuid.UUID          `json:"project_id"`
	MilestoneID *uuid.UUID         `json:"milestone_id,omitempty"`
	Amount      int64              `json:"amount"`
	PlatformFee int64              `json:"platform_fee"`
	NetAmount   int64              `json:"net_amount"`
	Status      enums.EscrowStatus `json:"status"`
	LockedAt    time.Time          `json:"locked_at"`
	ReleasedAt  *time.Time         `json:"released_at,omitempty"`
	RefundedAt  *time.Time         `json:"refunded_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

func toDTO(row models.EscrowTransaction) EscrowTransactionDTO {
	return EscrowTransactionDTO{
		ID:          row.ID,
		ProjectID:   row.ProjectID,
		MilestoneID: row.MilestoneID,
		Amount:      row.Amount,
		PlatformFee: row.PlatformFee,
		NetAmount:   row.NetAmount,
		Status:      row.Status,
		LockedAt:    row.LockedAt,
		ReleasedAt:  row.ReleasedAt,
		RefundedAt:  row.RefundedAt,
		CreatedAt:   row.CreatedAt,
	}
}

func toDTOs(rows []models.EscrowTransaction) []EscrowTransactionDTO {
	out := make([]EscrowTransactionDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDTO(row))
	}
	return out
}
