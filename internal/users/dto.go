package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/vibebridge/vibebridge-backend/pkg/db/models"
	"github.com/vibebridge/vibebridge-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID           uuid.UUID      `json:"id"`
	Name         string         `json:"name"`
	Email        string         `json:"email"`
	Role         enums.UserRole `json:"role"`
	Bio          *string        `json:"bio,omitempty"`
	Skills       []string       `json:"skills"`
	HourlyRate   *int64         `json:"hourly_rate,omitempty"`
	TrustScore   int            `json:"trust_score"`
	SuccessRatio float64        `json:"success_ratio"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		Bio:          u.Bio,
		Skills:       append([]string(nil), []string(u.Skills)...),
		HourlyRate:   u.HourlyRate,
		TrustScore:   u.TrustScore,
		SuccessRatio: u.SuccessRatio,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
