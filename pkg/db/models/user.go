package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/vibebridge/vibebridge-backend/pkg/enums"
)

// User represents the canonical identity entity for clients, vibecoders and admins.
type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string         `gorm:"column:name;type:text;not null"`
	Email        string         `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	Role         enums.UserRole `gorm:"column:role;type:user_role;not null"`
	Bio          *string        `gorm:"column:bio;type:text"`
	Skills       pq.StringArray `gorm:"type:text[];column:skills;not null;default:ARRAY[]::text[]"`
	HourlyRate   *int64         `gorm:"column:hourly_rate"`
	TrustScore   int            `gorm:"column:trust_score;not null;default:100"`
	SuccessRatio float64        `gorm:"column:success_ratio;not null;default:0"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
