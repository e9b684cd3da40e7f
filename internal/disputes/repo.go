package disputes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vibebridge/vibebridge-backend/pkg/db/models"
	"github.com/vibebridge/vibebridge-backend/pkg/enums"
)

// Repository persists disputes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, d *models.Dispute) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Dispute, error)
	ListAll(ctx context.Context, status *enums.DisputeStatus) ([]models.Dispute, error)
	CountActiveForProject(ctx context.Context, projectID uuid.UUID) (int64, error)
	CountActiveForVibecoder(ctx context.Context, vibecoderID uuid.UUID) (int64, error)
	Resolve(ctx context.Context, id uuid.UUID, status enums.DisputeStatus, resolution string, adminNotes *string, at time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a gorm-backed dispute repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, d *models.Dispute) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var d models.Dispute
	if err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Dispute, error) {
	var rows []models.Dispute
	err := r.db.WithContext(ctx).
		Where("client_id = ? OR vibecoder_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListAll(ctx context.Context, status *enums.DisputeStatus) ([]models.Dispute, error) {
	q := r.db.WithContext(ctx).Model(&models.Dispute{})
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	var rows []models.Dispute
	err := q.Order("created_at DESC").Find(&rows).Error
	return rows, err
}

func (r *repository) CountActiveForProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Dispute{}).
		Where("project_id = ? AND status IN ?", projectID, activeStatuses()).
		Count(&count).Error
	return count, err
}

func (r *repository) CountActiveForVibecoder(ctx context.Context, vibecoderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Dispute{}).
		Where("vibecoder_id = ? AND status IN ?", vibecoderID, activeStatuses()).
		Count(&count).Error
	return count, err
}

func (r *repository) Resolve(ctx context.Context, id uuid.UUID, status enums.DisputeStatus, resolution string, adminNotes *string, at time.Time) (int64, error) {
	updates := map[string]any{
		"status":      status,
		"resolution":  resolution,
		"resolved_at": at,
	}
	if adminNotes != nil {
		updates["admin_notes"] = *adminNotes
	}
	res := r.db.WithContext(ctx).
		Model(&models.Dispute{}).
		Where("id = ? AND status IN ?", id, activeStatuses()).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func activeStatuses() []enums.DisputeStatus {
	return []enums.DisputeStatus{enums.DisputeStatusOpen, enums.DisputeStatusUnderReview}
}

// Checker answers the withdrawal guard without exposing the repository.
type Checker struct {
	repo Repository
}

// NewChecker wraps a dispute repository.
func NewChecker(repo Repository) Checker {
	return Checker{repo: repo}
}

func (c Checker) HasActiveForVibecoder(ctx context.Context, vibecoderID uuid.UUID) (bool, error) {
	count, err := c.repo.CountActiveForVibecoder(ctx, vibecoderID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
