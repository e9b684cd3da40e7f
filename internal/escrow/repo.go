package escrow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vibebridge/vibebridge-backend/pkg/db/models"
	"github.com/vibebridge/vibebridge-backend/pkg/enums"
)

// Repository persists escrow transactions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateBatch(ctx context.Context, rows []models.EscrowTransaction) error
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.EscrowTransaction, error)
	ListLockedByProject(ctx context.Context, projectID uuid.UUID) ([]models.EscrowTransaction, error)
	FindByMilestone(ctx context.Context, milestoneID uuid.UUID) (*models.EscrowTransaction, error)
	ReleaseAllLocked(ctx context.Context, projectID uuid.UUID, at time.Time) (int64, error)
	RefundAllLocked(ctx context.Context, projectID uuid.UUID, at time.Time) (int64, error)
	ReleaseByMilestone(ctx context.Context, milestoneID uuid.UUID, at time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a gorm-backed escrow repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateBatch(ctx context.Context, rows []models.EscrowTransaction) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *repository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.EscrowTransaction, error) {
	var rows []models.EscrowTransaction
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListLockedByProject(ctx context.Context, projectID uuid.UUID) ([]models.EscrowTransaction, error) {
	var rows []models.EscrowTransaction
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND status = ?", projectID, enums.EscrowStatusLocked).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindByMilestone(ctx context.Context, milestoneID uuid.UUID) (*models.EscrowTransaction, error) {
	var row models.EscrowTransaction
	err := r.db.WithContext(ctx).
		Where("milestone_id = ?", milestoneID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) ReleaseAllLocked(ctx context.Context, projectID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.EscrowTransaction{}).
		Where("project_id = ? AND status = ?", projectID, enums.EscrowStatusLocked).
		Updates(map[string]any{
			"status":      enums.EscrowStatusReleased,
			"released_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) RefundAllLocked(ctx context.Context, projectID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.EscrowTransaction{}).
		Where("project_id = ? AND status = ?", projectID, enums.EscrowStatusLocked).
		Updates(map[string]any{
			"status":      enums.EscrowStatusRefunded,
			"refunded_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) ReleaseByMilestone(ctx context.Context, milestoneID uuid.UUID, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.EscrowTransaction{}).
		Where("milestone_id = ? AND status = ?", milestoneID, enums.EscrowStatusLocked).
		Updates(map[string]any{
			"status":      enums.EscrowStatusReleased,
			"released_at": at,
		})
	return res.RowsAffected, res.Error
}
