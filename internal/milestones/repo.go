package milestones

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vibebridge/vibebridge-backend/pkg/db/models"
	"github.com/vibebridge/vibebridge-backend/pkg/enums"
)

// Repository persists milestones and their deliverables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Milestone, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Milestone, error)
	UpdateStatusWhere(ctx context.Context, id uuid.UUID, allowed []enums.MilestoneStatus, updates map[string]any) (int64, error)
	CountInStatuses(ctx context.Context, projectID uuid.UUID, statuses []enums.MilestoneStatus) (int64, error)
	StartAllPending(ctx context.Context, projectID uuid.UUID) (int64, error)
	CreateDeliverable(ctx context.Context, d *models.Deliverable) error
	ListDeliverables(ctx context.Context, milestoneID uuid.UUID) ([]models.Deliverable, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a gorm-backed milestone repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Milestone, error) {
	var m models.Milestone
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.Milestone, error) {
	var rows []models.Milestone
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("sort_order ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) UpdateStatusWhere(ctx context.Context, id uuid.UUID, allowed []enums.MilestoneStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Milestone{}).
		Where("id = ? AND status IN ?", id, allowed).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) CountInStatuses(ctx context.Context, projectID uuid.UUID, statuses []enums.MilestoneStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Milestone{}).
		Where("project_id = ? AND status IN ?", projectID, statuses).
		Count(&count).Error
	return count, err
}

func (r *repository) CreateDeliverable(ctx context.Context, d *models.Deliverable) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *repository) ListDeliverables(ctx context.Context, milestoneID uuid.UUID) ([]models.Deliverable, error) {
	var rows []models.Deliverable
	err := r.db.WithContext(ctx).
		Where("milestone_id = ?", milestoneID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) StartAllPending(ctx context.Context, projectID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Milestone{}).
		Where("project_id = ? AND status = ?", projectID, enums.MilestoneStatusPending).
		Update("status", enums.MilestoneStatusInProgress)
	return res.RowsAffected, res.Error
}

// Starter satisfies the escrow funding flow, which moves every PENDING
// milestone to IN_PROGRESS inside its own transaction.
type Starter struct {
	repo Repository
}

// NewStarter wraps a milestone repository.
func NewStarter(repo Repository) Starter {
	return Starter{repo: repo}
}

func (s Starter) StartAllPending(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (int64, error) {
	return s.repo.WithTx(tx).StartAllPending(ctx, projectID)
}
