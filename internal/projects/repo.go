package projects

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vibebridge/vibebridge-backend/pkg/db/models"
	"github.com/vibebridge/vibebridge-backend/pkg/enums"
)

// Repository manages persistence for projects and their milestones.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, project *models.Project) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	ListForClient(ctx context.Context, clientID uuid.UUID, filter ListFilter) ([]models.Project, error)
	ListForVibecoder(ctx context.Context, vibecoderID uuid.UUID, filter ListFilter) ([]models.Project, error)
	ListOpen(ctx context.Context, filter ListFilter) ([]models.Project, error)
	ListAll(ctx context.Context, filter ListFilter) ([]models.Project, error)
	UpdateWhereStatus(ctx context.Context, id uuid.UUID, allowed []enums.ProjectStatus, updates map[string]any) (int64, error)
	IncrementRevisions(ctx context.Context, id uuid.UUID, limit int) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a project repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).
		Preload("Milestones", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		First(&project, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *repository) ListForClient(ctx context.Context, clientID uuid.UUID, filter ListFilter) ([]models.Project, error) {
	return r.list(ctx, filter, "client_id = ?", clientID)
}

func (r *repository) ListForVibecoder(ctx context.Context, vibecoderID uuid.UUID, filter ListFilter) ([]models.Project, error) {
	return r.list(ctx, filter, "vibecoder_id = ?", vibecoderID)
}

// ListOpen returns unassigned projects vibecoders can browse.
func (r *repository) ListOpen(ctx context.Context, filter ListFilter) ([]models.Project, error) {
	return r.list(ctx, filter, "status = ? AND vibecoder_id IS NULL", enums.ProjectStatusCreated)
}

func (r *repository) ListAll(ctx context.Context, filter ListFilter) ([]models.Project, error) {
	return r.list(ctx, filter, "")
}

func (r *repository) list(ctx context.Context, filter ListFilter, cond string, args ...any) ([]models.Project, error) {
	q := r.db.WithContext(ctx).
		Preload("Milestones", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Order("created_at DESC")
	if cond != "" {
		q = q.Where(cond, args...)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.Category != nil {
		q = q.Where("category = ?", *filter.Category)
	}

	var rows []models.Project
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateWhereStatus applies updates only while the project sits in one of the
// allowed states. Zero rows affected means a concurrent transition won.
func (r *repository) UpdateWhereStatus(ctx context.Context, id uuid.UUID, allowed []enums.ProjectStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Project{}).
		Where("id = ? AND status IN ?", id, allowed).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// IncrementRevisions bumps revisions_used while the limit still has headroom.
func (r *repository) IncrementRevisions(ctx context.Context, id uuid.UUID, limit int) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE projects
		SET revisions_used = revisions_used + 1,
			status = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND revisions_used < ?
	`, enums.ProjectStatusRevisionRequested, id, limit)
	return res.RowsAffected, res.Error
}
