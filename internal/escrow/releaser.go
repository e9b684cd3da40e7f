package escrow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vibebridge/vibebridge-backend/pkg/db/models"
)

// Releaser adapts the repository for callers that already hold a transaction.
// Project approval, milestone approval, and dispute resolution all settle
// escrow rows inside their own transactions through this type.
type Releaser struct {
	repo Repository
}

// NewReleaser wraps an escrow repository.
func NewReleaser(repo Repository) Releaser {
	return Releaser{repo: repo}
}

func (r Releaser) ReleaseAllLocked(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, at time.Time) (int64, error) {
	return r.repo.WithTx(tx).ReleaseAllLocked(ctx, projectID, at)
}

func (r Releaser) RefundAllLocked(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, at time.Time) (int64, error) {
	return r.repo.WithTx(tx).RefundAllLocked(ctx, projectID, at)
}

func (r Releaser) ReleaseByMilestone(ctx context.Context, tx *gorm.DB, milestoneID uuid.UUID, at time.Time) (int64, error) {
	return r.repo.WithTx(tx).ReleaseByMilestone(ctx, milestoneID, at)
}

func (r Releaser) FindByMilestone(ctx context.Context, tx *gorm.DB, milestoneID uuid.UUID) (*models.EscrowTransaction, error) {
	return r.repo.WithTx(tx).FindByMilestone(ctx, milestoneID)
}

// SumLockedNet totals the net amounts still held for a project. Dispute
// resolution reads it before flipping the rows.
func (r Releaser) SumLockedNet(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (int64, error) {
	rows, err := r.repo.WithTx(tx).ListLockedByProject(ctx, projectID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, row := range rows {
		total += row.NetAmount
	}
	return total, nil
}
