package escrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vibebridge/vibebridge-backend/internal/projects"
	"github.com/vibebridge/vibebridge-backend/pkg/db"
	"github.com/vibebridge/vibebridge-backend/pkg/db/models"
	"github.com/vibebridge/vibebridge-backend/pkg/enums"
	pkgerrors "github.com/vibebridge/vibebridge-backend/pkg/errors"
	"github.com/vibebridge/vibebridge-backend/pkg/fees"
	"github.com/vibebridge/vibebridge-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// milestoneStarter flips a project's PENDING milestones to IN_PROGRESS once
// the money is locked.
type milestoneStarter interface {
	StartAllPending(ctx context.Context, tx *gorm.DB, projectID uuid.UUID) (int64, error)
}

// FundedEvent describes the escrow rows created when a client funds a project.
type FundedEvent struct {
	ProjectID   uuid.UUID `json:"project_id"`
	ClientID    uuid.UUID `json:"client_id"`
	TotalAmount int64     `json:"total_amount"`
	PlatformFee int64     `json:"platform_fee"`
	NetAmount   int64     `json:"net_amount"`
	EscrowRows  int       `json:"escrow_rows"`
}

// Service funds projects and exposes escrow rows for audit views.
type Service interface {
	Fund(ctx context.Context, actor projects.Actor, projectID uuid.UUID) ([]EscrowTransactionDTO, error)
	ListByProject(ctx context.Context, actor projects.Actor, projectID uuid.UUID) ([]EscrowTransactionDTO, error)
}

type service struct {
	repo       Repository
	projects   projects.Repository
	milestones milestoneStarter
	tx         txRunner
	outbox     outboxPublisher
	fees       fees.Calculator
}

// NewService builds the escrow service.
func NewService(repo Repository, projectRepo projects.Repository, starter milestoneStarter, tx txRunner, ob outboxPublisher, calc fees.Calculator) (Service, error) {
	if repo == nil || projectRepo == nil || starter == nil {
		return nil, fmt.Errorf("escrow service dependencies missing")
	}
	if tx == nil || ob == nil {
		return nil, fmt.Errorf("escrow service dependencies missing")
	}
	return &service{
		repo:       repo,
		projects:   projectRepo,
		milestones: starter,
		tx:         tx,
		outbox:     ob,
		fees:       calc,
	}, nil
}

// Fund locks the client's money. Milestone projects get one escrow row per
// milestone with fees recomputed on the slice amount, so the per-row fees can
// drift a few rupiah from the frozen project fee. Projects without milestones
// get a single project-level row.
func (s *service) Fund(ctx context.Context, actor projects.Actor, projectID uuid.UUID) ([]EscrowTransactionDTO, error) {
	if actor.Role != enums.UserRoleClient {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only clients can fund escrow")
	}
	if projectID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id required")
	}

	var created []models.EscrowTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		prepo := s.projects.WithTx(tx)
		project, err := prepo.FindByID(ctx, projectID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load project")
		}
		if project.ClientID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the owning client can fund")
		}
		if project.Status != enums.ProjectStatusCreated {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "project is not awaiting funding")
		}

		now := time.Now().UTC()
		rows, err := prepo.UpdateWhereStatus(ctx, projectID,
			[]enums.ProjectStatus{enums.ProjectStatusCreated},
			map[string]any{
				"status":    enums.ProjectStatusEscrowFunded,
				"funded_at": now,
			})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark project funded")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "project is not awaiting funding")
		}

		created = buildEscrowRows(project, s.fees, now)
		erepo := s.repo.WithTx(tx)
		if err := erepo.CreateBatch(ctx, created); err != nil {
			if db.IsUniqueViolation(err, "idx_escrow_milestone") {
				return pkgerrors.New(pkgerrors.CodeConflict, "escrow already funded for a milestone")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create escrow transactions")
		}

		if len(project.Milestones) > 0 {
			if _, err := s.milestones.StartAllPending(ctx, tx, projectID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "start milestones")
			}
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventEscrowFunded,
			AggregateType: enums.AggregateEscrow,
			AggregateID:   project.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
			Data: FundedEvent{
				ProjectID:   project.ID,
				ClientID:    project.ClientID,
				TotalAmount: project.TotalAmount,
				PlatformFee: project.PlatformFee,
				NetAmount:   project.NetAmount,
				EscrowRows:  len(created),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return toDTOs(created), nil
}

func (s *service) ListByProject(ctx context.Context, actor projects.Actor, projectID uuid.UUID) ([]EscrowTransactionDTO, error) {
	project, err := s.projects.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load project")
	}

	allowed := actor.Role == enums.UserRoleAdmin ||
		project.ClientID == actor.UserID ||
		(project.VibecoderID != nil && *project.VibecoderID == actor.UserID)
	if !allowed {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "escrow access denied")
	}

	rows, err := s.repo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list escrow transactions")
	}
	return toDTOs(rows), nil
}

func buildEscrowRows(project *models.Project, calc fees.Calculator, now time.Time) []models.EscrowTransaction {
	if len(project.Milestones) == 0 {
		return []models.EscrowTransaction{{
			ProjectID:   project.ID,
			Amount:      project.TotalAmount,
			PlatformFee: project.PlatformFee,
			NetAmount:   project.NetAmount,
			Status:      enums.EscrowStatusLocked,
			LockedAt:    now,
		}}
	}

	rows := make([]models.EscrowTransaction, 0, len(project.Milestones))
	for i := range project.Milestones {
		m := project.Milestones[i]
		milestoneID := m.ID
		rows = append(rows, models.EscrowTransaction{
			ProjectID:   project.ID,
			MilestoneID: &milestoneID,
			Amount:      m.Amount,
			PlatformFee: calc.PlatformFee(m.Amount),
			NetAmount:   calc.NetAmount(m.Amount),
			Status:      enums.EscrowStatusLocked,
			LockedAt:    now,
		})
	}
	return rows
}
