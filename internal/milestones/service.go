package milestones

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vibebridge/vibebridge-backend/internal/projects"
	"github.com/vibebridge/vibebridge-backend/internal/wallets"
	"github.com/vibebridge/vibebridge-backend/pkg/db/models"
	"github.com/vibebridge/vibebridge-backend/pkg/enums"
	pkgerrors "github.com/vibebridge/vibebridge-backend/pkg/errors"
	"github.com/vibebridge/vibebridge-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// escrowSettler releases and reads the escrow row backing one milestone.
type escrowSettler interface {
	ReleaseByMilestone(ctx context.Context, tx *gorm.DB, milestoneID uuid.UUID, at time.Time) (int64, error)
	FindByMilestone(ctx context.Context, tx *gorm.DB, milestoneID uuid.UUID) (*models.EscrowTransaction, error)
}

type walletCreditor interface {
	Credit(ctx context.Context, tx *gorm.DB, input wallets.CreditInput) error
}

// SubmittedEvent is the payload for a milestone submission.
type SubmittedEvent struct {
	MilestoneID uuid.UUID `json:"milestone_id"`
	ProjectID   uuid.UUID `json:"project_id"`
	Title       string    `json:"title"`
	RepoLink    string    `json:"repo_link"`
	AllDone     bool      `json:"all_done"`
}

// ApprovedEvent is the payload for a milestone approval and release.
type ApprovedEvent struct {
	MilestoneID uuid.UUID `json:"milestone_id"`
	ProjectID   uuid.UUID `json:"project_id"`
	Title       string    `json:"title"`
	NetAmount   int64     `json:"net_amount"`
	AllDone     bool      `json:"all_done"`
}

// Service covers the per-milestone settlement operations.
type Service interface {
	ListByProject(ctx context.Context, actor projects.Actor, projectID uuid.UUID) ([]MilestoneDTO, error)
	Submit(ctx context.Context, actor projects.Actor, milestoneID uuid.UUID, req SubmitRequest) (*MilestoneDTO, error)
	Approve(ctx context.Context, actor projects.Actor, milestoneID uuid.UUID) (*MilestoneDTO, error)
	ListDeliverables(ctx context.Context, actor projects.Actor, milestoneID uuid.UUID) ([]DeliverableDTO, error)
}

type service struct {
	repo     Repository
	projects projects.Repository
	escrow   escrowSettler
	wallets  walletCreditor
	tx       txRunner
	outbox   outboxPublisher
}

// NewService builds the milestone service.
func NewService(repo Repository, projectRepo projects.Repository, settler escrowSettler, creditor walletCreditor, tx txRunner, ob outboxPublisher) (Service, error) {
	if repo == nil || projectRepo == nil || settler == nil || creditor == nil || tx == nil || ob == nil {
		return nil, fmt.Errorf("milestone service dependencies missing")
	}
	return &service{
		repo:     repo,
		projects: projectRepo,
		escrow:   settler,
		wallets:  creditor,
		tx:       tx,
		outbox:   ob,
	}, nil
}

func (s *service) ListByProject(ctx context.Context, actor projects.Actor, projectID uuid.UUID) ([]MilestoneDTO, error) {
	project, err := s.loadProject(ctx, s.projects, projectID)
	if err != nil {
		return nil, err
	}
	if !canAccess(actor, project) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "milestone access denied")
	}

	rows, err := s.repo.ListByProject(ctx, projectID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list milestones")
	}
	out := make([]MilestoneDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *toDTO(&rows[i]))
	}
	return out, nil
}

// Submit attaches a deliverable and marks the milestone SUBMITTED. A milestone
// that is already SUBMITTED can be submitted again, which is how revised work
// comes back after the client requested changes. When every milestone of the
// project has left the PENDING and IN_PROGRESS states the project itself moves
// to SUBMITTED, which is what unlocks client approval.
func (s *service) Submit(ctx context.Context, actor projects.Actor, milestoneID uuid.UUID, req SubmitRequest) (*MilestoneDTO, error) {
	if req.RepoLink == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "repo link required")
	}

	var milestone *models.Milestone
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.loadMilestone(ctx, repo, milestoneID)
		if err != nil {
			return err
		}
		project, err := s.loadProject(ctx, s.projects.WithTx(tx), loaded.ProjectID)
		if err != nil {
			return err
		}
		if project.VibecoderID == nil || *project.VibecoderID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "milestone is not assigned to you")
		}

		now := time.Now().UTC()
		rows, err := repo.UpdateStatusWhere(ctx, milestoneID,
			[]enums.MilestoneStatus{
				enums.MilestoneStatusPending,
				enums.MilestoneStatusInProgress,
				enums.MilestoneStatusSubmitted,
			},
			map[string]any{
				"status":       enums.MilestoneStatusSubmitted,
				"submitted_at": now,
			})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "submit milestone")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "milestone is already settled")
		}

		if err := repo.CreateDeliverable(ctx, &models.Deliverable{
			ProjectID:      loaded.ProjectID,
			MilestoneID:    milestoneID,
			RepoLink:       req.RepoLink,
			DemoURL:        req.DemoURL,
			DeploymentLink: req.DeploymentLink,
			Documentation:  req.Documentation,
			Notes:          req.Notes,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create deliverable")
		}

		remaining, err := repo.CountInStatuses(ctx, loaded.ProjectID, []enums.MilestoneStatus{
			enums.MilestoneStatusPending, enums.MilestoneStatusInProgress,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count open milestones")
		}
		allDone := remaining == 0
		if allDone {
			if _, err := s.projects.WithTx(tx).UpdateWhereStatus(ctx, loaded.ProjectID,
				[]enums.ProjectStatus{
					enums.ProjectStatusEscrowFunded,
					enums.ProjectStatusInProgress,
					enums.ProjectStatusRevisionRequested,
				},
				map[string]any{"status": enums.ProjectStatusSubmitted}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark project submitted")
			}
		}

		loaded.Status = enums.MilestoneStatusSubmitted
		loaded.SubmittedAt = &now
		milestone = loaded

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventMilestoneSubmitted,
			AggregateType: enums.AggregateMilestone,
			AggregateID:   milestoneID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
			Data: SubmittedEvent{
				MilestoneID: milestoneID,
				ProjectID:   loaded.ProjectID,
				Title:       loaded.Title,
				RepoLink:    req.RepoLink,
				AllDone:     allDone,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return toDTO(milestone), nil
}

// Approve releases the escrow row behind one milestone and credits its net
// amount. Once the last milestone is approved the project closes as
// COMPLETED.
func (s *service) Approve(ctx context.Context, actor projects.Actor, milestoneID uuid.UUID) (*MilestoneDTO, error) {
	var milestone *models.Milestone
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.loadMilestone(ctx, repo, milestoneID)
		if err != nil {
			return err
		}
		project, err := s.loadProject(ctx, s.projects.WithTx(tx), loaded.ProjectID)
		if err != nil {
			return err
		}
		if project.ClientID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the owning client can approve milestones")
		}

		now := time.Now().UTC()
		rows, err := repo.UpdateStatusWhere(ctx, milestoneID,
			[]enums.MilestoneStatus{enums.MilestoneStatusSubmitted},
			map[string]any{
				"status":      enums.MilestoneStatusApproved,
				"approved_at": now,
			})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve milestone")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "milestone is not awaiting approval")
		}

		escrowRow, err := s.escrow.FindByMilestone(ctx, tx, milestoneID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "milestone has no funded escrow")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load escrow transaction")
		}
		released, err := s.escrow.ReleaseByMilestone(ctx, tx, milestoneID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release escrow")
		}
		if released == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "escrow already settled")
		}

		if project.VibecoderID != nil {
			milestoneRef := milestoneID.String()
			escrowID := escrowRow.ID
			if err := s.wallets.Credit(ctx, tx, wallets.CreditInput{
				UserID:              *project.VibecoderID,
				Amount:              escrowRow.NetAmount,
				EscrowTransactionID: &escrowID,
				Description:         fmt.Sprintf("Milestone %q approved", loaded.Title),
				Reference:           &milestoneRef,
			}); err != nil {
				return err
			}
		}

		remaining, err := repo.CountInStatuses(ctx, loaded.ProjectID, []enums.MilestoneStatus{
			enums.MilestoneStatusPending, enums.MilestoneStatusInProgress, enums.MilestoneStatusSubmitted,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unsettled milestones")
		}
		allDone := remaining == 0
		if allDone {
			if _, err := s.projects.WithTx(tx).UpdateWhereStatus(ctx, loaded.ProjectID,
				[]enums.ProjectStatus{enums.ProjectStatusSubmitted, enums.ProjectStatusInProgress},
				map[string]any{
					"status":       enums.ProjectStatusCompleted,
					"completed_at": now,
				}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark project completed")
			}
		}

		loaded.Status = enums.MilestoneStatusApproved
		loaded.ApprovedAt = &now
		milestone = loaded

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventMilestoneApproved,
			AggregateType: enums.AggregateMilestone,
			AggregateID:   milestoneID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
			Data: ApprovedEvent{
				MilestoneID: milestoneID,
				ProjectID:   loaded.ProjectID,
				Title:       loaded.Title,
				NetAmount:   escrowRow.NetAmount,
				AllDone:     allDone,
			},
		}); err != nil {
			return err
		}

		if allDone {
			return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventProjectCompleted,
				AggregateType: enums.AggregateProject,
				AggregateID:   loaded.ProjectID,
				Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
				Data: SubmittedEvent{
					MilestoneID: milestoneID,
					ProjectID:   loaded.ProjectID,
					Title:       loaded.Title,
					AllDone:     true,
				},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toDTO(milestone), nil
}

func (s *service) ListDeliverables(ctx context.Context, actor projects.Actor, milestoneID uuid.UUID) ([]DeliverableDTO, error) {
	loaded, err := s.loadMilestone(ctx, s.repo, milestoneID)
	if err != nil {
		return nil, err
	}
	project, err := s.loadProject(ctx, s.projects, loaded.ProjectID)
	if err != nil {
		return nil, err
	}
	if !canAccess(actor, project) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "deliverable access denied")
	}

	rows, err := s.repo.ListDeliverables(ctx, milestoneID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list deliverables")
	}
	out := make([]DeliverableDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *deliverableToDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) loadMilestone(ctx context.Context, repo Repository, id uuid.UUID) (*models.Milestone, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "milestone id required")
	}
	m, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "milestone not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load milestone")
	}
	return m, nil
}

func (s *service) loadProject(ctx context.Context, repo projects.Repository, id uuid.UUID) (*models.Project, error) {
	p, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load project")
	}
	return p, nil
}

func canAccess(actor projects.Actor, project *models.Project) bool {
	if actor.Role == enums.UserRoleAdmin {
		return true
	}
	if project.ClientID == actor.UserID {
		return true
	}
	return project.VibecoderID != nil && *project.VibecoderID == actor.UserID
}
