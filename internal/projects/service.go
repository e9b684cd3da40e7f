package projects

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vibebridge/vibebridge-backend/internal/wallets"
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

// EscrowReleaser flips all LOCKED escrow rows of a project to RELEASED.
type EscrowReleaser interface {
	ReleaseAllLocked(ctx context.Context, tx *gorm.DB, projectID uuid.UUID, at time.Time) (int64, error)
}

// WalletCreditor credits a vibecoder's wallet inside the caller's transaction.
type WalletCreditor interface {
	Credit(ctx context.Context, tx *gorm.DB, input wallets.CreditInput) error
}

// Actor identifies the authenticated caller for every operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// Service defines the project lifecycle operations.
type Service interface {
	Create(ctx context.Context, actor Actor, req CreateProjectRequest) (*ProjectDTO, error)
	Get(ctx context.Context, actor Actor, id uuid.UUID) (*ProjectDTO, error)
	List(ctx context.Context, actor Actor, filter ListFilter) ([]ProjectDTO, error)
	AssignVibecoder(ctx context.Context, actor Actor, projectID uuid.UUID) (*ProjectDTO, error)
	StartWork(ctx context.Context, actor Actor, projectID uuid.UUID) (*ProjectDTO, error)
	Approve(ctx context.Context, actor Actor, projectID uuid.UUID) (*ProjectDTO, error)
	RequestRevision(ctx context.Context, actor Actor, projectID uuid.UUID) (*ProjectDTO, error)
}

type service struct {
	repo             Repository
	tx               txRunner
	outbox           outboxPublisher
	escrow           EscrowReleaser
	wallets          WalletCreditor
	fees             fees.Calculator
	defaultRevisions int
}

// StatusChangeEvent is emitted whenever a project crosses a lifecycle boundary.
type StatusChangeEvent struct {
	ProjectID   uuid.UUID           `json:"project_id"`
	ClientID    uuid.UUID           `json:"client_id"`
	VibecoderID *uuid.UUID          `json:"vibecoder_id,omitempty"`
	Title       string              `json:"title"`
	Status      enums.ProjectStatus `json:"status"`
}

// PaymentReleasedEvent carries the settlement numbers for a whole-project release.
type PaymentReleasedEvent struct {
	ProjectID   uuid.UUID  `json:"project_id"`
	ClientID    uuid.UUID  `json:"client_id"`
	VibecoderID *uuid.UUID `json:"vibecoder_id,omitempty"`
	Title       string     `json:"title"`
	NetAmount   int64      `json:"net_amount"`
	EscrowRows  int64      `json:"escrow_rows"`
}

// NewService builds a project service with the required dependencies.
func NewService(repo Repository, tx txRunner, ob outboxPublisher, escrow EscrowReleaser, walletSvc WalletCreditor, calc fees.Calculator, defaultRevisions int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("project repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if escrow == nil {
		return nil, fmt.Errorf("escrow releaser required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet creditor required")
	}
	if defaultRevisions <= 0 {
		defaultRevisions = 3
	}
	return &service{
		repo:             repo,
		tx:               tx,
		outbox:           ob,
		escrow:           escrow,
		wallets:          walletSvc,
		fees:             calc,
		defaultRevisions: defaultRevisions,
	}, nil
}

func (s *service) Create(ctx context.Context, actor Actor, req CreateProjectRequest) (*ProjectDTO, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if actor.Role != enums.UserRoleClient {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only clients can create projects")
	}
	if req.TotalAmount <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "total amount must be positive")
	}

	category := req.Category
	if category == "" {
		category = enums.ProjectCategoryOther
	}
	if !category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid project category")
	}

	if len(req.Milestones) > 0 {
		sum := 0
		for _, m := range req.Milestones {
			if m.Percentage <= 0 {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "milestone percentage must be positive")
			}
			sum += m.Percentage
		}
		if sum != 100 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "milestone percentages must sum to 100")
		}
	}

	revisionLimit := req.RevisionLimit
	if revisionLimit <= 0 {
		revisionLimit = s.defaultRevisions
	}

	project := &models.Project{
		Title:         req.Title,
		Description:   req.Description,
		Category:      category,
		Status:        enums.ProjectStatusCreated,
		TotalAmount:   req.TotalAmount,
		PlatformFee:   s.fees.PlatformFee(req.TotalAmount),
		NetAmount:     s.fees.NetAmount(req.TotalAmount),
		Deadline:      req.Deadline,
		RevisionLimit: revisionLimit,
		TechStack:     req.TechStack,
		Requirements:  req.Requirements,
		ClientID:      actor.UserID,
	}
	for i, m := range req.Milestones {
		project.Milestones = append(project.Milestones, models.Milestone{
			Title:       m.Title,
			Description: m.Description,
			Percentage:  m.Percentage,
			Amount:      fees.MilestoneAmount(req.TotalAmount, int64(m.Percentage)),
			Status:      enums.MilestoneStatusPending,
			Order:       i + 1,
			Deadline:    m.Deadline,
		})
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, project); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create project")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProjectCreated,
			AggregateType: enums.AggregateProject,
			AggregateID:   project.ID,
			Actor:         actorRef(actor),
			Data:          statusEvent(project),
		})
	})
	if err != nil {
		return nil, err
	}
	return toDTO(project), nil
}

func (s *service) Get(ctx context.Context, actor Actor, id uuid.UUID) (*ProjectDTO, error) {
	project, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}

	if !canViewProject(actor, project) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "project access denied")
	}
	return toDTO(project), nil
}

func (s *service) List(ctx context.Context, actor Actor, filter ListFilter) ([]ProjectDTO, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var (
		rows []models.Project
		err  error
	)
	switch actor.Role {
	case enums.UserRoleClient:
		rows, err = s.repo.ListForClient(ctx, actor.UserID, filter)
	case enums.UserRoleVibecoder:
		if filter.Assigned {
			rows, err = s.repo.ListForVibecoder(ctx, actor.UserID, filter)
		} else {
			rows, err = s.repo.ListOpen(ctx, filter)
		}
	case enums.UserRoleAdmin:
		rows, err = s.repo.ListAll(ctx, filter)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "unknown role")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list projects")
	}

	out := make([]ProjectDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *toDTO(&rows[i]))
	}
	return out, nil
}

// AssignVibecoder lets a vibecoder claim an open project. The project jumps
// straight to ESCROW_FUNDED; funding is a separate client action and the
// status shortcut is longstanding product behavior.
func (s *service) AssignVibecoder(ctx context.Context, actor Actor, projectID uuid.UUID) (*ProjectDTO, error) {
	if actor.Role != enums.UserRoleVibecoder {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only vibecoders can take projects")
	}

	var project *models.Project
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.load(ctx, repo, projectID)
		if err != nil {
			return err
		}
		if loaded.Status != enums.ProjectStatusCreated {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "project is not open for assignment")
		}

		rows, err := repo.UpdateWhereStatus(ctx, projectID,
			[]enums.ProjectStatus{enums.ProjectStatusCreated},
			map[string]any{
				"vibecoder_id": actor.UserID,
				"status":       enums.ProjectStatusEscrowFunded,
			})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign vibecoder")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "project was taken by another vibecoder")
		}

		vibecoderID := actor.UserID
		loaded.VibecoderID = &vibecoderID
		loaded.Status = enums.ProjectStatusEscrowFunded
		project = loaded

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProjectAssigned,
			AggregateType: enums.AggregateProject,
			AggregateID:   loaded.ID,
			Actor:         actorRef(actor),
			Data:          statusEvent(loaded),
		})
	})
	if err != nil {
		return nil, err
	}
	return toDTO(project), nil
}

func (s *service) StartWork(ctx context.Context, actor Actor, projectID uuid.UUID) (*ProjectDTO, error) {
	var project *models.Project
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.load(ctx, repo, projectID)
		if err != nil {
			return err
		}
		if loaded.VibecoderID == nil || *loaded.VibecoderID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "project is not assigned to you")
		}

		allowed := []enums.ProjectStatus{enums.ProjectStatusEscrowFunded, enums.ProjectStatusRevisionRequested}
		rows, err := repo.UpdateWhereStatus(ctx, projectID, allowed, map[string]any{
			"status": enums.ProjectStatusInProgress,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "start work")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "work cannot start in the current state")
		}

		loaded.Status = enums.ProjectStatusInProgress
		project = loaded

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventProjectStarted,
			AggregateType: enums.AggregateProject,
			AggregateID:   loaded.ID,
			Actor:         actorRef(actor),
			Data:          statusEvent(loaded),
		})
	})
	if err != nil {
		return nil, err
	}
	return toDTO(project), nil
}

// Approve releases the whole project: every LOCKED escrow row flips to
// RELEASED and the frozen project-level net amount is credited in one
// transaction. Calling twice fails on the status guard instead of double
// crediting.
func (s *service) Approve(ctx context.Context, actor Actor, projectID uuid.UUID) (*ProjectDTO, error) {
	var project *models.Project
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.load(ctx, repo, projectID)
		if err != nil {
			return err
		}
		if loaded.ClientID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the owning client can approve")
		}

		now := time.Now().UTC()
		rows, err := repo.UpdateWhereStatus(ctx, projectID,
			[]enums.ProjectStatus{enums.ProjectStatusSubmitted},
			map[string]any{
				"status":       enums.ProjectStatusPaymentReleased,
				"completed_at": now,
			})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve project")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "project is not awaiting approval")
		}

		released, err := s.escrow.ReleaseAllLocked(ctx, tx, projectID, now)
		if err != nil {
			return err
		}

		if loaded.VibecoderID != nil {
			projectRef := loaded.ID.String()
			if err := s.wallets.Credit(ctx, tx, wallets.CreditInput{
				UserID:      *loaded.VibecoderID,
				Amount:      loaded.NetAmount,
				Description: fmt.Sprintf("Payment released for project: %s", loaded.Title),
				Reference:   &projectRef,
			}); err != nil {
				return err
			}
		}

		loaded.Status = enums.ProjectStatusPaymentReleased
		loaded.CompletedAt = &now
		project = loaded

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentReleased,
			AggregateType: enums.AggregateProject,
			AggregateID:   loaded.ID,
			Actor:         actorRef(actor),
			Data: PaymentReleasedEvent{
				ProjectID:   loaded.ID,
				ClientID:    loaded.ClientID,
				VibecoderID: loaded.VibecoderID,
				Title:       loaded.Title,
				NetAmount:   loaded.NetAmount,
				EscrowRows:  released,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return toDTO(project), nil
}

func (s *service) RequestRevision(ctx context.Context, actor Actor, projectID uuid.UUID) (*ProjectDTO, error) {
	var project *models.Project
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := s.load(ctx, repo, projectID)
		if err != nil {
			return err
		}
		if loaded.ClientID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the owning client can request revisions")
		}
		if loaded.Status != enums.ProjectStatusSubmitted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "revisions can only be requested on submitted work")
		}
		if loaded.RevisionsUsed >= loaded.RevisionLimit {
			return pkgerrors.New(pkgerrors.CodeLimitExceeded, "revision limit reached")
		}

		rows, err := repo.IncrementRevisions(ctx, projectID, loaded.RevisionLimit)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "request revision")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeLimitExceeded, "revision limit reached")
		}

		loaded.Status = enums.ProjectStatusRevisionRequested
		loaded.RevisionsUsed++
		project = loaded

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRevisionRequested,
			AggregateType: enums.AggregateProject,
			AggregateID:   loaded.ID,
			Actor:         actorRef(actor),
			Data:          statusEvent(loaded),
		})
	})
	if err != nil {
		return nil, err
	}
	return toDTO(project), nil
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Project, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project id required")
	}
	project, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load project")
	}
	return project, nil
}

// canViewProject mirrors the marketplace visibility rules: participants and
// admins always, plus any vibecoder browsing a still-open project.
func canViewProject(actor Actor, project *models.Project) bool {
	if actor.Role == enums.UserRoleAdmin {
		return true
	}
	if project.ClientID == actor.UserID {
		return true
	}
	if project.VibecoderID != nil && *project.VibecoderID == actor.UserID {
		return true
	}
	return actor.Role == enums.UserRoleVibecoder && project.Status == enums.ProjectStatusCreated
}

func statusEvent(p *models.Project) StatusChangeEvent {
	return StatusChangeEvent{
		ProjectID:   p.ID,
		ClientID:    p.ClientID,
		VibecoderID: p.VibecoderID,
		Title:       p.Title,
		Status:      p.Status,
	}
}

func actorRef(actor Actor) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}
}
