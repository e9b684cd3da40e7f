package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vibebridge/vibebridge-backend/api/controllers"
	"github.com/vibebridge/vibebridge-backend/api/middleware"
	"github.com/vibebridge/vibebridge-backend/internal/auth"
	"github.com/vibebridge/vibebridge-backend/internal/disputes"
	"github.com/vibebridge/vibebridge-backend/internal/escrow"
	"github.com/vibebridge/vibebridge-backend/internal/milestones"
	"github.com/vibebridge/vibebridge-backend/internal/notifications"
	"github.com/vibebridge/vibebridge-backend/internal/projects"
	"github.com/vibebridge/vibebridge-backend/internal/wallets"
	"github.com/vibebridge/vibebridge-backend/pkg/config"
	"github.com/vibebridge/vibebridge-backend/pkg/enums"
	"github.com/vibebridge/vibebridge-backend/pkg/logger"
	"github.com/vibebridge/vibebridge-backend/pkg/redis"
)

// Services bundles the domain services the router exposes.
type Services struct {
	Auth          auth.Service
	Projects      projects.Service
	Milestones    milestones.Service
	Escrow        escrow.Service
	Disputes      disputes.Service
	Wallets       wallets.Service
	Notifications notifications.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient *redis.Client,
	readiness map[string]controllers.Pinger,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(svcs.Auth, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).Post("/register", controllers.AuthRegister(svcs.Auth, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/projects", func(r chi.Router) {
			r.Post("/", controllers.CreateProject(svcs.Projects, logg))
			r.Get("/", controllers.ListProjects(svcs.Projects, logg))
			r.Route("/{projectId}", func(r chi.Router) {
				r.Get("/", controllers.GetProject(svcs.Projects, logg))
				r.Post("/assign", controllers.AssignProject(svcs.Projects, logg))
				r.Post("/start", controllers.StartProject(svcs.Projects, logg))
				r.Post("/fund", controllers.FundProject(svcs.Escrow, logg))
				r.Post("/approve", controllers.ApproveProject(svcs.Projects, logg))
				r.Post("/request-revision", controllers.RequestProjectRevision(svcs.Projects, logg))
				r.Get("/escrow", controllers.ListProjectEscrow(svcs.Escrow, logg))
				r.Get("/milestones", controllers.ListProjectMilestones(svcs.Milestones, logg))
				r.Post("/disputes", controllers.OpenDispute(svcs.Disputes, logg))
			})
		})

		r.Route("/milestones/{milestoneId}", func(r chi.Router) {
			r.Post("/submit", controllers.SubmitMilestone(svcs.Milestones, logg))
			r.Post("/approve", controllers.ApproveMilestone(svcs.Milestones, logg))
			r.Get("/deliverables", controllers.ListMilestoneDeliverables(svcs.Milestones, logg))
		})

		r.Route("/disputes", func(r chi.Router) {
			r.Get("/", controllers.ListDisputes(svcs.Disputes, logg))
			r.Get("/{disputeId}", controllers.GetDispute(svcs.Disputes, logg))
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", controllers.GetWallet(svcs.Wallets, logg))
			r.Post("/withdraw", controllers.Withdraw(svcs.Wallets, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(svcs.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(svcs.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(svcs.Notifications, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/disputes", func(r chi.Router) {
			r.Get("/", controllers.ListDisputes(svcs.Disputes, logg))
			r.Patch("/{disputeId}/resolve", controllers.ResolveDispute(svcs.Disputes, logg))
		})
	})

	return r
}
