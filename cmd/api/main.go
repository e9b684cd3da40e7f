package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/vibebridge/vibebridge-backend/api/controllers"
	"github.com/vibebridge/vibebridge-backend/api/routes"
	"github.com/vibebridge/vibebridge-backend/internal/auth"
	"github.com/vibebridge/vibebridge-backend/internal/disputes"
	"github.com/vibebridge/vibebridge-backend/internal/escrow"
	"github.com/vibebridge/vibebridge-backend/internal/milestones"
	"github.com/vibebridge/vibebridge-backend/internal/notifications"
	"github.com/vibebridge/vibebridge-backend/internal/projects"
	"github.com/vibebridge/vibebridge-backend/internal/wallets"
	"github.com/vibebridge/vibebridge-backend/pkg/config"
	"github.com/vibebridge/vibebridge-backend/pkg/db"
	"github.com/vibebridge/vibebridge-backend/pkg/fees"
	"github.com/vibebridge/vibebridge-backend/pkg/logger"
	"github.com/vibebridge/vibebridge-backend/pkg/migrate"
	"github.com/vibebridge/vibebridge-backend/pkg/outbox"
	"github.com/vibebridge/vibebridge-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	svcs, err := buildServices(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	readiness := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, redisClient, readiness, svcs),
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-stopCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server shutting down gracefully")
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (routes.Services, error) {
	gdb := dbClient.DB()

	outboxSvc := outbox.NewService(outbox.NewRepository(gdb), logg)
	calc := fees.NewCalculator(int64(cfg.Escrow.FeePercent))

	projectRepo := projects.NewRepository(gdb)
	milestoneRepo := milestones.NewRepository(gdb)
	escrowRepo := escrow.NewRepository(gdb)
	disputeRepo := disputes.NewRepository(gdb)
	walletRepo := wallets.NewRepository(gdb)
	notificationRepo := notifications.NewRepository(gdb)

	releaser := escrow.NewReleaser(escrowRepo)

	authSvc, err := auth.NewService(auth.ServiceParams{
		DB:             dbClient,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Services{}, err
	}

	walletSvc, err := wallets.NewService(walletRepo, dbClient, outboxSvc, disputes.NewChecker(disputeRepo), cfg.Escrow.WalletRecentTxLimit)
	if err != nil {
		return routes.Services{}, err
	}

	projectSvc, err := projects.NewService(projectRepo, dbClient, outboxSvc, releaser, walletSvc, calc, cfg.Escrow.DefaultRevisions)
	if err != nil {
		return routes.Services{}, err
	}

	escrowSvc, err := escrow.NewService(escrowRepo, projectRepo, milestones.NewStarter(milestoneRepo), dbClient, outboxSvc, calc)
	if err != nil {
		return routes.Services{}, err
	}

	milestoneSvc, err := milestones.NewService(milestoneRepo, projectRepo, releaser, walletSvc, dbClient, outboxSvc)
	if err != nil {
		return routes.Services{}, err
	}

	disputeSvc, err := disputes.NewService(disputeRepo, projectRepo, releaser, walletSvc, dbClient, outboxSvc, int64(cfg.Escrow.DefaultSplitRefund))
	if err != nil {
		return routes.Services{}, err
	}

	notificationSvc, err := notifications.NewService(notificationRepo, 0)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Auth:          authSvc,
		Projects:      projectSvc,
		Milestones:    milestoneSvc,
		Escrow:        escrowSvc,
		Disputes:      disputeSvc,
		Wallets:       walletSvc,
		Notifications: notificationSvc,
	}, nil
}
