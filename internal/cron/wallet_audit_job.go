package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/vibebridge/vibebridge-backend/pkg/db/models"
	"github.com/vibebridge/vibebridge-backend/pkg/logger"
	"github.com/vibebridge/vibebridge-backend/pkg/pagination"
)

const walletAuditBatchSize = 200

type walletAuditReader interface {
	ListAll(ctx context.Context, limit int, afterID *uuid.UUID) ([]models.Wallet, error)
	SumTransactions(ctx context.Context, walletID uuid.UUID) (int64, error)
}

// WalletAuditJobParams configure the balance reconciliation job.
type WalletAuditJobParams struct {
	Logger    *logger.Logger
	Wallets   walletAuditReader
	BatchSize int
}

// NewWalletAuditJob builds a job that recomputes every wallet balance from
// its transaction history and logs mismatches. It never mutates balances;
// a drift here means a bug elsewhere and needs a human.
func NewWalletAuditJob(params WalletAuditJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Wallets == nil {
		return nil, fmt.Errorf("wallet reader required")
	}
	batch := pagination.BatchSize(params.BatchSize, walletAuditBatchSize)
	return &walletAuditJob{
		logg:    params.Logger,
		wallets: params.Wallets,
		batch:   batch,
	}, nil
}

type walletAuditJob struct {
	logg    *logger.Logger
	wallets walletAuditReader
	batch   int
}

func (j *walletAuditJob) Name() string { return "wallet-audit" }

func (j *walletAuditJob) Run(ctx context.Context) error {
	var (
		cursor     *uuid.UUID
		audited    int
		mismatched int
		errs       error
	)
	for {
		wallets, err := j.wallets.ListAll(ctx, j.batch, cursor)
		if err != nil {
			return fmt.Errorf("list wallets: %w", err)
		}
		if len(wallets) == 0 {
			break
		}
		for i := range wallets {
			wallet := wallets[i]
			expected, err := j.wallets.SumTransactions(ctx, wallet.ID)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("wallet %s: %w", wallet.ID, err))
				continue
			}
			audited++
			if expected != wallet.Balance {
				mismatched++
				logCtx := j.logg.WithFields(ctx, map[string]any{
					"wallet_id":        wallet.ID.String(),
					"user_id":          wallet.UserID.String(),
					"recorded_balance": wallet.Balance,
					"computed_balance": expected,
				})
				j.logg.Warn(logCtx, "wallet balance drift detected")
			}
		}
		lastID := wallets[len(wallets)-1].ID
		cursor = &lastID
		if len(wallets) < j.batch {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"wallets_audited": audited,
		"mismatches":      mismatched,
	})
	j.logg.Info(logCtx, "wallet audit complete")
	return errs
}
