package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/splitledger/internal/infrastructure/metrics"
)

// ReconciliationUseCase re-applies deltas for transactions that were
// persisted but whose ledger application did not complete (caller abort,
// crash, conflict budget exhausted). Application is idempotent per
// transaction id, so re-applying an already-reflected transaction is
// harmless.
type ReconciliationUseCase struct {
	transactionRepo TransactionRepository
	ledger          *LedgerUseCase
	metrics         *metrics.Metrics
	logger          zerolog.Logger
	batchSize       int
}

// NewReconciliationUseCase creates a new ReconciliationUseCase. metrics
// may be nil.
func NewReconciliationUseCase(
	transactionRepo TransactionRepository,
	ledger *LedgerUseCase,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		transactionRepo: transactionRepo,
		ledger:          ledger,
		metrics:         m,
		logger:          logger,
		batchSize:       100,
	}
}

// ReconcileReport summarizes one reconciliation pass.
type ReconcileReport struct {
	Scanned int `json:"scanned"`
	Applied int `json:"applied"`
	Failed  int `json:"failed"`
}

// Run performs one reconciliation pass over pending transactions.
func (uc *ReconciliationUseCase) Run(ctx context.Context) (*ReconcileReport, error) {
	pending, err := uc.transactionRepo.ListUnapplied(ctx, uc.batchSize)
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.ReconcileRuns.Inc()
	}

	report := &ReconcileReport{Scanned: len(pending)}

	for _, txn := range pending {
		if _, err := uc.ledger.ApplyTransaction(ctx, txn); err != nil {
			report.Failed++
			uc.logger.Warn().
				Err(err).
				Str("transaction_id", txn.ID).
				Msg("reconciliation failed for transaction")

			continue
		}

		report.Applied++
	}

	if uc.metrics != nil && report.Applied > 0 {
		uc.metrics.ReconcileRecovered.Add(float64(report.Applied))
	}

	if report.Scanned > 0 {
		uc.logger.Info().
			Int("scanned", report.Scanned).
			Int("applied", report.Applied).
			Int("failed", report.Failed).
			Msg("reconciliation pass completed")
	}

	return report, nil
}

// Start runs reconciliation passes on a fixed interval until ctx is
// cancelled. Intended to be launched from the process entry point.
func (uc *ReconciliationUseCase) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := uc.Run(ctx); err != nil {
				uc.logger.Error().Err(err).Msg("reconciliation pass failed")
			}
		}
	}
}
