package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/infrastructure/metrics"
)

// LedgerUseCase owns mutation of friendship ledger entries. It is the
// only component that writes balances.
type LedgerUseCase struct {
	txManager       TransactionManager
	friendshipRepo  FriendshipRepository
	transactionRepo TransactionRepository
	retrier         Retrier
	cache           Cache
	metrics         *metrics.Metrics
	logger          zerolog.Logger
	opTimeout       time.Duration
}

// NewLedgerUseCase creates a new LedgerUseCase. cache may be nil to
// disable balance caching; metrics may be nil.
func NewLedgerUseCase(
	txManager TransactionManager,
	friendshipRepo FriendshipRepository,
	transactionRepo TransactionRepository,
	retrier Retrier,
	cache Cache,
	m *metrics.Metrics,
	logger zerolog.Logger,
	opTimeout time.Duration,
) *LedgerUseCase {
	if opTimeout <= 0 {
		opTimeout = DefaultOperationTimeout
	}

	return &LedgerUseCase{
		txManager:       txManager,
		friendshipRepo:  friendshipRepo,
		transactionRepo: transactionRepo,
		retrier:         retrier,
		cache:           cache,
		metrics:         m,
		logger:          logger,
		opTimeout:       opTimeout,
	}
}

// PairDelta is one applied balance adjustment.
type PairDelta struct {
	PairKey    domain.PairKey
	Amount     domain.Money
	NewBalance domain.Money
}

// ApplyResult reports the outcome of applying one transaction's deltas.
type ApplyResult struct {
	TransactionID  string
	Applied        []PairDelta
	Skipped        []domain.SkipNotice
	AlreadyApplied []domain.PairKey
}

// ApplyTransaction atomically applies a transaction's balance deltas to
// every affected friendship entry. Re-applying the same transaction is a
// no-op per entry: each entry records the transaction ids it already
// carries. Entries are locked in sorted pair-key order so concurrent
// applies for overlapping pairs serialize instead of deadlocking.
func (uc *LedgerUseCase) ApplyTransaction(ctx context.Context, txn *domain.Transaction) (*ApplyResult, error) {
	if err := txn.Validate(); err != nil {
		return nil, err
	}

	pks, err := pairKeysOf(txn)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, uc.opTimeout)
	defer cancel()

	var result *ApplyResult

	attempts := 0
	op := func() error {
		attempts++
		if attempts > 1 && uc.metrics != nil {
			uc.metrics.ApplyRetries.Inc()
		}

		res, err := uc.applyOnce(ctx, txn, pks)
		if err != nil {
			return err
		}

		result = res

		return nil
	}

	if err := uc.retrier.Retry(ctx, op); err != nil {
		return nil, mapDeadline(err)
	}

	txn.DeltasApplied = true

	if uc.metrics != nil {
		uc.metrics.DeltasApplied.Add(float64(len(result.Applied)))
		for _, s := range result.Skipped {
			uc.metrics.DeltasSkipped.WithLabelValues(string(s.Reason)).Inc()
		}
		uc.metrics.ApplyDuration.Observe(time.Since(start).Seconds())
	}

	users := []string{txn.CreatedBy}
	for _, d := range result.Applied {
		users = append(users, d.PairKey.Other(txn.CreatedBy))
	}
	uc.invalidateBalances(ctx, users...)

	uc.logger.Info().
		Str("transaction_id", txn.ID).
		Int("applied", len(result.Applied)).
		Int("skipped", len(result.Skipped)).
		Int("already_applied", len(result.AlreadyApplied)).
		Msg("transaction deltas applied")

	return result, nil
}

func (uc *LedgerUseCase) applyOnce(ctx context.Context, txn *domain.Transaction, pks []domain.PairKey) (*ApplyResult, error) {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	friendships, err := uc.friendshipRepo.GetByPairKeysForUpdate(ctx, tx, pks)
	if err != nil {
		return nil, err
	}

	fmap := make(map[domain.PairKey]*domain.Friendship, len(friendships))
	for _, f := range friendships {
		fmap[f.PairKey] = f
	}

	deltas, skipped, err := domain.ComputeDeltas(txn, fmap)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	result := &ApplyResult{
		TransactionID: txn.ID,
		Skipped:       skipped,
	}

	for _, d := range deltas {
		inserted, err := uc.friendshipRepo.MarkApplied(ctx, tx, d.PairKey, txn.ID)
		if err != nil {
			return nil, err
		}

		f := fmap[d.PairKey]

		if !inserted {
			result.AlreadyApplied = append(result.AlreadyApplied, d.PairKey)
			continue
		}

		if err := f.ApplyDelta(d.Amount); err != nil {
			return nil, err
		}
		f.Version++

		if err := uc.friendshipRepo.UpdateBalance(ctx, tx, d.PairKey, f.Balance, f.Version, now); err != nil {
			return nil, err
		}

		result.Applied = append(result.Applied, PairDelta{
			PairKey:    d.PairKey,
			Amount:     d.Amount,
			NewBalance: f.Balance,
		})
	}

	if err := uc.transactionRepo.MarkDeltasApplied(ctx, tx, txn.ID, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return result, nil
}

// Settle reduces the counterpart's outstanding debt to actingUserID by
// amount. A settlement never overshoots past zero: the balance sign as
// seen by the acting user cannot flip in one call.
//
// The settled amount is allocated back onto individual transactions
// oldest-first (FIFO by transaction date); a participant share flips to
// paid only when the remaining settlement amount fully covers it.
func (uc *LedgerUseCase) Settle(ctx context.Context, pk domain.PairKey, amount domain.Money, actingUserID string) (*domain.Friendship, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: settlement amount %s must be positive", domain.ErrInvalidAmount, amount)
	}

	if !pk.Contains(actingUserID) {
		return nil, fmt.Errorf("%w: pair %s", domain.ErrFriendshipNotFound, pk)
	}

	ctx, cancel := context.WithTimeout(ctx, uc.opTimeout)
	defer cancel()

	var (
		settled    *domain.Friendship
		sharesPaid int
	)

	attempts := 0
	op := func() error {
		attempts++
		if attempts > 1 && uc.metrics != nil {
			uc.metrics.ApplyRetries.Inc()
		}

		f, paid, err := uc.settleOnce(ctx, pk, amount, actingUserID)
		if err != nil {
			return err
		}

		settled = f
		sharesPaid = paid

		return nil
	}

	if err := uc.retrier.Retry(ctx, op); err != nil {
		return nil, mapDeadline(err)
	}

	if uc.metrics != nil {
		uc.metrics.SettlementsRecorded.Inc()
		uc.metrics.SharesMarkedPaid.Add(float64(sharesPaid))
	}

	uc.invalidateBalances(ctx, pk.Low(), pk.High())

	uc.logger.Info().
		Str("pair_key", string(pk)).
		Str("acting_user", actingUserID).
		Str("amount", amount.String()).
		Str("balance", settled.Balance.String()).
		Msg("settlement applied")

	return settled, nil
}

func (uc *LedgerUseCase) settleOnce(ctx context.Context, pk domain.PairKey, amount domain.Money, actingUserID string) (*domain.Friendship, int, error) {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer tx.Rollback(ctx)

	f, err := uc.friendshipRepo.GetByPairKeyForUpdate(ctx, tx, pk)
	if err != nil {
		return nil, 0, err
	}

	if f.Status != domain.FriendshipAccepted {
		return nil, 0, fmt.Errorf("%w: pair %s is %s", domain.ErrFriendshipNotAccepted, pk, f.Status)
	}

	outstanding := f.BalanceFor(actingUserID)
	if !outstanding.IsPositive() || amount > outstanding {
		return nil, 0, fmt.Errorf("%w: outstanding %s, requested %s on pair %s",
			domain.ErrSettleExceedsBalance, outstanding, amount, pk)
	}

	now := time.Now().UTC()

	remainingOwed := outstanding.Sub(amount)
	if actingUserID == pk.Low() {
		f.Balance = remainingOwed
	} else {
		f.Balance = remainingOwed.Neg()
	}
	f.Version++
	f.UpdatedAt = now

	if err := uc.friendshipRepo.UpdateBalance(ctx, tx, pk, f.Balance, f.Version, now); err != nil {
		return nil, 0, err
	}

	sharesPaid, err := uc.allocateSettlement(ctx, tx, pk, amount, actingUserID, now)
	if err != nil {
		return nil, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, err
	}

	return f, sharesPaid, nil
}

// allocateSettlement walks the creditor's transactions oldest-first and
// flips fully covered shares of the debtor to paid. It returns the
// number of shares it flipped.
func (uc *LedgerUseCase) allocateSettlement(ctx context.Context, tx Transaction, pk domain.PairKey, amount domain.Money, creditorID string, now time.Time) (int, error) {
	debtorID := pk.Other(creditorID)

	txns, err := uc.transactionRepo.ListUnpaidByPair(ctx, tx, creditorID, debtorID)
	if err != nil {
		return 0, err
	}

	sharesPaid := 0
	remaining := amount
	for _, t := range txns {
		if remaining.IsZero() {
			break
		}

		share, ok := t.ShareOf(debtorID)
		if !ok || share.IsPaid {
			continue
		}

		// Strict FIFO: stop at the first share the remainder cannot cover.
		if share.Amount > remaining {
			break
		}

		share.IsPaid = true
		remaining = remaining.Sub(share.Amount)
		sharesPaid++

		t.RecomputeSettled()
		t.UpdatedAt = now

		if err := uc.transactionRepo.UpdateShares(ctx, tx, t); err != nil {
			return 0, err
		}
	}

	return sharesPaid, nil
}

// BalanceRow is one friendship as seen by a specific user: positive
// balance means the counterpart owes that user.
type BalanceRow struct {
	CounterpartID string                  `json:"counterpart_id"`
	Balance       domain.Money            `json:"balance"`
	Status        domain.FriendshipStatus `json:"status"`
}

// ListBalances returns one row per friendship involving userID, sign
// already normalized to "positive = owed to userID".
func (uc *LedgerUseCase) ListBalances(ctx context.Context, userID string) ([]BalanceRow, error) {
	if uc.cache != nil {
		if data, err := uc.cache.Get(ctx, balanceCachePrefix+userID); err == nil {
			var rows []BalanceRow
			if err := json.Unmarshal(data, &rows); err == nil {
				return rows, nil
			}
		}
	}

	friendships, err := uc.friendshipRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	rows := make([]BalanceRow, 0, len(friendships))
	for _, f := range friendships {
		rows = append(rows, BalanceRow{
			CounterpartID: f.PairKey.Other(userID),
			Balance:       f.BalanceFor(userID),
			Status:        f.Status,
		})
	}

	if uc.cache != nil {
		if data, err := json.Marshal(rows); err == nil {
			if err := uc.cache.Set(ctx, balanceCachePrefix+userID, data, balanceCacheTTL); err != nil {
				uc.logger.Debug().Err(err).Str("user_id", userID).Msg("balance cache set failed")
			}
		}
	}

	return rows, nil
}

// GetFriendship returns one ledger entry by pair key.
func (uc *LedgerUseCase) GetFriendship(ctx context.Context, pk domain.PairKey) (*domain.Friendship, error) {
	return uc.friendshipRepo.GetByPairKey(ctx, pk)
}

func (uc *LedgerUseCase) invalidateBalances(ctx context.Context, userIDs ...string) {
	if uc.cache == nil {
		return
	}

	for _, id := range userIDs {
		if err := uc.cache.Delete(ctx, balanceCachePrefix+id); err != nil {
			uc.logger.Debug().Err(err).Str("user_id", id).Msg("balance cache invalidation failed")
		}
	}
}

func pairKeysOf(txn *domain.Transaction) ([]domain.PairKey, error) {
	pks := make([]domain.PairKey, 0, len(txn.Participants))

	for _, p := range txn.Participants {
		if p.UserID == txn.CreatedBy {
			continue
		}

		pk, err := domain.NewPairKey(txn.CreatedBy, p.UserID)
		if err != nil {
			return nil, err
		}

		pks = append(pks, pk)
	}

	// Sorted lock order prevents deadlocks between overlapping applies.
	sort.Slice(pks, func(i, j int) bool { return pks[i] < pks[j] })

	return pks, nil
}

func mapDeadline(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrTimeout
	}

	return err
}
