package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/infrastructure/metrics"
)

// FriendshipUseCase handles the friendship request lifecycle. Balance
// mutation stays with the LedgerUseCase; this use case only creates
// entries and drives the pending -> accepted/rejected state machine.
type FriendshipUseCase struct {
	txManager      TransactionManager
	friendshipRepo FriendshipRepository
	userRepo       UserRepository
	cache          Cache
	metrics        *metrics.Metrics
	logger         zerolog.Logger
}

// NewFriendshipUseCase creates a new FriendshipUseCase. metrics may be
// nil.
func NewFriendshipUseCase(
	txManager TransactionManager,
	friendshipRepo FriendshipRepository,
	userRepo UserRepository,
	cache Cache,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *FriendshipUseCase {
	return &FriendshipUseCase{
		txManager:      txManager,
		friendshipRepo: friendshipRepo,
		userRepo:       userRepo,
		cache:          cache,
		metrics:        m,
		logger:         logger,
	}
}

// Request creates a pending friendship between userID and the user
// registered under targetEmail.
func (uc *FriendshipUseCase) Request(ctx context.Context, userID, targetEmail string) (*domain.Friendship, error) {
	target, err := uc.userRepo.GetByEmail(ctx, targetEmail)
	if err != nil {
		return nil, err
	}

	pk, err := domain.NewPairKey(userID, target.ID)
	if err != nil {
		return nil, err
	}

	existing, err := uc.friendshipRepo.GetByPairKey(ctx, pk)
	if err != nil && !errors.Is(err, domain.ErrFriendshipNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: pair %s is %s", domain.ErrFriendshipAlreadyExists, pk, existing.Status)
	}

	f := domain.NewFriendship(pk, userID, time.Now().UTC())

	if err := uc.friendshipRepo.Create(ctx, f); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.FriendRequestsCreated.Inc()
	}

	uc.logger.Info().
		Str("pair_key", string(pk)).
		Str("requested_by", userID).
		Msg("friendship requested")

	return f, nil
}

// Accept transitions a pending friendship to accepted.
func (uc *FriendshipUseCase) Accept(ctx context.Context, pk domain.PairKey, userID string) (*domain.Friendship, error) {
	return uc.respond(ctx, pk, userID, (*domain.Friendship).Accept)
}

// Reject transitions a pending friendship to rejected. The entry is kept
// (balance zero) to preserve audit history; it is never deleted.
func (uc *FriendshipUseCase) Reject(ctx context.Context, pk domain.PairKey, userID string) (*domain.Friendship, error) {
	return uc.respond(ctx, pk, userID, (*domain.Friendship).Reject)
}

func (uc *FriendshipUseCase) respond(
	ctx context.Context,
	pk domain.PairKey,
	userID string,
	transition func(*domain.Friendship, string) error,
) (*domain.Friendship, error) {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	f, err := uc.friendshipRepo.GetByPairKeyForUpdate(ctx, tx, pk)
	if err != nil {
		return nil, err
	}

	if err := transition(f, userID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	f.UpdatedAt = now

	if err := uc.friendshipRepo.UpdateStatus(ctx, tx, pk, f.Status, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if uc.cache != nil {
		_ = uc.cache.Delete(ctx, balanceCachePrefix+pk.Low())
		_ = uc.cache.Delete(ctx, balanceCachePrefix+pk.High())
	}

	if uc.metrics != nil {
		uc.metrics.FriendRequestOutcomes.WithLabelValues(string(f.Status)).Inc()
	}

	uc.logger.Info().
		Str("pair_key", string(pk)).
		Str("status", string(f.Status)).
		Msg("friendship request resolved")

	return f, nil
}
