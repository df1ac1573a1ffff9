package usecase

import (
	"context"
	"time"

	"github.com/iho/splitledger/internal/domain"
)

// FriendshipRepository defines data access for friendship ledger entries.
type FriendshipRepository interface {
	Create(ctx context.Context, f *domain.Friendship) error
	GetByPairKey(ctx context.Context, pk domain.PairKey) (*domain.Friendship, error)
	GetByPairKeyForUpdate(ctx context.Context, tx Transaction, pk domain.PairKey) (*domain.Friendship, error)
	// GetByPairKeysForUpdate locks entries in sorted pair-key order.
	GetByPairKeysForUpdate(ctx context.Context, tx Transaction, pks []domain.PairKey) ([]*domain.Friendship, error)
	UpdateBalance(ctx context.Context, tx Transaction, pk domain.PairKey, balance domain.Money, version int64, updatedAt time.Time) error
	UpdateStatus(ctx context.Context, tx Transaction, pk domain.PairKey, status domain.FriendshipStatus, updatedAt time.Time) error
	// MarkApplied records that a transaction's delta is reflected in an
	// entry. Returns false when the pair already carries the transaction.
	MarkApplied(ctx context.Context, tx Transaction, pk domain.PairKey, transactionID string) (bool, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Friendship, error)
}

// TransactionRepository defines data access for expense transactions.
type TransactionRepository interface {
	Create(ctx context.Context, t *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Transaction, error)
	// ListUnapplied returns transactions persisted with deltas not yet applied.
	ListUnapplied(ctx context.Context, limit int) ([]*domain.Transaction, error)
	MarkDeltasApplied(ctx context.Context, tx Transaction, id string, updatedAt time.Time) error
	// ListUnpaidByPair returns transactions created by creditorID in which
	// debtorID still has an unpaid share, oldest first.
	ListUnpaidByPair(ctx context.Context, tx Transaction, creditorID, debtorID string) ([]*domain.Transaction, error)
	UpdateShares(ctx context.Context, tx Transaction, t *domain.Transaction) error
}

// UserRepository defines data access for the user directory.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier retries an operation on transient conflicts, translating an
// exhausted retry budget into domain.ErrConcurrentUpdateConflict.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}
