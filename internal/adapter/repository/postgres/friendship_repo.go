package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/usecase"
)

const pgErrUniqueViolation = "23505"

// FriendshipRepository implements usecase.FriendshipRepository.
type FriendshipRepository struct {
	pool *pgxpool.Pool
}

// NewFriendshipRepository creates a new FriendshipRepository.
func NewFriendshipRepository(pool *pgxpool.Pool) *FriendshipRepository {
	return &FriendshipRepository{pool: pool}
}

const friendshipColumns = `pair_key, requested_by, status, balance_cents, version, created_at, updated_at`

// Create inserts a new friendship entry. The pair key is unique: a
// second request for the same unordered pair fails with
// domain.ErrFriendshipAlreadyExists.
func (r *FriendshipRepository) Create(ctx context.Context, f *domain.Friendship) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO friendships (pair_key, user_low, user_high, requested_by, status, balance_cents, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		string(f.PairKey), f.PairKey.Low(), f.PairKey.High(), f.RequestedBy,
		string(f.Status), f.Balance.MinorUnits(), f.Version, f.CreatedAt, f.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
			return fmt.Errorf("%w: pair %s", domain.ErrFriendshipAlreadyExists, f.PairKey)
		}

		return err
	}

	return nil
}

// GetByPairKey retrieves a friendship by its normalized pair key.
func (r *FriendshipRepository) GetByPairKey(ctx context.Context, pk domain.PairKey) (*domain.Friendship, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+friendshipColumns+` FROM friendships WHERE pair_key = $1`,
		string(pk),
	)

	return scanFriendship(row)
}

// GetByPairKeyForUpdate retrieves a friendship with a FOR UPDATE lock.
func (r *FriendshipRepository) GetByPairKeyForUpdate(ctx context.Context, tx usecase.Transaction, pk domain.PairKey) (*domain.Friendship, error) {
	pgxTx := tx.(*Tx).PgxTx()

	row := pgxTx.QueryRow(ctx,
		`SELECT `+friendshipColumns+` FROM friendships WHERE pair_key = $1 FOR UPDATE`,
		string(pk),
	)

	return scanFriendship(row)
}

// GetByPairKeysForUpdate locks friendships in sorted pair-key order.
// Missing pairs are omitted, not an error: the balance engine turns them
// into skip notices.
func (r *FriendshipRepository) GetByPairKeysForUpdate(ctx context.Context, tx usecase.Transaction, pks []domain.PairKey) ([]*domain.Friendship, error) {
	pgxTx := tx.(*Tx).PgxTx()

	keys := make([]string, len(pks))
	for i, pk := range pks {
		keys[i] = string(pk)
	}

	rows, err := pgxTx.Query(ctx,
		`SELECT `+friendshipColumns+` FROM friendships WHERE pair_key = ANY($1) ORDER BY pair_key FOR UPDATE`,
		keys,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var friendships []*domain.Friendship
	for rows.Next() {
		f, err := scanFriendship(rows)
		if err != nil {
			return nil, err
		}

		friendships = append(friendships, f)
	}

	return friendships, rows.Err()
}

// UpdateBalance writes a friendship's balance and version.
func (r *FriendshipRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, pk domain.PairKey, balance domain.Money, version int64, updatedAt time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	tag, err := pgxTx.Exec(ctx,
		`UPDATE friendships SET balance_cents = $2, version = $3, updated_at = $4 WHERE pair_key = $1`,
		string(pk), balance.MinorUnits(), version, updatedAt,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: pair %s", domain.ErrFriendshipNotFound, pk)
	}

	return nil
}

// UpdateStatus writes a friendship's lifecycle status.
func (r *FriendshipRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, pk domain.PairKey, status domain.FriendshipStatus, updatedAt time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	tag, err := pgxTx.Exec(ctx,
		`UPDATE friendships SET status = $2, updated_at = $3 WHERE pair_key = $1`,
		string(pk), string(status), updatedAt,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: pair %s", domain.ErrFriendshipNotFound, pk)
	}

	return nil
}

// MarkApplied records a transaction id against an entry's applied set.
// Returns false when the id was already recorded, making delta
// application idempotent per entry.
func (r *FriendshipRepository) MarkApplied(ctx context.Context, tx usecase.Transaction, pk domain.PairKey, transactionID string) (bool, error) {
	pgxTx := tx.(*Tx).PgxTx()

	tag, err := pgxTx.Exec(ctx, `
		INSERT INTO ledger_applied (pair_key, transaction_id, applied_at)
		VALUES ($1, $2, now())
		ON CONFLICT (pair_key, transaction_id) DO NOTHING`,
		string(pk), transactionID,
	)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}

// ListByUser lists every friendship involving a user.
func (r *FriendshipRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Friendship, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+friendshipColumns+` FROM friendships WHERE user_low = $1 OR user_high = $1 ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var friendships []*domain.Friendship
	for rows.Next() {
		f, err := scanFriendship(rows)
		if err != nil {
			return nil, err
		}

		friendships = append(friendships, f)
	}

	return friendships, rows.Err()
}

func scanFriendship(row pgx.Row) (*domain.Friendship, error) {
	var (
		f            domain.Friendship
		pairKey      string
		status       string
		balanceCents int64
	)

	err := row.Scan(&pairKey, &f.RequestedBy, &status, &balanceCents, &f.Version, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFriendshipNotFound
		}

		return nil, err
	}

	f.PairKey = domain.PairKey(pairKey)
	f.Status = domain.FriendshipStatus(status)
	f.Balance = domain.NewMoneyFromMinorUnits(balanceCents)

	return &f, nil
}
