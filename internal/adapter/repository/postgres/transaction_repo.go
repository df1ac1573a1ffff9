package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/usecase"
)

// TransactionRepository implements usecase.TransactionRepository.
// Participant shares are stored as a jsonb document on the transaction
// row; the per-pair row lock in the ledger serializes share updates.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

type shareRecord struct {
	UserID      string `json:"user_id"`
	AmountCents int64  `json:"amount_cents"`
	IsPaid      bool   `json:"is_paid"`
}

const transactionColumns = `id, created_by, title, description, category, total_cents, date, participants, is_settled, deltas_applied, created_at, updated_at`

// Create persists a transaction record (append-only).
func (r *TransactionRepository) Create(ctx context.Context, t *domain.Transaction) error {
	participants, err := marshalShares(t.Participants)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO transactions (id, created_by, title, description, category, total_cents, date, participants, is_settled, deltas_applied, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		t.ID, t.CreatedBy, t.Title, t.Description, string(t.Category),
		t.TotalAmount.MinorUnits(), t.Date, participants, t.IsSettled, t.DeltasApplied,
		t.CreatedAt, t.UpdatedAt,
	)

	return err
}

// GetByID retrieves a transaction by ID.
func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`,
		id,
	)

	return scanTransaction(row)
}

// ListByUser lists transactions the user created or participates in,
// newest first.
func (r *TransactionRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Transaction, error) {
	member, err := json.Marshal([]map[string]string{{"user_id": userID}})
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE created_by = $1 OR participants @> $2
		ORDER BY date DESC, created_at DESC
		LIMIT $3 OFFSET $4`,
		userID, member, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// ListUnapplied returns transactions whose balance deltas have not been
// applied yet, oldest first.
func (r *TransactionRepository) ListUnapplied(ctx context.Context, limit int) ([]*domain.Transaction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE NOT deltas_applied
		ORDER BY created_at
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// MarkDeltasApplied flags a transaction as fully reflected in the ledger.
func (r *TransactionRepository) MarkDeltasApplied(ctx context.Context, tx usecase.Transaction, id string, updatedAt time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	tag, err := pgxTx.Exec(ctx,
		`UPDATE transactions SET deltas_applied = TRUE, updated_at = $2 WHERE id = $1`,
		id, updatedAt,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}

	return nil
}

// ListUnpaidByPair returns applied transactions created by creditorID in
// which debtorID still has an unpaid share, oldest first. Used by the
// FIFO settlement allocation.
func (r *TransactionRepository) ListUnpaidByPair(ctx context.Context, tx usecase.Transaction, creditorID, debtorID string) ([]*domain.Transaction, error) {
	pgxTx := tx.(*Tx).PgxTx()

	unpaid, err := json.Marshal([]map[string]any{{"user_id": debtorID, "is_paid": false}})
	if err != nil {
		return nil, err
	}

	rows, err := pgxTx.Query(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE created_by = $1 AND deltas_applied AND participants @> $2
		ORDER BY date, created_at`,
		creditorID, unpaid,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// UpdateShares rewrites a transaction's participant shares and settled flag.
func (r *TransactionRepository) UpdateShares(ctx context.Context, tx usecase.Transaction, t *domain.Transaction) error {
	pgxTx := tx.(*Tx).PgxTx()

	participants, err := marshalShares(t.Participants)
	if err != nil {
		return err
	}

	tag, err := pgxTx.Exec(ctx,
		`UPDATE transactions SET participants = $2, is_settled = $3, updated_at = $4 WHERE id = $1`,
		t.ID, participants, t.IsSettled, t.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}

	return nil
}

func marshalShares(shares []domain.ParticipantShare) ([]byte, error) {
	records := make([]shareRecord, len(shares))
	for i, s := range shares {
		records[i] = shareRecord{
			UserID:      s.UserID,
			AmountCents: s.Amount.MinorUnits(),
			IsPaid:      s.IsPaid,
		}
	}

	return json.Marshal(records)
}

func collectTransactions(rows pgx.Rows) ([]*domain.Transaction, error) {
	var transactions []*domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}

		transactions = append(transactions, t)
	}

	return transactions, rows.Err()
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var (
		t            domain.Transaction
		category     string
		totalCents   int64
		participants []byte
	)

	err := row.Scan(&t.ID, &t.CreatedBy, &t.Title, &t.Description, &category,
		&totalCents, &t.Date, &participants, &t.IsSettled, &t.DeltasApplied,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}

		return nil, err
	}

	t.Category = domain.Category(category)
	t.TotalAmount = domain.NewMoneyFromMinorUnits(totalCents)

	var records []shareRecord
	if err := json.Unmarshal(participants, &records); err != nil {
		return nil, err
	}

	t.Participants = make([]domain.ParticipantShare, len(records))
	for i, rec := range records {
		t.Participants[i] = domain.ParticipantShare{
			UserID: rec.UserID,
			Amount: domain.NewMoneyFromMinorUnits(rec.AmountCents),
			IsPaid: rec.IsPaid,
		}
	}

	return &t, nil
}
