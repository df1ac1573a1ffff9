package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/infrastructure/metrics"
)

// TransactionUseCase handles expense transaction business logic.
type TransactionUseCase struct {
	transactionRepo TransactionRepository
	ledger          *LedgerUseCase
	idGen           IDGenerator
	metrics         *metrics.Metrics
	logger          zerolog.Logger
}

// NewTransactionUseCase creates a new TransactionUseCase. metrics may
// be nil.
func NewTransactionUseCase(
	transactionRepo TransactionRepository,
	ledger *LedgerUseCase,
	idGen IDGenerator,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *TransactionUseCase {
	return &TransactionUseCase{
		transactionRepo: transactionRepo,
		ledger:          ledger,
		idGen:           idGen,
		metrics:         m,
		logger:          logger,
	}
}

// ShareInput is one participant's portion in a create request.
type ShareInput struct {
	UserID string
	Amount domain.Money
}

// CreateTransactionInput represents input for creating a transaction.
type CreateTransactionInput struct {
	CreatedBy    string
	Title        string
	Description  string
	Category     domain.Category
	TotalAmount  domain.Money
	Date         *time.Time
	Participants []ShareInput
}

// CreateTransaction validates and persists a transaction, then applies
// its balance deltas. On a validation failure nothing is persisted. If
// the delta application fails after the record is persisted, the
// transaction remains recoverable (deltas_applied=false) and the
// reconciliation pass completes it.
func (uc *TransactionUseCase) CreateTransaction(ctx context.Context, input CreateTransactionInput) (*domain.Transaction, *ApplyResult, error) {
	now := time.Now().UTC()

	date := now
	if input.Date != nil {
		date = input.Date.UTC()
	}

	participants := make([]domain.ParticipantShare, len(input.Participants))
	for i, p := range input.Participants {
		participants[i] = domain.ParticipantShare{
			UserID: p.UserID,
			Amount: p.Amount,
			// The creator's own portion is considered paid at creation.
			IsPaid: p.UserID == input.CreatedBy,
		}
	}

	txn := &domain.Transaction{
		ID:           uc.idGen.Generate(),
		CreatedBy:    input.CreatedBy,
		Title:        input.Title,
		Description:  input.Description,
		Category:     input.Category,
		TotalAmount:  input.TotalAmount,
		Date:         date,
		Participants: participants,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	txn.RecomputeSettled()

	if err := txn.Validate(); err != nil {
		uc.countError("validation")
		return nil, nil, err
	}

	if err := uc.transactionRepo.Create(ctx, txn); err != nil {
		uc.countError("persist")
		return nil, nil, err
	}

	result, err := uc.ledger.ApplyTransaction(ctx, txn)
	if err != nil {
		// The record is durable; deltas will be re-applied by reconciliation.
		uc.countError("apply")
		uc.logger.Warn().
			Err(err).
			Str("transaction_id", txn.ID).
			Msg("transaction persisted but deltas not applied")

		return txn, nil, err
	}

	if uc.metrics != nil {
		uc.metrics.TransactionsCreated.Inc()
	}

	return txn, result, nil
}

func (uc *TransactionUseCase) countError(errorType string) {
	if uc.metrics != nil {
		uc.metrics.TransactionErrors.WithLabelValues(errorType).Inc()
	}
}

// GetTransaction retrieves a transaction by ID.
func (uc *TransactionUseCase) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	return uc.transactionRepo.GetByID(ctx, id)
}

// ListTransactionsInput represents input for listing a user's transactions.
type ListTransactionsInput struct {
	UserID string
	Limit  int
	Offset int
}

// ListTransactions lists transactions the user created or participates
// in, newest first.
func (uc *TransactionUseCase) ListTransactions(ctx context.Context, input ListTransactionsInput) ([]*domain.Transaction, error) {
	limit := clampLimit(input.Limit)

	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	return uc.transactionRepo.ListByUser(ctx, input.UserID, limit, offset)
}
