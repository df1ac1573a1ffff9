package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/usecase"
	"github.com/iho/splitledger/internal/usecase/mocks"
)

func newTransactionUseCase(frepo *mocks.MockFriendshipRepository, trepo *mocks.MockTransactionRepository) *usecase.TransactionUseCase {
	ledger := newLedgerUseCase(frepo, trepo)

	return usecase.NewTransactionUseCase(trepo, ledger, mocks.NewMockIDGenerator(), nil, zerolog.Nop())
}

func TestTransactionUseCase_CreateTransaction(t *testing.T) {
	frepo := mocks.NewMockFriendshipRepository()
	trepo := mocks.NewMockTransactionRepository()
	uc := newTransactionUseCase(frepo, trepo)

	seedAccepted(frepo, "alice", "bob", 0)

	txn, result, err := uc.CreateTransaction(context.Background(), usecase.CreateTransactionInput{
		CreatedBy:   "alice",
		Title:       "Dinner",
		Category:    domain.CategoryFood,
		TotalAmount: domain.NewMoneyFromMinorUnits(9000),
		Participants: []usecase.ShareInput{
			{UserID: "alice", Amount: domain.NewMoneyFromMinorUnits(4500)},
			{UserID: "bob", Amount: domain.NewMoneyFromMinorUnits(4500)},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if txn.ID == "" {
		t.Error("expected generated id")
	}

	creatorShare, _ := txn.ShareOf("alice")
	if !creatorShare.IsPaid {
		t.Error("creator share should be marked paid")
	}

	bobShare, _ := txn.ShareOf("bob")
	if bobShare.IsPaid {
		t.Error("bob's share should be unpaid")
	}

	if len(result.Applied) != 1 {
		t.Fatalf("expected 1 applied delta, got %d", len(result.Applied))
	}
	if result.Applied[0].NewBalance.MinorUnits() != 4500 {
		t.Errorf("expected new balance 4500, got %d", result.Applied[0].NewBalance.MinorUnits())
	}

	if _, err := trepo.GetByID(context.Background(), txn.ID); err != nil {
		t.Errorf("transaction should be persisted: %v", err)
	}
}

func TestTransactionUseCase_CreateTransaction_ValidationPersistsNothing(t *testing.T) {
	frepo := mocks.NewMockFriendshipRepository()
	trepo := mocks.NewMockTransactionRepository()
	uc := newTransactionUseCase(frepo, trepo)

	seedAccepted(frepo, "alice", "bob", 0)

	created := false
	trepo.CreateFunc = func(ctx context.Context, txn *domain.Transaction) error {
		created = true
		return nil
	}

	// Shares sum to 134.99, total is 135.00.
	_, _, err := uc.CreateTransaction(context.Background(), usecase.CreateTransactionInput{
		CreatedBy:   "alice",
		Title:       "Dinner",
		Category:    domain.CategoryFood,
		TotalAmount: domain.NewMoneyFromMinorUnits(13500),
		Participants: []usecase.ShareInput{
			{UserID: "alice", Amount: domain.NewMoneyFromMinorUnits(4500)},
			{UserID: "bob", Amount: domain.NewMoneyFromMinorUnits(8999)},
		},
	})
	if !errors.Is(err, domain.ErrInvalidTransaction) {
		t.Fatalf("expected ErrInvalidTransaction, got %v", err)
	}

	if created {
		t.Error("nothing should be persisted when validation fails")
	}
}

func TestTransactionUseCase_CreateTransaction_RecoverableOnApplyFailure(t *testing.T) {
	frepo := mocks.NewMockFriendshipRepository()
	trepo := mocks.NewMockTransactionRepository()
	uc := newTransactionUseCase(frepo, trepo)

	seedAccepted(frepo, "alice", "bob", 0)

	applyErr := errors.New("connection reset")
	frepo.GetByPairKeysForUpdateFunc = func(ctx context.Context, tx usecase.Transaction, pks []domain.PairKey) ([]*domain.Friendship, error) {
		return nil, applyErr
	}

	txn, _, err := uc.CreateTransaction(context.Background(), usecase.CreateTransactionInput{
		CreatedBy:   "alice",
		Title:       "Dinner",
		Category:    domain.CategoryFood,
		TotalAmount: domain.NewMoneyFromMinorUnits(9000),
		Participants: []usecase.ShareInput{
			{UserID: "alice", Amount: domain.NewMoneyFromMinorUnits(4500)},
			{UserID: "bob", Amount: domain.NewMoneyFromMinorUnits(4500)},
		},
	})
	if !errors.Is(err, applyErr) {
		t.Fatalf("expected apply failure to surface, got %v", err)
	}

	// The record survives for the reconciliation pass.
	stored, getErr := trepo.GetByID(context.Background(), txn.ID)
	if getErr != nil {
		t.Fatalf("transaction should be persisted: %v", getErr)
	}
	if stored.DeltasApplied {
		t.Error("deltas_applied must remain false after a failed apply")
	}
}

func TestTransactionUseCase_ListTransactions(t *testing.T) {
	frepo := mocks.NewMockFriendshipRepository()
	trepo := mocks.NewMockTransactionRepository()
	uc := newTransactionUseCase(frepo, trepo)

	trepo.Seed(splitTransaction("txn-1", "alice", 9000, map[string]int64{"alice": 4500, "bob": 4500}))
	trepo.Seed(splitTransaction("txn-2", "bob", 2000, map[string]int64{"bob": 1000, "alice": 1000}))
	trepo.Seed(splitTransaction("txn-3", "carol", 1000, map[string]int64{"carol": 1000}))

	txns, err := uc.ListTransactions(context.Background(), usecase.ListTransactionsInput{UserID: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// alice created txn-1 and participates in txn-2; txn-3 is not hers.
	if len(txns) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txns))
	}

	// Limit is clamped to a sane maximum.
	txns, err = uc.ListTransactions(context.Background(), usecase.ListTransactionsInput{UserID: "alice", Limit: 100000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txns) != 2 {
		t.Errorf("expected 2 transactions, got %d", len(txns))
	}
}

func TestTransactionUseCase_GetTransaction_NotFound(t *testing.T) {
	frepo := mocks.NewMockFriendshipRepository()
	trepo := mocks.NewMockTransactionRepository()
	uc := newTransactionUseCase(frepo, trepo)

	if _, err := uc.GetTransaction(context.Background(), "missing"); !errors.Is(err, domain.ErrTransactionNotFound) {
		t.Fatalf("expected ErrTransactionNotFound, got %v", err)
	}
}
