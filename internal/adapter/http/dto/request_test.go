package dto

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/splitledger/internal/domain"
)

func TestCreateTransactionRequest_ToUseCaseInput(t *testing.T) {
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	req := CreateTransactionRequest{
		Title:       "Groceries",
		Description: "weekly run",
		Category:    "Food",
		TotalAmount: decimal.RequireFromString("135.50"),
		Date:        &date,
		Participants: []ShareItem{
			{UserID: "alice", Amount: decimal.RequireFromString("67.75")},
			{UserID: "bob", Amount: decimal.RequireFromString("67.75")},
		},
	}

	input, err := req.ToUseCaseInput("alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if input.CreatedBy != "alice" {
		t.Fatalf("expected creator alice, got %s", input.CreatedBy)
	}
	if input.TotalAmount != 13550 {
		t.Fatalf("expected 13550 cents, got %d", input.TotalAmount)
	}
	if input.Category != domain.CategoryFood {
		t.Fatalf("expected Food category, got %s", input.Category)
	}
	if len(input.Participants) != 2 || input.Participants[1].Amount != 6775 {
		t.Fatalf("expected participant cents to convert, got %+v", input.Participants)
	}
}

func TestCreateTransactionRequest_SplitEqually(t *testing.T) {
	req := CreateTransactionRequest{
		Title:        "Road trip fuel",
		Category:     "Transportation",
		TotalAmount:  decimal.RequireFromString("100.01"),
		SplitEqually: true,
		Participants: []ShareItem{
			{UserID: "alice"},
			{UserID: "bob"},
			{UserID: "carol"},
		},
	}

	input, err := req.ToUseCaseInput("alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sum := domain.Zero
	for _, p := range input.Participants {
		sum = sum.Add(p.Amount)
	}
	if sum != input.TotalAmount {
		t.Fatalf("shares sum to %d, total is %d", sum.MinorUnits(), input.TotalAmount.MinorUnits())
	}

	// 100.01 over three people: the even 33.34 share, with the extra
	// cent taken back from the first participant.
	want := []int64{3333, 3334, 3334}
	for i, p := range input.Participants {
		if p.Amount.MinorUnits() != want[i] {
			t.Errorf("participant %d: expected %d cents, got %d", i, want[i], p.Amount.MinorUnits())
		}
	}
}

func TestCreateTransactionRequest_RejectsSubCentTotal(t *testing.T) {
	req := CreateTransactionRequest{
		Title:       "Groceries",
		Category:    "Food",
		TotalAmount: decimal.RequireFromString("10.005"),
	}

	if _, err := req.ToUseCaseInput("alice"); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestCreateTransactionRequest_RejectsSubCentShare(t *testing.T) {
	req := CreateTransactionRequest{
		Title:       "Groceries",
		Category:    "Food",
		TotalAmount: decimal.RequireFromString("10.00"),
		Participants: []ShareItem{
			{UserID: "alice", Amount: decimal.RequireFromString("3.333")},
		},
	}

	if _, err := req.ToUseCaseInput("alice"); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}
