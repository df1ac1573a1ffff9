package domain

import (
	"fmt"
	"time"
)

// Category is the closed set of expense categories.
type Category string

const (
	CategoryRent           Category = "Rent"
	CategoryFood           Category = "Food"
	CategoryTransportation Category = "Transportation"
	CategoryUtilities      Category = "Utilities"
	CategoryEntertainment  Category = "Entertainment"
	CategoryShopping       Category = "Shopping"
	CategoryOther          Category = "Other"
)

var validCategories = map[Category]bool{
	CategoryRent:           true,
	CategoryFood:           true,
	CategoryTransportation: true,
	CategoryUtilities:      true,
	CategoryEntertainment:  true,
	CategoryShopping:       true,
	CategoryOther:          true,
}

// ValidCategory reports whether c belongs to the closed category set.
func ValidCategory(c Category) bool {
	return validCategories[c]
}

// ParticipantShare is one participant's portion of a transaction.
type ParticipantShare struct {
	UserID string
	Amount Money
	IsPaid bool
}

// Transaction is the persisted record of a shared expense.
//
// DeltasApplied tracks whether the transaction's balance deltas have been
// applied to the ledger; a transaction persisted with DeltasApplied false
// is recoverable by the reconciliation pass.
type Transaction struct {
	ID            string
	CreatedBy     string
	Title         string
	Description   string
	Category      Category
	TotalAmount   Money
	Date          time.Time
	Participants  []ParticipantShare
	IsSettled     bool
	DeltasApplied bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Validate checks the transaction invariants. Every violation wraps
// ErrInvalidTransaction with the specific rule that failed.
func (t *Transaction) Validate() error {
	if t.CreatedBy == "" {
		return fmt.Errorf("%w: missing creator", ErrInvalidTransaction)
	}

	if t.Title == "" {
		return fmt.Errorf("%w: missing title", ErrInvalidTransaction)
	}

	if !ValidCategory(t.Category) {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidTransaction, t.Category)
	}

	if !t.TotalAmount.IsPositive() {
		return fmt.Errorf("%w: total amount %s must be positive", ErrInvalidTransaction, t.TotalAmount)
	}

	if len(t.Participants) == 0 {
		return fmt.Errorf("%w: at least one participant is required", ErrInvalidTransaction)
	}

	seen := make(map[string]bool, len(t.Participants))
	sum := Zero
	creatorShares := 0

	for _, p := range t.Participants {
		if p.UserID == "" {
			return fmt.Errorf("%w: participant with empty user id", ErrInvalidTransaction)
		}

		if seen[p.UserID] {
			return fmt.Errorf("%w: duplicate participant %s", ErrInvalidTransaction, p.UserID)
		}
		seen[p.UserID] = true

		if p.Amount.IsNegative() {
			return fmt.Errorf("%w: negative share %s for %s", ErrInvalidTransaction, p.Amount, p.UserID)
		}

		sum = sum.Add(p.Amount)

		if p.UserID == t.CreatedBy {
			creatorShares++
			if !p.IsPaid {
				return fmt.Errorf("%w: creator share must be marked paid", ErrInvalidTransaction)
			}
		}
	}

	if creatorShares != 1 {
		return fmt.Errorf("%w: creator must appear exactly once in participants", ErrInvalidTransaction)
	}

	// Exact integer equality: no epsilon tolerance with fixed-point money.
	if sum != t.TotalAmount {
		return fmt.Errorf("%w: participant shares %s do not sum to total %s",
			ErrInvalidTransaction, sum, t.TotalAmount)
	}

	return nil
}

// ShareOf returns a pointer to userID's share, if present.
func (t *Transaction) ShareOf(userID string) (*ParticipantShare, bool) {
	for i := range t.Participants {
		if t.Participants[i].UserID == userID {
			return &t.Participants[i], true
		}
	}

	return nil, false
}

// RecomputeSettled refreshes IsSettled: true iff every share is paid.
func (t *Transaction) RecomputeSettled() {
	for _, p := range t.Participants {
		if !p.IsPaid {
			t.IsSettled = false
			return
		}
	}

	t.IsSettled = true
}
