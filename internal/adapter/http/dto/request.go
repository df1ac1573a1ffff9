package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/usecase"
)

// ShareItem is one participant's portion in a create request.
type ShareItem struct {
	UserID string          `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
}

// CreateTransactionRequest represents a request to record a shared expense.
type CreateTransactionRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Date        *time.Time      `json:"date,omitempty"`
	// SplitEqually derives the shares from the total instead of the
	// per-participant amounts, which may then be omitted.
	SplitEqually bool        `json:"split_equally,omitempty"`
	Participants []ShareItem `json:"participants"`
}

// ToUseCaseInput converts to use case input. Amounts are validated to be
// exact cent values here; everything else is validated by the domain.
func (r *CreateTransactionRequest) ToUseCaseInput(createdBy string) (usecase.CreateTransactionInput, error) {
	total, err := domain.MoneyFromDecimal(r.TotalAmount)
	if err != nil {
		return usecase.CreateTransactionInput{}, err
	}

	participants := make([]usecase.ShareInput, len(r.Participants))

	if r.SplitEqually {
		shares := total.Split(len(r.Participants))
		for i, p := range r.Participants {
			participants[i] = usecase.ShareInput{
				UserID: p.UserID,
				Amount: shares[i],
			}
		}
	} else {
		for i, p := range r.Participants {
			amount, err := domain.MoneyFromDecimal(p.Amount)
			if err != nil {
				return usecase.CreateTransactionInput{}, err
			}

			participants[i] = usecase.ShareInput{
				UserID: p.UserID,
				Amount: amount,
			}
		}
	}

	return usecase.CreateTransactionInput{
		CreatedBy:    createdBy,
		Title:        r.Title,
		Description:  r.Description,
		Category:     domain.Category(r.Category),
		TotalAmount:  total,
		Date:         r.Date,
		Participants: participants,
	}, nil
}

// FriendRequestRequest represents a request to befriend a registered user.
type FriendRequestRequest struct {
	Email string `json:"email"`
}

// SettleRequest represents a request to record a settlement against a
// friendship balance.
type SettleRequest struct {
	Amount decimal.Decimal `json:"amount"`
}
