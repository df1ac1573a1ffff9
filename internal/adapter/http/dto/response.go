package dto

import (
	"time"

	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/usecase"
)

// ShareResponse represents a participant share in API responses.
type ShareResponse struct {
	UserID string       `json:"user_id"`
	Amount domain.Money `json:"amount"`
	IsPaid bool         `json:"is_paid"`
}

// TransactionResponse represents a transaction in API responses.
type TransactionResponse struct {
	ID            string          `json:"id"`
	CreatedBy     string          `json:"created_by"`
	Title         string          `json:"title"`
	Description   string          `json:"description,omitempty"`
	Category      domain.Category `json:"category"`
	TotalAmount   domain.Money    `json:"total_amount"`
	Date          time.Time       `json:"date"`
	Participants  []ShareResponse `json:"participants"`
	IsSettled     bool            `json:"is_settled"`
	DeltasApplied bool            `json:"deltas_applied"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TransactionFromDomain converts a domain transaction to a response.
func TransactionFromDomain(t *domain.Transaction) *TransactionResponse {
	shares := make([]ShareResponse, len(t.Participants))
	for i, p := range t.Participants {
		shares[i] = ShareResponse{
			UserID: p.UserID,
			Amount: p.Amount,
			IsPaid: p.IsPaid,
		}
	}

	return &TransactionResponse{
		ID:            t.ID,
		CreatedBy:     t.CreatedBy,
		Title:         t.Title,
		Description:   t.Description,
		Category:      t.Category,
		TotalAmount:   t.TotalAmount,
		Date:          t.Date,
		Participants:  shares,
		IsSettled:     t.IsSettled,
		DeltasApplied: t.DeltasApplied,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

// TransactionsFromDomain converts domain transactions to responses.
func TransactionsFromDomain(txns []*domain.Transaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(txns))
	for i, t := range txns {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// CreateTransactionResponse bundles the persisted transaction with the
// outcome of the balance apply.
type CreateTransactionResponse struct {
	Transaction *TransactionResponse `json:"transaction"`
	Applied     []AppliedDelta       `json:"applied"`
	Skipped     []SkippedPair        `json:"skipped,omitempty"`
}

// AppliedDelta is one pairwise balance adjustment in the response.
type AppliedDelta struct {
	PairKey    string       `json:"pair_key"`
	Amount     domain.Money `json:"amount"`
	NewBalance domain.Money `json:"new_balance"`
}

// SkippedPair reports a participant whose delta was not applied.
type SkippedPair struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

// CreateTransactionFromResult converts a create outcome to a response.
func CreateTransactionFromResult(t *domain.Transaction, result *usecase.ApplyResult) *CreateTransactionResponse {
	resp := &CreateTransactionResponse{
		Transaction: TransactionFromDomain(t),
		Applied:     []AppliedDelta{},
	}

	if result == nil {
		return resp
	}

	for _, d := range result.Applied {
		resp.Applied = append(resp.Applied, AppliedDelta{
			PairKey:    string(d.PairKey),
			Amount:     d.Amount,
			NewBalance: d.NewBalance,
		})
	}

	for _, s := range result.Skipped {
		resp.Skipped = append(resp.Skipped, SkippedPair{
			UserID: s.UserID,
			Reason: string(s.Reason),
		})
	}

	return resp
}

// FriendshipResponse represents a friendship ledger entry in API responses.
type FriendshipResponse struct {
	PairKey     string                  `json:"pair_key"`
	RequestedBy string                  `json:"requested_by"`
	Status      domain.FriendshipStatus `json:"status"`
	Balance     domain.Money            `json:"balance"`
	Version     int64                   `json:"version"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// FriendshipFromDomain converts a domain friendship to a response.
func FriendshipFromDomain(f *domain.Friendship) *FriendshipResponse {
	return &FriendshipResponse{
		PairKey:     string(f.PairKey),
		RequestedBy: f.RequestedBy,
		Status:      f.Status,
		Balance:     f.Balance,
		Version:     f.Version,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
