package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/splitledger/internal/adapter/http/dto"
	"github.com/iho/splitledger/internal/adapter/http/middleware"
	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/usecase"
)

type transactionServiceStub struct {
	createFn func(ctx context.Context, input usecase.CreateTransactionInput) (*domain.Transaction, *usecase.ApplyResult, error)
	getFn    func(ctx context.Context, id string) (*domain.Transaction, error)
	listFn   func(ctx context.Context, input usecase.ListTransactionsInput) ([]*domain.Transaction, error)
}

func (s *transactionServiceStub) CreateTransaction(ctx context.Context, input usecase.CreateTransactionInput) (*domain.Transaction, *usecase.ApplyResult, error) {
	return s.createFn(ctx, input)
}

func (s *transactionServiceStub) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	return s.getFn(ctx, id)
}

func (s *transactionServiceStub) ListTransactions(ctx context.Context, input usecase.ListTransactionsInput) ([]*domain.Transaction, error) {
	return s.listFn(ctx, input)
}

func setChiURLParam(r *http.Request, key, value string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, &chi.Context{
		URLParams: chi.RouteParams{
			Keys:   []string{key},
			Values: []string{value},
		},
	}))
}

func withIdentity(r *http.Request, userID string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.UserIDContextKey, userID))
}

func TestTransactionHandler_Create_Success(t *testing.T) {
	txn := &domain.Transaction{
		ID:        "txn-1",
		CreatedBy: "alice",
		Title:     "Dinner",
		Category:  domain.CategoryFood,
	}
	result := &usecase.ApplyResult{
		TransactionID: "txn-1",
		Applied: []usecase.PairDelta{
			{PairKey: "alice:bob", Amount: 4500, NewBalance: 4500},
		},
	}

	var captured usecase.CreateTransactionInput
	handler := NewTransactionHandler(&transactionServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateTransactionInput) (*domain.Transaction, *usecase.ApplyResult, error) {
			captured = input
			return txn, result, nil
		},
	})

	body, _ := json.Marshal(dto.CreateTransactionRequest{
		Title:       "Dinner",
		Category:    "Food",
		TotalAmount: decimal.RequireFromString("90.00"),
		Participants: []dto.ShareItem{
			{UserID: "alice", Amount: decimal.RequireFromString("45.00")},
			{UserID: "bob", Amount: decimal.RequireFromString("45.00")},
		},
	})

	req := withIdentity(httptest.NewRequest(http.MethodPost, "/transactions", bytes.NewReader(body)), "alice")
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	if captured.CreatedBy != "alice" || captured.TotalAmount != 9000 {
		t.Fatalf("expected input to carry identity and cent amount, got %+v", captured)
	}

	var resp dto.CreateTransactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Transaction.ID != "txn-1" {
		t.Fatalf("expected transaction txn-1, got %s", resp.Transaction.ID)
	}
	if len(resp.Applied) != 1 || resp.Applied[0].NewBalance != 4500 {
		t.Fatalf("expected one applied delta of 4500, got %+v", resp.Applied)
	}
}

func TestTransactionHandler_Create_MissingIdentity(t *testing.T) {
	handler := NewTransactionHandler(&transactionServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateTransactionInput) (*domain.Transaction, *usecase.ApplyResult, error) {
			t.Fatal("CreateTransaction should not be called without identity")
			return nil, nil, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/transactions", bytes.NewBufferString("{}"))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestTransactionHandler_Create_InvalidBody(t *testing.T) {
	handler := NewTransactionHandler(&transactionServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateTransactionInput) (*domain.Transaction, *usecase.ApplyResult, error) {
			t.Fatal("CreateTransaction should not be called")
			return nil, nil, nil
		},
	})

	req := withIdentity(httptest.NewRequest(http.MethodPost, "/transactions", bytes.NewBufferString("{bad json")), "alice")
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestTransactionHandler_Create_SubCentAmount(t *testing.T) {
	handler := NewTransactionHandler(&transactionServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateTransactionInput) (*domain.Transaction, *usecase.ApplyResult, error) {
			t.Fatal("CreateTransaction should not be called on sub-cent amount")
			return nil, nil, nil
		},
	})

	body, _ := json.Marshal(dto.CreateTransactionRequest{
		Title:       "Dinner",
		Category:    "Food",
		TotalAmount: decimal.RequireFromString("10.005"),
		Participants: []dto.ShareItem{
			{UserID: "alice", Amount: decimal.RequireFromString("10.005")},
		},
	})

	req := withIdentity(httptest.NewRequest(http.MethodPost, "/transactions", bytes.NewReader(body)), "alice")
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestTransactionHandler_Create_ServiceError(t *testing.T) {
	handler := NewTransactionHandler(&transactionServiceStub{
		createFn: func(ctx context.Context, input usecase.CreateTransactionInput) (*domain.Transaction, *usecase.ApplyResult, error) {
			return nil, nil, domain.ErrInvalidTransaction
		},
	})

	body, _ := json.Marshal(dto.CreateTransactionRequest{
		Title:       "Dinner",
		Category:    "Food",
		TotalAmount: decimal.RequireFromString("90.00"),
	})

	req := withIdentity(httptest.NewRequest(http.MethodPost, "/transactions", bytes.NewReader(body)), "alice")
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestTransactionHandler_Get(t *testing.T) {
	handler := NewTransactionHandler(&transactionServiceStub{
		getFn: func(ctx context.Context, id string) (*domain.Transaction, error) {
			return &domain.Transaction{ID: id}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/transactions/txn-1", nil)
	req = setChiURLParam(req, "id", "txn-1")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestTransactionHandler_Get_NotFound(t *testing.T) {
	handler := NewTransactionHandler(&transactionServiceStub{
		getFn: func(ctx context.Context, id string) (*domain.Transaction, error) {
			return nil, domain.ErrTransactionNotFound
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/transactions/missing", nil)
	req = setChiURLParam(req, "id", "missing")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestTransactionHandler_List(t *testing.T) {
	handler := NewTransactionHandler(&transactionServiceStub{
		listFn: func(ctx context.Context, input usecase.ListTransactionsInput) ([]*domain.Transaction, error) {
			if input.UserID != "alice" || input.Limit != 5 || input.Offset != 1 {
				t.Fatalf("unexpected input %+v", input)
			}
			return []*domain.Transaction{{ID: "txn-1"}}, nil
		},
	})

	req := withIdentity(httptest.NewRequest(http.MethodGet, "/transactions?limit=5&offset=1", nil), "alice")
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
