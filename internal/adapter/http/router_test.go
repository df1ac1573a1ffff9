package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/iho/splitledger/internal/adapter/http/handler"
	apimiddleware "github.com/iho/splitledger/internal/adapter/http/middleware"
	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/usecase"
)

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health to return 200, got %d", rec.Code)
	}
}

func TestNewRouter_IdentityRequired(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/friends/", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected anonymous request to be rejected, got %d", rec.Code)
	}
}

func TestNewRouter_RateLimiterBlocksExcessRequests(t *testing.T) {
	rl := apimiddleware.NewRateLimiter(1, 1, nil)
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.RateLimiter = rl
	}))

	req1 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req1.RemoteAddr = "1.2.3.4:1234"
	rec1 := httptest.NewRecorder()
	router.ServeHTTP(rec1, req1)
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", rec1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req2.RemoteAddr = "1.2.3.4:1234"
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled, got %d", rec2.Code)
	}
}

func TestNewRouter_IdempotencyMiddlewareInvokesStore(t *testing.T) {
	store := &stubIdempotencyStore{}
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.IdempotencyStore = store
	}))

	body := `{"email":"bob@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/friends/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apimiddleware.UserIDHeader, "alice")
	req.Header.Set(apimiddleware.IdempotencyKeyHeader, "key-123")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if !store.checkCalled {
		t.Fatalf("expected idempotency store to be used")
	}
}

func TestNewRouter_RegistersKeyRoutes(t *testing.T) {
	router := NewRouter(newRouterConfig())

	chiRoutes, ok := router.(chi.Router)
	if !ok {
		t.Fatal("router does not implement chi.Routes")
	}

	seen := map[string]bool{}
	if err := chi.Walk(chiRoutes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	expected := []string{
		"GET /health",
		"GET /ready",
		"POST /api/v1/transactions/",
		"GET /api/v1/transactions/",
		"GET /api/v1/transactions/{id}",
		"POST /api/v1/friends/",
		"GET /api/v1/friends/",
		"GET /api/v1/friends/{pairKey}",
		"POST /api/v1/friends/{pairKey}/accept",
		"POST /api/v1/friends/{pairKey}/reject",
		"POST /api/v1/friends/{pairKey}/settle",
		"POST /api/v1/ledger/reconcile",
	}

	for _, route := range expected {
		if !seen[route] {
			t.Fatalf("expected route %s to be registered", route)
		}
	}
}

func newRouterConfig(opts ...func(*RouterConfig)) RouterConfig {
	cfg := RouterConfig{
		TransactionHandler: handler.NewTransactionHandler(&stubTransactionService{}),
		FriendshipHandler:  handler.NewFriendshipHandler(&stubFriendshipService{}, &stubLedgerService{}),
		LedgerHandler:      handler.NewLedgerHandler(&stubReconciliationService{}),
		HealthHandler:      &handler.HealthHandler{},
		Logger:             zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

type stubTransactionService struct{}

func (stubTransactionService) CreateTransaction(ctx context.Context, input usecase.CreateTransactionInput) (*domain.Transaction, *usecase.ApplyResult, error) {
	return &domain.Transaction{ID: "txn"}, &usecase.ApplyResult{}, nil
}

func (stubTransactionService) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	return &domain.Transaction{ID: id}, nil
}

func (stubTransactionService) ListTransactions(ctx context.Context, input usecase.ListTransactionsInput) ([]*domain.Transaction, error) {
	return []*domain.Transaction{}, nil
}

type stubFriendshipService struct{}

func (stubFriendshipService) Request(ctx context.Context, userID, targetEmail string) (*domain.Friendship, error) {
	return &domain.Friendship{PairKey: "alice:bob"}, nil
}

func (stubFriendshipService) Accept(ctx context.Context, pk domain.PairKey, userID string) (*domain.Friendship, error) {
	return &domain.Friendship{PairKey: pk}, nil
}

func (stubFriendshipService) Reject(ctx context.Context, pk domain.PairKey, userID string) (*domain.Friendship, error) {
	return &domain.Friendship{PairKey: pk}, nil
}

type stubLedgerService struct{}

func (stubLedgerService) ListBalances(ctx context.Context, userID string) ([]usecase.BalanceRow, error) {
	return []usecase.BalanceRow{}, nil
}

func (stubLedgerService) GetFriendship(ctx context.Context, pk domain.PairKey) (*domain.Friendship, error) {
	return &domain.Friendship{PairKey: pk}, nil
}

func (stubLedgerService) Settle(ctx context.Context, pk domain.PairKey, amount domain.Money, actingUserID string) (*domain.Friendship, error) {
	return &domain.Friendship{PairKey: pk}, nil
}

type stubReconciliationService struct{}

func (stubReconciliationService) Run(ctx context.Context) (*usecase.ReconcileReport, error) {
	return &usecase.ReconcileReport{}, nil
}

type stubIdempotencyStore struct {
	checkCalled bool
}

func (s *stubIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	s.checkCalled = true
	return false, nil, nil
}

func (s *stubIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	return nil
}
