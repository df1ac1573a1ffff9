package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/usecase"
)

// MockTransactionManager serializes transactions with a single mutex,
// mimicking the row-lock serialization the Postgres adapter provides.
type MockTransactionManager struct {
	mu sync.Mutex

	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}

	m.mu.Lock()

	return &MockTx{mu: &m.mu}, nil
}

// MockTx releases the manager's lock on Commit or Rollback, whichever
// comes first.
type MockTx struct {
	mu   *sync.Mutex
	once sync.Once
}

func (t *MockTx) Commit(ctx context.Context) error {
	t.once.Do(t.mu.Unlock)
	return nil
}

func (t *MockTx) Rollback(ctx context.Context) error {
	t.once.Do(t.mu.Unlock)
	return nil
}

// MockRetrier runs the operation once with no backoff.
type MockRetrier struct {
	RetryFunc func(ctx context.Context, operation func() error) error
}

func NewMockRetrier() *MockRetrier {
	return &MockRetrier{}
}

func (m *MockRetrier) Retry(ctx context.Context, operation func() error) error {
	if m.RetryFunc != nil {
		return m.RetryFunc(ctx, operation)
	}

	return operation()
}

// MockIDGenerator generates sequential ids.
type MockIDGenerator struct {
	mu   sync.Mutex
	next int

	GenerateFunc func() string
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++

	return fmt.Sprintf("id-%04d", m.next)
}

// MockFriendshipRepository is an in-memory FriendshipRepository.
type MockFriendshipRepository struct {
	mu          sync.RWMutex
	friendships map[domain.PairKey]*domain.Friendship
	applied     map[string]bool

	CreateFunc                 func(ctx context.Context, f *domain.Friendship) error
	GetByPairKeyFunc           func(ctx context.Context, pk domain.PairKey) (*domain.Friendship, error)
	GetByPairKeysForUpdateFunc func(ctx context.Context, tx usecase.Transaction, pks []domain.PairKey) ([]*domain.Friendship, error)
	UpdateBalanceFunc          func(ctx context.Context, tx usecase.Transaction, pk domain.PairKey, balance domain.Money, version int64, updatedAt time.Time) error
	MarkAppliedFunc            func(ctx context.Context, tx usecase.Transaction, pk domain.PairKey, transactionID string) (bool, error)
	ListByUserFunc             func(ctx context.Context, userID string) ([]*domain.Friendship, error)
}

func NewMockFriendshipRepository() *MockFriendshipRepository {
	return &MockFriendshipRepository{
		friendships: make(map[domain.PairKey]*domain.Friendship),
		applied:     make(map[string]bool),
	}
}

// Seed inserts a friendship directly, bypassing Create hooks.
func (m *MockFriendshipRepository) Seed(f *domain.Friendship) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.friendships[f.PairKey] = cloneFriendship(f)
}

func (m *MockFriendshipRepository) Create(ctx context.Context, f *domain.Friendship) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, f)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.friendships[f.PairKey]; ok {
		return domain.ErrFriendshipAlreadyExists
	}

	m.friendships[f.PairKey] = cloneFriendship(f)

	return nil
}

func (m *MockFriendshipRepository) GetByPairKey(ctx context.Context, pk domain.PairKey) (*domain.Friendship, error) {
	if m.GetByPairKeyFunc != nil {
		return m.GetByPairKeyFunc(ctx, pk)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.friendships[pk]
	if !ok {
		return nil, domain.ErrFriendshipNotFound
	}

	return cloneFriendship(f), nil
}

func (m *MockFriendshipRepository) GetByPairKeyForUpdate(ctx context.Context, tx usecase.Transaction, pk domain.PairKey) (*domain.Friendship, error) {
	return m.GetByPairKey(ctx, pk)
}

func (m *MockFriendshipRepository) GetByPairKeysForUpdate(ctx context.Context, tx usecase.Transaction, pks []domain.PairKey) ([]*domain.Friendship, error) {
	if m.GetByPairKeysForUpdateFunc != nil {
		return m.GetByPairKeysForUpdateFunc(ctx, tx, pks)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.Friendship, 0, len(pks))
	for _, pk := range pks {
		if f, ok := m.friendships[pk]; ok {
			out = append(out, cloneFriendship(f))
		}
	}

	return out, nil
}

func (m *MockFriendshipRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, pk domain.PairKey, balance domain.Money, version int64, updatedAt time.Time) error {
	if m.UpdateBalanceFunc != nil {
		return m.UpdateBalanceFunc(ctx, tx, pk, balance, version, updatedAt)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.friendships[pk]
	if !ok {
		return domain.ErrFriendshipNotFound
	}

	f.Balance = balance
	f.Version = version
	f.UpdatedAt = updatedAt

	return nil
}

func (m *MockFriendshipRepository) UpdateStatus(ctx context.Context, tx usecase.Transaction, pk domain.PairKey, status domain.FriendshipStatus, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.friendships[pk]
	if !ok {
		return domain.ErrFriendshipNotFound
	}

	f.Status = status
	f.UpdatedAt = updatedAt

	return nil
}

func (m *MockFriendshipRepository) MarkApplied(ctx context.Context, tx usecase.Transaction, pk domain.PairKey, transactionID string) (bool, error) {
	if m.MarkAppliedFunc != nil {
		return m.MarkAppliedFunc(ctx, tx, pk, transactionID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := string(pk) + "|" + transactionID
	if m.applied[key] {
		return false, nil
	}

	m.applied[key] = true

	return true, nil
}

func (m *MockFriendshipRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Friendship, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*domain.Friendship
	for _, f := range m.friendships {
		if f.PairKey.Contains(userID) {
			out = append(out, cloneFriendship(f))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].PairKey < out[j].PairKey })

	return out, nil
}

// MockTransactionRepository is an in-memory TransactionRepository.
type MockTransactionRepository struct {
	mu           sync.RWMutex
	transactions map[string]*domain.Transaction

	CreateFunc           func(ctx context.Context, t *domain.Transaction) error
	ListUnpaidByPairFunc func(ctx context.Context, tx usecase.Transaction, creditorID, debtorID string) ([]*domain.Transaction, error)
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{
		transactions: make(map[string]*domain.Transaction),
	}
}

// Seed inserts a transaction directly, bypassing Create hooks.
func (m *MockTransactionRepository) Seed(t *domain.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[t.ID] = cloneTransaction(t)
}

func (m *MockTransactionRepository) Create(ctx context.Context, t *domain.Transaction) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, t)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[t.ID] = cloneTransaction(t)

	return nil
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.transactions[id]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}

	return cloneTransaction(t), nil
}

func (m *MockTransactionRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*domain.Transaction
	for _, t := range m.transactions {
		if t.CreatedBy == userID {
			out = append(out, cloneTransaction(t))
			continue
		}

		if _, ok := t.ShareOf(userID); ok {
			out = append(out, cloneTransaction(t))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })

	return paginate(out, limit, offset), nil
}

func (m *MockTransactionRepository) ListUnapplied(ctx context.Context, limit int) ([]*domain.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*domain.Transaction
	for _, t := range m.transactions {
		if !t.DeltasApplied {
			out = append(out, cloneTransaction(t))
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	return paginate(out, limit, 0), nil
}

func (m *MockTransactionRepository) MarkDeltasApplied(ctx context.Context, tx usecase.Transaction, id string, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.transactions[id]
	if !ok {
		return domain.ErrTransactionNotFound
	}

	t.DeltasApplied = true
	t.UpdatedAt = updatedAt

	return nil
}

func (m *MockTransactionRepository) ListUnpaidByPair(ctx context.Context, tx usecase.Transaction, creditorID, debtorID string) ([]*domain.Transaction, error) {
	if m.ListUnpaidByPairFunc != nil {
		return m.ListUnpaidByPairFunc(ctx, tx, creditorID, debtorID)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*domain.Transaction
	for _, t := range m.transactions {
		if t.CreatedBy != creditorID || !t.DeltasApplied {
			continue
		}

		share, ok := t.ShareOf(debtorID)
		if !ok || share.IsPaid {
			continue
		}

		out = append(out, cloneTransaction(t))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })

	return out, nil
}

func (m *MockTransactionRepository) UpdateShares(ctx context.Context, tx usecase.Transaction, t *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.transactions[t.ID]
	if !ok {
		return domain.ErrTransactionNotFound
	}

	stored.Participants = append([]domain.ParticipantShare(nil), t.Participants...)
	stored.IsSettled = t.IsSettled
	stored.UpdatedAt = t.UpdatedAt

	return nil
}

// MockCache is an in-memory Cache.
type MockCache struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{values: make(map[string][]byte)}
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return nil, fmt.Errorf("cache miss: %s", key)
	}

	return v, nil
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value

	return nil
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)

	return nil
}

func cloneFriendship(f *domain.Friendship) *domain.Friendship {
	clone := *f
	return &clone
}

func cloneTransaction(t *domain.Transaction) *domain.Transaction {
	clone := *t
	clone.Participants = append([]domain.ParticipantShare(nil), t.Participants...)

	return &clone
}

func paginate(ts []*domain.Transaction, limit, offset int) []*domain.Transaction {
	if offset >= len(ts) {
		return nil
	}

	ts = ts[offset:]
	if limit > 0 && limit < len(ts) {
		ts = ts[:limit]
	}

	return ts
}
