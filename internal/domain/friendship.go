package domain

import (
	"fmt"
	"strings"
	"time"
)

// FriendshipStatus is the lifecycle state of a friendship.
type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
	FriendshipRejected FriendshipStatus = "rejected"
)

// PairKey is the normalized, order-independent identifier for two users'
// friendship: "low:high" with the user ids sorted lexicographically.
// Exactly one ledger entry exists per unordered pair.
type PairKey string

// NewPairKey builds the normalized key for two user ids.
func NewPairKey(a, b string) (PairKey, error) {
	if a == "" || b == "" {
		return "", fmt.Errorf("%w: empty user id", ErrInvalidPairKey)
	}

	if a == b {
		return "", ErrSelfFriendship
	}

	if a > b {
		a, b = b, a
	}

	return PairKey(a + ":" + b), nil
}

// ParsePairKey validates a key received from a caller.
func ParsePairKey(s string) (PairKey, error) {
	low, high, ok := strings.Cut(s, ":")
	if !ok || low == "" || high == "" || low >= high {
		return "", fmt.Errorf("%w: %q", ErrInvalidPairKey, s)
	}

	return PairKey(s), nil
}

// Low returns the lexicographically lower user id.
func (pk PairKey) Low() string {
	low, _, _ := strings.Cut(string(pk), ":")
	return low
}

// High returns the lexicographically higher user id.
func (pk PairKey) High() string {
	_, high, _ := strings.Cut(string(pk), ":")
	return high
}

// Contains reports whether userID is one of the pair.
func (pk PairKey) Contains(userID string) bool {
	return pk.Low() == userID || pk.High() == userID
}

// Other returns the counterpart of userID within the pair.
func (pk PairKey) Other(userID string) string {
	if pk.Low() == userID {
		return pk.High()
	}

	return pk.Low()
}

// Friendship is the persisted pairwise balance record between two users.
//
// Balance is signed relative to the stored (low, high) order: a positive
// balance means high owes low. Direction as seen by one user is derived
// with BalanceFor, never by re-deriving order at render time.
type Friendship struct {
	PairKey     PairKey
	RequestedBy string
	Status      FriendshipStatus
	Balance     Money
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewFriendship creates a pending friendship requested by requestedBy.
func NewFriendship(pk PairKey, requestedBy string, now time.Time) *Friendship {
	return &Friendship{
		PairKey:     pk,
		RequestedBy: requestedBy,
		Status:      FriendshipPending,
		Balance:     Zero,
		Version:     0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// BalanceFor returns the balance as seen by userID: positive means the
// counterpart owes userID.
func (f *Friendship) BalanceFor(userID string) Money {
	if f.PairKey.Low() == userID {
		return f.Balance
	}

	return f.Balance.Neg()
}

// ApplyDelta adds a signed delta (in stored low/high convention) to the
// balance. Only accepted friendships accrue balance.
func (f *Friendship) ApplyDelta(delta Money) error {
	if f.Status != FriendshipAccepted {
		return fmt.Errorf("%w: pair %s is %s", ErrFriendshipNotAccepted, f.PairKey, f.Status)
	}

	f.Balance = f.Balance.Add(delta)

	return nil
}

// Accept transitions pending -> accepted. The transition is only valid
// for the request recipient while the request is pending.
func (f *Friendship) Accept(userID string) error {
	return f.respond(userID, FriendshipAccepted)
}

// Reject transitions pending -> rejected.
func (f *Friendship) Reject(userID string) error {
	return f.respond(userID, FriendshipRejected)
}

func (f *Friendship) respond(userID string, to FriendshipStatus) error {
	if !f.PairKey.Contains(userID) {
		return fmt.Errorf("%w: pair %s", ErrFriendshipNotFound, f.PairKey)
	}

	if f.Status != FriendshipPending {
		return fmt.Errorf("%w: pair %s is %s", ErrFriendshipNotPending, f.PairKey, f.Status)
	}

	if userID == f.RequestedBy {
		return fmt.Errorf("%w: pair %s", ErrNotRequestRecipient, f.PairKey)
	}

	f.Status = to

	return nil
}
