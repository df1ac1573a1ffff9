package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/splitledger/internal/adapter/http/dto"
	"github.com/iho/splitledger/internal/adapter/http/middleware"
	"github.com/iho/splitledger/internal/domain"
	"github.com/iho/splitledger/internal/usecase"
)

// FriendshipService defines the friendship lifecycle behavior needed by
// FriendshipHandler.
type FriendshipService interface {
	Request(ctx context.Context, userID, targetEmail string) (*domain.Friendship, error)
	Accept(ctx context.Context, pk domain.PairKey, userID string) (*domain.Friendship, error)
	Reject(ctx context.Context, pk domain.PairKey, userID string) (*domain.Friendship, error)
}

// LedgerService defines the balance behavior needed by FriendshipHandler.
type LedgerService interface {
	ListBalances(ctx context.Context, userID string) ([]usecase.BalanceRow, error)
	GetFriendship(ctx context.Context, pk domain.PairKey) (*domain.Friendship, error)
	Settle(ctx context.Context, pk domain.PairKey, amount domain.Money, actingUserID string) (*domain.Friendship, error)
}

// FriendshipHandler handles friendship and balance HTTP requests.
type FriendshipHandler struct {
	friendshipUC FriendshipService
	ledgerUC     LedgerService
}

// NewFriendshipHandler creates a new FriendshipHandler.
func NewFriendshipHandler(friendshipUC FriendshipService, ledgerUC LedgerService) *FriendshipHandler {
	return &FriendshipHandler{
		friendshipUC: friendshipUC,
		ledgerUC:     ledgerUC,
	}
}

// Request creates a pending friend request by the target's email.
func (h *FriendshipHandler) Request(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity", "")
		return
	}

	var req dto.FriendRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	f, err := h.friendshipUC.Request(r.Context(), userID, req.Email)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to create friend request", err.Error())

		return
	}

	writeJSON(w, http.StatusCreated, dto.FriendshipFromDomain(f))
}

// List returns all friendships of the authenticated user with balances
// normalized to their point of view.
func (h *FriendshipHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity", "")
		return
	}

	rows, err := h.ledgerUC.ListBalances(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list balances", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, rows)
}

// Get retrieves one friendship by pair key.
func (h *FriendshipHandler) Get(w http.ResponseWriter, r *http.Request) {
	pk, ok := h.pairKeyParam(w, r)
	if !ok {
		return
	}

	f, err := h.ledgerUC.GetFriendship(r.Context(), pk)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to get friendship", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.FriendshipFromDomain(f))
}

// Accept accepts a pending friend request.
func (h *FriendshipHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.friendshipUC.Accept)
}

// Reject rejects a pending friend request.
func (h *FriendshipHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.friendshipUC.Reject)
}

func (h *FriendshipHandler) respond(
	w http.ResponseWriter,
	r *http.Request,
	transition func(ctx context.Context, pk domain.PairKey, userID string) (*domain.Friendship, error),
) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity", "")
		return
	}

	pk, ok := h.pairKeyParam(w, r)
	if !ok {
		return
	}

	f, err := transition(r.Context(), pk, userID)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to resolve friend request", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.FriendshipFromDomain(f))
}

// Settle records a settlement: the counterpart paid the acting user back.
func (h *FriendshipHandler) Settle(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing identity", "")
		return
	}

	pk, ok := h.pairKeyParam(w, r)
	if !ok {
		return
	}

	var req dto.SettleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	amount, err := domain.MoneyFromDecimal(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount", err.Error())
		return
	}

	f, err := h.ledgerUC.Settle(r.Context(), pk, amount, userID)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to settle", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.FriendshipFromDomain(f))
}

func (h *FriendshipHandler) pairKeyParam(w http.ResponseWriter, r *http.Request) (domain.PairKey, bool) {
	raw := chi.URLParam(r, "pairKey")

	pk, err := domain.ParsePairKey(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pair key", err.Error())
		return "", false
	}

	return pk, true
}
