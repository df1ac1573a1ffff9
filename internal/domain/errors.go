package domain

import "errors"

var (
	// Money / validation errors
	ErrInvalidAmount      = errors.New("amount is invalid")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidPairKey     = errors.New("invalid pair key")

	// Transaction errors
	ErrTransactionNotFound = errors.New("transaction not found")

	// Friendship errors
	ErrSelfFriendship          = errors.New("cannot befriend yourself")
	ErrFriendshipNotFound      = errors.New("friendship not found")
	ErrFriendshipNotAccepted   = errors.New("friendship is not accepted")
	ErrFriendshipAlreadyExists = errors.New("friendship already exists")
	ErrFriendshipNotPending    = errors.New("friendship request is not pending")
	ErrNotRequestRecipient     = errors.New("only the request recipient can respond")

	// Ledger errors
	ErrConcurrentUpdateConflict = errors.New("concurrent update conflict")
	ErrSettleExceedsBalance     = errors.New("settlement exceeds outstanding balance")
	ErrTimeout                  = errors.New("ledger operation timed out")

	// User errors
	ErrUserNotFound = errors.New("user not found")

	// Auth errors
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrUnauthorized = errors.New("unauthorized")
)
