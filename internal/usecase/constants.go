package usecase

import "time"

const (
	defaultListLimit = 20
	maxListLimit     = 100

	balanceCachePrefix = "balances:"
	balanceCacheTTL    = 30 * time.Second

	// DefaultOperationTimeout bounds apply/settle, including lock waits.
	DefaultOperationTimeout = 5 * time.Second
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}

	if limit > maxListLimit {
		return maxListLimit
	}

	return limit
}
