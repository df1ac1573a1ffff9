package domain

import "time"

// User is a directory entry. The ledger stores only ids; name and email
// exist for display and friend-request resolution.
type User struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
}
