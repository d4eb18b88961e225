package models

import "time"

// LoginHistoryCap bounds the per-account audit trail. Inserts beyond the cap
// evict the oldest entries.
const LoginHistoryCap = 10

// LoginHistoryEntry records one login attempt for the account's audit view.
// It is never consulted for authorization decisions.
type LoginHistoryEntry struct {
	ID        string
	UserID    string
	IPAddress string
	UserAgent string
	Success   bool
	CreatedAt time.Time
}
