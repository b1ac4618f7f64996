package domain

import "time"

// Session is immutable once created: refreshing tokens never touches the row.
// A session ends by explicit revoke, cap-driven eviction, expiry, or the
// maintenance sweep.
type Session struct {
	ID        string // 21-character URL-safe random identifier
	UserID    int64
	UserAgent string
	IPAddress string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the session is past its expiry at the given time.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
