package domain

import "time"

// Security event types use dotted names so the log can be filtered by prefix.
const (
	EventLoginSuccess      = "login.success"
	EventLoginFailure      = "login.failure"
	EventAccountCreated    = "account.created"
	EventSessionCreated    = "session.created"
	EventSessionRevoked    = "session.revoked"
	EventSessionRevokedAll = "session.revoked_all"
	EventSessionEvicted    = "session.evicted"
	EventAgentAuthFailure  = "agent.auth_failure"
)

// Actor ids attribute an event to the application itself or to a named
// non-human agent.
const (
	ActorApp        = "app"
	ActorSessionOps = "session-ops"
)

// SecurityEvent is an append-only audit record. The core never mutates or
// deletes rows; retention is an operational concern.
type SecurityEvent struct {
	ID        int64
	Type      string
	IPAddress string
	UserID    *int64 // nil when the event is not attributable to an account
	UserAgent string
	Status    string
	Detail    map[string]any // stored as JSON text
	ActorID   string
	CreatedAt time.Time
}

// Challenge is an adaptive proof-of-work demand: find a solution such that
// hex(SHA-256(nonce || solution)) starts with Difficulty zero digits.
type Challenge struct {
	Nonce      string `json:"nonce"`
	Difficulty int    `json:"difficulty"`
}
