package domain

import "time"

// Agent trust levels. Write implies read.
const (
	TrustRead  = "read"
	TrustWrite = "write"
)

// AgentCredential is an out-of-band provisioned machine credential. Only the
// one-way hash of the secret is stored; revocation is soft (RevokedAt set),
// rows are never hard-deleted.
type AgentCredential struct {
	ID          int64
	Name        string // unique among active credentials
	KeyHash     string
	TrustLevel  string // "read" or "write"
	Description string
	CreatedAt   time.Time
	RevokedAt   *time.Time // nil means active
}

// Active reports whether the credential has not been revoked.
func (a AgentCredential) Active() bool { return a.RevokedAt == nil }

// Principal is the attributed identity attached to a request after agent
// authentication succeeds.
type Principal struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	TrustLevel string `json:"trust_level"`
}

// CanWrite reports whether the principal may perform mutating /ops actions.
func (p Principal) CanWrite() bool { return p.TrustLevel == TrustWrite }
