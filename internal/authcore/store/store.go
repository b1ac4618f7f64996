package store

import (
	"context"
	"errors"
	"time"

	"github.com/edgekit/authcore/internal/authcore/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite today)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable.
type Store interface {
	Accounts() Accounts
	Sessions() Sessions
	SecurityEvents() SecurityEvents
	AgentCredentials() AgentCredentials

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction; fn returning an error rolls
	// back, nil commits.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	// CreateAccount inserts a new account and returns it with its assigned
	// id. A duplicate email maps to ErrAlreadyExists.
	CreateAccount(ctx context.Context, email, passwordData string) (domain.Account, error)

	// GetAccountByEmail looks up an account by its normalized email.
	GetAccountByEmail(ctx context.Context, email string) (domain.Account, error)

	// GetAccountByID returns an account by id.
	GetAccountByID(ctx context.Context, id int64) (domain.Account, error)

	// UpdatePasswordData replaces the stored hash on password change.
	UpdatePasswordData(ctx context.Context, id int64, passwordData string) error
}

type Sessions interface {
	// CreateSession inserts a new session row.
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSessionByID returns a session by id, expired or not.
	GetSessionByID(ctx context.Context, id string) (domain.Session, error)

	// ListActiveSessions returns the user's non-expired sessions ordered
	// oldest-created first, which is the eviction order.
	ListActiveSessions(ctx context.Context, userID int64, now time.Time) ([]domain.Session, error)

	// CountActiveSessions counts the user's non-expired sessions.
	CountActiveSessions(ctx context.Context, userID int64, now time.Time) (int, error)

	// DeleteSession removes one session. Deleting an absent id is not an error.
	DeleteSession(ctx context.Context, id string) error

	// DeleteUserSessions removes all of a user's sessions and reports how
	// many rows went away.
	DeleteUserSessions(ctx context.Context, userID int64) (int64, error)

	// DeleteSessionsExpiredBefore purges rows whose expiry precedes cutoff.
	// Idempotent delete-by-predicate, safe to run concurrently with traffic.
	DeleteSessionsExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type SecurityEvents interface {
	// InsertEvent appends one event to the log. The log is append-only;
	// there are deliberately no update or delete operations here.
	InsertEvent(ctx context.Context, ev domain.SecurityEvent) error

	// CountEventsByTypeAndIP counts events of one type from one address
	// since the given instant. Backs the adaptive challenge window query.
	CountEventsByTypeAndIP(ctx context.Context, eventType, ip string, since time.Time) (int, error)

	// ListRecentEvents returns the newest events first, capped at limit.
	ListRecentEvents(ctx context.Context, limit int) ([]domain.SecurityEvent, error)
}

type AgentCredentials interface {
	// CreateAgentCredential inserts a credential and returns it with its
	// assigned id. A duplicate active name maps to ErrAlreadyExists.
	CreateAgentCredential(ctx context.Context, a domain.AgentCredential) (domain.AgentCredential, error)

	// GetActiveAgentByKeyHash returns the non-revoked credential matching a
	// key fingerprint.
	GetActiveAgentByKeyHash(ctx context.Context, keyHash string) (domain.AgentCredential, error)

	// RevokeAgentCredential soft-revokes by name (sets revoked_at).
	RevokeAgentCredential(ctx context.Context, name string) error
}
