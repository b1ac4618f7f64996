package sqlite

import (
	"context"
	"database/sql"

	"github.com/edgekit/authcore/internal/authcore/store"
)

type txStore struct {
	tx       *sql.Tx
	accounts AccountTableConfig
}

func newTx(tx *sql.Tx, accounts AccountTableConfig) *txStore {
	return &txStore{tx: tx, accounts: accounts}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Close() error { return nil } // outer DB stays open; caller commits or rolls back

// Ping is a no-op for transactions; the connection is already established.
func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) Accounts() store.Accounts { return &accountsRepo{db: t.tx, cfg: t.accounts} }
func (t *txStore) Sessions() store.Sessions { return &sessionsRepo{db: t.tx} }
func (t *txStore) SecurityEvents() store.SecurityEvents {
	return &securityEventsRepo{db: t.tx}
}
func (t *txStore) AgentCredentials() store.AgentCredentials {
	return &agentCredentialsRepo{db: t.tx}
}

func (t *txStore) ApplyMigrations() error { return nil } // migrations run before any tx starts
