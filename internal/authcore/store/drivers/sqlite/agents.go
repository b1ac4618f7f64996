package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/edgekit/authcore/internal/authcore/domain"
	"github.com/edgekit/authcore/internal/authcore/store"
)

type agentCredentialsRepo struct {
	db dbtx
}

func (r *agentCredentialsRepo) CreateAgentCredential(ctx context.Context, a domain.AgentCredential) (domain.AgentCredential, error) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO agent_credential (name, key_hash, trust_level, description, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		a.Name, a.KeyHash, a.TrustLevel, a.Description, a.CreatedAt,
	)
	if err != nil {
		return domain.AgentCredential{}, mapConstraint(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.AgentCredential{}, err
	}
	a.ID = id
	return a, nil
}

func (r *agentCredentialsRepo) GetActiveAgentByKeyHash(ctx context.Context, keyHash string) (domain.AgentCredential, error) {
	var (
		a         domain.AgentCredential
		revokedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, key_hash, trust_level, description, created_at, revoked_at
		 FROM agent_credential
		 WHERE key_hash = ? AND revoked_at IS NULL`, keyHash,
	).Scan(&a.ID, &a.Name, &a.KeyHash, &a.TrustLevel, &a.Description, &a.CreatedAt, &revokedAt)
	if err != nil {
		return domain.AgentCredential{}, mapNotFound(err)
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		a.RevokedAt = &t
	}
	return a, nil
}

func (r *agentCredentialsRepo) RevokeAgentCredential(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE agent_credential SET revoked_at = ? WHERE name = ? AND revoked_at IS NULL`,
		time.Now().UTC(), name,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
