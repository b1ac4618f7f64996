package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/edgekit/authcore/internal/authcore/domain"
)

// AccountTableConfig names the table and columns backing the accounts repo.
// Deployments that reuse an existing user table can remap these, but only to
// identifiers on the allow-list below. Identifiers are the one part of a SQL
// statement that cannot be bound as a parameter, so they are locked down at
// construction instead.
type AccountTableConfig struct {
	Table        string
	ID           string
	Email        string
	PasswordData string
	CreatedAt    string
}

// DefaultAccountTable matches the schema created by the migrations.
var DefaultAccountTable = AccountTableConfig{
	Table:        "account",
	ID:           "id",
	Email:        "email",
	PasswordData: "password_data",
	CreatedAt:    "created_at",
}

var allowedAccountIdentifiers = map[string]struct{}{
	// tables
	"account": {}, "accounts": {}, "user_account": {}, "users": {},
	// columns
	"id": {}, "account_id": {}, "user_id": {},
	"email": {}, "email_address": {},
	"password_data": {}, "password_hash": {},
	"created_at": {}, "created": {},
}

func (c AccountTableConfig) validate() error {
	for _, ident := range []string{c.Table, c.ID, c.Email, c.PasswordData, c.CreatedAt} {
		if _, ok := allowedAccountIdentifiers[ident]; !ok {
			return fmt.Errorf("sqlite: account identifier %q is not on the allow-list", ident)
		}
	}
	return nil
}

type accountsRepo struct {
	db  dbtx
	cfg AccountTableConfig
}

func (r *accountsRepo) CreateAccount(ctx context.Context, email, passwordData string) (domain.Account, error) {
	now := time.Now().UTC()

	query := fmt.Sprintf(
		`INSERT INTO %s (%s, %s, %s) VALUES (?, ?, ?)`,
		r.cfg.Table, r.cfg.Email, r.cfg.PasswordData, r.cfg.CreatedAt,
	)
	res, err := r.db.ExecContext(ctx, query, email, passwordData, now)
	if err != nil {
		return domain.Account{}, mapConstraint(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.Account{}, err
	}

	return domain.Account{
		ID:           id,
		Email:        email,
		PasswordData: passwordData,
		CreatedAt:    now,
	}, nil
}

func (r *accountsRepo) GetAccountByEmail(ctx context.Context, email string) (domain.Account, error) {
	query := fmt.Sprintf(
		`SELECT %s, %s, %s, %s FROM %s WHERE %s = ?`,
		r.cfg.ID, r.cfg.Email, r.cfg.PasswordData, r.cfg.CreatedAt, r.cfg.Table, r.cfg.Email,
	)

	var a domain.Account
	err := r.db.QueryRowContext(ctx, query, email).
		Scan(&a.ID, &a.Email, &a.PasswordData, &a.CreatedAt)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *accountsRepo) GetAccountByID(ctx context.Context, id int64) (domain.Account, error) {
	query := fmt.Sprintf(
		`SELECT %s, %s, %s, %s FROM %s WHERE %s = ?`,
		r.cfg.ID, r.cfg.Email, r.cfg.PasswordData, r.cfg.CreatedAt, r.cfg.Table, r.cfg.ID,
	)

	var a domain.Account
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&a.ID, &a.Email, &a.PasswordData, &a.CreatedAt)
	if err != nil {
		return domain.Account{}, mapNotFound(err)
	}
	return a, nil
}

func (r *accountsRepo) UpdatePasswordData(ctx context.Context, id int64, passwordData string) error {
	query := fmt.Sprintf(
		`UPDATE %s SET %s = ? WHERE %s = ?`,
		r.cfg.Table, r.cfg.PasswordData, r.cfg.ID,
	)
	_, err := r.db.ExecContext(ctx, query, passwordData, id)
	return err
}
