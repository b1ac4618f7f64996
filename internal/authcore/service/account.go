package service

import (
	"context"
	"errors"
	"net/mail"
	"unicode/utf8"

	"github.com/edgekit/authcore/internal/authcore/autherr"
	"github.com/edgekit/authcore/internal/authcore/domain"
	"github.com/edgekit/authcore/internal/authcore/store"
	"github.com/edgekit/authcore/pkg/normx"
	"github.com/edgekit/authcore/pkg/pwdhash"
)

// Normalized password length bounds, in runes.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 64
)

// AccountService creates and authenticates accounts. All input normalization
// happens here, before any hashing or store access.
type AccountService struct {
	Store  store.Store
	Hasher *pwdhash.Hasher
}

// CreateAccount normalizes and validates the input, hashes the password and
// inserts a new account. Validation failures are fail-fast: they return
// before any store round trip.
func (s *AccountService) CreateAccount(ctx context.Context, email, password string) (domain.Account, error) {
	email = normx.Email(email)
	password = normx.Password(password)

	if err := validateEmail(email); err != nil {
		return domain.Account{}, err
	}
	if err := validatePassword(password); err != nil {
		return domain.Account{}, err
	}

	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return domain.Account{}, autherr.Internal("password hashing failed")
	}

	account, err := s.Store.Accounts().CreateAccount(ctx, email, hash)
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.Account{}, autherr.Validation("An account with this email already exists")
		}
		return domain.Account{}, err
	}
	return account, nil
}

// Authenticate verifies credentials and returns the account id. Unknown email
// and wrong password produce byte-identical errors, and the unknown-email
// path burns the same hashing cost as a real verification so response timing
// does not reveal account existence.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (int64, error) {
	email = normx.Email(email)
	password = normx.Password(password)

	account, err := s.Store.Accounts().GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.Hasher.RejectWithConstantTime(password)
			return 0, autherr.InvalidCredentials()
		}
		return 0, err
	}

	if !s.Hasher.Verify(password, account.PasswordData) {
		return 0, autherr.InvalidCredentials()
	}

	// A non-positive id means the row is corrupt. Stay unauthenticated and
	// do not leak row contents.
	if account.ID <= 0 {
		return 0, autherr.InternalState()
	}

	return account.ID, nil
}

// ChangePassword verifies the current password before storing a new hash.
func (s *AccountService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	current = normx.Password(current)
	next = normx.Password(next)

	if err := validatePassword(next); err != nil {
		return err
	}

	account, err := s.Store.Accounts().GetAccountByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return autherr.InvalidCredentials()
		}
		return err
	}

	if !s.Hasher.Verify(current, account.PasswordData) {
		return autherr.InvalidCredentials()
	}

	hash, err := s.Hasher.Hash(next)
	if err != nil {
		return autherr.Internal("password hashing failed")
	}
	return s.Store.Accounts().UpdatePasswordData(ctx, account.ID, hash)
}

func validateEmail(email string) error {
	if email == "" {
		return autherr.Validation("Email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return autherr.Validation("Email address is not valid")
	}
	return nil
}

func validatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength {
		return autherr.Validation("Password must be at least 8 characters")
	}
	if n > MaxPasswordLength {
		return autherr.Validation("Password must be at most 64 characters")
	}
	if compromised, _ := pwdhash.IsCompromised(password); compromised {
		return autherr.Validation("Password is too predictable, choose another")
	}
	return nil
}
