package service_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/edgekit/authcore/internal/authcore/service"
	"github.com/edgekit/authcore/internal/authcore/store/drivers/sqlite"
	"github.com/edgekit/authcore/pkg/pwdhash"
	"github.com/stretchr/testify/require"
)

// newTestStore opens a migrated sqlite store backed by a per-test temp file.
// A file beats :memory: here because every connection in the pool must see the
// same schema.
func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "authcore_test.db")
	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHasher(t *testing.T) *pwdhash.Hasher {
	t.Helper()
	h, err := pwdhash.New(pwdhash.Config{Iterations: 1000, Bits: 256})
	require.NoError(t, err)
	return h
}

// createAccount inserts an account row directly and returns its id. Sessions
// reference accounts by foreign key, so session tests need a real owner row.
func createAccount(t *testing.T, st *sqlite.Store, email string) int64 {
	t.Helper()
	account, err := st.Accounts().CreateAccount(context.Background(), email, "placeholder-hash")
	require.NoError(t, err)
	return account.ID
}

func newTestEvents(t *testing.T, st *sqlite.Store) *service.EventService {
	t.Helper()
	ev := service.NewEventService(st, quietLogger(), service.ChallengeConfig{
		Window:           15 * time.Minute,
		FailureThreshold: 3,
		HighThreshold:    6,
		LowDifficulty:    3,
		HighDifficulty:   5,
	}, 64)
	t.Cleanup(ev.Close)
	return ev
}
