package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/edgekit/authcore/internal/authcore/autherr"
	"github.com/edgekit/authcore/internal/authcore/domain"
	"github.com/edgekit/authcore/internal/authcore/service"
	"github.com/edgekit/authcore/internal/authcore/store"
	"github.com/edgekit/authcore/internal/authcore/store/drivers/sqlite"
	"github.com/edgekit/authcore/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newSessionService(t *testing.T, maxSessions int) (*service.SessionService, *sqlite.Store) {
	t.Helper()
	st := newTestStore(t)
	return &service.SessionService{
		Store:       st,
		Events:      newTestEvents(t, st),
		TTL:         time.Hour,
		MaxSessions: maxSessions,
	}, st
}

func TestSessionCreate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, st := newSessionService(t, 5)
	uid := createAccount(t, st, "create@example.com")

	session, err := svc.Create(ctx, uid, "test-agent/1.0", "203.0.113.9")
	require.NoError(t, err)
	require.Len(t, session.ID, idx.SessionIDLength)
	require.Equal(t, uid, session.UserID)
	require.True(t, session.ExpiresAt.After(session.CreatedAt))

	stored, err := st.Sessions().GetSessionByID(ctx, session.ID)
	require.NoError(t, err)
	require.Equal(t, session.ID, stored.ID)
	require.Equal(t, "203.0.113.9", stored.IPAddress)

	// Drain the dispatcher, then the creation event must be on the log.
	svc.Events.Close()
	recent, err := st.SecurityEvents().ListRecentEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, domain.EventSessionCreated, recent[0].Type)
	require.Equal(t, domain.ActorSessionOps, recent[0].ActorID)
	require.Equal(t, session.ID, recent[0].Detail["session_id"])
}

func TestSessionCapEviction(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, st := newSessionService(t, 2)
	uid := createAccount(t, st, "cap@example.com")

	var created []domain.Session
	for i := range 3 {
		s, err := svc.Create(ctx, uid, "agent", "198.51.100.1")
		require.NoError(t, err, "create %d", i)
		created = append(created, s)
		// created_at ordering drives eviction, keep the timestamps apart
		time.Sleep(5 * time.Millisecond)
	}

	active, err := st.Sessions().ListActiveSessions(ctx, uid, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, active, 2)

	// The oldest-created session is the one that went away.
	_, err = st.Sessions().GetSessionByID(ctx, created[0].ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	for _, s := range created[1:] {
		_, err := st.Sessions().GetSessionByID(ctx, s.ID)
		require.NoError(t, err)
	}
}

func TestSessionValidate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, st := newSessionService(t, 5)
	uid := createAccount(t, st, "validate@example.com")

	session, err := svc.Create(ctx, uid, "agent", "192.0.2.4")
	require.NoError(t, err)

	t.Run("valid session", func(t *testing.T) {
		got, err := svc.Validate(ctx, session.ID)
		require.NoError(t, err)
		require.Equal(t, session.ID, got.ID)
	})

	t.Run("malformed id", func(t *testing.T) {
		_, err := svc.Validate(ctx, "not-a-session-id")
		require.ErrorIs(t, err, autherr.SessionRevoked())
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := svc.Validate(ctx, idx.NewSessionID())
		require.ErrorIs(t, err, autherr.SessionRevoked())
	})

	t.Run("expired session", func(t *testing.T) {
		expired := domain.Session{
			ID:        idx.NewSessionID(),
			UserID:    uid,
			ExpiresAt: time.Now().UTC().Add(-time.Minute),
			CreatedAt: time.Now().UTC().Add(-2 * time.Hour),
		}
		require.NoError(t, st.Sessions().CreateSession(ctx, expired))

		_, err := svc.Validate(ctx, expired.ID)
		require.ErrorIs(t, err, autherr.SessionRevoked())
	})
}

func TestSessionRevoke(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, st := newSessionService(t, 5)
	uid := createAccount(t, st, "revoke@example.com")

	session, err := svc.Create(ctx, uid, "agent", "192.0.2.8")
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, session.ID))
	_, err = svc.Validate(ctx, session.ID)
	require.ErrorIs(t, err, autherr.SessionRevoked())

	// Revoking again is a no-op.
	require.NoError(t, svc.Revoke(ctx, session.ID))
}

func TestSessionRevokeAll(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, st := newSessionService(t, 10)
	uid := createAccount(t, st, "revokeall@example.com")
	otherUID := createAccount(t, st, "bystander@example.com")

	for range 3 {
		_, err := svc.Create(ctx, uid, "agent", "192.0.2.16")
		require.NoError(t, err)
	}
	other, err := svc.Create(ctx, otherUID, "agent", "192.0.2.17")
	require.NoError(t, err)

	require.NoError(t, svc.RevokeAll(ctx, uid))

	count, err := st.Sessions().CountActiveSessions(ctx, uid, time.Now().UTC())
	require.NoError(t, err)
	require.Zero(t, count)

	// Another user's sessions are untouched.
	_, err = svc.Validate(ctx, other.ID)
	require.NoError(t, err)
}

func TestMaintenanceSweep(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newTestStore(t)
	uid := createAccount(t, st, "sweep@example.com")

	now := time.Now().UTC()
	longGone := domain.Session{
		ID:        idx.NewSessionID(),
		UserID:    uid,
		ExpiresAt: now.Add(-48 * time.Hour),
		CreatedAt: now.Add(-72 * time.Hour),
	}
	recentlyExpired := domain.Session{
		ID:        idx.NewSessionID(),
		UserID:    uid,
		ExpiresAt: now.Add(-time.Minute),
		CreatedAt: now.Add(-time.Hour),
	}
	live := domain.Session{
		ID:        idx.NewSessionID(),
		UserID:    uid,
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}
	for _, s := range []domain.Session{longGone, recentlyExpired, live} {
		require.NoError(t, st.Sessions().CreateSession(ctx, s))
	}

	maint := service.NewMaintenanceService(st, quietLogger(), time.Hour, 24*time.Hour)
	deleted, err := maint.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	// Only the row past the retention window was purged; recently expired
	// rows are kept for event correlation.
	_, err = st.Sessions().GetSessionByID(ctx, longGone.ID)
	require.Error(t, err)
	_, err = st.Sessions().GetSessionByID(ctx, recentlyExpired.ID)
	require.NoError(t, err)
	_, err = st.Sessions().GetSessionByID(ctx, live.ID)
	require.NoError(t, err)
}
