package service

import (
	"context"
	"errors"
	"time"

	"github.com/edgekit/authcore/internal/authcore/autherr"
	"github.com/edgekit/authcore/internal/authcore/domain"
	"github.com/edgekit/authcore/internal/authcore/store"
	"github.com/edgekit/authcore/pkg/idx"
)

// SessionService owns the session lifecycle: creation with cap enforcement,
// validation, revocation and eviction.
type SessionService struct {
	Store  store.Store
	Events *EventService

	TTL         time.Duration // session lifetime from creation
	MaxSessions int           // per-user active session cap
}

// Create inserts a fresh session and then enforces the per-user cap by
// evicting the oldest-created sessions one at a time until the cap holds.
// The check-then-evict sequence is deliberately not transactional: concurrent
// creations may overshoot the cap briefly and a later pass corrects it.
func (s *SessionService) Create(ctx context.Context, userID int64, userAgent, ipAddress string) (domain.Session, error) {
	now := time.Now().UTC()

	session := domain.Session{
		ID:        idx.NewSessionID(),
		UserID:    userID,
		UserAgent: userAgent,
		IPAddress: ipAddress,
		ExpiresAt: now.Add(s.TTL),
		CreatedAt: now,
	}

	if err := s.Store.Sessions().CreateSession(ctx, session); err != nil {
		return domain.Session{}, err
	}

	if err := s.enforceCap(ctx, userID, now); err != nil {
		return domain.Session{}, err
	}

	s.emit(domain.SecurityEvent{
		Type:      domain.EventSessionCreated,
		UserID:    &userID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Status:    "created",
		Detail:    map[string]any{"session_id": session.ID},
		ActorID:   domain.ActorSessionOps,
	})

	return session, nil
}

func (s *SessionService) enforceCap(ctx context.Context, userID int64, now time.Time) error {
	if s.MaxSessions <= 0 {
		return nil
	}

	active, err := s.Store.Sessions().ListActiveSessions(ctx, userID, now)
	if err != nil {
		return err
	}

	// active is ordered oldest-created first.
	for len(active) > s.MaxSessions {
		oldest := active[0]
		if err := s.Store.Sessions().DeleteSession(ctx, oldest.ID); err != nil {
			return err
		}
		active = active[1:]

		s.emit(domain.SecurityEvent{
			Type:      domain.EventSessionEvicted,
			UserID:    &userID,
			IPAddress: oldest.IPAddress,
			UserAgent: oldest.UserAgent,
			Status:    "evicted",
			Detail:    map[string]any{"session_id": oldest.ID, "reason": "session_cap"},
			ActorID:   domain.ActorSessionOps,
		})
	}
	return nil
}

// Validate returns the session record, or a revoked/expired condition when
// the id is unknown or past its expiry.
func (s *SessionService) Validate(ctx context.Context, sessionID string) (domain.Session, error) {
	if _, err := idx.ParseSessionID(sessionID); err != nil {
		return domain.Session{}, autherr.SessionRevoked()
	}

	session, err := s.Store.Sessions().GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Session{}, autherr.SessionRevoked()
		}
		return domain.Session{}, err
	}

	if session.Expired(time.Now().UTC()) {
		return domain.Session{}, autherr.SessionRevoked()
	}
	return session, nil
}

// Revoke deletes one session and records the revocation.
func (s *SessionService) Revoke(ctx context.Context, sessionID string) error {
	session, err := s.Store.Sessions().GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil // already gone, revoke is idempotent
		}
		return err
	}

	if err := s.Store.Sessions().DeleteSession(ctx, sessionID); err != nil {
		return err
	}

	s.emit(domain.SecurityEvent{
		Type:      domain.EventSessionRevoked,
		UserID:    &session.UserID,
		IPAddress: session.IPAddress,
		UserAgent: session.UserAgent,
		Status:    "revoked",
		Detail:    map[string]any{"session_id": sessionID},
		ActorID:   domain.ActorSessionOps,
	})
	return nil
}

// RevokeAll deletes every session the user has and records one event carrying
// the count.
func (s *SessionService) RevokeAll(ctx context.Context, userID int64) error {
	deleted, err := s.Store.Sessions().DeleteUserSessions(ctx, userID)
	if err != nil {
		return err
	}

	s.emit(domain.SecurityEvent{
		Type:    domain.EventSessionRevokedAll,
		UserID:  &userID,
		Status:  "revoked",
		Detail:  map[string]any{"revoked_count": deleted},
		ActorID: domain.ActorSessionOps,
	})
	return nil
}

func (s *SessionService) emit(ev domain.SecurityEvent) {
	if s.Events != nil {
		s.Events.Process(ev)
	}
}
