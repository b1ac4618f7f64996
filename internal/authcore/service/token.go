package service

import (
	"context"
	"errors"
	"time"

	"github.com/edgekit/authcore/internal/authcore/autherr"
	"github.com/edgekit/authcore/internal/authcore/domain"
	"github.com/edgekit/authcore/pkg/jwtx"
)

// TokenService issues, verifies and rotates the signed token pairs bound to
// sessions. Token lifetimes are independent of, but bounded in usefulness by,
// the owning session: rotation re-checks the session on every refresh.
type TokenService struct {
	Codec    *jwtx.Codec
	Sessions *SessionService
}

// Issue produces an access/refresh pair bound to the given account and
// session.
func (s *TokenService) Issue(userID int64, sessionID string) (domain.TokenPair, error) {
	now := time.Now().UTC()

	access, err := s.Codec.Sign(jwtx.TypeAccess, userID, sessionID, now)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := s.Codec.Sign(jwtx.TypeRefresh, userID, sessionID, now)
	if err != nil {
		return domain.TokenPair{}, err
	}

	return domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    s.Codec.TTL(jwtx.TypeAccess) / time.Second,
	}, nil
}

// Verify checks a token against the expected family and maps codec failures
// into the error taxonomy: structural problems are "malformed", a valid
// signature past exp is "expired".
func (s *TokenService) Verify(token string, expectedType jwtx.TokenType) (jwtx.Claims, error) {
	claims, err := s.Codec.Verify(token, expectedType)
	if err != nil {
		if errors.Is(err, jwtx.ErrExpired) {
			return jwtx.Claims{}, autherr.TokenExpired()
		}
		return jwtx.Claims{}, autherr.TokenMalformed()
	}
	return claims, nil
}

// Rotate verifies a refresh token, confirms the referenced session is still
// valid and issues a fresh pair bound to the same session.
func (s *TokenService) Rotate(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	claims, err := s.Verify(refreshToken, jwtx.TypeRefresh)
	if err != nil {
		return domain.TokenPair{}, err
	}

	session, err := s.Sessions.Validate(ctx, claims.SID)
	if err != nil {
		return domain.TokenPair{}, err
	}

	return s.Issue(session.UserID, session.ID)
}
