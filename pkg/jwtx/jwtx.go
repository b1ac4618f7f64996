// Package jwtx signs and verifies the service's structured tokens. Access and
// refresh tokens are HS256 JWTs signed with per-type secrets, so compromising
// one token family never lets an attacker forge the other.
package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType scopes a token to one signing secret and one TTL.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

// Default token TTLs. Short-lived access tokens limit the blast radius of a
// leak; the refresh TTL bounds how long a session can go unexercised.
const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

var (
	// ErrMalformed covers every structural failure: bad encoding, wrong
	// signature, wrong signing algorithm, or a typ claim that does not match
	// what the caller expected.
	ErrMalformed = errors.New("jwtx: malformed token")

	// ErrExpired means the token was validly signed but its exp has passed.
	ErrExpired = errors.New("jwtx: token expired")
)

// Claims is the token payload on the wire:
//
//	{"uid": <account id>, "sid": <session id>, "typ": "access"|"refresh", "exp": <unix>}
type Claims struct {
	UID int64  `json:"uid"`
	SID string `json:"sid"`
	Typ string `json:"typ"`
	jwt.RegisteredClaims
}

// Codec signs and verifies both token families. It is immutable after
// construction and safe for concurrent use.
type Codec struct {
	secrets map[TokenType][]byte
	ttls    map[TokenType]time.Duration
}

// NewCodec builds a Codec from the two family secrets. Zero TTLs fall back to
// the package defaults; empty or shared secrets are configuration errors.
func NewCodec(accessSecret, refreshSecret []byte, accessTTL, refreshTTL time.Duration) (*Codec, error) {
	if len(accessSecret) == 0 || len(refreshSecret) == 0 {
		return nil, errors.New("jwtx: both access and refresh secrets are required")
	}
	if string(accessSecret) == string(refreshSecret) {
		return nil, errors.New("jwtx: access and refresh secrets must differ")
	}
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}

	return &Codec{
		secrets: map[TokenType][]byte{
			TypeAccess:  accessSecret,
			TypeRefresh: refreshSecret,
		},
		ttls: map[TokenType]time.Duration{
			TypeAccess:  accessTTL,
			TypeRefresh: refreshTTL,
		},
	}, nil
}

// TTL returns the configured lifetime for a token family.
func (c *Codec) TTL(typ TokenType) time.Duration { return c.ttls[typ] }

// Sign issues a token of the given family bound to an account and session.
func (c *Codec) Sign(typ TokenType, uid int64, sid string, now time.Time) (string, error) {
	secret, ok := c.secrets[typ]
	if !ok {
		return "", fmt.Errorf("jwtx: unknown token type %q", typ)
	}

	claims := Claims{
		UID: uid,
		SID: sid,
		Typ: string(typ),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttls[typ])),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: signing failed: %w", err)
	}
	return signed, nil
}

// Verify checks signature, typ and expiry against the expected family.
// Structural problems map to ErrMalformed, a valid signature past its exp
// maps to ErrExpired. A refresh token presented as an access token fails the
// signature check because the families share no secret.
func (c *Codec) Verify(token string, want TokenType) (Claims, error) {
	secret, ok := c.secrets[want]
	if !ok {
		return Claims{}, ErrMalformed
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(t *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, ErrMalformed
	}

	if claims.Typ != string(want) {
		return Claims{}, ErrMalformed
	}
	return claims, nil
}
