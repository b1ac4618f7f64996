package domain

import "time"

// TokenPair is what a successful login or rotation returns: a short-lived
// access token and a long-lived refresh token, both bound to one session.
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type"` // always "Bearer"
	ExpiresIn    time.Duration `json:"expires_in"` // access token lifetime in seconds
}
