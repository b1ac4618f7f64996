// Package autherr defines the service error taxonomy: every failure a caller
// can observe is a tagged value carrying a kind, a machine-readable code, an
// HTTP-aligned severity tier and a user-facing message.
//
// Propagation policy: validation failures are fail-fast and never reach the
// store; authentication decisions are fail-closed (ambiguity resolves to
// "not authenticated"); event-pipeline failures are fail-open and are logged
// rather than surfaced.
package autherr

import (
	"errors"
	"net/http"
)

// Kind partitions the taxonomy. Comparable, so services can branch on it.
type Kind string

const (
	KindValidation Kind = "validation"
	KindAuth       Kind = "authentication"
	KindToken      Kind = "token"
	KindSession    Kind = "session"
	KindRateLimit  Kind = "rate_limit"
	KindInternal   Kind = "internal"
)

// Machine-readable codes carried alongside the kind.
const (
	CodeInvalidCredentials = "invalid_credentials"
	CodeInternalState      = "internal_state"
	CodeTokenMalformed     = "malformed"
	CodeTokenExpired       = "expired"
	CodeSessionRevoked     = "revoked"
	CodeSessionLimit       = "limit_exceeded"
	CodeTooManyRequests    = "too_many_requests"

	// Agent credential failure codes, surfaced verbatim in security events.
	CodeMissingAPIKey = "MISSING_API_KEY"
	CodeInvalidAPIKey = "INVALID_API_KEY"
	CodeLookupFailed  = "LOOKUP_FAILED"
)

// GenericCredentialsMessage is the single message returned for every failed
// authentication attempt. Unknown email and wrong password are byte-identical
// on the wire.
const GenericCredentialsMessage = "Invalid email or password"

// Error is the tagged error value used at every service boundary.
type Error struct {
	Kind    Kind
	Code    string
	Status  int // HTTP-aligned severity tier (400/401/403/409/429/500)
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is lets errors.Is match on kind+code without comparing messages, so
// sentinel-style comparisons work against freshly constructed values.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind && (t.Code == "" || e.Code == t.Code)
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Code: "invalid_input", Status: http.StatusBadRequest, Message: message}
}

func InvalidCredentials() *Error {
	return &Error{Kind: KindAuth, Code: CodeInvalidCredentials, Status: http.StatusUnauthorized, Message: GenericCredentialsMessage}
}

// InternalState reports a stored row that no longer type-checks (e.g. a
// corrupt account id). The caller stays unauthenticated and row contents are
// never echoed back.
func InternalState() *Error {
	return &Error{Kind: KindAuth, Code: CodeInternalState, Status: http.StatusUnauthorized, Message: "Authentication failed due to an internal state error"}
}

func TokenMalformed() *Error {
	return &Error{Kind: KindToken, Code: CodeTokenMalformed, Status: http.StatusUnauthorized, Message: "Token is malformed"}
}

func TokenExpired() *Error {
	return &Error{Kind: KindToken, Code: CodeTokenExpired, Status: http.StatusUnauthorized, Message: "Token has expired"}
}

func SessionRevoked() *Error {
	return &Error{Kind: KindSession, Code: CodeSessionRevoked, Status: http.StatusUnauthorized, Message: "Session has been revoked or expired"}
}

func SessionLimitExceeded() *Error {
	return &Error{Kind: KindSession, Code: CodeSessionLimit, Status: http.StatusConflict, Message: "Active session limit exceeded"}
}

func TooManyRequests() *Error {
	return &Error{Kind: KindRateLimit, Code: CodeTooManyRequests, Status: http.StatusTooManyRequests, Message: "Too many requests, solve the challenge to continue"}
}

func MissingAPIKey() *Error {
	return &Error{Kind: KindAuth, Code: CodeMissingAPIKey, Status: http.StatusUnauthorized, Message: "Missing API key"}
}

func InvalidAPIKey() *Error {
	return &Error{Kind: KindAuth, Code: CodeInvalidAPIKey, Status: http.StatusUnauthorized, Message: "Invalid API key"}
}

func LookupFailed() *Error {
	return &Error{Kind: KindAuth, Code: CodeLookupFailed, Status: http.StatusUnauthorized, Message: "Credential lookup failed"}
}

func Internal(message string) *Error {
	if message == "" {
		message = "Internal error"
	}
	return &Error{Kind: KindInternal, Code: "internal", Status: http.StatusInternalServerError, Message: message}
}

// CodeOf extracts the machine-readable code, or "internal" for untagged errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal"
}

// StatusOf extracts the severity tier, defaulting to 500 for untagged errors.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return http.StatusInternalServerError
}
