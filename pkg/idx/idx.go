// Package idx generates the identifiers used across the service: compact
// URL-safe session ids and lexicographically sortable ULID request ids.
package idx

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// SessionIDLength is the fixed length of a session identifier.
const SessionIDLength = 21

// sessionAlphabet is the 64-character URL-safe alphabet. 21 characters drawn
// from it carry 126 bits of entropy, enough for global uniqueness with
// overwhelming probability.
const sessionAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// ErrInvalid reports a malformed session id.
var ErrInvalid = errors.New("idx: invalid session id")

// NewSessionID returns a fresh random 21-character URL-safe session id.
// It panics only if the system entropy source is unreadable, which is not a
// recoverable condition for an authentication service.
func NewSessionID() string {
	buf := make([]byte, SessionIDLength)
	if _, err := rand.Read(buf); err != nil {
		panic("idx: failed to read entropy source: " + err.Error())
	}

	id := make([]byte, SessionIDLength)
	for i, b := range buf {
		// 64-character alphabet, so masking the low 6 bits keeps the
		// distribution uniform.
		id[i] = sessionAlphabet[b&0x3f]
	}
	return string(id)
}

// ParseSessionID validates the form of a session id without touching the
// store: exact length and alphabet membership.
func ParseSessionID(s string) (string, error) {
	if len(s) != SessionIDLength {
		return "", ErrInvalid
	}
	for i := range len(s) {
		if !strings.ContainsRune(sessionAlphabet, rune(s[i])) {
			return "", ErrInvalid
		}
	}
	return s, nil
}

var (
	requestOnce    sync.Once
	requestMu      sync.Mutex
	requestEntropy *ulid.MonotonicEntropy
)

// NewRequestID returns a ULID for request correlation in logs. ULIDs sort by
// creation time, which keeps log queries over a time range cheap.
func NewRequestID() string {
	requestOnce.Do(func() {
		requestEntropy = ulid.Monotonic(rand.Reader, 0)
	})

	requestMu.Lock()
	defer requestMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), requestEntropy).String()
}
