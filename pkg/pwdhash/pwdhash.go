// Package pwdhash implements salted PBKDF2 password hashing with a stable
// PHC-style wire format, constant-time verification and a dummy-work path
// for callers that need timing parity when no stored hash exists.
package pwdhash

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultIterations is the PBKDF2 work factor used when the caller does
	// not override it.
	DefaultIterations = 100000

	saltLength = 16
)

// Config controls the hashing parameters. Bits selects the SHA-2 width and
// must be one of 256, 384 or 512.
type Config struct {
	Iterations int
	Bits       int
}

// Hasher derives, formats and verifies password hashes. A Hasher is immutable
// after construction and safe for concurrent use.
type Hasher struct {
	iterations int
	bits       int
	keyLen     int
	newHash    func() hash.Hash
}

// New validates cfg and returns a ready Hasher. A Bits value outside
// {256, 384, 512} is a configuration error, not a runtime fallback.
func New(cfg Config) (*Hasher, error) {
	if cfg.Iterations <= 0 {
		cfg.Iterations = DefaultIterations
	}

	h := &Hasher{iterations: cfg.Iterations, bits: cfg.Bits}
	switch cfg.Bits {
	case 256:
		h.newHash = sha256.New
	case 384:
		h.newHash = sha512.New384
	case 512:
		h.newHash = sha512.New
	default:
		return nil, fmt.Errorf("pwdhash: unsupported hash width %d (want 256, 384 or 512)", cfg.Bits)
	}
	h.keyLen = cfg.Bits / 8

	return h, nil
}

// Hash derives a key from password with a fresh random salt and serializes it
// as:
//
//	$pbkdf2-sha<bits>$v1$<iterations>$<salt-b64>$<hash-b64>$<digest-b64>
//
// The digest segment is a SHA-256 checksum of the derived key, giving Verify
// an integrity cross-check on the stored value. Two calls on the same
// password always yield different strings.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("pwdhash: salt generation failed: %w", err)
	}

	key := pbkdf2.Key([]byte(password), salt, h.iterations, h.keyLen, h.newHash)
	digest := sha256.Sum256(key)

	return fmt.Sprintf("$pbkdf2-sha%d$v1$%d$%s$%s$%s",
		h.bits,
		h.iterations,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
		base64.RawStdEncoding.EncodeToString(digest[:]),
	), nil
}

// Verify reports whether password matches the formatted hash. Any malformed,
// truncated or otherwise unparsable input returns false; Verify never panics
// and never returns an error. Comparison of the recomputed key uses a
// constant-time equality check.
func (h *Hasher) Verify(password, formatted string) bool {
	params, ok := parse(formatted)
	if !ok {
		return false
	}

	key := pbkdf2.Key([]byte(password), params.salt, params.iterations, len(params.hash), params.newHash)
	digest := sha256.Sum256(params.hash)

	hashOK := subtle.ConstantTimeCompare(key, params.hash) == 1
	digestOK := hmac.Equal(digest[:], params.digest)
	return hashOK && digestOK
}

// RejectWithConstantTime performs a full-cost dummy derivation and always
// returns false. Callers use it when an account lookup found nothing, so the
// response latency matches a real verification and does not reveal whether
// the email exists.
func (h *Hasher) RejectWithConstantTime(password string) bool {
	salt := make([]byte, saltLength) // fixed all-zero salt; the result is discarded
	key := pbkdf2.Key([]byte(password), salt, h.iterations, h.keyLen, h.newHash)
	subtle.ConstantTimeCompare(key, key)
	return false
}

type parsed struct {
	iterations int
	salt       []byte
	hash       []byte
	digest     []byte
	newHash    func() hash.Hash
}

// parse splits and validates the wire format defensively. It accepts only the
// exact six-field layout described on Hash; anything else reports !ok.
func parse(formatted string) (parsed, bool) {
	parts := strings.Split(formatted, "$")
	// ["", "pbkdf2-sha<bits>", "v1", iterations, salt, hash, digest]
	if len(parts) != 7 || parts[0] != "" || parts[2] != "v1" {
		return parsed{}, false
	}

	var p parsed
	switch parts[1] {
	case "pbkdf2-sha256":
		p.newHash = sha256.New
	case "pbkdf2-sha384":
		p.newHash = sha512.New384
	case "pbkdf2-sha512":
		p.newHash = sha512.New
	default:
		return parsed{}, false
	}

	iterations, err := strconv.Atoi(parts[3])
	if err != nil || iterations <= 0 {
		return parsed{}, false
	}
	p.iterations = iterations

	if p.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil || len(p.salt) == 0 {
		return parsed{}, false
	}
	if p.hash, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(p.hash) == 0 {
		return parsed{}, false
	}
	if p.digest, err = base64.RawStdEncoding.DecodeString(parts[6]); err != nil || len(p.digest) != sha256.Size {
		return parsed{}, false
	}

	return p, true
}
