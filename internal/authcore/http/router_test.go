package http_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/edgekit/authcore/internal/authcore/domain"
	httpapi "github.com/edgekit/authcore/internal/authcore/http"
	"github.com/edgekit/authcore/internal/authcore/service"
	"github.com/edgekit/authcore/internal/authcore/store/drivers/sqlite"
	"github.com/edgekit/authcore/pkg/jwtx"
	"github.com/edgekit/authcore/pkg/pwdhash"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	router   *httpapi.Router
	store    *sqlite.Store
	events   *service.EventService
	sessions *service.SessionService
	agents   *service.AgentService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "http_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	events := service.NewEventService(st, logger, service.ChallengeConfig{
		Window:           15 * time.Minute,
		FailureThreshold: 2,
		HighThreshold:    6,
		LowDifficulty:    1,
		HighDifficulty:   2,
	}, 64)
	t.Cleanup(events.Close)

	hasher, err := pwdhash.New(pwdhash.Config{Iterations: 1000, Bits: 256})
	require.NoError(t, err)

	codec, err := jwtx.NewCodec([]byte("http-access-secret"), []byte("http-refresh-secret"), 0, 0)
	require.NoError(t, err)

	sessions := &service.SessionService{Store: st, Events: events, TTL: time.Hour, MaxSessions: 5}
	agents := &service.AgentService{Store: st, Events: events}

	router := httpapi.NewRouter(st, logger)
	router.Accounts = &service.AccountService{Store: st, Hasher: hasher}
	router.SessionsSvc = sessions
	router.Tokens = &service.TokenService{Codec: codec, Sessions: sessions}
	router.Events = events
	router.Agents = agents
	router.ApplyRoutes()

	return &testEnv{router: router, store: st, events: events, sessions: sessions, agents: agents}
}

func (e *testEnv) do(t *testing.T, method, path, ip string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-Forwarded-For", ip)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

type loginResult struct {
	SessionID    string `json:"session_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func TestRegisterLoginFlow(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	creds := map[string]string{"email": "flow@example.com", "password": "correct horse battery"}

	rec := env.do(t, http.MethodPost, "/v1/register", "203.0.113.10", creds, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("duplicate registration", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/register", "203.0.113.10", creds, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	rec = env.do(t, http.MethodPost, "/v1/login", "203.0.113.10", creds, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var login loginResult
	decodeBody(t, rec, &login)
	require.Len(t, login.SessionID, 21)
	require.NotEmpty(t, login.AccessToken)
	require.NotEmpty(t, login.RefreshToken)
	require.Equal(t, "Bearer", login.TokenType)

	authz := map[string]string{"Authorization": "Bearer " + login.AccessToken}

	t.Run("session info", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/session", "203.0.113.10", nil, authz)
		require.Equal(t, http.StatusOK, rec.Code)

		var info map[string]any
		decodeBody(t, rec, &info)
		require.Equal(t, login.SessionID, info["session_id"])
	})

	t.Run("refresh rotates the pair", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/token/refresh", "203.0.113.10",
			map[string]string{"refresh_token": login.RefreshToken}, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var pair domain.TokenPair
		decodeBody(t, rec, &pair)
		require.NotEmpty(t, pair.AccessToken)
		require.NotEmpty(t, pair.RefreshToken)
	})

	t.Run("refresh with access token fails", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/token/refresh", "203.0.113.10",
			map[string]string{"refresh_token": login.AccessToken}, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("logout then session is gone", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/logout", "203.0.113.10", nil, authz)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = env.do(t, http.MethodGet, "/v1/session", "203.0.113.10", nil, authz)
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		// The refresh token is bound to the revoked session.
		rec = env.do(t, http.MethodPost, "/v1/token/refresh", "203.0.113.10",
			map[string]string{"refresh_token": login.RefreshToken}, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestLoginGenericFailureMessage(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/register", "203.0.113.20",
		map[string]string{"email": "generic@example.com", "password": "correct horse battery"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	wrongPassword := env.do(t, http.MethodPost, "/v1/login", "203.0.113.20",
		map[string]string{"email": "generic@example.com", "password": "wrong horse battery"}, nil)
	unknownEmail := env.do(t, http.MethodPost, "/v1/login", "203.0.113.21",
		map[string]string{"email": "nobody@example.com", "password": "correct horse battery"}, nil)

	require.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	require.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	require.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestLoginChallengeGate(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()
	const ip = "198.51.100.40"

	rec := env.do(t, http.MethodPost, "/v1/register", ip,
		map[string]string{"email": "gate@example.com", "password": "correct horse battery"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Seed the failure history directly so the gate state is deterministic.
	for range 2 {
		require.NoError(t, env.store.SecurityEvents().InsertEvent(ctx, domain.SecurityEvent{
			Type:      domain.EventLoginFailure,
			IPAddress: ip,
			Status:    "invalid_credentials",
			ActorID:   domain.ActorApp,
		}))
	}

	t.Run("challenge probe reports the demand", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/challenge", ip, nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Challenge *domain.Challenge `json:"challenge"`
		}
		decodeBody(t, rec, &body)
		require.NotNil(t, body.Challenge)
		require.Equal(t, 1, body.Challenge.Difficulty)
	})

	t.Run("login without proof is refused", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/login", ip,
			map[string]string{"email": "gate@example.com", "password": "correct horse battery"}, nil)
		require.Equal(t, http.StatusTooManyRequests, rec.Code)

		var body struct {
			Error     string            `json:"error"`
			Challenge *domain.Challenge `json:"challenge"`
		}
		decodeBody(t, rec, &body)
		require.Equal(t, "too_many_requests", body.Error)
		require.NotNil(t, body.Challenge)
	})

	t.Run("login with solved challenge proceeds", func(t *testing.T) {
		const nonce = "client-chosen-nonce"
		rec := env.do(t, http.MethodPost, "/v1/login", ip,
			map[string]string{"email": "gate@example.com", "password": "correct horse battery"},
			map[string]string{
				"X-Challenge-Nonce":    nonce,
				"X-Challenge-Solution": solve(t, nonce, 1),
			})
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("another address is not challenged", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/challenge", "198.51.100.41", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), `"challenge":null`)
	})
}

// solve brute-forces a proof-of-work answer for the given difficulty.
func solve(t *testing.T, nonce string, difficulty int) string {
	t.Helper()
	prefix := strings.Repeat("0", difficulty)
	for i := range 1 << 20 {
		candidate := strconv.Itoa(i)
		sum := sha256.Sum256([]byte(nonce + candidate))
		if strings.HasPrefix(hex.EncodeToString(sum[:]), prefix) {
			return candidate
		}
	}
	t.Fatal("no solution found")
	return ""
}

func TestOpsEndpoints(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	ctx := context.Background()

	// Bootstrap credentials are provisioned out of band.
	_, writerKey, err := env.agents.Provision(ctx, "ops-writer", domain.TrustWrite, "")
	require.NoError(t, err)
	_, readerKey, err := env.agents.Provision(ctx, "ops-reader", domain.TrustRead, "")
	require.NoError(t, err)

	t.Run("no key is unauthorized", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/ops/events", "192.0.2.60", nil, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "MISSING_API_KEY")
	})

	t.Run("bogus key is unauthorized", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/ops/events", "192.0.2.60", nil,
			map[string]string{"Authorization": "Bearer bogus"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "INVALID_API_KEY")
	})

	t.Run("reader can list events", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/ops/events", "192.0.2.60", nil,
			map[string]string{"Authorization": "Bearer " + readerKey})
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("reader cannot provision", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/ops/agents", "192.0.2.60",
			map[string]string{"name": "sneaky", "trust_level": "write"},
			map[string]string{"Authorization": "Bearer " + readerKey})
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("writer provisions and revokes", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/ops/agents", "192.0.2.60",
			map[string]string{"name": "new-agent", "trust_level": "read"},
			map[string]string{"Authorization": "Bearer " + writerKey})
		require.Equal(t, http.StatusCreated, rec.Code)

		var body map[string]any
		decodeBody(t, rec, &body)
		require.NotEmpty(t, body["api_key"])

		rec = env.do(t, http.MethodDelete, "/ops/agents/new-agent", "192.0.2.60", nil,
			map[string]string{"Authorization": "Bearer " + writerKey})
		require.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestSystemProbes(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/livez", "192.0.2.70", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/readyz", "192.0.2.70", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
