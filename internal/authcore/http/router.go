// Package http carries the thin transport layer over the authentication
// core: request decoding, response shaping and the agent-key gate for /ops.
// All decisions live in the service layer.
package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/edgekit/authcore/internal/authcore/autherr"
	"github.com/edgekit/authcore/internal/authcore/service"
	"github.com/edgekit/authcore/internal/authcore/store"
	"github.com/edgekit/authcore/pkg/httpx"
	"github.com/edgekit/authcore/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	logger *slog.Logger
	store  store.Store

	Accounts    *service.AccountService
	SessionsSvc *service.SessionService
	Tokens      *service.TokenService
	Events      *service.EventService
	Agents      *service.AgentService
}

func NewRouter(st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:    http.NewServeMux(),
		logger: logger,
		store:  st,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerSessions()
	r.registerOps()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	strict := httpx.RateLimitMiddleware(httpx.StrictLimit)

	r.Mux.Handle("POST /v1/register", strict(http.HandlerFunc(r.handleRegister)))
	r.Mux.Handle("POST /v1/login", strict(http.HandlerFunc(r.handleLogin)))
	r.Mux.HandleFunc("POST /v1/token/refresh", r.handleRefresh)
	r.Mux.HandleFunc("GET /v1/challenge", r.handleChallenge)
}

func (r *Router) registerSessions() {
	r.Mux.HandleFunc("GET /v1/session", r.handleSessionInfo)
	r.Mux.HandleFunc("POST /v1/logout", r.handleLogout)
	r.Mux.HandleFunc("POST /v1/logout_all", r.handleLogoutAll)
}

func (r *Router) registerOps() {
	r.Mux.HandleFunc("GET /ops/events", r.requireAgentKey(r.handleListEvents, false))
	r.Mux.HandleFunc("POST /ops/agents", r.requireAgentKey(r.handleProvisionAgent, true))
	r.Mux.HandleFunc("DELETE /ops/agents/{name}", r.requireAgentKey(r.handleRevokeAgent, true))
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeError maps taxonomy errors onto their severity tier; anything untagged
// becomes an opaque 500.
func writeError(w http.ResponseWriter, err error) {
	var e *autherr.Error
	if errors.As(err, &e) {
		httpx.WriteJSON(w, e.Status, errorResponse{Error: e.Code, Message: e.Message})
		return
	}
	httpx.WriteJSON(w, http.StatusInternalServerError, errorResponse{
		Error:   "internal",
		Message: "Internal error",
	})
}
