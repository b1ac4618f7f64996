package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/edgekit/authcore/internal/authcore/autherr"
	"github.com/edgekit/authcore/internal/authcore/domain"
	"github.com/edgekit/authcore/internal/authcore/service"
	"github.com/edgekit/authcore/pkg/httpx"
)

type principalKey struct{}

// principalFrom returns the authenticated agent principal, if any.
func principalFrom(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(domain.Principal)
	return p, ok
}

// requireAgentKey gates /ops handlers behind agent credential authentication.
// With needsWrite set, a read-trust principal is rejected after
// authenticating (so the failure is attributed, not logged as an auth event).
func (r *Router) requireAgentKey(next http.HandlerFunc, needsWrite bool) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()

		principal, err := r.Agents.Authenticate(ctx, bearerToken(req), service.RequestMeta{
			IPAddress: httpx.ClientIP(req),
			UserAgent: req.UserAgent(),
		})
		if err != nil {
			writeError(w, err)
			return
		}

		if needsWrite && !principal.CanWrite() {
			httpx.WriteJSON(w, http.StatusForbidden, errorResponse{
				Error:   "insufficient_trust",
				Message: "Write trust level required",
			})
			return
		}

		ctx = context.WithValue(ctx, principalKey{}, principal)
		next(w, req.WithContext(ctx))
	}
}

func (r *Router) handleListEvents(w http.ResponseWriter, req *http.Request) {
	limit := 100
	if v := req.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	events, err := r.store.SecurityEvents().ListRecentEvents(req.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

type provisionAgentRequest struct {
	Name        string `json:"name"`
	TrustLevel  string `json:"trust_level"`
	Description string `json:"description"`
}

func (r *Router) handleProvisionAgent(w http.ResponseWriter, req *http.Request) {
	var body provisionAgentRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, autherr.Validation("Request body must be valid JSON"))
		return
	}

	agent, secret, err := r.Agents.Provision(req.Context(), body.Name, body.TrustLevel, body.Description)
	if err != nil {
		writeError(w, err)
		return
	}

	// The raw secret appears in this response and nowhere else.
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"id":          agent.ID,
		"name":        agent.Name,
		"trust_level": agent.TrustLevel,
		"api_key":     secret,
	})
}

func (r *Router) handleRevokeAgent(w http.ResponseWriter, req *http.Request) {
	name := req.PathValue("name")
	if name == "" {
		writeError(w, autherr.Validation("Agent name is required"))
		return
	}

	if err := r.Agents.Revoke(req.Context(), name); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
