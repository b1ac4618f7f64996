package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/edgekit/authcore/internal/authcore/autherr"
	"github.com/edgekit/authcore/pkg/httpx"
	"github.com/edgekit/authcore/pkg/jwtx"
)

// bearerToken extracts the bearer credential from the Authorization header,
// or "" when absent.
func bearerToken(req *http.Request) string {
	authz := req.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))
}

// accessClaims verifies the caller's access token and returns its claims.
func (r *Router) accessClaims(req *http.Request) (jwtx.Claims, error) {
	token := bearerToken(req)
	if token == "" {
		return jwtx.Claims{}, autherr.TokenMalformed()
	}
	return r.Tokens.Verify(token, jwtx.TypeAccess)
}

func (r *Router) handleSessionInfo(w http.ResponseWriter, req *http.Request) {
	claims, err := r.accessClaims(req)
	if err != nil {
		writeError(w, err)
		return
	}

	session, err := r.SessionsSvc.Validate(req.Context(), claims.SID)
	if err != nil {
		writeError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"session_id": session.ID,
		"user_id":    session.UserID,
		"user_agent": session.UserAgent,
		"ip_address": session.IPAddress,
		"created_at": session.CreatedAt,
		"expires_at": session.ExpiresAt,
	})
}

func (r *Router) handleLogout(w http.ResponseWriter, req *http.Request) {
	claims, err := r.accessClaims(req)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := r.SessionsSvc.Revoke(req.Context(), claims.SID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) handleLogoutAll(w http.ResponseWriter, req *http.Request) {
	claims, err := r.accessClaims(req)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := r.SessionsSvc.RevokeAll(req.Context(), claims.UID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (r *Router) handleRefresh(w http.ResponseWriter, req *http.Request) {
	var body refreshRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil || body.RefreshToken == "" {
		writeError(w, autherr.Validation("refresh_token is required"))
		return
	}

	pair, err := r.Tokens.Rotate(req.Context(), body.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, pair)
}
