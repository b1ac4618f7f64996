package http

import (
	"encoding/json"
	"net/http"

	"github.com/edgekit/authcore/internal/authcore/autherr"
	"github.com/edgekit/authcore/internal/authcore/domain"
	"github.com/edgekit/authcore/pkg/httpx"
	"github.com/edgekit/authcore/pkg/slogx"
)

// Challenge headers. When the adaptive pipeline demands proof of work, the
// client retries with these set; verification is stateless, the difficulty is
// recomputed from the failure history on every attempt.
const (
	headerChallengeNonce    = "X-Challenge-Nonce"
	headerChallengeSolution = "X-Challenge-Solution"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	SessionID string `json:"session_id"`
	domain.TokenPair
}

type challengeResponse struct {
	Error     string            `json:"error,omitempty"`
	Message   string            `json:"message,omitempty"`
	Challenge *domain.Challenge `json:"challenge"`
}

func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	var body credentialsRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, autherr.Validation("Request body must be valid JSON"))
		return
	}

	account, err := r.Accounts.CreateAccount(req.Context(), body.Email, body.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	r.Events.Process(domain.SecurityEvent{
		Type:      domain.EventAccountCreated,
		UserID:    &account.ID,
		IPAddress: httpx.ClientIP(req),
		UserAgent: req.UserAgent(),
		Status:    "success",
	})

	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"id":    account.ID,
		"email": account.Email,
	})
}

// handleLogin runs the full attempt pipeline: challenge gate, authenticate,
// session create, token issue. The response claims success only after all
// three stages completed.
func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	log := slogx.FromContext(ctx)
	ip := httpx.ClientIP(req)
	userAgent := req.UserAgent()

	// Challenge gate: once recent failures from this address cross the
	// threshold, the attempt is not allowed to proceed without proof of work.
	if ch := r.Events.ComputeChallenge(ctx, ip); ch != nil {
		nonce := req.Header.Get(headerChallengeNonce)
		solution := req.Header.Get(headerChallengeSolution)
		if nonce == "" || !r.Events.VerifySolution(nonce, solution, ch.Difficulty) {
			e := autherr.TooManyRequests()
			httpx.WriteJSON(w, e.Status, challengeResponse{
				Error:     e.Code,
				Message:   e.Message,
				Challenge: ch,
			})
			return
		}
	}

	var body credentialsRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, autherr.Validation("Request body must be valid JSON"))
		return
	}

	userID, err := r.Accounts.Authenticate(ctx, body.Email, body.Password)
	if err != nil {
		r.Events.Process(domain.SecurityEvent{
			Type:      domain.EventLoginFailure,
			IPAddress: ip,
			UserAgent: userAgent,
			Status:    autherr.CodeOf(err),
		})
		writeError(w, err)
		return
	}

	session, err := r.SessionsSvc.Create(ctx, userID, userAgent, ip)
	if err != nil {
		log.Error("session creation failed after successful authentication", "error", err)
		writeError(w, autherr.Internal("Login failed"))
		return
	}

	pair, err := r.Tokens.Issue(userID, session.ID)
	if err != nil {
		// Never claim success with a half-completed sequence: drop the
		// session we just created before reporting failure.
		if revokeErr := r.SessionsSvc.Revoke(ctx, session.ID); revokeErr != nil {
			log.Error("session rollback failed", "session_id", session.ID, "error", revokeErr)
		}
		log.Error("token issuance failed", "error", err)
		writeError(w, autherr.Internal("Login failed"))
		return
	}

	r.Events.Process(domain.SecurityEvent{
		Type:      domain.EventLoginSuccess,
		UserID:    &userID,
		IPAddress: ip,
		UserAgent: userAgent,
		Status:    "success",
		Detail:    map[string]any{"session_id": session.ID},
	})

	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		SessionID: session.ID,
		TokenPair: pair,
	})
}

// handleChallenge lets a client ask, before attempting a login, whether its
// address currently requires proof of work.
func (r *Router) handleChallenge(w http.ResponseWriter, req *http.Request) {
	ch := r.Events.ComputeChallenge(req.Context(), httpx.ClientIP(req))
	httpx.WriteJSON(w, http.StatusOK, challengeResponse{Challenge: ch})
}
