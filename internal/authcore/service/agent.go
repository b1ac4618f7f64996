package service

import (
	"context"
	"errors"

	"github.com/edgekit/authcore/internal/authcore/autherr"
	"github.com/edgekit/authcore/internal/authcore/domain"
	"github.com/edgekit/authcore/internal/authcore/store"
	"github.com/edgekit/authcore/pkg/cryptox"
)

// AgentService authenticates and provisions the named non-human credentials
// used for /ops access.
type AgentService struct {
	Store  store.Store
	Events *EventService
}

// RequestMeta carries the transport attributes recorded on failure events.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// Authenticate resolves a presented bearer secret to an active credential.
// Success attaches no event: legitimate agents call at high frequency and
// would flood the log. Every failure emits exactly one agent.auth_failure
// event carrying the failure code.
func (s *AgentService) Authenticate(ctx context.Context, bearer string, meta RequestMeta) (domain.Principal, error) {
	if bearer == "" {
		s.emitFailure(autherr.CodeMissingAPIKey, meta)
		return domain.Principal{}, autherr.MissingAPIKey()
	}

	agent, err := s.Store.AgentCredentials().GetActiveAgentByKeyHash(ctx, cryptox.Fingerprint(bearer))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.emitFailure(autherr.CodeInvalidAPIKey, meta)
			return domain.Principal{}, autherr.InvalidAPIKey()
		}
		s.emitFailure(autherr.CodeLookupFailed, meta)
		return domain.Principal{}, autherr.LookupFailed()
	}

	return domain.Principal{
		ID:         agent.ID,
		Name:       agent.Name,
		TrustLevel: agent.TrustLevel,
	}, nil
}

// Provision creates a credential with a fresh high-entropy secret and returns
// the raw secret exactly once; only its hash is stored.
func (s *AgentService) Provision(ctx context.Context, name, trustLevel, description string) (domain.AgentCredential, string, error) {
	if name == "" {
		return domain.AgentCredential{}, "", autherr.Validation("Agent name is required")
	}
	if trustLevel != domain.TrustRead && trustLevel != domain.TrustWrite {
		return domain.AgentCredential{}, "", autherr.Validation("Trust level must be read or write")
	}

	secret, err := cryptox.GenerateSecret(cryptox.SecretSize256)
	if err != nil {
		return domain.AgentCredential{}, "", err
	}

	agent, err := s.Store.AgentCredentials().CreateAgentCredential(ctx, domain.AgentCredential{
		Name:        name,
		KeyHash:     cryptox.Fingerprint(secret),
		TrustLevel:  trustLevel,
		Description: description,
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.AgentCredential{}, "", autherr.Validation("An active agent with this name already exists")
		}
		return domain.AgentCredential{}, "", err
	}

	return agent, secret, nil
}

// Revoke soft-revokes a credential by name.
func (s *AgentService) Revoke(ctx context.Context, name string) error {
	if err := s.Store.AgentCredentials().RevokeAgentCredential(ctx, name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return autherr.Validation("No active agent with this name")
		}
		return err
	}
	return nil
}

func (s *AgentService) emitFailure(code string, meta RequestMeta) {
	if s.Events == nil {
		return
	}
	s.Events.Process(domain.SecurityEvent{
		Type:      domain.EventAgentAuthFailure,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Status:    "failure",
		Detail:    map[string]any{"code": code},
		ActorID:   domain.ActorApp,
	})
}
