package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Store persists the anonymous principal and its session token between runs.
type Store interface {
	GetPrincipal() (string, error)
	SavePrincipal(principalID string) error
	GetSessionToken() (string, error)
	SaveSessionToken(token string) error
}

// Provider hands out the anonymous principal for this installation.
type Provider struct {
	store  Store
	secret string
}

// NewProvider creates an identity provider. The secret signs session tokens.
func NewProvider(store Store, secret string) *Provider {
	return &Provider{store: store, secret: secret}
}

// GetOrCreateAnonymousPrincipal returns the principal id for this
// installation, creating one on first use. It requires no prior credentials
// and never prompts.
func (p *Provider) GetOrCreateAnonymousPrincipal(ctx context.Context) (string, error) {
	principalID, err := p.store.GetPrincipal()
	if err != nil {
		return "", fmt.Errorf("failed to load principal: %w", err)
	}
	if principalID != "" {
		return principalID, nil
	}

	principalID = uuid.NewString()
	if err := p.store.SavePrincipal(principalID); err != nil {
		return "", fmt.Errorf("failed to save principal: %w", err)
	}

	log.Info().Str("principalID", principalID).Msg("created anonymous principal")
	return principalID, nil
}

// EstablishSession returns validated session claims for this installation.
// A cached token is reused while it verifies; otherwise the principal is
// resolved (created on first use) and a fresh token is issued and cached.
func (p *Provider) EstablishSession(ctx context.Context) (*Claims, error) {
	cached, err := p.store.GetSessionToken()
	if err != nil {
		return nil, fmt.Errorf("failed to load session token: %w", err)
	}
	if cached != "" {
		claims, err := p.ValidateToken(cached)
		if err == nil {
			return claims, nil
		}
		log.Warn().Err(err).Msg("cached session token rejected, issuing a new one")
	}

	principalID, err := p.GetOrCreateAnonymousPrincipal(ctx)
	if err != nil {
		return nil, err
	}

	signed, err := p.IssueToken(principalID)
	if err != nil {
		return nil, err
	}
	if err := p.store.SaveSessionToken(signed); err != nil {
		return nil, fmt.Errorf("failed to cache session token: %w", err)
	}

	return p.ValidateToken(signed)
}
