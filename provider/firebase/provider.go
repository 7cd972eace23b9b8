package firebase

import (
	"context"
	"strings"

	bridge "github.com/goliatone/go-auth-bridge"
)

// Name is the registry key of this provider.
const Name = bridge.ProviderFirebase

// Provider authenticates Firebase ID tokens for a single project.
type Provider struct {
	projectID string
	verifier  *Verifier
	mapper    ClaimsMapper
	logger    bridge.Logger
}

// New creates a provider. ProjectID is required.
func New(cfg Config) (*Provider, error) {
	cfg.ProjectID = strings.TrimSpace(cfg.ProjectID)
	if cfg.ProjectID == "" {
		return nil, bridge.ConfigError("firebase: project_id is required")
	}

	verifier, err := NewVerifier(cfg)
	if err != nil {
		return nil, err
	}

	mapper := cfg.ClaimsMapper
	if mapper == nil {
		mapper = &FirebaseClaimsMapper{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = bridge.NopLogger()
	}

	return &Provider{
		projectID: cfg.ProjectID,
		verifier:  verifier,
		mapper:    mapper,
		logger:    logger,
	}, nil
}

// Authenticate implements bridge.Provider. Context headers are not used by
// this provider.
func (p *Provider) Authenticate(ctx context.Context, token string, _ map[string]string) (*bridge.Payload, error) {
	claims, err := p.verifier.Verify(ctx, token, p.projectID)
	if err != nil {
		p.logger.Debug("firebase token rejected: %s", err)
		return nil, err
	}

	return p.mapper.Map(ctx, claims)
}

// CacheKeyPrefix implements bridge.Provider.
func (p *Provider) CacheKeyPrefix() string {
	return "firebase:" + p.projectID
}

// ProjectID returns the configured project.
func (p *Provider) ProjectID() string {
	return p.projectID
}

var _ bridge.Provider = (*Provider)(nil)
