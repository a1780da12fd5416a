package auth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/GoAuthBridge/GoAuthBridge/internal/config"
	"github.com/GoAuthBridge/GoAuthBridge/internal/db/models"
	"github.com/GoAuthBridge/GoAuthBridge/internal/db/store"
)

// ProviderInfo is the discovery record for one configured provider. It never
// carries secrets.
type ProviderInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	DisplayName string `json:"display_name"`
	Enabled     bool   `json:"enabled"`
	Priority    int    `json:"priority"`
}

// Manager owns the configured provider instances and dispatches
// authentication calls by provider name. All methods are safe for concurrent
// use: the provider set is immutable after New.
type Manager struct {
	store     store.Identity
	providers map[string]Provider
	// order preserves configuration order for stable priority-tie listing.
	order []string
	// configs keeps the raw configuration for redacted introspection.
	configs map[string]*config.Provider

	mu sync.RWMutex
}

// NewManager builds provider instances from the configuration. A broken
// enabled provider block aborts startup rather than silently dropping the
// backend. Disabled blocks are registered for introspection but never
// constructed, so a half-configured parked block cannot block boot.
func NewManager(cfgs []config.Provider, st store.Identity, baseURL string) (*Manager, error) {
	m := &Manager{
		store:     st,
		providers: make(map[string]Provider, len(cfgs)),
		configs:   make(map[string]*config.Provider, len(cfgs)),
	}

	for i := range cfgs {
		cfg := &cfgs[i]

		if _, exists := m.configs[cfg.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate provider name %q", ErrInvalidProviderConfig, cfg.Name)
		}

		m.configs[cfg.Name] = cfg
		m.order = append(m.order, cfg.Name)

		if !cfg.Enabled {
			log.Info().
				Str("provider", cfg.Name).
				Str("type", cfg.Type).
				Msg("skipping disabled authentication provider")

			continue
		}

		provider, err := buildProvider(cfg, st, baseURL)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", cfg.Name, err)
		}

		m.providers[cfg.Name] = provider

		log.Info().
			Str("provider", cfg.Name).
			Str("type", cfg.Type).
			Msg("registered authentication provider")
	}

	return m, nil
}

// buildProvider constructs the backend matching the configured type.
func buildProvider(cfg *config.Provider, st store.Identity, baseURL string) (Provider, error) {
	switch cfg.Type {
	case config.ProviderTypeLocal:
		return NewLocalProvider(cfg, st)
	case config.ProviderTypeLDAP:
		return NewLDAPProvider(cfg, st)
	case config.ProviderTypeSAML:
		return NewSAMLProvider(cfg, st, baseURL)
	case config.ProviderTypeOAuth:
		return NewOAuthProvider(cfg, st)
	case config.ProviderTypeOIDC:
		return NewOIDCProvider(cfg, st)
	default:
		return nil, fmt.Errorf("%w: unknown provider type %q", ErrInvalidProviderConfig, cfg.Type)
	}
}

// provider resolves a name to an enabled provider instance.
func (m *Manager) provider(name string) (Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.providers[name]
	if !ok {
		if _, known := m.configs[name]; known {
			return nil, ErrProviderDisabled
		}

		return nil, ErrProviderNotConfigured
	}

	if !p.Enabled() {
		return nil, ErrProviderDisabled
	}

	return p, nil
}

// Provider returns the named provider when it exists and is enabled. Callers
// needing flow-specific behaviour (OAuth redirect URLs, SAML metadata) type
// assert the result.
func (m *Manager) Provider(name string) (Provider, error) {
	return m.provider(name)
}

// Authenticate verifies credentials against the named provider and returns
// the reconciled local user. Backend failures are collapsed into
// ErrAuthenticationFailed with the cause logged, so callers can surface one
// generic message without leaking protocol detail.
func (m *Manager) Authenticate(ctx context.Context, providerName string, creds Credentials) (*models.User, AdditionalData, error) {
	p, err := m.provider(providerName)
	if err != nil {
		return nil, nil, err
	}

	user, data, err := p.Authenticate(ctx, creds)
	if err != nil {
		log.Warn().
			Err(err).
			Str("provider", providerName).
			Msg("authentication attempt failed")

		if errors.Is(err, ErrAuthenticationFailed) || errors.Is(err, ErrMalformedCredentials) {
			return nil, nil, err
		}

		return nil, nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}

	log.Info().
		Str("provider", providerName).
		Str("username", user.Username).
		Msg("user authenticated")

	return user, data, nil
}

// GetUserInfo returns the provider-neutral profile of a local user as seen
// through the named provider.
func (m *Manager) GetUserInfo(ctx context.Context, providerName string, userID uint64) (map[string]any, error) {
	p, err := m.provider(providerName)
	if err != nil {
		return nil, err
	}

	return p.GetUserInfo(ctx, userID)
}

// SyncUserGroups maps raw backend groups through the named provider. A
// backend sync failure degrades to an empty membership list instead of
// failing the login that triggered it; the cause is logged.
func (m *Manager) SyncUserGroups(ctx context.Context, providerName string, user *models.User, rawGroups []string) ([]string, error) {
	p, err := m.provider(providerName)
	if err != nil {
		return nil, err
	}

	groups, err := p.SyncUserGroups(ctx, user, rawGroups)
	if err != nil {
		log.Error().
			Err(err).
			Str("provider", providerName).
			Str("username", user.Username).
			Msg("group synchronization failed, continuing with empty membership")

		return []string{}, nil
	}

	return groups, nil
}

// ValidateToken checks a bearer token against the named provider.
func (m *Manager) ValidateToken(ctx context.Context, providerName, token string) (TokenValidation, error) {
	p, err := m.provider(providerName)
	if err != nil {
		return TokenValidation{}, err
	}

	return p.ValidateToken(ctx, token), nil
}

// ListProviders returns discovery records for every enabled provider, sorted
// by priority descending. Equal priorities keep configuration order.
func (m *Manager) ListProviders() []ProviderInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]ProviderInfo, 0, len(m.order))

	for _, name := range m.order {
		p, ok := m.providers[name]
		if !ok || !p.Enabled() {
			continue
		}

		infos = append(infos, ProviderInfo{
			Name:        p.Name(),
			Type:        string(p.Type()),
			DisplayName: p.DisplayName(),
			Enabled:     true,
			Priority:    p.Priority(),
		})
	}

	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].Priority > infos[j].Priority
	})

	return infos
}

// GetProviderConfig returns the named provider's configuration with all
// secret fields replaced by the redaction sentinel. Disabled providers are
// still inspectable.
func (m *Manager) GetProviderConfig(name string) (*config.Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cfg, ok := m.configs[name]
	if !ok {
		return nil, ErrProviderNotConfigured
	}

	redacted := cfg.Redacted()

	return &redacted, nil
}
