package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/GoAuthBridge/GoAuthBridge/internal/config"
	"github.com/GoAuthBridge/GoAuthBridge/internal/db/models"
	"github.com/GoAuthBridge/GoAuthBridge/internal/db/store"
)

// OIDCProvider implements OpenID Connect with endpoint discovery. Identity
// comes from the verified ID token; the userinfo endpoint is only used for
// token validation.
type OIDCProvider struct {
	cfg        *config.Provider
	reconciler *reconciler
	store      store.Identity

	// Discovery talks to the issuer, so it runs on first use rather than
	// at construction. A temporarily unreachable IdP must not prevent the
	// service from starting, and a failed attempt is retried on the next
	// call rather than cached.
	mu       sync.Mutex
	ready    bool
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
	oauth2   oauth2.Config
}

// NewOIDCProvider validates the issuer parameters. Discovery is deferred to
// the first authentication call.
func NewOIDCProvider(cfg *config.Provider, st store.Identity) (*OIDCProvider, error) {
	params := &cfg.OAuth

	if params.ProviderURL == "" {
		return nil, fmt.Errorf("%w: oidc provider url is required", ErrInvalidProviderConfig)
	}

	if params.ClientID == "" || params.ClientSecret == "" {
		return nil, fmt.Errorf("%w: oidc client id and secret are required", ErrInvalidProviderConfig)
	}

	return &OIDCProvider{
		cfg:        cfg,
		reconciler: newReconciler(st, cfg, models.AuthSourceOIDC),
		store:      st,
	}, nil
}

// init performs issuer discovery and builds the verifier and OAuth2 config.
// Only a successful discovery is cached.
func (p *OIDCProvider) init(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ready {
		return nil
	}

	provider, err := oidc.NewProvider(ctx, p.cfg.OAuth.ProviderURL)
	if err != nil {
		return fmt.Errorf("oidc discovery failed: %w", err)
	}

	scopes := p.cfg.OAuth.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, "profile", "email"}
	}

	p.provider = provider
	p.verifier = provider.Verifier(&oidc.Config{ClientID: p.cfg.OAuth.ClientID})
	p.oauth2 = oauth2.Config{
		ClientID:     p.cfg.OAuth.ClientID,
		ClientSecret: p.cfg.OAuth.ClientSecret,
		RedirectURL:  p.cfg.OAuth.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       scopes,
	}
	p.ready = true

	return nil
}

// Name returns the configured provider name.
func (p *OIDCProvider) Name() string { return p.cfg.Name }

// Type returns the OIDC auth source.
func (p *OIDCProvider) Type() models.AuthSource { return models.AuthSourceOIDC }

// Enabled reports whether the provider accepts logins.
func (p *OIDCProvider) Enabled() bool { return p.cfg.Enabled }

// Priority returns the discovery ordering weight.
func (p *OIDCProvider) Priority() int { return p.cfg.Priority }

// DisplayName returns the label shown on login pages.
func (p *OIDCProvider) DisplayName() string {
	if p.cfg.DisplayName != "" {
		return p.cfg.DisplayName
	}

	return p.cfg.Name
}

// LoginURL builds the authorization endpoint redirect carrying the CSRF
// state token.
func (p *OIDCProvider) LoginURL(ctx context.Context, state string) (string, error) {
	if err := p.init(ctx); err != nil {
		return "", err
	}

	return p.oauth2.AuthCodeURL(state), nil
}

// Authenticate exchanges the authorization code, verifies the ID token
// signature and claims, and reconciles the identity into a local user.
func (p *OIDCProvider) Authenticate(ctx context.Context, creds Credentials) (*models.User, AdditionalData, error) {
	if creds.Code == "" {
		return nil, nil, fmt.Errorf("%w: authorization code is required", ErrMalformedCredentials)
	}

	if err := p.init(ctx); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}

	token, err := p.oauth2.Exchange(ctx, creds.Code)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: code exchange failed: %v", ErrAuthenticationFailed, err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, nil, fmt.Errorf("%w: token response carries no id token", ErrAuthenticationFailed)
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: id token verification failed: %v", ErrAuthenticationFailed, err)
	}

	var claims struct {
		Sub           string   `json:"sub"`
		Email         string   `json:"email"`
		EmailVerified bool     `json:"email_verified"`
		PreferredName string   `json:"preferred_username"`
		GivenName     string   `json:"given_name"`
		FamilyName    string   `json:"family_name"`
		Groups        []string `json:"groups"`
	}

	if err = idToken.Claims(&claims); err != nil {
		return nil, nil, fmt.Errorf("%w: failed to parse claims: %v", ErrAuthenticationFailed, err)
	}

	ident := &externalIdentity{
		ExternalID:    claims.Sub,
		Username:      claims.PreferredName,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		FirstName:     claims.GivenName,
		LastName:      claims.FamilyName,
	}

	user, err := p.reconciler.getOrCreateUser(ctx, ident)
	if err != nil {
		return nil, nil, err
	}

	data := AdditionalData{
		"groups":       p.groupsFromToken(idToken, claims.Groups),
		"access_token": token.AccessToken,
		"id_token":     rawIDToken,
	}

	return user, data, nil
}

// groupsFromToken reads groups from the configured claim, defaulting to the
// standard "groups" claim already decoded by the caller.
func (p *OIDCProvider) groupsFromToken(idToken *oidc.IDToken, defaultGroups []string) []string {
	gc := p.cfg.OAuth.GroupsClaim
	if gc == "" || gc == "groups" {
		return defaultGroups
	}

	var allClaims map[string]any
	if err := idToken.Claims(&allClaims); err != nil {
		return defaultGroups
	}

	v, ok := allClaims[gc]
	if !ok {
		return defaultGroups
	}

	arr, ok := v.([]any)
	if !ok {
		return defaultGroups
	}

	groups := make([]string, 0, len(arr))

	for _, g := range arr {
		if s, ok := g.(string); ok {
			groups = append(groups, s)
		}
	}

	return groups
}

// GetUserInfo returns the local profile of a user provisioned by this
// provider.
func (p *OIDCProvider) GetUserInfo(ctx context.Context, userID uint64) (map[string]any, error) {
	user, err := lookupUser(ctx, p.store, userID)
	if err != nil {
		return nil, err
	}

	return userProfile(user, p.cfg.Name, models.AuthSourceOIDC), nil
}

// SyncUserGroups maps ID token group claims onto local groups.
func (p *OIDCProvider) SyncUserGroups(ctx context.Context, user *models.User, rawGroups []string) ([]string, error) {
	return p.reconciler.mapGroupsAndRoles(ctx, user, rawGroups)
}

// ValidateToken verifies an ID token's signature and expiry against the
// issuer keys.
func (p *OIDCProvider) ValidateToken(ctx context.Context, token string) TokenValidation {
	if token == "" {
		return TokenValidation{Detail: "empty token"}
	}

	if err := p.init(ctx); err != nil {
		return TokenValidation{Detail: err.Error()}
	}

	idToken, err := p.verifier.Verify(ctx, token)
	if err != nil {
		return TokenValidation{Detail: fmt.Sprintf("id token verification failed: %v", err)}
	}

	return TokenValidation{
		Valid:     true,
		ExpiresIn: int64(time.Until(idToken.Expiry).Seconds()),
		Subject:   idToken.Subject,
	}
}
