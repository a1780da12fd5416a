package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/GoAuthBridge/GoAuthBridge/internal/config"
	"github.com/GoAuthBridge/GoAuthBridge/internal/db/models"
	"github.com/GoAuthBridge/GoAuthBridge/internal/db/store"
)

const defaultOAuthTimeout = 15

// OAuthProvider implements the OAuth2 authorization code flow against a
// generic provider or a well-known vendor preset (Google, Microsoft,
// GitHub). Identity comes from the userinfo endpoint; there is no ID token.
type OAuthProvider struct {
	cfg         *config.Provider
	oauthConfig *oauth2.Config
	userinfoURL string
	preset      vendorPreset
	httpClient  *http.Client
	reconciler  *reconciler
	store       store.Identity
}

// NewOAuthProvider resolves the vendor preset (or the generic endpoints) and
// validates that the client credentials are present.
func NewOAuthProvider(cfg *config.Provider, st store.Identity) (*OAuthProvider, error) {
	params := &cfg.OAuth

	if params.ClientID == "" || params.ClientSecret == "" {
		return nil, fmt.Errorf("%w: oauth client id and secret are required", ErrInvalidProviderConfig)
	}

	preset, err := resolvePreset(params)
	if err != nil {
		return nil, err
	}

	scopes := params.Scopes
	if len(scopes) == 0 {
		scopes = preset.Scopes
	}

	timeout := params.Timeout
	if timeout == 0 {
		timeout = defaultOAuthTimeout
	}

	return &OAuthProvider{
		cfg: cfg,
		oauthConfig: &oauth2.Config{
			ClientID:     params.ClientID,
			ClientSecret: params.ClientSecret,
			Endpoint:     preset.Endpoint,
			RedirectURL:  params.RedirectURL,
			Scopes:       scopes,
		},
		userinfoURL: preset.UserinfoURL,
		preset:      preset,
		httpClient:  &http.Client{Timeout: time.Duration(timeout) * time.Second},
		reconciler:  newReconciler(st, cfg, models.AuthSourceOAuth),
		store:       st,
	}, nil
}

// resolvePreset picks the vendor preset or builds one from the generic
// endpoint parameters.
func resolvePreset(params *config.OAuthParams) (vendorPreset, error) {
	if params.Vendor != "" {
		preset, ok := vendorPresets[params.Vendor]
		if !ok {
			return vendorPreset{}, fmt.Errorf("%w: unknown oauth vendor %q", ErrInvalidProviderConfig, params.Vendor)
		}

		return preset, nil
	}

	if params.AuthURL == "" || params.TokenURL == "" || params.UserinfoURL == "" {
		return vendorPreset{}, fmt.Errorf(
			"%w: generic oauth needs auth url, token url and userinfo url", ErrInvalidProviderConfig)
	}

	return vendorPreset{
		Endpoint: oauth2.Endpoint{
			AuthURL:  params.AuthURL,
			TokenURL: params.TokenURL,
		},
		UserinfoURL:   params.UserinfoURL,
		IDAttr:        "sub",
		UsernameAttr:  "preferred_username",
		EmailAttr:     "email",
		FirstNameAttr: "given_name",
		LastNameAttr:  "family_name",
		GroupsAttr:    params.GroupsClaim,
	}, nil
}

// Name returns the configured provider name.
func (p *OAuthProvider) Name() string { return p.cfg.Name }

// Type returns the OAuth auth source.
func (p *OAuthProvider) Type() models.AuthSource { return models.AuthSourceOAuth }

// Enabled reports whether the provider accepts logins.
func (p *OAuthProvider) Enabled() bool { return p.cfg.Enabled }

// Priority returns the discovery ordering weight.
func (p *OAuthProvider) Priority() int { return p.cfg.Priority }

// DisplayName returns the label shown on login pages.
func (p *OAuthProvider) DisplayName() string {
	if p.cfg.DisplayName != "" {
		return p.cfg.DisplayName
	}

	return p.cfg.Name
}

// LoginURL builds the authorization endpoint redirect carrying the CSRF
// state token.
func (p *OAuthProvider) LoginURL(state string) string {
	return p.oauthConfig.AuthCodeURL(state)
}

// Authenticate exchanges the authorization code, fetches the userinfo
// document and reconciles it into a local user. The access token and raw
// groups are returned as additional data.
func (p *OAuthProvider) Authenticate(ctx context.Context, creds Credentials) (*models.User, AdditionalData, error) {
	if creds.Code == "" {
		return nil, nil, fmt.Errorf("%w: authorization code is required", ErrMalformedCredentials)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	token, err := p.oauthConfig.Exchange(ctx, creds.Code)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: code exchange failed: %v", ErrAuthenticationFailed, err)
	}

	if token.AccessToken == "" {
		return nil, nil, fmt.Errorf("%w: token response carries no access token", ErrAuthenticationFailed)
	}

	userinfo, err := p.fetchUserinfo(ctx, token.AccessToken)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}

	ident, groups := p.extractIdentity(userinfo)

	if ident.ExternalID == "" {
		return nil, nil, fmt.Errorf("%w: userinfo carries no subject identifier", ErrAuthenticationFailed)
	}

	user, err := p.reconciler.getOrCreateUser(ctx, ident)
	if err != nil {
		return nil, nil, err
	}

	data := AdditionalData{
		"groups":       groups,
		"access_token": token.AccessToken,
	}

	return user, data, nil
}

// fetchUserinfo performs an authenticated GET against the userinfo endpoint.
func (p *OAuthProvider) fetchUserinfo(ctx context.Context, accessToken string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userinfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build userinfo request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return nil, fmt.Errorf("userinfo returned status %d: %s", resp.StatusCode, string(body))
	}

	var userinfo map[string]any
	if err = json.NewDecoder(resp.Body).Decode(&userinfo); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo: %w", err)
	}

	return userinfo, nil
}

// extractIdentity maps the userinfo payload onto an external identity using
// the vendor preset attributes, overridable per field via AttributeMapping.
func (p *OAuthProvider) extractIdentity(userinfo map[string]any) (*externalIdentity, []string) {
	attr := func(field, fallback string) string {
		if mapped, ok := p.cfg.AttributeMapping[field]; ok && mapped != "" {
			return mapped
		}

		return fallback
	}

	ident := &externalIdentity{
		ExternalID: getStringValue(userinfo, attr("external_id", p.preset.IDAttr)),
		Username:   getStringValue(userinfo, attr("username", p.preset.UsernameAttr)),
		Email:      getStringValue(userinfo, attr("email", p.preset.EmailAttr)),
		FirstName:  getStringValue(userinfo, attr("first_name", p.preset.FirstNameAttr)),
		LastName:   getStringValue(userinfo, attr("last_name", p.preset.LastNameAttr)),
	}

	groupsAttr := attr("groups", p.preset.GroupsAttr)
	if groupsAttr == "" {
		groupsAttr = p.cfg.OAuth.GroupsClaim
	}

	return ident, getArrayValue(userinfo, groupsAttr)
}

// GetUserInfo returns the local profile of a user provisioned by this
// provider. The upstream userinfo endpoint is not queried; access tokens are
// not retained after login.
func (p *OAuthProvider) GetUserInfo(ctx context.Context, userID uint64) (map[string]any, error) {
	user, err := lookupUser(ctx, p.store, userID)
	if err != nil {
		return nil, err
	}

	return userProfile(user, p.cfg.Name, models.AuthSourceOAuth), nil
}

// SyncUserGroups maps userinfo group values onto local groups.
func (p *OAuthProvider) SyncUserGroups(ctx context.Context, user *models.User, rawGroups []string) ([]string, error) {
	return p.reconciler.mapGroupsAndRoles(ctx, user, rawGroups)
}

// ValidateToken calls the userinfo endpoint with the bearer token; a 200
// response means the token is still accepted upstream.
func (p *OAuthProvider) ValidateToken(ctx context.Context, token string) TokenValidation {
	if token == "" {
		return TokenValidation{Detail: "empty token"}
	}

	userinfo, err := p.fetchUserinfo(ctx, token)
	if err != nil {
		return TokenValidation{Detail: err.Error()}
	}

	return TokenValidation{
		Valid:   true,
		Subject: getStringValue(userinfo, p.preset.IDAttr),
	}
}

// getStringValue pulls a string attribute out of a userinfo payload.
// Numeric identifiers (GitHub's id) are rendered in decimal.
func getStringValue(data map[string]any, key string) string {
	if key == "" {
		return ""
	}

	switch v := data[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// getArrayValue pulls a string array attribute out of a userinfo payload.
// Non-string elements are skipped.
func getArrayValue(data map[string]any, key string) []string {
	if key == "" {
		return nil
	}

	arr, ok := data[key].([]any)
	if !ok {
		return nil
	}

	result := make([]string, 0, len(arr))

	for _, item := range arr {
		if str, ok := item.(string); ok {
			result = append(result, str)
		}
	}

	return result
}
