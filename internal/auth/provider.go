package auth

import (
	"context"

	"github.com/GoAuthBridge/GoAuthBridge/internal/db/models"
	"github.com/GoAuthBridge/GoAuthBridge/internal/uniuri"
)

// Credentials is the union of secret material accepted by the different
// provider types. Each provider reads only the fields of its own flow and
// returns ErrMalformedCredentials when the fields it requires are empty.
type Credentials struct {
	// Password flows (local, LDAP).
	Username string
	Password string
	TOTPCode string

	// SAML flow: the base64-encoded SAMLResponse from the ACS POST.
	SAMLResponse string
	RelayState   string

	// OAuth / OIDC flow: the authorization code from the callback.
	Code        string
	RedirectURI string
	State       string
}

// AdditionalData carries non-identity side results of an authentication,
// keyed by well-known names ("groups", "access_token", "id_token", ...).
type AdditionalData map[string]any

// TokenValidation is the result of a ValidateToken call.
type TokenValidation struct {
	Valid bool
	// ExpiresIn is the remaining lifetime in seconds when the provider
	// exposes it; zero means unknown.
	ExpiresIn int64
	// Subject is the token's subject identifier when available.
	Subject string
	// Detail explains why an invalid result is invalid: the upstream
	// error or status, or a note that the backend has no token concept.
	Detail string
}

// Provider is implemented by every authentication backend. Implementations
// are safe for concurrent use; every call that touches the network takes a
// context.
type Provider interface {
	// Name returns the configured instance name ("corp-ldap", "okta-saml").
	Name() string

	// Type returns the backend kind the instance speaks.
	Type() models.AuthSource

	// Enabled reports whether the instance accepts authentication calls.
	Enabled() bool

	// Priority orders providers in discovery listings, higher first.
	Priority() int

	// DisplayName is the human-facing label for login pages.
	DisplayName() string

	// Authenticate verifies the credentials against the backend and
	// returns the reconciled local user. The returned AdditionalData may
	// carry raw group names and tokens for the caller to act on.
	Authenticate(ctx context.Context, creds Credentials) (*models.User, AdditionalData, error)

	// GetUserInfo returns a provider-neutral profile of a local user.
	GetUserInfo(ctx context.Context, userID uint64) (map[string]any, error)

	// SyncUserGroups maps the raw backend group names onto local groups,
	// replaces the user's provider-sourced memberships and returns the
	// local group names now in effect.
	SyncUserGroups(ctx context.Context, user *models.User, rawGroups []string) ([]string, error)

	// ValidateToken checks a bearer token where the backend supports it.
	// Invalid results carry the reason in Detail; backends without a
	// token concept always report invalid.
	ValidateToken(ctx context.Context, token string) TokenValidation
}

// stateTokenLen gives ~256 bits of entropy with the standard character set.
const stateTokenLen = 43

// GenerateStateToken returns a random URL-safe token for OAuth state and
// SAML relay-state values.
func GenerateStateToken() string {
	return uniuri.NewLen(stateTokenLen)
}
