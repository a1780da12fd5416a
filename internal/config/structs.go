package config

import (
	"time"

	"github.com/GoAuthBridge/GoAuthBridge/internal/logger"
)

// Session settings.
type Session struct {
	ExpiryTime time.Duration
}

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Providers []Provider
}

// Webserver implement webserver settings.
type Webserver struct {
	Domain              string  // domain name for the webserver
	Port                int     // listening port for the webserver
	ShutDownTime        int     // wait time for shutdown
	URL                 string  // base url for the webserver
	CookieEncryptionKey string  // encryption key for cookies
	Session             Session // session settings
}

// Provider type values accepted in the Type field.
const (
	ProviderTypeLocal = "local"
	ProviderTypeLDAP  = "ldap"
	ProviderTypeSAML  = "saml"
	ProviderTypeOAuth = "oauth"
	ProviderTypeOIDC  = "oidc"
)

// Provider is the static configuration for one authentication provider.
// Required connection fields are validated once at load time; providers are
// never re-validated at call time.
type Provider struct {
	// Name is the unique name this provider is dispatched by (e.g. "corp-ldap").
	Name string `validate:"required"`
	// Type selects the protocol implementation.
	Type string `validate:"required,oneof=local ldap saml oauth oidc"`
	// Enabled controls whether the provider is instantiated at startup.
	Enabled bool
	// Priority orders providers in discovery listings (higher first).
	Priority int
	// DisplayName is the human readable name shown on the login page.
	DisplayName string
	// DefaultRole is the role name assigned to users on first login.
	DefaultRole string
	// AutoCreateGroups enables lazy provisioning of local groups for
	// external groups that have no local counterpart yet.
	AutoCreateGroups bool
	// AttributeMapping maps logical fields (username, email, first_name,
	// last_name, groups) to provider specific attribute names or claims.
	AttributeMapping map[string]string
	// RoleMapping maps external group names to local role names.
	RoleMapping map[string]string
	// GroupMapping maps external group names to local group names.
	GroupMapping map[string]string

	LDAP  LDAPParams
	SAML  SAMLParams
	OAuth OAuthParams
}

// LDAPParams holds LDAP/Active Directory connection parameters.
type LDAPParams struct {
	// Host is the LDAP server hostname or IP address.
	Host string
	// Port is the LDAP server port (typically 389 for LDAP, 636 for LDAPS).
	Port int
	// UseSSL enables LDAPS (LDAP over SSL/TLS) on port 636.
	UseSSL bool
	// UseTLS enables StartTLS to upgrade an LDAP connection to TLS.
	UseTLS bool
	// SkipVerify skips TLS certificate verification (insecure, for testing only).
	SkipVerify bool
	// BindDN is the distinguished name to bind with for performing searches.
	BindDN string
	// BindPassword is the password for the bind DN.
	BindPassword string
	// BaseDN is the base distinguished name for user searches.
	BaseDN string
	// UserFilter is the LDAP filter for finding users (e.g., "(uid={username})").
	UserFilter string
	// GroupBaseDN is the base distinguished name for group searches.
	GroupBaseDN string
	// GroupFilter is the LDAP filter for finding groups (e.g., "(member={user_dn})").
	GroupFilter string
	// UsernameAttr is the LDAP attribute containing the username (e.g., "uid").
	UsernameAttr string
	// EmailAttr is the LDAP attribute containing the email address (e.g., "mail").
	EmailAttr string
	// FirstNameAttr is the LDAP attribute containing the given name (e.g., "givenName").
	FirstNameAttr string
	// LastNameAttr is the LDAP attribute containing the surname (e.g., "sn").
	LastNameAttr string
	// GroupNameAttr is the LDAP attribute containing the group name (e.g., "cn").
	GroupNameAttr string
	// Timeout is the connection timeout in seconds.
	Timeout int
}

// SAMLParams holds SAML 2.0 service provider parameters.
type SAMLParams struct {
	// IdPEntityID is the entity ID (issuer) of the identity provider.
	IdPEntityID string
	// IdPSSOURL is the identity provider's single sign-on URL.
	IdPSSOURL string
	// IdPCertificate is the PEM encoded IdP signing certificate.
	IdPCertificate string
	// CertFile is a path to the service provider certificate (optional,
	// used for signed AuthnRequests).
	CertFile string
	// KeyFile is a path to the service provider private key (optional).
	KeyFile string
	// NameIDFormat requested from the IdP. Empty uses the library default.
	NameIDFormat string
	// SignRequests enables signing of outgoing AuthnRequests.
	SignRequests bool
}

// OAuthParams holds OAuth2/OIDC parameters.
type OAuthParams struct {
	// Vendor selects a well-known endpoint preset: "google", "microsoft"
	// or "github". Empty means generic endpoints below are used.
	Vendor string
	// ProviderURL is the OIDC discovery URL (type "oidc" only).
	ProviderURL string
	// ClientID is the OAuth2 client identifier.
	ClientID string
	// ClientSecret is the OAuth2 client secret.
	ClientSecret string
	// RedirectURL is the OAuth2 callback URL.
	RedirectURL string
	// AuthURL is the authorization endpoint (generic providers).
	AuthURL string
	// TokenURL is the token endpoint (generic providers).
	TokenURL string
	// UserinfoURL is the userinfo endpoint (generic providers).
	UserinfoURL string
	// Scopes are the OAuth2 scopes to request.
	Scopes []string
	// GroupsClaim is the claim name containing user groups.
	GroupsClaim string
	// Timeout is the HTTP request timeout in seconds.
	Timeout int
}
