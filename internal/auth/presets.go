package auth

import (
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"
)

// vendorPreset bundles the endpoint and attribute conventions of a
// well-known OAuth2 vendor so a provider block only needs client
// credentials.
type vendorPreset struct {
	Endpoint    oauth2.Endpoint
	UserinfoURL string
	Scopes      []string
	// Attribute names in the vendor's userinfo payload.
	IDAttr        string
	UsernameAttr  string
	EmailAttr     string
	FirstNameAttr string
	LastNameAttr  string
	GroupsAttr    string
}

// vendorPresets maps the Vendor configuration value to its preset. GitHub's
// userinfo id is numeric and its login doubles as the username; Google and
// Microsoft follow OIDC claim names.
var vendorPresets = map[string]vendorPreset{
	"google": {
		Endpoint:      google.Endpoint,
		UserinfoURL:   "https://openidconnect.googleapis.com/v1/userinfo",
		Scopes:        []string{"openid", "email", "profile"},
		IDAttr:        "sub",
		UsernameAttr:  "email",
		EmailAttr:     "email",
		FirstNameAttr: "given_name",
		LastNameAttr:  "family_name",
	},
	"microsoft": {
		Endpoint:      microsoft.AzureADEndpoint(""),
		UserinfoURL:   "https://graph.microsoft.com/oidc/userinfo",
		Scopes:        []string{"openid", "email", "profile"},
		IDAttr:        "sub",
		UsernameAttr:  "email",
		EmailAttr:     "email",
		FirstNameAttr: "given_name",
		LastNameAttr:  "family_name",
	},
	"github": {
		Endpoint:      github.Endpoint,
		UserinfoURL:   "https://api.github.com/user",
		Scopes:        []string{"read:user", "user:email"},
		IDAttr:        "id",
		UsernameAttr:  "login",
		EmailAttr:     "email",
		FirstNameAttr: "name",
		LastNameAttr:  "",
	},
}
