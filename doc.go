// GoAuthBridge is a single sign-on bridge service. It authenticates users
// against external identity sources (LDAP/Active Directory, SAML 2.0 identity
// providers, and OAuth2/OIDC providers including Google, Microsoft and GitHub)
// and reconciles each external identity with a local account record,
// provisioning roles and groups from the external group memberships.
//
// The service is started with the "start" subcommand and reads its
// configuration from etc/main.toml (overridable through the
// GO_AUTH_BRIDGE_CONFIG_JSON environment variable).
package main
