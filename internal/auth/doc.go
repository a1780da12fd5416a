// Package auth provides multi-backend authentication and authorization for
// the application.
//
// This package implements a provider model where each configured backend
// (local database, LDAP/Active Directory, SAML 2.0, OAuth2, OpenID Connect)
// is a named Provider instance behind one interface. The Manager owns the
// configured instances and dispatches authentication calls by provider name.
//
// # Authentication Providers
//
// LocalProvider handles traditional username/password authentication against
// the local database with Argon2id password hashing and an optional TOTP
// second factor.
//
// LDAPProvider connects to LDAP or Active Directory servers using the
// search-then-bind flow and reads group memberships from the directory.
//
// SAMLProvider validates signed SAML 2.0 assertions posted by an identity
// provider and serves the service provider metadata document.
//
// OAuthProvider implements the OAuth2 authorization code flow against
// generic endpoints or the Google, Microsoft and GitHub presets.
//
// OIDCProvider implements OpenID Connect with issuer discovery and ID token
// verification, for providers like Okta, Keycloak and Azure AD.
//
// # Identity Reconciliation
//
// Successful external authentications are reconciled into local user
// records: users are created on first login, profile attributes are
// refreshed on every login, and provider-sourced group memberships are
// replaced to match the backend. Concurrent first logins are resolved
// through the store's unique constraints.
//
// # Authorization System
//
// The authorization system uses a flexible permission model:
//   - Users can have a direct role assignment
//   - Users can belong to multiple groups (local or provider-sourced)
//   - Groups are mapped to roles
//   - Roles contain a set of permissions
//   - Permissions are checked for resource access
//
// The Service type provides HasPermission, HasAnyPermission,
// HasAllPermissions and GetUserPermissions; the Require* Fiber middleware
// wrappers protect routes with them.
//
// Example usage:
//
//	// Build the manager from configuration
//	manager, err := auth.NewManager(cfg.Providers, identityStore, baseURL)
//
//	// Authenticate against a named provider
//	user, data, err := manager.Authenticate(ctx, "corp-ldap", auth.Credentials{
//	    Username: username,
//	    Password: password,
//	})
//
//	// Synchronize the backend groups reported at login
//	groups, _ := manager.SyncUserGroups(ctx, "corp-ldap", user, rawGroups)
//
//	// Protect route with middleware
//	app.Get("/admin/users",
//	    auth.RequirePermission(authService, auth.PermAdminUsers),
//	    handler,
//	)
package auth
