package auth

import "errors"

var (
	// ErrProviderNotConfigured is returned when a caller names a provider
	// that does not exist in the configuration.
	ErrProviderNotConfigured = errors.New("authentication provider is not configured")

	// ErrProviderDisabled is returned when the named provider exists but is
	// disabled. No network I/O is attempted for disabled providers.
	ErrProviderDisabled = errors.New("authentication provider is disabled")

	// ErrAuthenticationFailed covers wrong credentials, invalid assertions
	// or tokens, missing required attributes, exchange failures and
	// timeouts. The wrapped cause is logged; the message surfaced to
	// callers stays generic to avoid credential oracles.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrUserNotFound is returned by lookup-style calls referencing an
	// unknown local user.
	ErrUserNotFound = errors.New("user not found")

	// ErrGroupSyncFailed is returned by a provider's direct SyncUserGroups
	// call. The Manager wrapper converts it to an empty group list
	// (degrade-to-empty); see Manager.SyncUserGroups.
	ErrGroupSyncFailed = errors.New("group synchronization failed")

	// ErrInvalidProviderConfig is returned at provider construction time
	// when required connection parameters are missing. Construction errors
	// are never deferred to the first authentication call.
	ErrInvalidProviderConfig = errors.New("invalid provider configuration")

	// ErrMalformedCredentials is returned when the credential shape does
	// not match the provider type (e.g. a SAML response handed to the LDAP
	// provider). This is an input error, not an authentication failure.
	ErrMalformedCredentials = errors.New("credentials do not match the provider type")

	// ErrMultipleUsersFound is returned when a directory query expected one
	// user but found several. This typically indicates a misconfigured
	// LDAP filter or duplicate entries.
	ErrMultipleUsersFound = errors.New("multiple users found")
)
