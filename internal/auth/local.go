package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pquerna/otp/totp"

	"github.com/GoAuthBridge/GoAuthBridge/internal/config"
	"github.com/GoAuthBridge/GoAuthBridge/internal/db/models"
	"github.com/GoAuthBridge/GoAuthBridge/internal/db/store"
)

// LocalProvider authenticates users against locally stored Argon2id password
// hashes, with an optional TOTP second factor for enrolled users.
type LocalProvider struct {
	cfg   *config.Provider
	store store.Identity
}

// NewLocalProvider creates a local database provider.
func NewLocalProvider(cfg *config.Provider, st store.Identity) (*LocalProvider, error) {
	return &LocalProvider{cfg: cfg, store: st}, nil
}

// Name returns the configured provider name.
func (p *LocalProvider) Name() string { return p.cfg.Name }

// Type returns the local auth source.
func (p *LocalProvider) Type() models.AuthSource { return models.AuthSourceLocal }

// Enabled reports whether the provider accepts logins.
func (p *LocalProvider) Enabled() bool { return p.cfg.Enabled }

// Priority returns the discovery ordering weight.
func (p *LocalProvider) Priority() int { return p.cfg.Priority }

// DisplayName returns the label shown on login pages.
func (p *LocalProvider) DisplayName() string {
	if p.cfg.DisplayName != "" {
		return p.cfg.DisplayName
	}

	return p.cfg.Name
}

// Authenticate verifies username, password and, for enrolled users, the TOTP
// code. The error is the same generic ErrAuthenticationFailed whether the
// user is unknown, disabled or the password is wrong; no record is mutated
// on failure.
func (p *LocalProvider) Authenticate(ctx context.Context, creds Credentials) (*models.User, AdditionalData, error) {
	if creds.Username == "" || creds.Password == "" {
		return nil, nil, fmt.Errorf("%w: username and password are required", ErrMalformedCredentials)
	}

	user, err := p.store.FindUserByUsername(ctx, creds.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: unknown user", ErrAuthenticationFailed)
		}

		return nil, nil, fmt.Errorf("failed to query user: %w", err)
	}

	if user.AuthSource != models.AuthSourceLocal {
		return nil, nil, fmt.Errorf("%w: user is not a local account", ErrAuthenticationFailed)
	}

	if !user.Active {
		return nil, nil, fmt.Errorf("%w: account is disabled", ErrAuthenticationFailed)
	}

	if !user.VerifyPassword(creds.Password) {
		return nil, nil, fmt.Errorf("%w: password mismatch", ErrAuthenticationFailed)
	}

	if user.TOTPSecret != "" {
		if creds.TOTPCode == "" || !totp.Validate(creds.TOTPCode, user.TOTPSecret) {
			return nil, nil, fmt.Errorf("%w: invalid one-time code", ErrAuthenticationFailed)
		}
	}

	now := time.Now()
	user.LastLogin = &now

	if err = p.store.UpdateUser(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("failed to record login time: %w", err)
	}

	return user, AdditionalData{}, nil
}

// GetUserInfo returns the local profile of a user.
func (p *LocalProvider) GetUserInfo(ctx context.Context, userID uint64) (map[string]any, error) {
	user, err := lookupUser(ctx, p.store, userID)
	if err != nil {
		return nil, err
	}

	return userProfile(user, p.cfg.Name, models.AuthSourceLocal), nil
}

// SyncUserGroups is a no-op for local accounts: their memberships are
// managed directly, not synchronized from a backend.
func (p *LocalProvider) SyncUserGroups(_ context.Context, _ *models.User, _ []string) ([]string, error) {
	return []string{}, nil
}

// ValidateToken is not supported for local accounts.
func (p *LocalProvider) ValidateToken(_ context.Context, _ string) TokenValidation {
	return TokenValidation{Detail: "token validation not supported for local accounts"}
}
