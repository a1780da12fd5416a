package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GoAuthBridge/GoAuthBridge/internal/config"
	"github.com/GoAuthBridge/GoAuthBridge/internal/db/models"
	"github.com/GoAuthBridge/GoAuthBridge/internal/db/store"
)

// externalIdentity is what a backend learned about the authenticated user.
// Every provider builds one of these after credential verification and hands
// it to the reconciler.
type externalIdentity struct {
	// ExternalID is the stable backend identifier (LDAP DN, SAML NameID,
	// OAuth subject). Never empty.
	ExternalID string
	// Username is the local username taken from the mapped username
	// attribute. A backend response without it fails authentication; no
	// account is ever provisioned from an identifier alone.
	Username  string
	Email     string
	FirstName string
	LastName  string
	// EmailVerified is set when the backend attests the address (OIDC
	// email_verified claim).
	EmailVerified bool
}

// reconciler converts verified external identities into local user records
// and keeps provider-sourced group memberships in sync. It is shared by all
// provider implementations.
type reconciler struct {
	store store.Identity
	cfg   *config.Provider
	src   models.AuthSource
}

func newReconciler(st store.Identity, cfg *config.Provider, src models.AuthSource) *reconciler {
	return &reconciler{store: st, cfg: cfg, src: src}
}

// getOrCreateUser looks up the local user for an external identity, creating
// it on first login. Profile attributes (email, names) are refreshed from the
// backend on every successful login; username, role and password are never
// touched for existing users.
func (r *reconciler) getOrCreateUser(ctx context.Context, ident *externalIdentity) (*models.User, error) {
	if ident.ExternalID == "" {
		return nil, fmt.Errorf("%w: empty external identifier", ErrAuthenticationFailed)
	}

	if ident.Username == "" {
		return nil, fmt.Errorf("%w: username not found in backend attributes", ErrAuthenticationFailed)
	}

	user, err := r.store.FindUserByExternalID(ctx, r.src, ident.ExternalID)

	switch {
	case err == nil:
		return r.refreshUser(ctx, user, ident)
	case errors.Is(err, store.ErrNotFound):
		return r.createUser(ctx, ident)
	default:
		return nil, fmt.Errorf("failed to look up user by external id: %w", err)
	}
}

func (r *reconciler) refreshUser(ctx context.Context, user *models.User, ident *externalIdentity) (*models.User, error) {
	now := time.Now()

	user.LastLogin = &now

	if ident.Email != "" {
		user.Email = ident.Email
		user.EmailVerified = ident.EmailVerified
	}

	if ident.FirstName != "" {
		user.FirstName = ident.FirstName
	}

	if ident.LastName != "" {
		user.LastName = ident.LastName
	}

	if err := r.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user %q: %w", user.Username, err)
	}

	return user, nil
}

func (r *reconciler) createUser(ctx context.Context, ident *externalIdentity) (*models.User, error) {
	username := ident.Username

	role, err := r.defaultRole(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &models.User{
		Active:        true,
		Username:      username,
		Email:         ident.Email,
		EmailVerified: ident.EmailVerified,
		FirstName:     ident.FirstName,
		LastName:      ident.LastName,
		AuthSource:    r.src,
		ExternalID:    ident.ExternalID,
		RoleID:        role.ID,
		LastLogin:     &now,
	}

	err = r.store.CreateUser(ctx, user)
	if err == nil {
		log.Info().
			Str("provider", r.cfg.Name).
			Str("username", username).
			Msg("auto-provisioned user on first login")

		return user, nil
	}

	// Another request created the same user between our lookup and the
	// insert. The unique index rejected the duplicate; fetch the winner.
	if errors.Is(err, store.ErrDuplicate) {
		user, err = r.store.FindUserByExternalID(ctx, r.src, ident.ExternalID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch user after concurrent creation: %w", err)
		}

		return r.refreshUser(ctx, user, ident)
	}

	return nil, fmt.Errorf("failed to create user %q: %w", username, err)
}

func (r *reconciler) defaultRole(ctx context.Context) (*models.Role, error) {
	name := r.cfg.DefaultRole
	if name == "" {
		name = models.RoleViewer
	}

	role, err := r.store.FindRoleByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve default role %q: %w", name, err)
	}

	return role, nil
}

// mapGroupsAndRoles applies the provider's GroupMapping and RoleMapping to
// the raw backend group names, replaces the user's memberships for this
// provider's source and returns the resulting local group names. The role is
// only written when the mapped role differs from the user's current one.
func (r *reconciler) mapGroupsAndRoles(ctx context.Context, user *models.User, rawGroups []string) ([]string, error) {
	if len(rawGroups) == 0 {
		// No backend groups means no provider-sourced memberships.
		if err := r.store.ReplaceUserGroups(ctx, user.ID, models.GroupSource(r.src), nil); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGroupSyncFailed, err)
		}

		return []string{}, nil
	}

	localNames := make([]string, 0, len(rawGroups))
	groupIDs := make([]uint, 0, len(rawGroups))

	for _, raw := range rawGroups {
		localName := raw
		if mapped, ok := r.cfg.GroupMapping[raw]; ok {
			localName = mapped
		}

		group, err := r.resolveGroup(ctx, raw, localName)
		if err != nil {
			return nil, err
		}

		if group == nil {
			// Unknown group and auto-create disabled: skip silently.
			continue
		}

		localNames = append(localNames, group.Name)
		groupIDs = append(groupIDs, group.ID)
	}

	if err := r.applyRoleMapping(ctx, user, rawGroups); err != nil {
		return nil, err
	}

	if err := r.store.ReplaceUserGroups(ctx, user.ID, models.GroupSource(r.src), groupIDs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGroupSyncFailed, err)
	}

	return localNames, nil
}

// resolveGroup finds the local group backing a backend group, creating it
// when auto-provisioning is enabled. Returns nil when the group is unknown
// and auto-creation is off.
func (r *reconciler) resolveGroup(ctx context.Context, rawName, localName string) (*models.Group, error) {
	externalID := r.externalGroupID(rawName)

	group, err := r.store.FindGroupByExternalID(ctx, models.GroupSource(r.src), externalID)
	if err == nil {
		return group, nil
	}

	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrGroupSyncFailed, err)
	}

	if !r.cfg.AutoCreateGroups {
		return nil, nil
	}

	group = &models.Group{
		Name:        localName,
		Description: fmt.Sprintf("Auto-provisioned from %s", r.cfg.Name),
		Source:      models.GroupSource(r.src),
		ExternalID:  externalID,
	}

	err = r.store.CreateGroup(ctx, group)
	if err == nil {
		log.Info().
			Str("provider", r.cfg.Name).
			Str("group", localName).
			Msg("auto-provisioned group")

		return group, nil
	}

	// Concurrent sync created it first.
	if errors.Is(err, store.ErrDuplicate) {
		group, err = r.store.FindGroupByExternalID(ctx, models.GroupSource(r.src), externalID)
		if err == nil {
			return group, nil
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrGroupSyncFailed, err)
}

// applyRoleMapping picks the role mapped from the first matching raw group,
// in backend order, and writes it only when it differs from the current one.
func (r *reconciler) applyRoleMapping(ctx context.Context, user *models.User, rawGroups []string) error {
	if len(r.cfg.RoleMapping) == 0 {
		return nil
	}

	for _, raw := range rawGroups {
		roleName, ok := r.cfg.RoleMapping[raw]
		if !ok {
			continue
		}

		role, err := r.store.FindRoleByName(ctx, roleName)
		if err != nil {
			return fmt.Errorf("%w: unknown mapped role %q", ErrGroupSyncFailed, roleName)
		}

		if user.RoleID == role.ID {
			return nil
		}

		if err := r.store.UpdateUserRole(ctx, user.ID, role.ID); err != nil {
			return fmt.Errorf("%w: %v", ErrGroupSyncFailed, err)
		}

		user.RoleID = role.ID

		log.Info().
			Str("provider", r.cfg.Name).
			Str("username", user.Username).
			Str("role", roleName).
			Msg("updated user role from group mapping")

		return nil
	}

	return nil
}

// externalGroupID builds the stable identifier stored alongside local groups
// so the same backend group maps to the same local record across logins.
func (r *reconciler) externalGroupID(rawName string) string {
	return string(r.src) + ":" + strings.TrimSpace(rawName)
}

// userProfile renders the uniform profile map returned by GetUserInfo.
func userProfile(user *models.User, providerName string, src models.AuthSource) map[string]any {
	return map[string]any{
		"id":          user.ID,
		"username":    user.Username,
		"email":       user.Email,
		"first_name":  user.FirstName,
		"last_name":   user.LastName,
		"full_name":   user.FullName(),
		"auth_source": string(src),
		"external_id": user.ExternalID,
		"provider":    providerName,
		"last_login":  user.LastLogin,
	}
}

// lookupUser resolves a local user id for GetUserInfo-style calls.
func lookupUser(ctx context.Context, st store.Identity, userID uint64) (*models.User, error) {
	user, err := st.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}

		return nil, fmt.Errorf("failed to look up user %d: %w", userID, err)
	}

	return user, nil
}
