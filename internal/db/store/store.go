// Package store defines the identity persistence boundary used by the
// authentication providers. Providers only ever see the Identity interface;
// the gorm-backed implementation lives alongside it and is injected at the
// composition root.
package store

import (
	"context"
	"errors"

	"github.com/GoAuthBridge/GoAuthBridge/internal/db/models"
)

var (
	// ErrNotFound is returned by lookup calls when no record matches.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned by create calls when a unique constraint is
	// violated. Callers racing on get-or-create treat this as "already
	// exists" and re-fetch.
	ErrDuplicate = errors.New("record already exists")
)

// Identity is the repository contract for user and group records.
// All calls are synchronous and atomic per call; there is no transactional
// coupling between user reconciliation and group sync.
type Identity interface {
	FindUserByID(ctx context.Context, id uint64) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUserByExternalID(ctx context.Context, source models.AuthSource, externalID string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error
	UpdateUserRole(ctx context.Context, userID uint64, roleID uint) error

	FindGroupByExternalID(ctx context.Context, source models.GroupSource, externalID string) (*models.Group, error)
	CreateGroup(ctx context.Context, group *models.Group) error

	// ReplaceUserGroups swaps the user's group memberships originating from
	// the given source for the provided set. Memberships from other sources
	// are left untouched.
	ReplaceUserGroups(ctx context.Context, userID uint64, source models.GroupSource, groupIDs []uint) error

	FindRoleByName(ctx context.Context, name string) (*models.Role, error)
}
