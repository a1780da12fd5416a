package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/GoAuthBridge/GoAuthBridge/internal/db/models"
)

// Gorm implements Identity on top of a gorm database handle.
type Gorm struct {
	db *gorm.DB
}

// NewGorm creates a gorm-backed identity store.
func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

// FindUserByID looks up a user by primary key.
func (s *Gorm) FindUserByID(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User

	err := s.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return nil, translate(err, "find user by id")
	}

	return &user, nil
}

// FindUserByUsername looks up a user by unique username.
func (s *Gorm) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User

	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, translate(err, "find user by username")
	}

	return &user, nil
}

// FindUserByExternalID looks up a user by its (auth source, external id) pair.
func (s *Gorm) FindUserByExternalID(
	ctx context.Context,
	source models.AuthSource,
	externalID string,
) (*models.User, error) {
	var user models.User

	err := s.db.WithContext(ctx).
		Where("external_id = ? AND auth_source = ?", externalID, source).
		First(&user).Error
	if err != nil {
		return nil, translate(err, "find user by external id")
	}

	return &user, nil
}

// CreateUser inserts a new user record.
func (s *Gorm) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return translate(err, "create user")
	}

	return nil
}

// UpdateUser persists changes to an existing user record.
func (s *Gorm) UpdateUser(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return translate(err, "update user")
	}

	return nil
}

// UpdateUserRole changes only the role of a user.
func (s *Gorm) UpdateUserRole(ctx context.Context, userID uint64, roleID uint) error {
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("role_id", roleID).Error
	if err != nil {
		return translate(err, "update user role")
	}

	return nil
}

// FindGroupByExternalID looks up a group by its (source, external id) pair.
func (s *Gorm) FindGroupByExternalID(
	ctx context.Context,
	source models.GroupSource,
	externalID string,
) (*models.Group, error) {
	var group models.Group

	err := s.db.WithContext(ctx).
		Where("external_id = ? AND source = ?", externalID, source).
		First(&group).Error
	if err != nil {
		return nil, translate(err, "find group by external id")
	}

	return &group, nil
}

// CreateGroup inserts a new group record.
func (s *Gorm) CreateGroup(ctx context.Context, group *models.Group) error {
	if err := s.db.WithContext(ctx).Create(group).Error; err != nil {
		return translate(err, "create group")
	}

	return nil
}

// ReplaceUserGroups swaps the user's memberships for one group source inside
// a single transaction.
func (s *Gorm) ReplaceUserGroups(
	ctx context.Context,
	userID uint64,
	source models.GroupSource,
	groupIDs []uint,
) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).
			Where("group_id IN (SELECT id FROM groups WHERE source = ?)", source).
			Delete(&models.UserGroup{}).Error; err != nil {
			return fmt.Errorf("remove old group memberships: %w", err)
		}

		for _, groupID := range groupIDs {
			if err := tx.Create(&models.UserGroup{
				UserID:  userID,
				GroupID: groupID,
			}).Error; err != nil {
				return fmt.Errorf("add group membership: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return translate(err, "replace user groups")
	}

	return nil
}

// FindRoleByName looks up a role by unique name.
func (s *Gorm) FindRoleByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role

	err := s.db.WithContext(ctx).Where("name = ?", name).First(&role).Error
	if err != nil {
		return nil, translate(err, "find role by name")
	}

	return &role, nil
}

// translate converts gorm errors to the store sentinels so that callers
// never depend on the persistence library.
func translate(err error, op string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
