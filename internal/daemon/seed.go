package daemon

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/GoAuthBridge/GoAuthBridge/internal/auth"
	"github.com/GoAuthBridge/GoAuthBridge/internal/config"
	"github.com/GoAuthBridge/GoAuthBridge/internal/db/models"
)

// system roles with the permissions they grant.
var seedRoles = []struct {
	name        string
	description string
	permissions []string
}{
	{
		name:        models.RoleAdmin,
		description: "Full administrative access",
		permissions: []string{
			auth.PermProfileView,
			auth.PermAdminUsers,
			auth.PermAdminRoles,
			auth.PermAdminGroups,
			auth.PermAdminGroupMappings,
			auth.PermAdminProviders,
		},
	},
	{
		name:        models.RoleOperator,
		description: "Manage groups and group mappings",
		permissions: []string{
			auth.PermProfileView,
			auth.PermAdminGroups,
			auth.PermAdminGroupMappings,
		},
	},
	{
		name:        models.RoleViewer,
		description: "Read-only access to the own profile",
		permissions: []string{
			auth.PermProfileView,
		},
	},
}

// seed creates the system roles, permissions and the default admin account.
// It is idempotent and safe to run on every start.
func seed(_ *config.Config, db *gorm.DB) error {
	permIDs := make(map[string]uint)

	for _, role := range seedRoles {
		for _, permName := range role.permissions {
			if _, ok := permIDs[permName]; ok {
				continue
			}

			resource, action, _ := strings.Cut(permName, ".")

			perm := models.Permission{Name: permName}
			if err := db.Where(&perm).
				Attrs(models.Permission{Resource: resource, Action: action}).
				FirstOrCreate(&perm).Error; err != nil {
				return errors.Wrapf(err, "seed permission %q", permName)
			}

			permIDs[permName] = perm.ID
		}
	}

	for _, role := range seedRoles {
		rec := models.Role{Name: role.name}
		if err := db.Where(&rec).
			Attrs(models.Role{Description: role.description, IsSystem: true}).
			FirstOrCreate(&rec).Error; err != nil {
			return errors.Wrapf(err, "seed role %q", role.name)
		}

		for _, permName := range role.permissions {
			link := models.RolePermission{RoleID: rec.ID, PermissionID: permIDs[permName]}
			if err := db.Where(&link).FirstOrCreate(&link).Error; err != nil {
				return errors.Wrapf(err, "seed role permission %q/%q", role.name, permName)
			}
		}
	}

	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return errors.Wrap(err, "count users")
	}

	if count > 0 {
		return nil
	}

	var adminRole models.Role
	if err := db.Where(&models.Role{Name: models.RoleAdmin}).First(&adminRole).Error; err != nil {
		return errors.Wrap(err, "lookup admin role")
	}

	if err := db.Create(
		&models.User{
			Username:   "admin",
			Password:   models.HashPassword("changeme"),
			Active:     true,
			RoleID:     adminRole.ID,
			AuthSource: models.AuthSourceLocal,
		},
	).Error; err != nil {
		return errors.Wrap(err, "create default admin")
	}

	log.Warn().Msg("created default admin account with password 'changeme', change it immediately")

	return nil
}
