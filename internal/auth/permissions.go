package auth

// Permission constants define the available permissions in the system.
// These are used for role-based access control (RBAC) to restrict access
// to specific resources and actions.
const (
	// PermProfileView allows viewing the own user profile.
	PermProfileView = "profile.view"

	// PermAdminUsers allows managing user accounts.
	PermAdminUsers = "admin.users"
	// PermAdminRoles allows managing roles and their permissions.
	PermAdminRoles = "admin.roles"
	// PermAdminGroups allows managing user groups.
	PermAdminGroups = "admin.groups"
	// PermAdminGroupMappings allows managing mappings between external groups and internal roles.
	PermAdminGroupMappings = "admin.group.mappings"
	// PermAdminProviders allows inspecting authentication provider configuration.
	PermAdminProviders = "admin.providers"
)
