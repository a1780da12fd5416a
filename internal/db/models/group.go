package models

import "time"

// GroupSource represents the origin or source system of a user group.
type GroupSource string

const (
	// GroupSourceLocal indicates the group is locally managed within the application.
	GroupSourceLocal GroupSource = "local"
	// GroupSourceLDAP indicates the group is synchronized from an LDAP or Active Directory server.
	GroupSourceLDAP GroupSource = "ldap"
	// GroupSourceSAML indicates the group is synchronized from a SAML identity provider.
	GroupSourceSAML GroupSource = "saml"
	// GroupSourceOAuth indicates the group is synchronized from an OAuth2 provider.
	GroupSourceOAuth GroupSource = "oauth"
	// GroupSourceOIDC indicates the group is synchronized from an OIDC identity provider.
	GroupSourceOIDC GroupSource = "oidc"
)

// Group represents a user group for organizing users and mapping to roles.
// External groups are provisioned lazily on login when the provider has
// auto-creation enabled; their ExternalID carries the
// "<providerType>:<externalGroupName>" form and is unique per source.
type Group struct {
	// ID is the unique identifier for the group.
	ID uint `gorm:"primaryKey"`
	// Name is the display name of the group as it appears in the system.
	Name string `gorm:"size:100;not null"`
	// ExternalID is the external identifier for the group.
	// Combined with Source, this forms a unique constraint.
	ExternalID string `gorm:"size:255;uniqueIndex:idx_source_external"`
	// Source indicates where the group originates from.
	Source GroupSource `gorm:"type:varchar(20);not null;uniqueIndex:idx_source_external"`
	// Description provides a human-readable explanation of the group's purpose.
	Description string `gorm:"size:255"`
	// CreatedAt is the timestamp when the group was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the group was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Group model.
func (Group) TableName() string {
	return "groups"
}
