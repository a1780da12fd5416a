// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "go-auth-bridge",
	Short: "GoAuthBridge is a single sign-on bridge for LDAP, SAML and OAuth2/OIDC",
	Long: `GoAuthBridge authenticates users against external identity sources
(LDAP/Active Directory, SAML 2.0 and OAuth2/OIDC providers) and reconciles
each external identity with a local account, including role and group
provisioning.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
