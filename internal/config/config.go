// Package config handles input from etc/*.toml files.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvConfigJSON is the environment variable holding a JSON config override.
const EnvConfigJSON = "GO_AUTH_BRIDGE_CONFIG_JSON"

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var (
		c             Config
		JSONConfigEnv string
		err           error
	)

	// Read main configuration
	if path == "" {
		path = "./etc/"
	}

	v := viper.New()
	v.SetConfigName("main")
	v.SetConfigType("toml")
	v.AddConfigPath(path)

	if err = v.ReadInConfig(); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	if err = v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "failed to unmarshal main config file")
	}

	// override it from env
	JSONConfigEnv = os.Getenv(EnvConfigJSON)

	if JSONConfigEnv != "" {
		c, err = decodeAndMergeConfig(c, JSONConfigEnv)
		if err != nil {
			return c, err
		}
	}

	return c, validate(&c)
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to merge json config override")
	}

	return c, nil
}

// DumpConfigJSON config as JSON String with provider secrets redacted.
func DumpConfigJSON(c *Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	redacted := *c
	redacted.DB.Password = HiddenSecret

	providers := make([]Provider, len(c.Providers))
	for i := range c.Providers {
		providers[i] = redactProvider(&c.Providers[i])
	}

	redacted.Providers = providers

	if err := j.Encode(redacted); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// validate checks the config once at load time. Providers failing validation
// abort startup; nothing is deferred to the first authentication call.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = 5 // set default of 5 seconds
	}

	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, invalidErrMessage)
	}

	seen := make(map[string]bool, len(c.Providers))

	for i := range c.Providers {
		p := &c.Providers[i]

		if seen[p.Name] {
			return errors.Wrapf(ErrDuplicateProviderName, "provider %q", p.Name)
		}

		seen[p.Name] = true

		if !p.Enabled {
			continue
		}

		if err := validateProviderParams(p); err != nil {
			return err
		}
	}

	return nil
}

// validateProviderParams enforces the required connection fields per type.
func validateProviderParams(p *Provider) error {
	missing := func(field string) error {
		return errors.Wrap(ErrProviderParamMissing,
			fmt.Sprintf("provider %q (%s): %s", p.Name, p.Type, field))
	}

	switch p.Type {
	case "ldap":
		if p.LDAP.Host == "" {
			return missing("ldap.host")
		}

		if p.LDAP.Port == 0 {
			return missing("ldap.port")
		}

		if p.LDAP.BaseDN == "" {
			return missing("ldap.basedn")
		}

		if p.LDAP.UserFilter == "" {
			return missing("ldap.userfilter")
		}
	case "saml":
		if p.SAML.IdPSSOURL == "" {
			return missing("saml.idpssourl")
		}

		if p.SAML.IdPEntityID == "" {
			return missing("saml.idpentityid")
		}

		if p.SAML.IdPCertificate == "" {
			return missing("saml.idpcertificate")
		}
	case "oauth":
		if p.OAuth.ClientID == "" {
			return missing("oauth.clientid")
		}

		if p.OAuth.ClientSecret == "" {
			return missing("oauth.clientsecret")
		}

		if p.OAuth.Vendor == "" {
			if p.OAuth.AuthURL == "" {
				return missing("oauth.authurl")
			}

			if p.OAuth.TokenURL == "" {
				return missing("oauth.tokenurl")
			}

			if p.OAuth.UserinfoURL == "" {
				return missing("oauth.userinfourl")
			}
		}
	case "oidc":
		if p.OAuth.ClientID == "" {
			return missing("oauth.clientid")
		}

		if p.OAuth.ClientSecret == "" {
			return missing("oauth.clientsecret")
		}

		if p.OAuth.ProviderURL == "" {
			return missing("oauth.providerurl")
		}
	case "local":
		// No connection parameters.
	}

	return nil
}
