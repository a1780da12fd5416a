package config

// HiddenSecret is the sentinel substituted for secret values in any
// read-only exposure of the configuration. The exact literal is part of the
// contract with existing consumers and must not change.
const HiddenSecret = "***HIDDEN***"

// Redacted returns a copy of the provider configuration with all secret
// material replaced by the HiddenSecret sentinel. It is a pure
// transformation of the in-memory config and never consults a secret store.
func (p *Provider) Redacted() Provider {
	return redactProvider(p)
}

func redactProvider(p *Provider) Provider {
	out := *p

	if out.LDAP.BindPassword != "" {
		out.LDAP.BindPassword = HiddenSecret
	}

	if out.OAuth.ClientSecret != "" {
		out.OAuth.ClientSecret = HiddenSecret
	}

	if out.SAML.KeyFile != "" {
		out.SAML.KeyFile = HiddenSecret
	}

	if out.SAML.CertFile != "" {
		out.SAML.CertFile = HiddenSecret
	}

	return out
}
