package auth

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"encoding/xml"
	"fmt"
	"os"

	saml2 "github.com/russellhaering/gosaml2"
	dsig "github.com/russellhaering/goxmldsig"

	"github.com/GoAuthBridge/GoAuthBridge/internal/config"
	"github.com/GoAuthBridge/GoAuthBridge/internal/db/models"
	"github.com/GoAuthBridge/GoAuthBridge/internal/db/store"
)

// Default SAML attribute names, following the eduPerson/X.500 OIDs most IdPs
// emit. AttributeMapping entries override these per provider.
const (
	samlAttrUID       = "urn:oid:0.9.2342.19200300.100.1.1"
	samlAttrMail      = "urn:oid:0.9.2342.19200300.100.1.3"
	samlAttrGivenName = "urn:oid:2.5.4.42"
	samlAttrSurname   = "urn:oid:2.5.4.4"
	samlAttrMemberOf  = "urn:oid:1.3.6.1.4.1.5923.1.5.1.1"
)

// SAMLProvider authenticates users from signed SAML 2.0 assertions posted to
// the assertion consumer service endpoint.
type SAMLProvider struct {
	cfg        *config.Provider
	sp         *saml2.SAMLServiceProvider
	reconciler *reconciler
	store      store.Identity
}

// NewSAMLProvider parses the IdP certificate and builds the service
// provider. The ACS and metadata URLs are derived from the application base
// URL and the provider name.
func NewSAMLProvider(cfg *config.Provider, st store.Identity, baseURL string) (*SAMLProvider, error) {
	params := &cfg.SAML

	if params.IdPSSOURL == "" || params.IdPEntityID == "" {
		return nil, fmt.Errorf("%w: saml idp sso url and entity id are required", ErrInvalidProviderConfig)
	}

	if params.IdPCertificate == "" {
		return nil, fmt.Errorf("%w: saml idp certificate is required", ErrInvalidProviderConfig)
	}

	certStore, err := parseIdPCertificates(params.IdPCertificate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProviderConfig, err)
	}

	spIssuer := baseURL + "/auth/saml/" + cfg.Name + "/metadata"

	sp := &saml2.SAMLServiceProvider{
		IdentityProviderSSOURL:      params.IdPSSOURL,
		IdentityProviderIssuer:      params.IdPEntityID,
		ServiceProviderIssuer:       spIssuer,
		AssertionConsumerServiceURL: baseURL + "/auth/saml/" + cfg.Name + "/acs",
		AudienceURI:                 spIssuer,
		IDPCertificateStore:         certStore,
		SignAuthnRequests:           params.SignRequests,
	}

	if params.NameIDFormat != "" {
		sp.NameIdFormat = params.NameIDFormat
	}

	if params.SignRequests {
		keyStore, errKey := loadSPKeyStore(params.CertFile, params.KeyFile)
		if errKey != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidProviderConfig, errKey)
		}

		sp.SPKeyStore = keyStore
	}

	return &SAMLProvider{
		cfg:        cfg,
		sp:         sp,
		reconciler: newReconciler(st, cfg, models.AuthSourceSAML),
		store:      st,
	}, nil
}

// parseIdPCertificates reads one or more PEM encoded certificates into a
// certificate store for signature validation.
func parseIdPCertificates(pemData string) (*dsig.MemoryX509CertificateStore, error) {
	certStore := &dsig.MemoryX509CertificateStore{}

	rest := []byte(pemData)

	for {
		var block *pem.Block

		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse IdP certificate: %w", err)
		}

		certStore.Roots = append(certStore.Roots, cert)
	}

	if len(certStore.Roots) == 0 {
		return nil, fmt.Errorf("no certificate found in IdP certificate PEM")
	}

	return certStore, nil
}

// loadSPKeyStore loads the service provider signing key pair from disk for
// signed AuthnRequests.
func loadSPKeyStore(certFile, keyFile string) (dsig.X509KeyStore, error) {
	if certFile == "" || keyFile == "" {
		return nil, fmt.Errorf("signed requests need both cert file and key file")
	}

	certPEM, err := os.ReadFile(certFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate file: %w", err)
	}

	keyPEM, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil {
		return nil, fmt.Errorf("failed to decode private key PEM")
	}

	key, err := x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA")
	}

	certBlock, _ := pem.Decode(certPEM)
	if certBlock == nil {
		return nil, fmt.Errorf("failed to decode certificate PEM")
	}

	return &dsig.TLSCertKeyStore{
		PrivateKey:  rsaKey,
		Certificate: [][]byte{certBlock.Bytes},
	}, nil
}

// Name returns the configured provider name.
func (p *SAMLProvider) Name() string { return p.cfg.Name }

// Type returns the SAML auth source.
func (p *SAMLProvider) Type() models.AuthSource { return models.AuthSourceSAML }

// Enabled reports whether the provider accepts logins.
func (p *SAMLProvider) Enabled() bool { return p.cfg.Enabled }

// Priority returns the discovery ordering weight.
func (p *SAMLProvider) Priority() int { return p.cfg.Priority }

// DisplayName returns the label shown on login pages.
func (p *SAMLProvider) DisplayName() string {
	if p.cfg.DisplayName != "" {
		return p.cfg.DisplayName
	}

	return p.cfg.Name
}

// LoginURL builds the redirect URL carrying the AuthnRequest, with the relay
// state round-tripped through the IdP.
func (p *SAMLProvider) LoginURL(relayState string) (string, error) {
	authURL, err := p.sp.BuildAuthURL(relayState)
	if err != nil {
		return "", fmt.Errorf("failed to build SAML auth URL: %w", err)
	}

	return authURL, nil
}

// Metadata renders the service provider metadata document served to IdP
// administrators.
func (p *SAMLProvider) Metadata() ([]byte, error) {
	meta, err := p.sp.Metadata()
	if err != nil {
		return nil, fmt.Errorf("failed to build SP metadata: %w", err)
	}

	out, err := xml.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal SP metadata: %w", err)
	}

	return append([]byte(xml.Header), out...), nil
}

// Authenticate validates the posted SAMLResponse (signature, conditions,
// audience) and reconciles the asserted identity into a local user. The raw
// group attribute values are returned under the "groups" key.
func (p *SAMLProvider) Authenticate(ctx context.Context, creds Credentials) (*models.User, AdditionalData, error) {
	if creds.SAMLResponse == "" {
		return nil, nil, fmt.Errorf("%w: SAMLResponse is required", ErrMalformedCredentials)
	}

	// RetrieveAssertionInfo takes the base64 encoded response as posted.
	info, err := p.sp.RetrieveAssertionInfo(creds.SAMLResponse)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: assertion validation failed: %v", ErrAuthenticationFailed, err)
	}

	if info.WarningInfo != nil {
		if info.WarningInfo.InvalidTime {
			return nil, nil, fmt.Errorf("%w: assertion outside validity window", ErrAuthenticationFailed)
		}

		if info.WarningInfo.NotInAudience {
			return nil, nil, fmt.Errorf("%w: assertion audience mismatch", ErrAuthenticationFailed)
		}
	}

	ident, groups := p.extractIdentity(info)

	if ident.ExternalID == "" {
		return nil, nil, fmt.Errorf("%w: assertion carries no subject identifier", ErrAuthenticationFailed)
	}

	user, err := p.reconciler.getOrCreateUser(ctx, ident)
	if err != nil {
		return nil, nil, err
	}

	return user, AdditionalData{"groups": groups}, nil
}

// extractIdentity maps assertion attributes onto an external identity using
// the configured attribute mapping, falling back to the standard OIDs for
// unmapped fields. A missing username attribute is left empty and rejected
// downstream.
func (p *SAMLProvider) extractIdentity(info *saml2.AssertionInfo) (*externalIdentity, []string) {
	attrName := func(field, fallback string) string {
		if mapped, ok := p.cfg.AttributeMapping[field]; ok && mapped != "" {
			return mapped
		}

		return fallback
	}

	values := make(map[string][]string, len(info.Values))

	for _, attr := range info.Values {
		for _, v := range attr.Values {
			values[attr.Name] = append(values[attr.Name], v.Value)
		}
	}

	first := func(name string) string {
		if vs := values[name]; len(vs) > 0 {
			return vs[0]
		}

		return ""
	}

	ident := &externalIdentity{
		ExternalID: info.NameID,
		Username:   first(attrName("username", samlAttrUID)),
		Email:      first(attrName("email", samlAttrMail)),
		FirstName:  first(attrName("first_name", samlAttrGivenName)),
		LastName:   first(attrName("last_name", samlAttrSurname)),
	}

	groups := values[attrName("groups", samlAttrMemberOf)]

	return ident, groups
}

// GetUserInfo returns the local profile of a user provisioned by this
// provider.
func (p *SAMLProvider) GetUserInfo(ctx context.Context, userID uint64) (map[string]any, error) {
	user, err := lookupUser(ctx, p.store, userID)
	if err != nil {
		return nil, err
	}

	return userProfile(user, p.cfg.Name, models.AuthSourceSAML), nil
}

// SyncUserGroups maps assertion group values onto local groups.
func (p *SAMLProvider) SyncUserGroups(ctx context.Context, user *models.User, rawGroups []string) ([]string, error) {
	return p.reconciler.mapGroupsAndRoles(ctx, user, rawGroups)
}

// ValidateToken is not supported: SAML assertions are single-use.
func (p *SAMLProvider) ValidateToken(_ context.Context, _ string) TokenValidation {
	return TokenValidation{Detail: "token validation not supported by saml backends"}
}
