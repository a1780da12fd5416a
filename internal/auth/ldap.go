package auth

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog/log"

	"github.com/GoAuthBridge/GoAuthBridge/internal/config"
	"github.com/GoAuthBridge/GoAuthBridge/internal/db/models"
	"github.com/GoAuthBridge/GoAuthBridge/internal/db/store"
)

const defaultLDAPTimeout = 10

// ldapConn is the subset of *ldap.Conn the authentication flow uses once a
// connection is established.
type ldapConn interface {
	Bind(username, password string) error
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	Close() error
}

// LDAPProvider authenticates users against an LDAP or Active Directory
// server. Every authentication opens a fresh connection; no connection state
// is shared between calls.
type LDAPProvider struct {
	cfg        *config.Provider
	params     *config.LDAPParams
	reconciler *reconciler
	store      store.Identity

	// dial opens a directory connection. Defaults to connect.
	dial func(ctx context.Context) (ldapConn, error)
}

// NewLDAPProvider validates the directory parameters and returns the
// provider. Missing connection parameters fail construction.
func NewLDAPProvider(cfg *config.Provider, st store.Identity) (*LDAPProvider, error) {
	params := &cfg.LDAP

	if params.Host == "" || params.Port == 0 {
		return nil, fmt.Errorf("%w: ldap host and port are required", ErrInvalidProviderConfig)
	}

	if params.BaseDN == "" {
		return nil, fmt.Errorf("%w: ldap base dn is required", ErrInvalidProviderConfig)
	}

	if params.UserFilter == "" {
		return nil, fmt.Errorf("%w: ldap user filter is required", ErrInvalidProviderConfig)
	}

	if !strings.Contains(params.UserFilter, "{username}") {
		return nil, fmt.Errorf("%w: ldap user filter must contain the {username} placeholder", ErrInvalidProviderConfig)
	}

	// Attribute defaults follow common OpenLDAP schemas.
	if params.UsernameAttr == "" {
		params.UsernameAttr = "uid"
	}

	if params.EmailAttr == "" {
		params.EmailAttr = "mail"
	}

	if params.FirstNameAttr == "" {
		params.FirstNameAttr = "givenName"
	}

	if params.LastNameAttr == "" {
		params.LastNameAttr = "sn"
	}

	if params.GroupNameAttr == "" {
		params.GroupNameAttr = "cn"
	}

	if params.Timeout == 0 {
		params.Timeout = defaultLDAPTimeout
	}

	p := &LDAPProvider{
		cfg:        cfg,
		params:     params,
		reconciler: newReconciler(st, cfg, models.AuthSourceLDAP),
		store:      st,
	}
	p.dial = p.connect

	return p, nil
}

// Name returns the configured provider name.
func (p *LDAPProvider) Name() string { return p.cfg.Name }

// Type returns the LDAP auth source.
func (p *LDAPProvider) Type() models.AuthSource { return models.AuthSourceLDAP }

// Enabled reports whether the provider accepts logins.
func (p *LDAPProvider) Enabled() bool { return p.cfg.Enabled }

// Priority returns the discovery ordering weight.
func (p *LDAPProvider) Priority() int { return p.cfg.Priority }

// DisplayName returns the label shown on login pages.
func (p *LDAPProvider) DisplayName() string {
	if p.cfg.DisplayName != "" {
		return p.cfg.DisplayName
	}

	return p.cfg.Name
}

// connect establishes a connection to the directory, upgrading to TLS when
// configured.
func (p *LDAPProvider) connect(ctx context.Context) (ldapConn, error) {
	hostPort := net.JoinHostPort(p.params.Host, strconv.Itoa(p.params.Port))

	ldapURL := "ldap://" + hostPort
	if p.params.UseSSL {
		ldapURL = "ldaps://" + hostPort
	}

	var tlsConfig *tls.Config
	if p.params.UseSSL || p.params.UseTLS {
		tlsConfig = &tls.Config{
			InsecureSkipVerify: p.params.SkipVerify, //nolint:gosec // explicit opt-in for test setups
			ServerName:         p.params.Host,
		}
	}

	dialer := &net.Dialer{Timeout: time.Duration(p.params.Timeout) * time.Second}

	conn, err := ldap.DialURL(ldapURL,
		ldap.DialWithDialer(dialer),
		ldap.DialWithTLSConfig(tlsConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to LDAP server: %w", err)
	}

	if !p.params.UseSSL && p.params.UseTLS {
		if errStartTLS := conn.StartTLS(tlsConfig); errStartTLS != nil {
			closeConn(conn)

			return nil, fmt.Errorf("failed to start TLS: %w", errStartTLS)
		}
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetTimeout(time.Until(deadline))
	} else {
		conn.SetTimeout(time.Duration(p.params.Timeout) * time.Second)
	}

	return conn, nil
}

func closeConn(conn ldapConn) {
	if err := conn.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close LDAP connection")
	}
}

// Authenticate performs the search-then-bind flow: bind with the service
// account, locate the user entry, bind as the user to prove the password,
// re-bind as the service account for the best-effort group search, then
// reconcile the identity into a local user.
func (p *LDAPProvider) Authenticate(ctx context.Context, creds Credentials) (*models.User, AdditionalData, error) {
	if creds.Username == "" || creds.Password == "" {
		return nil, nil, fmt.Errorf("%w: username and password are required", ErrMalformedCredentials)
	}

	conn, err := p.dial(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	defer closeConn(conn)

	if err = p.bindService(conn); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}

	entry, err := p.searchUserEntry(conn, creds.Username)
	if err != nil {
		return nil, nil, err
	}

	// The user bind is the password proof.
	if err = conn.Bind(entry.DN, creds.Password); err != nil {
		return nil, nil, fmt.Errorf("%w: user bind rejected: %v", ErrAuthenticationFailed, err)
	}

	// Back to the service account for the group search; the user account
	// may not be allowed to read group entries. The password is already
	// proven at this point, so a directory failure during group
	// enumeration degrades to an empty membership instead of rejecting
	// the login.
	var groups []string

	if err = p.bindService(conn); err != nil {
		log.Warn().
			Err(err).
			Str("provider", p.cfg.Name).
			Msg("service re-bind failed, continuing without directory groups")
	} else if groups, err = p.searchUserGroups(conn, entry.DN); err != nil {
		log.Warn().
			Err(err).
			Str("provider", p.cfg.Name).
			Msg("group search failed, continuing without directory groups")

		groups = nil
	}

	ident := &externalIdentity{
		ExternalID: entry.DN,
		Username:   firstNonEmpty(entry.GetAttributeValue(p.params.UsernameAttr), creds.Username),
		Email:      entry.GetAttributeValue(p.params.EmailAttr),
		FirstName:  entry.GetAttributeValue(p.params.FirstNameAttr),
		LastName:   entry.GetAttributeValue(p.params.LastNameAttr),
	}

	user, err := p.reconciler.getOrCreateUser(ctx, ident)
	if err != nil {
		return nil, nil, err
	}

	return user, AdditionalData{"groups": groups}, nil
}

func (p *LDAPProvider) bindService(conn ldapConn) error {
	if p.params.BindDN == "" {
		return nil
	}

	if err := conn.Bind(p.params.BindDN, p.params.BindPassword); err != nil {
		return fmt.Errorf("failed to bind with service account: %w", err)
	}

	return nil
}

// searchUserEntry locates exactly one user entry for the username. The
// username is filter-escaped before substitution to block filter injection.
func (p *LDAPProvider) searchUserEntry(conn ldapConn, username string) (*ldap.Entry, error) {
	filter := strings.ReplaceAll(p.params.UserFilter, "{username}", ldap.EscapeFilter(username))

	req := ldap.NewSearchRequest(
		p.params.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0,
		p.params.Timeout,
		false,
		filter,
		[]string{
			p.params.UsernameAttr,
			p.params.EmailAttr,
			p.params.FirstNameAttr,
			p.params.LastNameAttr,
			"dn",
		},
		nil,
	)

	result, err := conn.Search(req)
	if err != nil {
		return nil, fmt.Errorf("%w: user search failed: %v", ErrAuthenticationFailed, err)
	}

	switch len(result.Entries) {
	case 0:
		return nil, fmt.Errorf("%w: no matching directory entry", ErrAuthenticationFailed)
	case 1:
		return result.Entries[0], nil
	default:
		return nil, ErrMultipleUsersFound
	}
}

// searchUserGroups returns the group names the user's DN is a member of.
// When no group base DN is configured the directory is not queried.
func (p *LDAPProvider) searchUserGroups(conn ldapConn, userDN string) ([]string, error) {
	if p.params.GroupBaseDN == "" || p.params.GroupFilter == "" {
		return nil, nil
	}

	filter := strings.ReplaceAll(p.params.GroupFilter, "{user_dn}", ldap.EscapeFilter(userDN))

	req := ldap.NewSearchRequest(
		p.params.GroupBaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0,
		p.params.Timeout,
		false,
		filter,
		[]string{p.params.GroupNameAttr, "dn"},
		nil,
	)

	result, err := conn.Search(req)
	if err != nil {
		return nil, fmt.Errorf("group search failed: %w", err)
	}

	groups := make([]string, 0, len(result.Entries))

	for _, entry := range result.Entries {
		name := entry.GetAttributeValue(p.params.GroupNameAttr)
		if name == "" {
			name = entry.DN
		}

		groups = append(groups, name)
	}

	return groups, nil
}

// GetUserInfo returns the local profile of a user provisioned by this
// provider. It never queries the directory.
func (p *LDAPProvider) GetUserInfo(ctx context.Context, userID uint64) (map[string]any, error) {
	user, err := lookupUser(ctx, p.store, userID)
	if err != nil {
		return nil, err
	}

	return userProfile(user, p.cfg.Name, models.AuthSourceLDAP), nil
}

// SyncUserGroups maps directory group names onto local groups.
func (p *LDAPProvider) SyncUserGroups(ctx context.Context, user *models.User, rawGroups []string) ([]string, error) {
	return p.reconciler.mapGroupsAndRoles(ctx, user, rawGroups)
}

// ValidateToken is not supported: LDAP has no bearer token concept.
func (p *LDAPProvider) ValidateToken(_ context.Context, _ string) TokenValidation {
	return TokenValidation{Detail: "token validation not supported by ldap backends"}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
