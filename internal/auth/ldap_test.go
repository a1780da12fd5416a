package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/go-ldap/ldap/v3"

	"github.com/GoAuthBridge/GoAuthBridge/internal/config"
)

func validLDAPConfig() *config.Provider {
	return &config.Provider{
		Name:    "dir",
		Type:    config.ProviderTypeLDAP,
		Enabled: true,
		LDAP: config.LDAPParams{
			Host:       "ldap.example.org",
			Port:       389,
			BaseDN:     "dc=example,dc=org",
			UserFilter: "(uid={username})",
		},
	}
}

// fakeDirConn simulates the directory side of the search-then-bind flow.
type fakeDirConn struct {
	serviceDN string
	servicePW string
	userDN    string
	userPW    string

	entry  *ldap.Entry
	groups []*ldap.Entry

	serviceBinds int
	// failServiceRebind rejects service binds after the initial one.
	failServiceRebind bool
	failGroupSearch   bool
	closed            bool
}

func (c *fakeDirConn) Bind(dn, password string) error {
	switch dn {
	case c.serviceDN:
		c.serviceBinds++

		if c.failServiceRebind && c.serviceBinds > 1 {
			return errors.New("directory unavailable")
		}

		if password != c.servicePW {
			return errors.New("invalid credentials")
		}

		return nil
	case c.userDN:
		if password != c.userPW {
			return errors.New("invalid credentials")
		}

		return nil
	default:
		return errors.New("no such object")
	}
}

func (c *fakeDirConn) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	if req.BaseDN == "dc=example,dc=org" {
		entries := []*ldap.Entry{}
		if c.entry != nil {
			entries = append(entries, c.entry)
		}

		return &ldap.SearchResult{Entries: entries}, nil
	}

	if c.failGroupSearch {
		return nil, errors.New("group base unreachable")
	}

	return &ldap.SearchResult{Entries: c.groups}, nil
}

func (c *fakeDirConn) Close() error {
	c.closed = true

	return nil
}

func newFakeDirConn() *fakeDirConn {
	return &fakeDirConn{
		serviceDN: "cn=svc,dc=example,dc=org",
		servicePW: "svc-pw",
		userDN:    "uid=alice,dc=example,dc=org",
		userPW:    "s3cret",
		entry: &ldap.Entry{
			DN: "uid=alice,dc=example,dc=org",
			Attributes: []*ldap.EntryAttribute{
				ldap.NewEntryAttribute("uid", []string{"alice"}),
				ldap.NewEntryAttribute("mail", []string{"alice@example.org"}),
			},
		},
		groups: []*ldap.Entry{
			{
				DN:         "cn=devs,ou=groups,dc=example,dc=org",
				Attributes: []*ldap.EntryAttribute{ldap.NewEntryAttribute("cn", []string{"devs"})},
			},
		},
	}
}

// newFakeDirProvider wires a directory-backed provider onto a fake
// connection, with the service account and group search configured.
func newFakeDirProvider(t *testing.T, fs *fakeStore, conn *fakeDirConn) *LDAPProvider {
	t.Helper()

	cfg := validLDAPConfig()
	cfg.LDAP.BindDN = conn.serviceDN
	cfg.LDAP.BindPassword = conn.servicePW
	cfg.LDAP.GroupBaseDN = "ou=groups,dc=example,dc=org"
	cfg.LDAP.GroupFilter = "(member={user_dn})"

	p, err := NewLDAPProvider(cfg, fs)
	if err != nil {
		t.Fatalf("NewLDAPProvider failed: %v", err)
	}

	p.dial = func(context.Context) (ldapConn, error) { return conn, nil }

	return p
}

func TestNewLDAPProviderValidation(t *testing.T) {
	fs := newFakeStore()

	tests := []struct {
		name   string
		mutate func(*config.Provider)
	}{
		{"missing host", func(c *config.Provider) { c.LDAP.Host = "" }},
		{"missing port", func(c *config.Provider) { c.LDAP.Port = 0 }},
		{"missing base dn", func(c *config.Provider) { c.LDAP.BaseDN = "" }},
		{"missing user filter", func(c *config.Provider) { c.LDAP.UserFilter = "" }},
		{"filter without placeholder", func(c *config.Provider) { c.LDAP.UserFilter = "(uid=alice)" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validLDAPConfig()
			tt.mutate(cfg)

			_, err := NewLDAPProvider(cfg, fs)
			if !errors.Is(err, ErrInvalidProviderConfig) {
				t.Errorf("expected ErrInvalidProviderConfig, got %v", err)
			}
		})
	}
}

func TestNewLDAPProviderDefaults(t *testing.T) {
	fs := newFakeStore()

	p, err := NewLDAPProvider(validLDAPConfig(), fs)
	if err != nil {
		t.Fatalf("NewLDAPProvider failed: %v", err)
	}

	if p.params.UsernameAttr != "uid" || p.params.EmailAttr != "mail" {
		t.Errorf("attribute defaults not applied: %+v", p.params)
	}

	if p.params.GroupNameAttr != "cn" {
		t.Errorf("group name attr default not applied: %q", p.params.GroupNameAttr)
	}

	if p.params.Timeout != defaultLDAPTimeout {
		t.Errorf("timeout default not applied: %d", p.params.Timeout)
	}
}

func TestLDAPAuthenticateRejectsMalformedCredentials(t *testing.T) {
	fs := newFakeStore()

	p, err := NewLDAPProvider(validLDAPConfig(), fs)
	if err != nil {
		t.Fatalf("NewLDAPProvider failed: %v", err)
	}

	tests := []Credentials{
		{},
		{Username: "alice"},
		{Password: "s3cret"},
		{SAMLResponse: "PHNhbWw+"},
	}

	for _, creds := range tests {
		if _, _, err := p.Authenticate(context.Background(), creds); !errors.Is(err, ErrMalformedCredentials) {
			t.Errorf("creds %+v: expected ErrMalformedCredentials, got %v", creds, err)
		}
	}
}

func TestLDAPAuthenticateSuccess(t *testing.T) {
	fs := newFakeStore()
	conn := newFakeDirConn()
	p := newFakeDirProvider(t, fs, conn)

	user, data, err := p.Authenticate(context.Background(), Credentials{Username: "alice", Password: "s3cret"})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	if user.Username != "alice" || user.ExternalID != "uid=alice,dc=example,dc=org" {
		t.Errorf("unexpected user: %+v", user)
	}

	if user.Email != "alice@example.org" {
		t.Errorf("email not extracted: %q", user.Email)
	}

	groups, _ := data["groups"].([]string)
	if len(groups) != 1 || groups[0] != "devs" {
		t.Errorf("unexpected groups: %v", groups)
	}

	if !conn.closed {
		t.Error("connection not closed after authentication")
	}
}

func TestLDAPAuthenticateWrongPassword(t *testing.T) {
	fs := newFakeStore()
	p := newFakeDirProvider(t, fs, newFakeDirConn())

	_, _, err := p.Authenticate(context.Background(), Credentials{Username: "alice", Password: "wrong"})
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}

	if len(fs.users) != 0 {
		t.Errorf("no user should be created, got %d", len(fs.users))
	}
}

func TestLDAPAuthenticateUnknownUser(t *testing.T) {
	fs := newFakeStore()
	conn := newFakeDirConn()
	conn.entry = nil
	p := newFakeDirProvider(t, fs, conn)

	_, _, err := p.Authenticate(context.Background(), Credentials{Username: "ghost", Password: "pw"})
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
}

func TestLDAPAuthenticateGroupLookupDegrades(t *testing.T) {
	// Once the password is proven, directory trouble during group
	// enumeration must not fail the login.
	tests := []struct {
		name   string
		mutate func(*fakeDirConn)
	}{
		{"service re-bind fails", func(c *fakeDirConn) { c.failServiceRebind = true }},
		{"group search fails", func(c *fakeDirConn) { c.failGroupSearch = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newFakeStore()
			conn := newFakeDirConn()
			tt.mutate(conn)
			p := newFakeDirProvider(t, fs, conn)

			user, data, err := p.Authenticate(context.Background(), Credentials{Username: "alice", Password: "s3cret"})
			if err != nil {
				t.Fatalf("login must survive group lookup failure, got %v", err)
			}

			if user.Username != "alice" {
				t.Errorf("unexpected user: %+v", user)
			}

			groups, _ := data["groups"].([]string)
			if len(groups) != 0 {
				t.Errorf("expected empty membership, got %v", groups)
			}
		})
	}
}

func TestLDAPValidateTokenNotSupported(t *testing.T) {
	fs := newFakeStore()

	p, err := NewLDAPProvider(validLDAPConfig(), fs)
	if err != nil {
		t.Fatalf("NewLDAPProvider failed: %v", err)
	}

	if v := p.ValidateToken(context.Background(), "token"); v.Valid || v.Detail == "" {
		t.Errorf("ldap provider must report unsupported token validation, got %+v", v)
	}
}

func TestLDAPProviderIdentity(t *testing.T) {
	fs := newFakeStore()

	cfg := validLDAPConfig()
	cfg.DisplayName = "Corporate Directory"
	cfg.Priority = 10

	p, err := NewLDAPProvider(cfg, fs)
	if err != nil {
		t.Fatalf("NewLDAPProvider failed: %v", err)
	}

	if p.Name() != "dir" || p.DisplayName() != "Corporate Directory" || p.Priority() != 10 {
		t.Errorf("provider identity mismatch: %s %s %d", p.Name(), p.DisplayName(), p.Priority())
	}
}
