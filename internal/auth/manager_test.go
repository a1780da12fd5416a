package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/GoAuthBridge/GoAuthBridge/internal/config"
	"github.com/GoAuthBridge/GoAuthBridge/internal/db/models"
)

func newTestManager(t *testing.T, cfgs []config.Provider) (*Manager, *fakeStore) {
	t.Helper()

	fs := newFakeStore()

	m, err := NewManager(cfgs, fs, "http://localhost:3000")
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	return m, fs
}

func localProviderConfig(name string, enabled bool, priority int) config.Provider {
	return config.Provider{
		Name:     name,
		Type:     config.ProviderTypeLocal,
		Enabled:  enabled,
		Priority: priority,
	}
}

func TestNewManagerRejectsDuplicateNames(t *testing.T) {
	fs := newFakeStore()

	_, err := NewManager([]config.Provider{
		localProviderConfig("users", true, 0),
		localProviderConfig("users", true, 0),
	}, fs, "http://localhost:3000")
	if !errors.Is(err, ErrInvalidProviderConfig) {
		t.Fatalf("expected ErrInvalidProviderConfig, got %v", err)
	}
}

func TestNewManagerRejectsBrokenProvider(t *testing.T) {
	fs := newFakeStore()

	// LDAP without connection parameters must abort startup.
	_, err := NewManager([]config.Provider{
		{Name: "dir", Type: config.ProviderTypeLDAP, Enabled: true},
	}, fs, "http://localhost:3000")
	if !errors.Is(err, ErrInvalidProviderConfig) {
		t.Fatalf("expected ErrInvalidProviderConfig, got %v", err)
	}
}

func TestNewManagerToleratesDisabledHalfConfiguredProvider(t *testing.T) {
	// A parked block with enabled = false may be incomplete. It must not
	// block startup, but it stays inspectable and dispatch reports it as
	// disabled rather than unknown.
	m, _ := newTestManager(t, []config.Provider{
		localProviderConfig("users", true, 0),
		{Name: "parked-dir", Type: config.ProviderTypeLDAP, Enabled: false},
	})
	ctx := context.Background()

	_, _, err := m.Authenticate(ctx, "parked-dir", Credentials{Username: "a", Password: "b"})
	if !errors.Is(err, ErrProviderDisabled) {
		t.Errorf("expected ErrProviderDisabled, got %v", err)
	}

	cfg, err := m.GetProviderConfig("parked-dir")
	if err != nil {
		t.Fatalf("GetProviderConfig failed: %v", err)
	}

	if cfg.Name != "parked-dir" || cfg.Enabled {
		t.Errorf("unexpected config: %+v", cfg)
	}

	for _, info := range m.ListProviders() {
		if info.Name == "parked-dir" {
			t.Error("disabled provider must not be listed")
		}
	}
}

func TestManagerDispatchErrors(t *testing.T) {
	m, _ := newTestManager(t, []config.Provider{
		localProviderConfig("users", true, 0),
		localProviderConfig("legacy", false, 0),
	})
	ctx := context.Background()

	_, _, err := m.Authenticate(ctx, "missing", Credentials{Username: "a", Password: "b"})
	if !errors.Is(err, ErrProviderNotConfigured) {
		t.Errorf("unknown provider: expected ErrProviderNotConfigured, got %v", err)
	}

	_, _, err = m.Authenticate(ctx, "legacy", Credentials{Username: "a", Password: "b"})
	if !errors.Is(err, ErrProviderDisabled) {
		t.Errorf("disabled provider: expected ErrProviderDisabled, got %v", err)
	}
}

func TestListProvidersOrdering(t *testing.T) {
	m, _ := newTestManager(t, []config.Provider{
		localProviderConfig("a", true, 1),
		localProviderConfig("b", true, 3),
		localProviderConfig("c", true, 3),
		localProviderConfig("hidden", false, 9),
	})

	infos := m.ListProviders()

	got := make([]string, len(infos))
	for i, info := range infos {
		got[i] = info.Name
	}

	// Priority descending; b before c because of configuration order;
	// disabled providers never listed.
	want := []string{"b", "c", "a"}

	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestGetProviderConfigRedactsSecrets(t *testing.T) {
	cfg := config.Provider{
		Name:    "dir",
		Type:    config.ProviderTypeLDAP,
		Enabled: true,
		LDAP: config.LDAPParams{
			Host:         "ldap.example.org",
			Port:         636,
			BaseDN:       "dc=example,dc=org",
			UserFilter:   "(uid={username})",
			BindDN:       "cn=svc,dc=example,dc=org",
			BindPassword: "hunter2",
		},
	}

	m, _ := newTestManager(t, []config.Provider{cfg})

	redacted, err := m.GetProviderConfig("dir")
	if err != nil {
		t.Fatalf("GetProviderConfig failed: %v", err)
	}

	if redacted.LDAP.BindPassword != config.HiddenSecret {
		t.Errorf("bind password not redacted: %q", redacted.LDAP.BindPassword)
	}

	if redacted.LDAP.Host != "ldap.example.org" {
		t.Errorf("non-secret field changed: %q", redacted.LDAP.Host)
	}

	if _, err = m.GetProviderConfig("missing"); !errors.Is(err, ErrProviderNotConfigured) {
		t.Errorf("expected ErrProviderNotConfigured, got %v", err)
	}
}

func TestManagerSyncUserGroupsDegradesToEmpty(t *testing.T) {
	m, fs := newTestManager(t, []config.Provider{
		{
			Name:             "dir",
			Type:             config.ProviderTypeLDAP,
			Enabled:          true,
			AutoCreateGroups: true,
			LDAP: config.LDAPParams{
				Host:       "ldap.example.org",
				Port:       389,
				BaseDN:     "dc=example,dc=org",
				UserFilter: "(uid={username})",
			},
		},
	})
	ctx := context.Background()

	user := &models.User{Active: true, Username: "alice", AuthSource: models.AuthSourceLDAP, RoleID: 1}
	if err := fs.CreateUser(ctx, user); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	fs.failReplaceGroups = errors.New("storage offline")

	groups, err := m.SyncUserGroups(ctx, "dir", user, []string{"cn=devs"})
	if err != nil {
		t.Fatalf("manager must degrade, got error: %v", err)
	}

	if len(groups) != 0 {
		t.Errorf("expected empty membership on degraded sync, got %v", groups)
	}

	// The provider called directly still reports the failure.
	p, err := m.Provider("dir")
	if err != nil {
		t.Fatalf("Provider failed: %v", err)
	}

	if _, err = p.SyncUserGroups(ctx, user, []string{"cn=devs"}); !errors.Is(err, ErrGroupSyncFailed) {
		t.Errorf("expected ErrGroupSyncFailed from provider, got %v", err)
	}
}

func TestManagerAuthenticateWrapsFailures(t *testing.T) {
	m, _ := newTestManager(t, []config.Provider{
		localProviderConfig("users", true, 0),
	})

	_, _, err := m.Authenticate(context.Background(), "users", Credentials{
		Username: "ghost",
		Password: "nope",
	})
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
}
