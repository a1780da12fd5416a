package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/GoAuthBridge/GoAuthBridge/internal/config"
	"github.com/GoAuthBridge/GoAuthBridge/internal/db/models"
)

func newLocalTestProvider(t *testing.T) (*LocalProvider, *fakeStore) {
	t.Helper()

	fs := newFakeStore()

	p, err := NewLocalProvider(&config.Provider{
		Name:    "users",
		Type:    config.ProviderTypeLocal,
		Enabled: true,
	}, fs)
	if err != nil {
		t.Fatalf("NewLocalProvider failed: %v", err)
	}

	return p, fs
}

func seedLocalUser(t *testing.T, fs *fakeStore, username, password string) *models.User {
	t.Helper()

	user := &models.User{
		Active:     true,
		Username:   username,
		Password:   models.HashPassword(password),
		AuthSource: models.AuthSourceLocal,
		RoleID:     1,
	}

	if err := fs.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	return user
}

func TestLocalAuthenticateSuccess(t *testing.T) {
	p, fs := newLocalTestProvider(t)
	seeded := seedLocalUser(t, fs, "alice", "s3cret")

	user, _, err := p.Authenticate(context.Background(), Credentials{
		Username: "alice",
		Password: "s3cret",
	})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	if user.ID != seeded.ID {
		t.Errorf("user id = %d, want %d", user.ID, seeded.ID)
	}

	if user.LastLogin == nil {
		t.Error("last login should be recorded")
	}
}

func TestLocalAuthenticateFailures(t *testing.T) {
	p, fs := newLocalTestProvider(t)
	seedLocalUser(t, fs, "alice", "s3cret")

	disabled := seedLocalUser(t, fs, "bob", "pw")
	disabled.Active = false

	if err := fs.UpdateUser(context.Background(), disabled); err != nil {
		t.Fatalf("failed to disable user: %v", err)
	}

	tests := []struct {
		name  string
		creds Credentials
		want  error
	}{
		{"unknown user", Credentials{Username: "ghost", Password: "x"}, ErrAuthenticationFailed},
		{"wrong password", Credentials{Username: "alice", Password: "wrong"}, ErrAuthenticationFailed},
		{"disabled account", Credentials{Username: "bob", Password: "pw"}, ErrAuthenticationFailed},
		{"missing password", Credentials{Username: "alice"}, ErrMalformedCredentials},
		{"missing username", Credentials{Password: "s3cret"}, ErrMalformedCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := p.Authenticate(context.Background(), tt.creds)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLocalAuthenticateFailureDoesNotMutateUser(t *testing.T) {
	p, fs := newLocalTestProvider(t)
	seeded := seedLocalUser(t, fs, "alice", "s3cret")

	_, _, err := p.Authenticate(context.Background(), Credentials{
		Username: "alice",
		Password: "wrong",
	})
	if err == nil {
		t.Fatal("expected failure")
	}

	stored, _ := fs.FindUserByID(context.Background(), seeded.ID)
	if stored.LastLogin != nil {
		t.Error("failed login must not record a login time")
	}
}

func TestLocalAuthenticateRequiresTOTPWhenEnrolled(t *testing.T) {
	p, fs := newLocalTestProvider(t)
	seeded := seedLocalUser(t, fs, "alice", "s3cret")

	seeded.TOTPSecret = "JBSWY3DPEHPK3PXP"
	if err := fs.UpdateUser(context.Background(), seeded); err != nil {
		t.Fatalf("failed to enroll totp: %v", err)
	}

	_, _, err := p.Authenticate(context.Background(), Credentials{
		Username: "alice",
		Password: "s3cret",
	})
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed without code, got %v", err)
	}

	_, _, err = p.Authenticate(context.Background(), Credentials{
		Username: "alice",
		Password: "s3cret",
		TOTPCode: "000000",
	})
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed with bad code, got %v", err)
	}
}

func TestLocalProviderTokenAndGroups(t *testing.T) {
	p, _ := newLocalTestProvider(t)

	if v := p.ValidateToken(context.Background(), "anything"); v.Valid || v.Detail == "" {
		t.Errorf("local provider must report unsupported token validation, got %+v", v)
	}

	groups, err := p.SyncUserGroups(context.Background(), &models.User{}, []string{"raw"})
	if err != nil {
		t.Fatalf("SyncUserGroups failed: %v", err)
	}

	if len(groups) != 0 {
		t.Errorf("local sync must be a no-op, got %v", groups)
	}
}

func TestLocalGetUserInfo(t *testing.T) {
	p, fs := newLocalTestProvider(t)
	seeded := seedLocalUser(t, fs, "alice", "s3cret")

	profile, err := p.GetUserInfo(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("GetUserInfo failed: %v", err)
	}

	if profile["username"] != "alice" {
		t.Errorf("unexpected profile: %v", profile)
	}

	if _, err = p.GetUserInfo(context.Background(), 9999); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
