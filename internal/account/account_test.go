package account

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/baiirun/tracker/internal/db"
	"github.com/baiirun/tracker/internal/model"
)

func setupService(t *testing.T) (*Service, *db.DB) {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := d.Init(); err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return NewService(d, bcrypt.MinCost), d
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, NewUser{Email: "Bob@X.edu", Password: "correct horse", FirstName: "Bob", AssignmentTitle: "RD"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Email != "bob@x.edu" || u.Role != model.RoleViewer {
		t.Errorf("user = %+v", u)
	}

	stored, _ := store.GetUser(ctx, "bob@x.edu")
	if stored.PasswordHash == "correct horse" || stored.PasswordHash == "" {
		t.Fatal("password must be stored hashed")
	}

	got, err := svc.Authenticate(ctx, "bob@x.edu", "correct horse")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.AssignmentTitle != "RD" {
		t.Errorf("authenticated user = %+v", got)
	}

	if _, err := svc.Authenticate(ctx, "bob@x.edu", "wrong password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "nobody@x.edu", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, NewUser{Email: "a@x.edu", Password: "longenough"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	tests := []struct {
		name string
		in   NewUser
		want error
	}{
		{"duplicate", NewUser{Email: "A@x.edu", Password: "longenough"}, ErrUserExists},
		{"short password", NewUser{Email: "b@x.edu", Password: "short"}, ErrWeakPassword},
		{"bad email", NewUser{Email: "not-an-email", Password: "longenough"}, ErrInvalidEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Register(ctx, tt.in); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestAuthenticate_PlaintextRowRejected(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	if err := store.SaveUsers(ctx, []model.User{{Email: "legacy@x.edu", PasswordHash: "hunter22"}}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "legacy@x.edu", "hunter22"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("plaintext password must not authenticate, got %v", err)
	}

	if err := svc.SetPassword(ctx, "legacy@x.edu", "a new secret"); err != nil {
		t.Fatalf("set password: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "legacy@x.edu", "a new secret"); err != nil {
		t.Errorf("authenticate after reset: %v", err)
	}
}

func TestAuthenticate_Inactive(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, NewUser{Email: "a@x.edu", Password: "longenough"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.SetStatus(ctx, "a@x.edu", model.UserInactive); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if _, err := svc.Authenticate(ctx, "a@x.edu", "longenough"); !errors.Is(err, ErrInactive) {
		t.Errorf("expected ErrInactive, got %v", err)
	}
}

func TestSetRole(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, NewUser{Email: "a@x.edu", Password: "longenough"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.SetRole(ctx, "a@x.edu", model.RoleAdmin); err != nil {
		t.Fatalf("set role: %v", err)
	}
	u, _ := store.GetUser(ctx, "a@x.edu")
	if u.Role != model.RoleAdmin {
		t.Errorf("role = %s", u.Role)
	}
	if err := svc.SetRole(ctx, "missing@x.edu", model.RoleAdmin); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
