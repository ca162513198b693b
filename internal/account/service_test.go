package account_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"rollbook/internal/account"
	"rollbook/internal/apperr"
	"rollbook/internal/auth"
	"rollbook/internal/cache"
	"rollbook/internal/model"
	"rollbook/internal/store/storetest"
)

func newService(t *testing.T) (*account.Service, *account.Repository) {
	t.Helper()
	db := storetest.OpenMemory(t)
	repo := account.NewRepository(db.Client, nil)
	issuer := auth.NewIssuer("rollbook", "test-secret", time.Minute, time.Hour)
	svc := account.NewService(repo, issuer, cache.NewMemory(), time.Minute, nil)
	svc.HashCost = bcrypt.MinCost
	return svc, repo
}

func register(t *testing.T, svc *account.Service, email, phone string) model.ID {
	t.Helper()
	id, err := svc.Register(context.Background(), account.RegisterInput{
		Email:           email,
		Password:        "s3cret",
		InstitutionType: "school",
		Profile: model.Profile{
			Name:    "Ada",
			Phone:   phone,
			School:  "North High",
			Class:   "10",
			Section: "B",
			Role:    "teacher",
		},
	})
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	return id
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()

	first := register(t, svc, "ada@example.com", "555")

	_, err := svc.Register(ctx, account.RegisterInput{Email: "ada@example.com", Password: "other"})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("second Register error = %v, want conflict", err)
	}

	u, err := repo.GetByID(ctx, first)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if u.Name != "Ada" || account.CheckPassword(u.PasswordHash, "s3cret") != nil {
		t.Fatalf("first user changed: %+v", u)
	}
}

func TestRegisterValidates(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Register(context.Background(), account.RegisterInput{Email: " ", Password: "x"})
	if !errors.Is(err, apperr.ErrInvalidInput) {
		t.Fatalf("error = %v, want invalid input", err)
	}
}

func TestPasswordIsHashed(t *testing.T) {
	svc, repo := newService(t)
	id := register(t, svc, "hash@example.com", "")

	u, err := repo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if u.PasswordHash == "s3cret" || u.PasswordHash == "" {
		t.Fatalf("password stored as %q", u.PasswordHash)
	}
}

func TestLogin(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	id := register(t, svc, "login@example.com", "")

	res, err := svc.Login(ctx, "login@example.com", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.UserID != id || res.InstitutionType != "school" {
		t.Fatalf("result = %+v", res)
	}
	if res.Tokens.AccessToken == "" {
		t.Fatal("expected access token")
	}

	tests := []struct {
		name, email, password string
	}{
		{"wrong password", "login@example.com", "nope"},
		{"unknown email", "ghost@example.com", "s3cret"},
		{"empty email", "", "s3cret"},
		{"empty password", "login@example.com", ""},
		{"both empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(ctx, tt.email, tt.password)
			if !errors.Is(err, apperr.ErrUnauthorized) {
				t.Fatalf("error = %v, want unauthorized", err)
			}
			if apperr.Message(err, "") != "Invalid email or password" {
				t.Fatalf("message = %q", apperr.Message(err, ""))
			}
		})
	}
}

func TestResetPassword(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	register(t, svc, "reset@example.com", "0700")

	if err := svc.ResetPassword(ctx, "0700", "fresh"); err != nil {
		t.Fatalf("ResetPassword by phone: %v", err)
	}
	if _, err := svc.Login(ctx, "reset@example.com", "fresh"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
	if _, err := svc.Login(ctx, "reset@example.com", "s3cret"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("old password should fail, got %v", err)
	}

	err := svc.ResetPassword(ctx, "nobody@example.com", "x")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("error = %v, want not found", err)
	}
}

func TestUpdateProfileKeepsCredentials(t *testing.T) {
	svc, repo := newService(t)
	ctx := context.Background()
	id := register(t, svc, "edit@example.com", "1")

	// warm the cache so the update has something to evict
	if _, err := svc.Profile(ctx, id); err != nil {
		t.Fatalf("Profile: %v", err)
	}

	p := model.Profile{Name: "Grace", Phone: "2", College: "MIT", Year: "3", Branch: "CS", Role: "hod"}
	if err := svc.UpdateProfile(ctx, id, p); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}

	got, err := svc.Profile(ctx, id)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if got.Profile != p {
		t.Fatalf("profile = %+v, want %+v", got.Profile, p)
	}
	if got.Email != "edit@example.com" {
		t.Fatalf("email changed to %q", got.Email)
	}

	raw, _ := repo.GetByID(ctx, id)
	if account.CheckPassword(raw.PasswordHash, "s3cret") != nil {
		t.Fatal("password changed by profile update")
	}
}

func TestProfileNotFound(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.Profile(ctx, 999); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("Profile error = %v, want not found", err)
	}
	if err := svc.UpdateProfile(ctx, 999, model.Profile{Name: "x"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("UpdateProfile error = %v, want not found", err)
	}
}
