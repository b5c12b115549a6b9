package account

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/audx/internal/models"
	"github.com/desertthunder/audx/internal/repositories"
	"github.com/desertthunder/audx/internal/session"
	"github.com/desertthunder/audx/internal/shared"
	tu "github.com/desertthunder/audx/internal/testing"
)

func setup(t *testing.T) (*Service, *session.State, *tu.FakeStore) {
	t.Helper()
	store := tu.NewFakeStore()
	sess := session.New(nil, nil)
	return New(store, sess, nil, nil), sess, store
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	form := models.RegisterRequest{
		Username:        "asha_rao",
		Name:            " Asha Rao ",
		Email:           "asha@example.com",
		Password:        "Secret@12",
		ConfirmPassword: "Secret@12",
	}

	t.Run("valid form signs in", func(t *testing.T) {
		svc, sess, _ := setup(t)

		customer, err := svc.Register(ctx, form)
		if err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		if customer.Name != "Asha Rao" {
			t.Errorf("expected trimmed name, got %q", customer.Name)
		}
		current, ok := sess.Current()
		if !ok || current.Username != "asha_rao" {
			t.Errorf("expected signed in as asha_rao, got %+v", current)
		}
	})

	t.Run("invalid form is not sent", func(t *testing.T) {
		svc, sess, store := setup(t)

		bad := form
		bad.ConfirmPassword = "nope"
		_, err := svc.Register(ctx, bad)
		if shared.UserMessage(err, RegisterFailed) != "Passwords do not match" {
			t.Errorf("unexpected error %v", err)
		}
		if store.Calls("Register") != 0 {
			t.Error("invalid form reached the store")
		}
		if _, ok := sess.Current(); ok {
			t.Error("should not be signed in")
		}
	})

	t.Run("remote failure falls back", func(t *testing.T) {
		svc, _, store := setup(t)
		store.Errs["Register"] = &shared.RemoteError{Status: 500}

		_, err := svc.Register(ctx, form)
		if shared.UserMessage(err, RegisterFailed) != RegisterFailed {
			t.Errorf("expected fallback, got %v", err)
		}
	})
}

func TestLoginLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("login persists the session", func(t *testing.T) {
		db, err := shared.NewDatabase(shared.MemoryDSN)
		if err != nil {
			t.Fatalf("NewDatabase() error = %v", err)
		}
		defer db.Close()
		if err := shared.RunMigrations(db); err != nil {
			t.Fatalf("RunMigrations() error = %v", err)
		}
		slots := repositories.NewStateRepository(db)

		store := tu.NewFakeStore()
		svc := New(store, session.New(slots, nil), nil, nil)
		if _, err := svc.Login(ctx, "asha", "pw"); err != nil {
			t.Fatalf("Login() error = %v", err)
		}

		restored := session.New(slots, nil)
		current, ok := restored.Current()
		if !ok || current.CustomerID != 1 {
			t.Fatalf("expected restored session, got %+v", current)
		}

		New(store, restored, nil, nil).Logout()
		if _, ok := session.New(slots, nil).Current(); ok {
			t.Error("expected no session after logout")
		}
	})

	t.Run("empty credentials are rejected locally", func(t *testing.T) {
		svc, _, store := setup(t)
		if _, err := svc.Login(ctx, " ", ""); !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
		if store.TotalCalls() != 0 {
			t.Error("expected no request")
		}
	})

	t.Run("whoami", func(t *testing.T) {
		svc, sess, _ := setup(t)
		if _, err := svc.Whoami(); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		sess.Login(models.Session{CustomerID: 4, Username: "dev"})
		current, err := svc.Whoami()
		if err != nil || current.Username != "dev" {
			t.Errorf("Whoami() = %+v, %v", current, err)
		}
	})
}

func TestPasswords(t *testing.T) {
	ctx := context.Background()

	t.Run("change requires matching confirmation", func(t *testing.T) {
		svc, sess, store := setup(t)
		sess.Login(models.Session{CustomerID: 1})

		_, err := svc.ChangePassword(ctx, "Secret@12", "Secret@13")
		if shared.UserMessage(err, "") != "New password and confirm password do not match" {
			t.Errorf("unexpected error %v", err)
		}
		if store.Calls("ChangePassword") != 0 {
			t.Error("mismatched change reached the store")
		}

		msg, err := svc.ChangePassword(ctx, "Secret@12", "Secret@12")
		if err != nil || msg == "" {
			t.Errorf("ChangePassword() = %q, %v", msg, err)
		}
	})

	t.Run("change requires a session", func(t *testing.T) {
		svc, _, _ := setup(t)
		if _, err := svc.ChangePassword(ctx, "a", "a"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("forgot password", func(t *testing.T) {
		svc, _, store := setup(t)
		if _, err := svc.ForgotPassword(ctx, "asha@example.com", "Secret@12"); err != nil {
			t.Errorf("ForgotPassword() error = %v", err)
		}
		store.Errs["ForgotPassword"] = &shared.RemoteError{Status: 404, Message: "Customer not found"}
		_, err := svc.ForgotPassword(ctx, "who@example.com", "Secret@12")
		if shared.UserMessage(err, ResetPasswordFailed) != "Customer not found" {
			t.Errorf("unexpected error %v", err)
		}
	})
}
