package store

import (
	"context"
	"testing"
)

func TestCreateUserAndAuthenticate(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "Ana@Example.com", "s3cret", "Ana Silva")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Email != "ana@example.com" {
		t.Errorf("email not normalized: %q", u.Email)
	}
	if u.PasswordHash == "s3cret" {
		t.Error("password stored in the clear")
	}

	got, err := s.Authenticate(ctx, "ana@example.com", "s3cret")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != u.ID {
		t.Errorf("got user %q, want %q", got.ID, u.ID)
	}
	if got.LastLoginAt == nil {
		t.Error("expected last_login_at to be set")
	}
}

func TestAuthenticateFailures(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.CreateUser(ctx, "ana@example.com", "s3cret", ""); err != nil {
		t.Fatalf("create user: %v", err)
	}

	if _, err := s.Authenticate(ctx, "ana@example.com", "wrong"); err != ErrBadCredentials {
		t.Errorf("wrong password: got %v, want ErrBadCredentials", err)
	}
	if _, err := s.Authenticate(ctx, "nobody@example.com", "s3cret"); err != ErrBadCredentials {
		t.Errorf("unknown email: got %v, want ErrBadCredentials", err)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.CreateUser(ctx, "ana@example.com", "s3cret", ""); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := s.CreateUser(ctx, "ANA@example.com", "other", ""); err != ErrEmailTaken {
		t.Errorf("duplicate email: got %v, want ErrEmailTaken", err)
	}
}
