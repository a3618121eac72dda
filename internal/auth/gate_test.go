package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testGate(t *testing.T) *Gate {
	t.Helper()
	g := NewGate(NewUserRepository(testDB(t)), testSecret, 60)
	t.Cleanup(g.Close)
	return g
}

func TestGateRegisterAndAuthenticate(t *testing.T) {
	g := testGate(t)
	ctx := context.Background()

	user, err := g.Register(ctx, "alice", "correct horse")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.PasswordHash == "correct horse" {
		t.Fatal("password stored in plaintext")
	}

	token, authed, err := g.Authenticate(ctx, "alice", "correct horse")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if authed.ID != user.ID {
		t.Errorf("authenticated user ID = %s, want %s", authed.ID, user.ID)
	}

	claims, err := g.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if claims.Subject != user.ID || claims.Username != "alice" {
		t.Errorf("claims = sub:%s username:%s, want sub:%s username:alice",
			claims.Subject, claims.Username, user.ID)
	}
}

func TestGateRegisterValidation(t *testing.T) {
	g := testGate(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"bad username chars", "al ice", "some-password", ErrInvalidUsername},
		{"empty username", "", "some-password", ErrInvalidUsername},
		{"empty password", "alice", "", ErrMissingPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := g.Register(ctx, tt.username, tt.password); !errors.Is(err, tt.wantErr) {
				t.Errorf("Register(%q, %q) error = %v, want %v", tt.username, tt.password, err, tt.wantErr)
			}
		})
	}
}

func TestGateDuplicateRegistration(t *testing.T) {
	g := testGate(t)
	ctx := context.Background()

	if _, err := g.Register(ctx, "alice", "first-password"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if _, err := g.Register(ctx, "alice", "other-password"); !errors.Is(err, ErrUsernameExists) {
		t.Errorf("Register() duplicate error = %v, want ErrUsernameExists", err)
	}

	// The original credentials must still work.
	if _, _, err := g.Authenticate(ctx, "alice", "first-password"); err != nil {
		t.Errorf("Authenticate() after failed duplicate = %v, want nil", err)
	}
}

func TestGateAuthenticateRejects(t *testing.T) {
	g := testGate(t)
	ctx := context.Background()

	if _, err := g.Register(ctx, "alice", "correct horse"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// Wrong password and unknown user return the same error so responses
	// do not reveal which usernames exist.
	if _, _, err := g.Authenticate(ctx, "alice", "wrong horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password error = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := g.Authenticate(ctx, "bob", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user error = %v, want ErrInvalidCredentials", err)
	}
}

func TestGateInvalidate(t *testing.T) {
	g := testGate(t)
	ctx := context.Background()

	if _, err := g.Register(ctx, "alice", "correct horse"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	token, _, err := g.Authenticate(ctx, "alice", "correct horse")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	if _, err := g.Validate(token); err != nil {
		t.Fatalf("Validate() before logout error = %v", err)
	}

	g.Invalidate(token)

	if _, err := g.Validate(token); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("Validate() after logout error = %v, want ErrTokenRevoked", err)
	}

	// Revoking again, or revoking garbage, is a no-op.
	g.Invalidate(token)
	g.Invalidate("not-a-token")
}

func TestGateSweepDropsExpiredRevocations(t *testing.T) {
	g := testGate(t)

	g.mu.Lock()
	g.revoked["sid-old"] = time.Now().Add(-time.Minute)
	g.revoked["sid-live"] = time.Now().Add(time.Hour)
	g.mu.Unlock()

	g.sweep(time.Now())

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.revoked["sid-old"]; ok {
		t.Error("expired revocation was not swept")
	}
	if _, ok := g.revoked["sid-live"]; !ok {
		t.Error("live revocation was swept")
	}
}
