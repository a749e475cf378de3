package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestService() *Service {
	return NewService(NewMemoryUsers(), NewTokenManager("test-secret", time.Hour))
}

func TestRegisterLoginAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	userID, err := svc.Register(ctx, RegisterInput{
		Name:     "Asha",
		Email:    "Asha@Example.Com",
		Password: "hunter22",
	})
	if err != nil {
		t.Fatal(err)
	}
	if userID == "" {
		t.Fatal("empty user id")
	}

	// email is matched case-insensitively
	token, user, err := svc.Login(ctx, "asha@example.com", "hunter22")
	if err != nil {
		t.Fatal(err)
	}
	if user.ID != userID {
		t.Fatalf("login resolved wrong user: %s", user.ID)
	}
	if user.PasswordHash == "hunter22" {
		t.Fatal("password stored in the clear")
	}

	id, err := svc.Authenticate(ctx, token)
	if err != nil {
		t.Fatal(err)
	}
	if id.UserID != userID || id.Email != "asha@example.com" {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()

	if _, err := svc.Register(ctx, RegisterInput{Name: "A", Email: "a@x.com", Password: "secret1"}); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Register(ctx, RegisterInput{Name: "B", Email: "A@X.COM", Password: "secret2"})
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestLoginFailuresIndistinguishable(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	_, _ = svc.Register(ctx, RegisterInput{Name: "A", Email: "a@x.com", Password: "secret1"})

	if _, _, err := svc.Login(ctx, "nobody@x.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: got %v", err)
	}
	if _, _, err := svc.Login(ctx, "a@x.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v", err)
	}
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	userID, _ := svc.Register(ctx, RegisterInput{Name: "A", Email: "a@x.com", Password: "secret1"})

	if _, err := svc.Authenticate(ctx, "not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage token: got %v", err)
	}

	// token signed with a different secret
	other := NewTokenManager("other-secret", time.Hour)
	forged, _ := other.Generate(userID)
	if _, err := svc.Authenticate(ctx, forged); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("forged token: got %v", err)
	}

	// valid signature but the user no longer exists
	orphan, _ := NewTokenManager("test-secret", time.Hour).Generate("deleted-user")
	if _, err := svc.Authenticate(ctx, orphan); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("orphan token: got %v", err)
	}
}

func TestExpiredToken(t *testing.T) {
	tm := NewTokenManager("test-secret", -time.Minute)
	tok, err := tm.Generate("u1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tm.Parse(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token accepted: %v", err)
	}
}
