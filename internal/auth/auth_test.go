package auth

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sydlexius/backbeat/internal/database"
)

func setupService(t *testing.T) *Service {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatal(err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewService(db, logger)
}

func TestSetupAndLogin(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	created, err := svc.Setup(ctx, "admin", "correct horse battery staple")
	if err != nil {
		t.Fatal(err)
	}
	if !created {
		t.Fatal("expected initial setup to create the account")
	}

	// Second setup is a no-op.
	created, err = svc.Setup(ctx, "other", "password")
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("setup must not create a second account")
	}

	token, err := svc.Login(ctx, "admin", "correct horse battery staple")
	if err != nil {
		t.Fatal(err)
	}
	if token == "" {
		t.Fatal("expected a session token")
	}

	userID, err := svc.ValidateSession(ctx, token)
	if err != nil {
		t.Fatal(err)
	}
	if userID == "" {
		t.Error("expected a user id from session validation")
	}

	if err := svc.Logout(ctx, token); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ValidateSession(ctx, token); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("after logout, err = %v, want ErrInvalidSession", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	if _, err := svc.Setup(ctx, "admin", "secret"); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Login(ctx, "admin", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, "nobody", "secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: err = %v, want ErrInvalidCredentials", err)
	}
}

func TestLongPasswordsSupported(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	// Longer than bcrypt's 72-byte input limit.
	long := strings.Repeat("a", 100)
	if _, err := svc.Setup(ctx, "admin", long); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Login(ctx, "admin", long); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Login(ctx, "admin", long+"b"); !errors.Is(err, ErrInvalidCredentials) {
		t.Error("a different long password must not authenticate")
	}
}

func TestAPITokenLifecycle(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	if _, err := svc.Setup(ctx, "admin", "secret"); err != nil {
		t.Fatal(err)
	}
	session, err := svc.Login(ctx, "admin", "secret")
	if err != nil {
		t.Fatal(err)
	}
	userID, err := svc.ValidateSession(ctx, session)
	if err != nil {
		t.Fatal(err)
	}

	plaintext, id, err := svc.CreateAPIToken(ctx, userID, "userscript")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(plaintext, "bbt_") {
		t.Errorf("token = %q, want bbt_ prefix", plaintext)
	}

	got, err := svc.ValidateAPIToken(ctx, plaintext)
	if err != nil {
		t.Fatal(err)
	}
	if got != userID {
		t.Errorf("token user = %q, want %q", got, userID)
	}

	tokens, err := svc.ListAPITokens(ctx, userID)
	if err != nil {
		t.Fatal(err)
	}
	if len(tokens) != 1 || tokens[0].Name != "userscript" {
		t.Fatalf("tokens = %+v, want one named userscript", tokens)
	}
	if tokens[0].LastUsedAt == "" {
		t.Error("expected last_used_at to be stamped after validation")
	}

	if err := svc.RevokeAPIToken(ctx, id, userID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ValidateAPIToken(ctx, plaintext); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("after revoke, err = %v, want ErrInvalidToken", err)
	}
}

func TestValidateAPITokenRejectsGarbage(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	if _, err := svc.ValidateAPIToken(ctx, "not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
	if _, err := svc.ValidateAPIToken(ctx, "bbt_deadbeef"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}
