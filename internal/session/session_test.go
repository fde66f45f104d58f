package session

import (
	"context"
	"testing"
	"time"
)

func withSecret(t *testing.T) {
	t.Helper()
	t.Setenv("QALA_AUTH_SECRET", "unit-test-secret")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)
}

func TestGenerateAndValidate(t *testing.T) {
	withSecret(t)

	token, err := Generate("05551234567", []string{RoleCitizen}, time.Hour)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	claims, err := ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if claims.Subject != "05551234567" {
		t.Fatalf("subject = %q", claims.Subject)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != RoleCitizen {
		t.Fatalf("roles = %v", claims.Roles)
	}
}

func TestGenerateRejectsBadInput(t *testing.T) {
	withSecret(t)

	if _, err := Generate("", []string{RoleCitizen}, time.Hour); err == nil {
		t.Fatal("empty identity must fail")
	}
	if _, err := Generate("x", nil, 0); err == nil {
		t.Fatal("zero ttl must fail")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	withSecret(t)

	token, err := Generate("x", []string{RoleCitizen}, time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := ParseAndValidate(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	withSecret(t)

	token, err := Generate("x", []string{RoleAdmin}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ParseAndValidate(token + "x"); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := ParseAndValidate(""); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for empty, got %v", err)
	}
}

func TestMissingSecret(t *testing.T) {
	t.Setenv("QALA_AUTH_SECRET", "")
	ResetSecretForTests()
	t.Cleanup(ResetSecretForTests)

	if _, err := Generate("x", nil, time.Hour); err == nil {
		t.Fatal("expected error when secret is not configured")
	}
}

func TestRoleNormalizationAndContext(t *testing.T) {
	roles := normalizeRoles([]string{" Admin ", "admin", "", "CITIZEN"})
	if len(roles) != 2 || roles[0] != "admin" || roles[1] != "citizen" {
		t.Fatalf("normalized = %v", roles)
	}

	ctx := ContextWithIdentity(context.Background(), "05551234567", roles)
	identity, ok := IdentityFromContext(ctx)
	if !ok || identity != "05551234567" {
		t.Fatalf("identity = %q ok=%v", identity, ok)
	}
	if !HasRole(ctx, "admin") || !HasRole(ctx, "Citizen") {
		t.Fatal("expected both roles present")
	}
	if HasRole(ctx, "root") {
		t.Fatal("unexpected role")
	}
}
