package authinfra

import (
	"strings"
	"testing"
	"time"
)

func TestJWTIssuer_IssueAndParse(t *testing.T) {
	issuer := NewJWTIssuer("test-secret")

	expires := time.Now().Add(15 * time.Minute)
	token, err := issuer.IssueAccess("u-1", "at-123", expires)
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("expected JWT format, got %q", token)
	}

	claims, err := issuer.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("ParseAccessToken failed: %v", err)
	}
	if claims.UserID != "u-1" {
		t.Errorf("expected uid u-1, got %s", claims.UserID)
	}
	if claims.ID != "at-123" {
		t.Errorf("expected jti at-123, got %s", claims.ID)
	}
}

func TestJWTIssuer_ParseRejectsExpired(t *testing.T) {
	issuer := NewJWTIssuer("test-secret")

	token, err := issuer.IssueAccess("u-1", "at-123", time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}
	if _, err := issuer.ParseAccessToken(token); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestJWTIssuer_ParseRejectsWrongSecret(t *testing.T) {
	issuer := NewJWTIssuer("test-secret")
	other := NewJWTIssuer("other-secret")

	token, err := issuer.IssueAccess("u-1", "at-123", time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("IssueAccess failed: %v", err)
	}
	if _, err := other.ParseAccessToken(token); err == nil {
		t.Fatal("expected error for wrong secret")
	}
	if _, err := issuer.ParseAccessToken("not-a-jwt"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}

func TestNewRefreshToken(t *testing.T) {
	a, err := NewRefreshToken()
	if err != nil {
		t.Fatalf("NewRefreshToken failed: %v", err)
	}
	b, err := NewRefreshToken()
	if err != nil {
		t.Fatalf("NewRefreshToken failed: %v", err)
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
	if a == b {
		t.Error("tokens must be unique")
	}
}

func TestBcryptHasher(t *testing.T) {
	hasher := BcryptHasher{}

	hashed, err := hasher.Hash("password123")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !hasher.Compare(hashed, "password123") {
		t.Error("expected match for correct password")
	}
	if hasher.Compare(hashed, "wrong") {
		t.Error("expected mismatch for wrong password")
	}
	if hasher.Compare("", "password123") || hasher.Compare(hashed, "") {
		t.Error("empty input must not match")
	}
}
