package session

import (
	"context"
	"testing"
	"time"

	sessionDomain "elearn-sessions/internal/domain/session"
	"elearn-sessions/internal/infra/memory"
)

func seedSession(t *testing.T, store *memory.SessionStore, sess sessionDomain.Session) sessionDomain.Session {
	t.Helper()
	if sess.ID == "" {
		sess.ID = "s-" + sess.AccessTokenID
	}
	if err := store.Insert(context.Background(), sess); err != nil {
		t.Fatalf("seed insert failed: %v", err)
	}
	return sess
}

func TestVerifier_FindByAccessToken(t *testing.T) {
	now := time.Now()
	store := memory.NewSessionStore()
	verifier := NewVerifier(store)
	ctx := context.Background()

	seedSession(t, store, sessionDomain.Session{
		AccessTokenID:         "at-ok",
		UserID:                "u-1",
		Status:                sessionDomain.StatusActive,
		AccessTokenExpiresAt:  now.Add(15 * time.Minute),
		RefreshTokenExpiresAt: now.Add(time.Hour),
	})

	sess, err := verifier.FindByAccessToken(ctx, "at-ok")
	if err != nil {
		t.Fatalf("FindByAccessToken failed: %v", err)
	}
	if sess == nil || sess.UserID != "u-1" {
		t.Fatalf("expected session, got %+v", sess)
	}
}

func TestVerifier_FindByAccessToken_ExpiredIsAbsent(t *testing.T) {
	now := time.Now()
	store := memory.NewSessionStore()
	verifier := NewVerifier(store)
	ctx := context.Background()

	// active 但 access token 已過期：查詢結果視同不存在，不是錯誤
	seedSession(t, store, sessionDomain.Session{
		AccessTokenID:         "at-expired",
		UserID:                "u-1",
		Status:                sessionDomain.StatusActive,
		AccessTokenExpiresAt:  now.Add(-time.Second),
		RefreshTokenExpiresAt: now.Add(time.Hour),
	})

	sess, err := verifier.FindByAccessToken(ctx, "at-expired")
	if err != nil {
		t.Fatalf("expected absence without error, got %v", err)
	}
	if sess != nil {
		t.Errorf("expected absent, got %+v", sess)
	}
}

func TestVerifier_FindByAccessToken_UnknownOrRevoked(t *testing.T) {
	now := time.Now()
	store := memory.NewSessionStore()
	verifier := NewVerifier(store)
	ctx := context.Background()

	seedSession(t, store, sessionDomain.Session{
		AccessTokenID:         "at-revoked",
		UserID:                "u-1",
		Status:                sessionDomain.StatusRevoked,
		AccessTokenExpiresAt:  now.Add(time.Hour),
		RefreshTokenExpiresAt: now.Add(time.Hour),
	})

	for _, id := range []string{"at-revoked", "no-such-token", ""} {
		sess, err := verifier.FindByAccessToken(ctx, id)
		if err != nil {
			t.Fatalf("expected absence without error for %q, got %v", id, err)
		}
		if sess != nil {
			t.Errorf("expected absent for %q", id)
		}
	}
}

func TestVerifier_FindByRefreshToken(t *testing.T) {
	now := time.Now()
	store := memory.NewSessionStore()
	verifier := NewVerifier(store)
	ctx := context.Background()

	seedSession(t, store, sessionDomain.Session{
		AccessTokenID:         "at-1",
		UserID:                "u-1",
		Status:                sessionDomain.StatusActive,
		RefreshTokenHash:      sessionDomain.HashToken("tok123"),
		AccessTokenExpiresAt:  now.Add(15 * time.Minute),
		RefreshTokenExpiresAt: now.Add(time.Hour),
	})

	sess, err := verifier.FindByRefreshToken(ctx, "tok123")
	if err != nil {
		t.Fatalf("FindByRefreshToken failed: %v", err)
	}
	if sess == nil || sess.UserID != "u-1" {
		t.Fatalf("expected session, got %+v", sess)
	}

	absent, err := verifier.FindByRefreshToken(ctx, "wrong")
	if err != nil {
		t.Fatalf("expected absence without error, got %v", err)
	}
	if absent != nil {
		t.Error("expected absent for wrong token")
	}
}

func TestVerifier_FindByRefreshToken_Expired(t *testing.T) {
	now := time.Now()
	store := memory.NewSessionStore()
	verifier := NewVerifier(store)
	ctx := context.Background()

	seedSession(t, store, sessionDomain.Session{
		AccessTokenID:         "at-1",
		UserID:                "u-1",
		Status:                sessionDomain.StatusActive,
		RefreshTokenHash:      sessionDomain.HashToken("tok123"),
		AccessTokenExpiresAt:  now.Add(15 * time.Minute),
		RefreshTokenExpiresAt: now.Add(-time.Second),
	})

	sess, err := verifier.FindByRefreshToken(ctx, "tok123")
	if err != nil {
		t.Fatalf("expected absence without error, got %v", err)
	}
	if sess != nil {
		t.Error("expected absent for expired refresh token")
	}
}

func TestVerifier_Rotate(t *testing.T) {
	now := time.Now()
	store := memory.NewSessionStore()
	verifier := NewVerifier(store)
	ctx := context.Background()

	seeded := seedSession(t, store, sessionDomain.Session{
		AccessTokenID:         "at-old",
		UserID:                "u-1",
		Status:                sessionDomain.StatusActive,
		RefreshTokenHash:      sessionDomain.HashToken("old-token"),
		AccessTokenExpiresAt:  now.Add(15 * time.Minute),
		RefreshTokenExpiresAt: now.Add(time.Hour),
	})

	sess := seeded
	accessExp := now.Add(30 * time.Minute)
	refreshExp := now.Add(2 * time.Hour)
	if err := verifier.Rotate(ctx, &sess, "new-token", "at-new", accessExp, refreshExp); err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}

	if sess.AccessTokenID != "at-new" {
		t.Errorf("expected rotated access token id, got %s", sess.AccessTokenID)
	}
	if !sess.VerifyRefreshToken("new-token") {
		t.Error("expected new token to verify")
	}
	if sess.VerifyRefreshToken("old-token") {
		t.Error("old token must not verify after rotation")
	}

	// 舊 refresh token 不可再解析出 session
	old, err := verifier.FindByRefreshToken(ctx, "old-token")
	if err != nil {
		t.Fatalf("FindByRefreshToken failed: %v", err)
	}
	if old != nil {
		t.Error("expected old token to be dead")
	}
	rotated, err := verifier.FindByRefreshToken(ctx, "new-token")
	if err != nil {
		t.Fatalf("FindByRefreshToken failed: %v", err)
	}
	if rotated == nil || rotated.AccessTokenID != "at-new" {
		t.Fatalf("expected rotated session, got %+v", rotated)
	}
}

func TestVerifier_VerifyRefreshToken(t *testing.T) {
	var sess sessionDomain.Session
	sess.SetRefreshToken("tok123")
	verifier := NewVerifier(memory.NewSessionStore())

	if !verifier.VerifyRefreshToken(sess, "tok123") {
		t.Error("expected match")
	}
	if verifier.VerifyRefreshToken(sess, "tok1234") {
		t.Error("expected mismatch")
	}
}
