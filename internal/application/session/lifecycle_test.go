package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	sessionDomain "elearn-sessions/internal/domain/session"
	"elearn-sessions/internal/infra/memory"
)

func seedActive(t *testing.T, store *memory.SessionStore, id, userID string, lastAccessed time.Time, refreshExp time.Time) sessionDomain.Session {
	t.Helper()
	sess := sessionDomain.Session{
		ID:                    id,
		AccessTokenID:         "at-" + id,
		UserID:                userID,
		Status:                sessionDomain.StatusActive,
		LastAccessedAt:        lastAccessed,
		AccessTokenExpiresAt:  time.Now().Add(15 * time.Minute),
		RefreshTokenExpiresAt: refreshExp,
	}
	if err := store.Insert(context.Background(), sess); err != nil {
		t.Fatalf("seed insert failed: %v", err)
	}
	return sess
}

func TestManager_UpdateAccess(t *testing.T) {
	store := memory.NewSessionStore()
	manager := NewManager(store)
	ctx := context.Background()

	old := time.Now().Add(-time.Hour)
	sess := seedActive(t, store, "s-1", "u-1", old, time.Now().Add(time.Hour))

	if err := manager.UpdateAccess(ctx, &sess); err != nil {
		t.Fatalf("UpdateAccess failed: %v", err)
	}
	if !sess.LastAccessedAt.After(old) {
		t.Error("expected lastAccessedAt bumped")
	}
	stored, _ := store.FindByID(ctx, "s-1")
	if stored.Status != sessionDomain.StatusActive {
		t.Errorf("UpdateAccess must not change status, got %s", stored.Status)
	}
}

func TestManager_Revoke(t *testing.T) {
	store := memory.NewSessionStore()
	manager := NewManager(store)
	ctx := context.Background()

	sess := seedActive(t, store, "s-1", "u-1", time.Now(), time.Now().Add(time.Hour))

	if err := manager.Revoke(ctx, &sess, "logout"); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if sess.Status != sessionDomain.StatusRevoked {
		t.Errorf("expected revoked, got %s", sess.Status)
	}
	if sess.RevokedAt == nil {
		t.Fatal("expected revokedAt set")
	}
	if sess.Metadata.Notes != "logout" {
		t.Errorf("expected audit note, got %q", sess.Metadata.Notes)
	}

	firstRevokedAt := *sess.RevokedAt

	// 第二次呼叫：效果冪等，首次的 revokedAt 與註記不被覆寫
	if err := manager.Revoke(ctx, &sess, "second reason"); err != nil {
		t.Fatalf("second Revoke failed: %v", err)
	}
	stored, err := store.FindByID(ctx, "s-1")
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if stored.Status != sessionDomain.StatusRevoked {
		t.Errorf("expected still revoked, got %s", stored.Status)
	}
	if !stored.RevokedAt.Equal(firstRevokedAt) {
		t.Error("revokedAt must not be overwritten")
	}
	if stored.Metadata.Notes != "logout" {
		t.Errorf("notes must not be overwritten, got %q", stored.Metadata.Notes)
	}
}

func TestManager_Suspend(t *testing.T) {
	store := memory.NewSessionStore()
	manager := NewManager(store)
	ctx := context.Background()

	sess := seedActive(t, store, "s-1", "u-1", time.Now(), time.Now().Add(time.Hour))

	if err := manager.Suspend(ctx, &sess, "manual review"); err != nil {
		t.Fatalf("Suspend failed: %v", err)
	}
	if sess.Status != sessionDomain.StatusSuspended {
		t.Errorf("expected suspended, got %s", sess.Status)
	}

	// 終止態單向：suspended 不能再 revoke 覆寫
	if err := manager.Revoke(ctx, &sess, "late revoke"); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	stored, _ := store.FindByID(ctx, "s-1")
	if stored.Status != sessionDomain.StatusSuspended {
		t.Errorf("terminal status must not change, got %s", stored.Status)
	}
}

func TestManager_UserActiveSessions(t *testing.T) {
	store := memory.NewSessionStore()
	manager := NewManager(store)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 4; i++ {
		seedActive(t, store, fmt.Sprintf("s-%d", i), "u-1", now.Add(time.Duration(i)*time.Minute), now.Add(time.Hour))
	}
	seedActive(t, store, "s-other", "u-2", now, now.Add(time.Hour))

	sessions, err := manager.UserActiveSessions(ctx, "u-1", 2)
	if err != nil {
		t.Fatalf("UserActiveSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != "s-3" || sessions[1].ID != "s-2" {
		t.Errorf("expected most recent first, got %s then %s", sessions[0].ID, sessions[1].ID)
	}
}

func TestManager_RevokeAllUserSessions(t *testing.T) {
	store := memory.NewSessionStore()
	manager := NewManager(store)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 3; i++ {
		seedActive(t, store, fmt.Sprintf("s-%d", i), "u-1", now, now.Add(time.Hour))
	}
	seedActive(t, store, "s-other", "u-2", now, now.Add(time.Hour))

	n, err := manager.RevokeAllUserSessions(ctx, "u-1", "s-1", "logout all devices")
	if err != nil {
		t.Fatalf("RevokeAllUserSessions failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 revoked, got %d", n)
	}

	kept, _ := store.FindByID(ctx, "s-1")
	if kept.Status != sessionDomain.StatusActive {
		t.Errorf("excluded session must stay active, got %s", kept.Status)
	}
	for _, id := range []string{"s-0", "s-2"} {
		revoked, _ := store.FindByID(ctx, id)
		if revoked.Status != sessionDomain.StatusRevoked {
			t.Errorf("session %s should be revoked, got %s", id, revoked.Status)
		}
	}
	other, _ := store.FindByID(ctx, "s-other")
	if other.Status != sessionDomain.StatusActive {
		t.Errorf("other user's session must be untouched, got %s", other.Status)
	}
}

func TestManager_CleanupExpired(t *testing.T) {
	store := memory.NewSessionStore()
	manager := NewManager(store)
	ctx := context.Background()
	now := time.Now()

	seedActive(t, store, "s-due", "u-1", now, now.Add(-time.Minute))
	seedActive(t, store, "s-live", "u-1", now, now.Add(time.Hour))

	// revoked 且 refresh 已過期：清理不得改動
	revoked := seedActive(t, store, "s-revoked", "u-1", now, now.Add(-time.Minute))
	if _, err := store.MarkRevoked(ctx, revoked.ID, now, "logout"); err != nil {
		t.Fatalf("MarkRevoked failed: %v", err)
	}

	n, err := manager.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("CleanupExpired failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 expired, got %d", n)
	}

	due, _ := store.FindByID(ctx, "s-due")
	if due.Status != sessionDomain.StatusExpired {
		t.Errorf("expected expired, got %s", due.Status)
	}
	live, _ := store.FindByID(ctx, "s-live")
	if live.Status != sessionDomain.StatusActive {
		t.Errorf("live session must stay active, got %s", live.Status)
	}
	stored, _ := store.FindByID(ctx, "s-revoked")
	if stored.Status != sessionDomain.StatusRevoked {
		t.Errorf("revoked session must be untouched, got %s", stored.Status)
	}
}
