package session

import (
	"context"
	"testing"
	"time"

	sessionDomain "elearn-sessions/internal/domain/session"
	"elearn-sessions/internal/infra/memory"
)

func TestCleanupWorker_RunOnce(t *testing.T) {
	store := memory.NewSessionStore()
	manager := NewManager(store)
	now := time.Now()

	seedActive(t, store, "s-due", "u-1", now, now.Add(-time.Minute))
	seedActive(t, store, "s-live", "u-1", now, now.Add(time.Hour))

	worker := NewCleanupWorker(manager, time.Hour)
	worker.runOnce()

	due, err := store.FindByID(context.Background(), "s-due")
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if due.Status != sessionDomain.StatusExpired {
		t.Errorf("expected worker to expire due session, got %s", due.Status)
	}
	live, _ := store.FindByID(context.Background(), "s-live")
	if live.Status != sessionDomain.StatusActive {
		t.Errorf("live session must stay active, got %s", live.Status)
	}
}

func TestCleanupWorker_StartStop(t *testing.T) {
	store := memory.NewSessionStore()
	worker := NewCleanupWorker(NewManager(store), time.Hour)
	worker.Start()
	worker.Stop()
}
