package services

import (
	"errors"
	"testing"
	"time"

	"remi/internal/models"
)

func newTestSessionManager(t *testing.T, ttl time.Duration) *SessionManager {
	t.Helper()
	sm, err := NewSessionManager(nil, NewConnectionManager(), ttl)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	t.Cleanup(sm.Shutdown)
	return sm
}

func TestSessionManager_CreateAndGet(t *testing.T) {
	sm := newTestSessionManager(t, time.Hour)

	store, err := sm.CreateSession("", budgetDefinition())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if store.SessionID() == "" {
		t.Error("expected a generated session id")
	}

	got, ok := sm.Get(store.SessionID())
	if !ok || got != store {
		t.Error("Get should return the created store")
	}
	if sm.Count() != 1 {
		t.Errorf("expected 1 session, got %d", sm.Count())
	}
}

func TestSessionManager_CreateRejectsBadDefinition(t *testing.T) {
	sm := newTestSessionManager(t, time.Hour)

	_, err := sm.CreateSession("", &models.AgendaDefinition{
		Items: []models.AgendaItemDefinition{{Title: "no id"}},
	})
	if !errors.Is(err, ErrInvalidAgenda) {
		t.Errorf("expected ErrInvalidAgenda, got %v", err)
	}
	if sm.Count() != 0 {
		t.Error("failed creation must not register a session")
	}
}

func TestSessionManager_ReplaceClosesOldStore(t *testing.T) {
	sm := newTestSessionManager(t, time.Hour)

	first, err := sm.CreateSession(DefaultSessionID, budgetDefinition())
	if err != nil {
		t.Fatal(err)
	}
	second, err := sm.CreateSession(DefaultSessionID, budgetDefinition())
	if err != nil {
		t.Fatal(err)
	}

	if sm.Count() != 1 {
		t.Errorf("replacement should keep one session, got %d", sm.Count())
	}
	got, _ := sm.Get(DefaultSessionID)
	if got != second {
		t.Error("registry should hold the replacement store")
	}
	_ = first // old store is closed, not reachable via the registry
}

func TestSessionManager_Delete(t *testing.T) {
	sm := newTestSessionManager(t, time.Hour)

	store, err := sm.CreateSession("", budgetDefinition())
	if err != nil {
		t.Fatal(err)
	}

	if err := sm.Delete(store.SessionID()); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok := sm.Get(store.SessionID()); ok {
		t.Error("deleted session should be gone")
	}
	if err := sm.Delete(store.SessionID()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("double delete should report not found, got %v", err)
	}
}

func TestSessionManager_SweepRemovesIdleSessions(t *testing.T) {
	sm := newTestSessionManager(t, time.Millisecond)

	idle, err := sm.CreateSession("", budgetDefinition())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sm.CreateSession(DefaultSessionID, budgetDefinition()); err != nil {
		t.Fatal(err)
	}

	time.Sleep(10 * time.Millisecond)
	sm.sweepIdleSessions()

	if _, ok := sm.Get(idle.SessionID()); ok {
		t.Error("idle session should be swept")
	}
	if _, ok := sm.Get(DefaultSessionID); !ok {
		t.Error("default session must never be swept")
	}
}

func TestSessionManager_SweepKeepsActiveSessions(t *testing.T) {
	sm := newTestSessionManager(t, time.Hour)

	store, err := sm.CreateSession("", budgetDefinition())
	if err != nil {
		t.Fatal(err)
	}

	sm.sweepIdleSessions()
	if _, ok := sm.Get(store.SessionID()); !ok {
		t.Error("session within TTL should survive the sweep")
	}
}
