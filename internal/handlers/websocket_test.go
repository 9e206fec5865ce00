package handlers

import (
	"testing"
	"time"

	"remi/internal/models"
	"remi/internal/services"
)

func planningDefinition() *models.AgendaDefinition {
	return &models.AgendaDefinition{
		MeetingTitle: "Sprint Planning",
		Items: []models.AgendaItemDefinition{
			{ID: "item_1", Title: "Budget", Keywords: []string{"budget"}},
		},
	}
}

func newTestWebSocketHandler(t *testing.T) (*WebSocketHandler, *services.SessionManager) {
	t.Helper()
	connManager := services.NewConnectionManager()
	sessionManager, err := services.NewSessionManager(nil, connManager, time.Hour)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	t.Cleanup(sessionManager.Shutdown)
	return NewWebSocketHandler(connManager, sessionManager), sessionManager
}

func testClient(sessionID string) *models.ClientConnection {
	return &models.ClientConnection{
		ConnID:    "test-conn",
		SessionID: sessionID,
		CreatedAt: time.Now(),
		WriteChan: make(chan models.ServerMessage, 10),
	}
}

func TestWebSocketHandler_IngestsIntoLiveStoreAfterReload(t *testing.T) {
	h, sessionManager := newTestWebSocketHandler(t)

	old, err := sessionManager.CreateSession(services.DefaultSessionID, planningDefinition())
	if err != nil {
		t.Fatal(err)
	}
	client := testClient(services.DefaultSessionID)

	// An agenda file edit replaces the default session with a fresh store
	// while the client stays connected
	live, err := sessionManager.CreateSession(services.DefaultSessionID, planningDefinition())
	if err != nil {
		t.Fatal(err)
	}

	keep := h.handleMessage(client, models.ClientMessage{
		Type:    "transcription",
		Speaker: "You",
		Text:    "let's talk about the budget",
	})
	if !keep {
		t.Fatal("connection should survive an agenda reload")
	}

	if got := live.GetState().ConversationCount; got != 1 {
		t.Errorf("live store should receive the chunk, got conversationCount %d", got)
	}
	if got := old.GetState().ConversationCount; got != 0 {
		t.Errorf("replaced store must not receive the chunk, got conversationCount %d", got)
	}
}

func TestWebSocketHandler_GetStateReadsLiveStoreAfterReload(t *testing.T) {
	h, sessionManager := newTestWebSocketHandler(t)

	if _, err := sessionManager.CreateSession(services.DefaultSessionID, planningDefinition()); err != nil {
		t.Fatal(err)
	}
	client := testClient(services.DefaultSessionID)

	live, err := sessionManager.CreateSession(services.DefaultSessionID, planningDefinition())
	if err != nil {
		t.Fatal(err)
	}
	live.Ingest("You", "budget first")

	h.handleMessage(client, models.ClientMessage{Type: "get_state"})

	select {
	case msg := <-client.WriteChan:
		if msg.Type != "state_update" {
			t.Fatalf("expected state_update, got %s", msg.Type)
		}
		if msg.Data == nil || msg.Data.ConversationCount != 1 {
			t.Errorf("snapshot should come from the live store, got %+v", msg.Data)
		}
	default:
		t.Fatal("expected a state_update frame")
	}
}

func TestWebSocketHandler_DeletedSessionDropsConnection(t *testing.T) {
	h, sessionManager := newTestWebSocketHandler(t)

	store, err := sessionManager.CreateSession("", planningDefinition())
	if err != nil {
		t.Fatal(err)
	}
	client := testClient(store.SessionID())

	if err := sessionManager.Delete(store.SessionID()); err != nil {
		t.Fatal(err)
	}

	if h.handleMessage(client, models.ClientMessage{Type: "get_state"}) {
		t.Error("a message on a deleted session should end the connection")
	}

	select {
	case msg := <-client.WriteChan:
		if msg.Type != "error" || msg.ErrorCode != "unknown_session" {
			t.Errorf("expected an unknown_session error frame, got %+v", msg)
		}
	default:
		t.Error("expected an error frame before disconnect")
	}
}
