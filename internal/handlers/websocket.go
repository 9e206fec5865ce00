package handlers

import (
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"remi/internal/models"
	"remi/internal/services"
)

// WebSocket keepalive: ping every 20s, drop the connection if nothing
// (including pongs) arrives within the read deadline.
const (
	pingInterval  = 20 * time.Second
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
)

// WebSocketHandler handles meeting WebSocket connections
type WebSocketHandler struct {
	connManager    *services.ConnectionManager
	sessionManager *services.SessionManager
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(connManager *services.ConnectionManager, sessionManager *services.SessionManager) *WebSocketHandler {
	return &WebSocketHandler{
		connManager:    connManager,
		sessionManager: sessionManager,
	}
}

// Handle handles a new WebSocket connection. Each connection attaches to one
// meeting session (the default session when none is given).
func (h *WebSocketHandler) Handle(c *websocket.Conn) {
	sessionID := c.Query("session")
	if sessionID == "" {
		sessionID = services.DefaultSessionID
	}

	store, ok := h.sessionManager.Get(sessionID)
	if !ok {
		log.Printf("⚠️ WebSocket rejected: unknown session %q", sessionID)
		c.WriteJSON(models.ServerMessage{
			Type:         "error",
			ErrorCode:    "unknown_session",
			ErrorMessage: "No such meeting session",
		})
		c.Close()
		return
	}

	connID := uuid.New().String()
	clientIP, _ := c.Locals("client_ip").(string)

	// Signals the ping loop to stop when the read loop exits
	done := make(chan struct{})

	clientConn := &models.ClientConnection{
		ConnID:    connID,
		SessionID: sessionID,
		ClientIP:  clientIP,
		Conn:      c,
		CreatedAt: time.Now(),
		WriteChan: make(chan models.ServerMessage, 100),
	}

	h.connManager.Add(clientConn)
	if m := services.GetMetrics(); m != nil {
		m.RecordWebSocketConnect()
	}
	defer func() {
		close(done)
		h.connManager.Remove(connID)
		if m := services.GetMetrics(); m != nil {
			m.RecordWebSocketDisconnect()
		}
	}()

	c.SetReadDeadline(time.Now().Add(readDeadline))
	c.SetPongHandler(func(appData string) error {
		c.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	go h.pingLoop(clientConn, done)
	go h.writeLoop(clientConn)

	// Send the current snapshot immediately on connect
	snapshot := store.GetState()
	clientConn.SafeSend(models.ServerMessage{
		Type: "initial_state",
		Data: &snapshot,
	})

	h.readLoop(clientConn)
}

// pingLoop sends periodic pings so idle meeting viewers stay connected
func (h *WebSocketHandler) pingLoop(clientConn *models.ClientConnection, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			clientConn.Mutex.Lock()
			err := clientConn.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline))
			clientConn.Mutex.Unlock()
			if err != nil {
				log.Printf("⚠️ Ping failed for %s: %v", clientConn.ConnID, err)
				return
			}
		}
	}
}

// writeLoop drains the write channel onto the wire. It exits when the
// connection manager closes the channel on unregister.
func (h *WebSocketHandler) writeLoop(clientConn *models.ClientConnection) {
	for msg := range clientConn.WriteChan {
		clientConn.Mutex.Lock()
		err := clientConn.Conn.WriteJSON(msg)
		clientConn.Mutex.Unlock()
		if err != nil {
			log.Printf("⚠️ Write failed for %s: %v", clientConn.ConnID, err)
			clientConn.MarkClosed()
			return
		}
		if m := services.GetMetrics(); m != nil {
			m.RecordWebSocketMessage(msg.Type, "outbound")
		}
	}
}

// readLoop handles incoming messages from the client. A malformed message is
// ignored (with an error frame back); the connection is never dropped for it.
func (h *WebSocketHandler) readLoop(clientConn *models.ClientConnection) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Panic in readLoop: %v", r)
		}
	}()

	for {
		_, msg, err := clientConn.Conn.ReadMessage()
		if err != nil {
			log.Printf("🔌 WebSocket closed for %s: %v", clientConn.ConnID, err)
			return
		}

		clientConn.Conn.SetReadDeadline(time.Now().Add(readDeadline))

		var clientMsg models.ClientMessage
		if err := json.Unmarshal(msg, &clientMsg); err != nil {
			log.Printf("⚠️ Invalid message format from %s: %v", clientConn.ConnID, err)
			clientConn.SafeSend(models.ServerMessage{
				Type:         "error",
				ErrorCode:    "invalid_format",
				ErrorMessage: "Invalid message format",
			})
			continue
		}

		if m := services.GetMetrics(); m != nil {
			m.RecordWebSocketMessage(clientMsg.Type, "inbound")
		}

		if !h.handleMessage(clientConn, clientMsg) {
			return
		}
	}
}

// handleMessage dispatches one client message. The session store is resolved
// per message, not per connection: an agenda reload replaces the default
// session's store, and every message must land in the live one. Returns false
// once the session no longer exists, which ends the connection.
func (h *WebSocketHandler) handleMessage(clientConn *models.ClientConnection, clientMsg models.ClientMessage) bool {
	if clientMsg.Type == "ping" {
		clientConn.SafeSend(models.ServerMessage{Type: "pong"})
		return true
	}

	store, ok := h.sessionManager.Get(clientConn.SessionID)
	if !ok {
		log.Printf("⚠️ Session %q gone, dropping connection %s", clientConn.SessionID, clientConn.ConnID)
		clientConn.SafeSend(models.ServerMessage{
			Type:         "error",
			ErrorCode:    "unknown_session",
			ErrorMessage: "Meeting session no longer exists",
		})
		return false
	}

	switch clientMsg.Type {
	case "transcription":
		h.handleTranscription(store, clientMsg)
	case "dismiss_prompt":
		h.handleDismissPrompt(store, clientMsg)
	case "get_state":
		// Unicast to the requesting client only, not broadcast
		snapshot := store.GetState()
		clientConn.SafeSend(models.ServerMessage{
			Type: "state_update",
			Data: &snapshot,
		})
	default:
		log.Printf("⚠️ Unknown message type from %s: %s", clientConn.ConnID, clientMsg.Type)
	}
	return true
}

// handleTranscription feeds one transcription chunk into the session
func (h *WebSocketHandler) handleTranscription(store *services.AgendaStore, clientMsg models.ClientMessage) {
	if strings.TrimSpace(clientMsg.Text) == "" {
		return
	}
	speaker := clientMsg.Speaker
	if speaker == "" {
		speaker = "Other"
	}
	store.Ingest(speaker, clientMsg.Text)
}

// handleDismissPrompt removes a prompt. Unknown ids are a silent no-op;
// the prompt may have been auto-dismissed a moment earlier.
func (h *WebSocketHandler) handleDismissPrompt(store *services.AgendaStore, clientMsg models.ClientMessage) {
	if clientMsg.PromptID == "" {
		return
	}
	store.DismissPrompt(clientMsg.PromptID)
}
