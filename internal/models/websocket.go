package models

import (
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

// ClientMessage represents a message from the client
type ClientMessage struct {
	Type     string `json:"type"` // "transcription", "dismiss_prompt", "get_state", or "ping"
	Speaker  string `json:"speaker,omitempty"`
	Text     string `json:"text,omitempty"`
	PromptID string `json:"promptId,omitempty"`
}

// ServerMessage represents a message sent to the client
type ServerMessage struct {
	Type         string         `json:"type"` // "initial_state", "state_update", "pong", "error"
	Data         *StateSnapshot `json:"data,omitempty"`
	ErrorCode    string         `json:"code,omitempty"`
	ErrorMessage string         `json:"message,omitempty"`
}

// ClientConnection represents a single WebSocket connection attached to a
// meeting session
type ClientConnection struct {
	ConnID    string
	SessionID string
	ClientIP  string
	Conn      *websocket.Conn
	CreatedAt time.Time
	WriteChan chan ServerMessage
	Mutex     sync.Mutex
	closed    bool
}

// SafeSend sends a message to WriteChan safely, returning false if the channel is closed
func (cc *ClientConnection) SafeSend(msg ServerMessage) bool {
	cc.Mutex.Lock()
	if cc.closed {
		cc.Mutex.Unlock()
		return false
	}
	cc.Mutex.Unlock()

	// Use defer/recover to handle panic from send on closed channel
	defer func() {
		if r := recover(); r != nil {
			cc.Mutex.Lock()
			cc.closed = true
			cc.Mutex.Unlock()
		}
	}()

	cc.WriteChan <- msg
	return true
}

// MarkClosed marks the connection as closed
func (cc *ClientConnection) MarkClosed() {
	cc.Mutex.Lock()
	cc.closed = true
	cc.Mutex.Unlock()
}

// IsClosed returns true if the connection has been marked as closed
func (cc *ClientConnection) IsClosed() bool {
	cc.Mutex.Lock()
	defer cc.Mutex.Unlock()
	return cc.closed
}
