package services

import (
	"log"
	"sync"

	"remi/internal/models"
)

// ConnectionManager manages all active WebSocket connections and fans session
// state out to them. It implements StateNotifier for the agenda stores.
type ConnectionManager struct {
	connections map[string]*models.ClientConnection
	mutex       sync.RWMutex
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*models.ClientConnection),
	}
}

// Add adds a new connection
func (cm *ConnectionManager) Add(conn *models.ClientConnection) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	cm.connections[conn.ConnID] = conn
	log.Printf("✅ Connection added: %s session=%s (Total: %d)", conn.ConnID, conn.SessionID, len(cm.connections))
}

// Remove removes a connection and closes its write channel
func (cm *ConnectionManager) Remove(connID string) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	if conn, exists := cm.connections[connID]; exists {
		conn.MarkClosed()
		close(conn.WriteChan)
		delete(cm.connections, connID)
		log.Printf("❌ Connection removed: %s (Total: %d)", connID, len(cm.connections))
	}
}

// Get retrieves a connection by ID
func (cm *ConnectionManager) Get(connID string) (*models.ClientConnection, bool) {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	conn, exists := cm.connections[connID]
	return conn, exists
}

// Count returns the number of active connections
func (cm *ConnectionManager) Count() int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return len(cm.connections)
}

// SessionCount returns the number of connections attached to one session
func (cm *ConnectionManager) SessionCount(sessionID string) int {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	count := 0
	for _, conn := range cm.connections {
		if conn.SessionID == sessionID {
			count++
		}
	}
	return count
}

// sessionConnections snapshots the connections for one session so broadcast
// iteration never races with registry mutation
func (cm *ConnectionManager) sessionConnections(sessionID string) []*models.ClientConnection {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	conns := make([]*models.ClientConnection, 0, len(cm.connections))
	for _, conn := range cm.connections {
		if conn.SessionID == sessionID {
			conns = append(conns, conn)
		}
	}
	return conns
}

// StateChanged broadcasts a state_update with the new snapshot to every
// client of the session. A client that cannot accept the message (closed or
// write buffer full) is unregistered; it never blocks delivery to the rest.
func (cm *ConnectionManager) StateChanged(sessionID string, snapshot models.StateSnapshot) {
	msg := models.ServerMessage{
		Type: "state_update",
		Data: &snapshot,
	}

	var failed []string
	for _, conn := range cm.sessionConnections(sessionID) {
		if !trySend(conn, msg) {
			failed = append(failed, conn.ConnID)
		}
	}
	for _, connID := range failed {
		log.Printf("⚠️ Broadcast to %s failed, unregistering", connID)
		cm.Remove(connID)
	}

	if m := GetMetrics(); m != nil {
		m.RecordBroadcast()
	}
}

// trySend queues the message without blocking. A full write buffer counts as
// a failed delivery so one slow client cannot stall the engine.
func trySend(conn *models.ClientConnection, msg models.ServerMessage) (ok bool) {
	if conn.IsClosed() {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			conn.MarkClosed()
			ok = false
		}
	}()
	select {
	case conn.WriteChan <- msg:
		return true
	default:
		return false
	}
}
