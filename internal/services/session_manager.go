package services

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"remi/internal/models"
)

// DefaultSessionID names the session bootstrapped from the agenda file
const DefaultSessionID = "default"

// sweepInterval is how often the idle-session sweep runs
const sweepInterval = time.Minute

// ErrSessionNotFound is returned when a session id is unknown
var ErrSessionNotFound = errors.New("session not found")

// SessionManager owns the registry of meeting sessions. Each session gets a
// fresh AgendaStore; sessions share the oracle and the connection manager.
// Idle sessions (no activity and no clients past the TTL) are swept
// periodically.
type SessionManager struct {
	oracle      AnalysisOracle
	connManager *ConnectionManager
	ttl         time.Duration

	mu       sync.RWMutex
	sessions map[string]*AgendaStore

	scheduler gocron.Scheduler
}

// NewSessionManager creates a session manager and starts the idle sweep job
func NewSessionManager(oracle AnalysisOracle, connManager *ConnectionManager, ttl time.Duration) (*SessionManager, error) {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	sm := &SessionManager{
		oracle:      oracle,
		connManager: connManager,
		ttl:         ttl,
		sessions:    make(map[string]*AgendaStore),
		scheduler:   scheduler,
	}

	if _, err := scheduler.NewJob(
		gocron.DurationJob(sweepInterval),
		gocron.NewTask(sm.sweepIdleSessions),
	); err != nil {
		return nil, fmt.Errorf("failed to schedule session sweep: %w", err)
	}
	scheduler.Start()

	return sm, nil
}

// CreateSession creates a new session from an agenda definition and returns
// its store. The session id is generated unless explicit is non-empty.
func (sm *SessionManager) CreateSession(explicit string, def *models.AgendaDefinition) (*AgendaStore, error) {
	sessionID := explicit
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	store, err := NewAgendaStore(sessionID, def, sm.oracle, sm.connManager)
	if err != nil {
		return nil, err
	}

	sm.mu.Lock()
	if old, exists := sm.sessions[sessionID]; exists {
		// Replacing a session closes the old store; a session is never
		// mutated in place.
		old.Close()
	}
	sm.sessions[sessionID] = store
	sm.mu.Unlock()

	log.Printf("📋 [SESSIONS] Created session %s: %q", sessionID, store.MeetingTitle())
	return store, nil
}

// Get returns the store for a session id
func (sm *SessionManager) Get(sessionID string) (*AgendaStore, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	store, ok := sm.sessions[sessionID]
	return store, ok
}

// List returns the ids of all live sessions
func (sm *SessionManager) List() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	ids := make([]string, 0, len(sm.sessions))
	for id := range sm.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of live sessions
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// Delete closes and removes a session
func (sm *SessionManager) Delete(sessionID string) error {
	sm.mu.Lock()
	store, ok := sm.sessions[sessionID]
	if ok {
		delete(sm.sessions, sessionID)
	}
	sm.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	store.Close()
	log.Printf("📋 [SESSIONS] Deleted session %s", sessionID)
	return nil
}

// sweepIdleSessions removes sessions with no clients and no activity past the
// TTL. The default session is never swept; it is replaced only when the
// agenda file changes.
func (sm *SessionManager) sweepIdleSessions() {
	cutoff := time.Now().Add(-sm.ttl)

	sm.mu.Lock()
	var expired []*AgendaStore
	for id, store := range sm.sessions {
		if id == DefaultSessionID {
			continue
		}
		if store.LastActivity().Before(cutoff) && sm.connManager.SessionCount(id) == 0 {
			delete(sm.sessions, id)
			expired = append(expired, store)
		}
	}
	remaining := len(sm.sessions)
	sm.mu.Unlock()

	for _, store := range expired {
		store.Close()
		log.Printf("📋 [SESSIONS] Swept idle session %s (%d remaining)", store.SessionID(), remaining)
	}
}

// Shutdown stops the sweep job and closes every session store
func (sm *SessionManager) Shutdown() {
	if err := sm.scheduler.Shutdown(); err != nil {
		log.Printf("⚠️ [SESSIONS] Scheduler shutdown error: %v", err)
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	for id, store := range sm.sessions {
		store.Close()
		delete(sm.sessions, id)
	}
	log.Println("📋 [SESSIONS] Shutdown complete")
}
