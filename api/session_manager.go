package api

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/nanocore-vm/nanocore/config"
	"github.com/nanocore-vm/nanocore/nanocore"
)

var (
	// ErrSessionNotFound is returned when a session is not found.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionLimitReached is returned when the server's session cap
	// (config.API.MaxSessions, spec.md §6.6) is already full.
	ErrSessionLimitReached = errors.New("session limit reached")
)

// Session wraps one Instance Registry handle with the bookkeeping an HTTP
// front-end needs that the embedding API itself has no concept of: a
// stable externally-visible ID and a creation timestamp.
type Session struct {
	ID        string
	Handle    int
	CreatedAt time.Time
}

// SessionManager maps externally-visible session IDs onto handles of a
// single shared nanocore.API Instance Registry (spec.md §6.1, §6.6).
type SessionManager struct {
	api         *nanocore.API
	maxSessions int
	sessions    map[string]*Session
	mu          sync.RWMutex
}

// NewSessionManager creates a session manager bounded by cfg.API.MaxSessions.
func NewSessionManager(cfg *config.Config) *SessionManager {
	return &SessionManager{
		api:         nanocore.New(),
		maxSessions: cfg.API.MaxSessions,
		sessions:    make(map[string]*Session),
	}
}

// API returns the underlying embedding API, for handlers that need to
// call VM operations directly.
func (sm *SessionManager) API() *nanocore.API {
	return sm.api
}

// CreateSession allocates a new VM instance and assigns it a session ID.
func (sm *SessionManager) CreateSession(req SessionCreateRequest, defaultMemorySize uint64) (*Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.maxSessions > 0 && len(sm.sessions) >= sm.maxSessions {
		return nil, ErrSessionLimitReached
	}

	memorySize := req.MemorySize
	if memorySize == 0 {
		memorySize = defaultMemorySize
	}

	handle, status := sm.api.VMCreate(memorySize)
	if status != nanocore.StatusOK {
		return nil, errNanocoreStatus(status)
	}

	id, err := generateSessionID()
	if err != nil {
		sm.api.VMDestroy(handle)
		return nil, err
	}

	session := &Session{ID: id, Handle: handle, CreatedAt: time.Now()}
	sm.sessions[id] = session
	debugLog("session %s: created, handle=%d memorySize=%d", id, handle, memorySize)
	return session, nil
}

// GetSession retrieves a session by ID.
func (sm *SessionManager) GetSession(id string) (*Session, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// DestroySession frees the underlying VM instance and removes the session.
func (sm *SessionManager) DestroySession(id string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[id]
	if !exists {
		return ErrSessionNotFound
	}
	sm.api.VMDestroy(session.Handle)
	delete(sm.sessions, id)
	debugLog("session %s: destroyed, handle=%d", id, session.Handle)
	return nil
}

// ListSessions returns all active session IDs.
func (sm *SessionManager) ListSessions() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	ids := make([]string, 0, len(sm.sessions))
	for id := range sm.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of active sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

func generateSessionID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
