package listener

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// sessionIDManager mints fresh UUID session ids and tracks which of them
// are live, so an id that was never issued (or has been terminated) is
// rejected before it reaches a session lookup.
type sessionIDManager struct {
	mu   sync.Mutex
	live map[string]struct{}
}

func newSessionIDManager() *sessionIDManager {
	return &sessionIDManager{live: make(map[string]struct{})}
}

// Generate mints a fresh session id.
func (m *sessionIDManager) Generate() string {
	id := uuid.NewString()
	m.mu.Lock()
	m.live[id] = struct{}{}
	m.mu.Unlock()
	return id
}

// Validate reports whether sessionID refers to a session this manager
// issued and has not yet terminated.
func (m *sessionIDManager) Validate(sessionID string) (bool, error) {
	m.mu.Lock()
	_, ok := m.live[sessionID]
	m.mu.Unlock()
	if !ok {
		return true, fmt.Errorf("unknown session id %q", sessionID)
	}
	return false, nil
}

// Terminate forgets sessionID. Termination is always allowed.
func (m *sessionIDManager) Terminate(sessionID string) (bool, error) {
	m.mu.Lock()
	delete(m.live, sessionID)
	m.mu.Unlock()
	return false, nil
}
