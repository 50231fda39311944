package checkout

import "sync"

// Manager tracks at most one live session per customer. Sessions are
// memory-only; a restart sends the shopper back to the first step.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// GetOrCreate returns the live session, creating one when none exists.
func (m *Manager) GetOrCreate(customerID string, hasSavedAddresses bool) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[customerID]; ok {
		return s
	}
	s := newSession(customerID, hasSavedAddresses)
	m.sessions[customerID] = s
	return s
}

// Get returns the live session or nil.
func (m *Manager) Get(customerID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[customerID]
}

// Reset drops the session; the next GetOrCreate starts fresh.
func (m *Manager) Reset(customerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, customerID)
}
