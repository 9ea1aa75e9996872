package auth

import "sync"

// MockStore is an in-memory SessionStore for tests
type MockStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	failAll  bool
}

// NewMockStore creates an empty in-memory store
func NewMockStore() *MockStore {
	return &MockStore{sessions: make(map[string]*Session)}
}

// FailAll makes every mutating call return ErrStoreUnavailable
func (m *MockStore) FailAll(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAll = fail
}

func (m *MockStore) Store(session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return ErrStoreUnavailable
	}
	if session == nil || session.Name == "" {
		return ErrInvalidSession
	}
	s := *session
	m.sessions[session.Name] = &s
	return nil
}

func (m *MockStore) Retrieve(name string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failAll {
		return nil, ErrStoreUnavailable
	}
	session, ok := m.sessions[name]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s := *session
	return &s, nil
}

func (m *MockStore) List() ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.failAll {
		return nil, ErrStoreUnavailable
	}
	var sessions []*Session
	for _, session := range m.sessions {
		s := *session
		sessions = append(sessions, &s)
	}
	return sessions, nil
}

func (m *MockStore) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll {
		return ErrStoreUnavailable
	}
	if _, ok := m.sessions[name]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, name)
	return nil
}

func (m *MockStore) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[name]
	return ok
}
