package tokenstore

import "sync"

// memoryStore keeps credentials for the lifetime of the process, the
// equivalent of a browser tab's session-scoped storage.
type memoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	admin    *AdminCredential
}

// NewMemoryStore creates an in-process Store.
func NewMemoryStore() Store {
	return &memoryStore{sessions: make(map[string]Session)}
}

func (m *memoryStore) GetSession(slug string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[slug]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *memoryStore) SetSession(slug string, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[slug] = s
	return nil
}

func (m *memoryStore) RemoveSession(slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, slug)
	return nil
}

func (m *memoryStore) GetAdminCredential() (*AdminCredential, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.admin == nil {
		return nil, ErrNotFound
	}
	cred := *m.admin
	return &cred, nil
}

func (m *memoryStore) SetAdminCredential(cred AdminCredential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.admin = &cred
	return nil
}

func (m *memoryStore) ClearAdminCredential() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.admin = nil
	return nil
}
