package dashboard

import "sync"

// TokenStorage keeps the session token between runs of the panel.
type TokenStorage interface {
	Load() (string, bool)
	Save(token string)
	Clear()
}

type MemoryTokenStorage struct {
	mu    sync.Mutex
	token string
}

func (m *MemoryTokenStorage) Load() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.token != ""
}

func (m *MemoryTokenStorage) Save(token string) {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
}

func (m *MemoryTokenStorage) Clear() { m.Save("") }
