package session

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore is a map-backed Store for tests and local development.
// Sessions are deep-copied through JSON so callers never share drafts.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

// NewMemoryStore returns an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]byte)}
}

func (m *MemoryStore) Get(ctx context.Context, key Key) (*Session, error) {
	m.mu.RLock()
	raw, ok := m.sessions[key.String()]
	m.mu.RUnlock()
	if !ok {
		return NewSession(), nil
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return NewSession(), nil
	}
	if s.Order.State == "" {
		s.Order = NewOrderSession()
	}
	return &s, nil
}

func (m *MemoryStore) Set(ctx context.Context, key Key, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.sessions[key.String()] = raw
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context, key Key) error {
	m.mu.Lock()
	delete(m.sessions, key.String())
	m.mu.Unlock()
	return nil
}

var _ Store = (*MemoryStore)(nil)

// MemoryCurrentAgentStore is a map-backed CurrentAgentStore.
type MemoryCurrentAgentStore struct {
	mu     sync.RWMutex
	owners map[string]string
}

// NewMemoryCurrentAgentStore returns an empty in-memory ownership store.
func NewMemoryCurrentAgentStore() *MemoryCurrentAgentStore {
	return &MemoryCurrentAgentStore{owners: make(map[string]string)}
}

func (m *MemoryCurrentAgentStore) key(tenantID, phone string) string {
	return tenantID + ":" + phone
}

func (m *MemoryCurrentAgentStore) Get(ctx context.Context, tenantID, phone string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.owners[m.key(tenantID, phone)], nil
}

func (m *MemoryCurrentAgentStore) Set(ctx context.Context, tenantID, phone, agentID string) error {
	m.mu.Lock()
	m.owners[m.key(tenantID, phone)] = agentID
	m.mu.Unlock()
	return nil
}

func (m *MemoryCurrentAgentStore) Clear(ctx context.Context, tenantID, phone string) error {
	m.mu.Lock()
	delete(m.owners, m.key(tenantID, phone))
	m.mu.Unlock()
	return nil
}

var _ CurrentAgentStore = (*MemoryCurrentAgentStore)(nil)
