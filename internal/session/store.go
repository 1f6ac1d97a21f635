// Package session holds the chat-to-tenant binding established by the
// authorization flow. It is an explicit value handed to every consumer,
// not a module-level map.
package session

import "sync"

type Store struct {
	mu       sync.RWMutex
	byChat   map[string]int64
	byTenant map[int64]string
}

func NewStore() *Store {
	return &Store{
		byChat:   make(map[string]int64),
		byTenant: make(map[int64]string),
	}
}

// Bind associates a chat with a tenant, replacing any previous binding in
// either direction.
func (s *Store) Bind(chatID string, tenantID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.byChat[chatID]; ok {
		delete(s.byTenant, old)
	}
	if old, ok := s.byTenant[tenantID]; ok {
		delete(s.byChat, old)
	}

	s.byChat[chatID] = tenantID
	s.byTenant[tenantID] = chatID
}

// Tenant returns the tenant authorized in a chat.
func (s *Store) Tenant(chatID string) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byChat[chatID]
	return id, ok
}

// Chat is the reverse index: the chat bound to a tenant. The dispatcher
// uses it to route notifications when the access API carries no address.
func (s *Store) Chat(tenantID int64) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chat, ok := s.byTenant[tenantID]
	return chat, ok
}
