package issuer

import (
	"sync"
	"time"

	"mt5bridge/internal/terminal"
)

// Session is the canonical session record owned by the issuer.
type Session struct {
	ID          string               `json:"session_id"`
	Login       int64                `json:"login"`
	Server      string               `json:"server"`
	CreatedAt   time.Time            `json:"created_at"`
	ExpiresAt   time.Time            `json:"expires_at"`
	AccountInfo terminal.AccountInfo `json:"account_info"`
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Store defines how the issuer's session table is accessed.
// Implementations evict expired records lazily, at read time; there is no
// background sweep.
type Store interface {
	// Put inserts or replaces a session record.
	Put(s *Session) error

	// Get retrieves a session by ID. Returns nil if absent or expired;
	// an expired record is deleted on the spot.
	Get(id string) (*Session, error)

	// Renew retrieves a session and slides its expiry to now + d.
	// Returns nil if the session is absent or already expired.
	Renew(id string, d time.Duration) (*Session, error)

	// Delete removes a session. Deleting an absent key is a no-op.
	Delete(id string) error
}

// MemoryStore is the in-process session table.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
	}
}

// Put inserts or replaces a session record.
func (m *MemoryStore) Put(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *s
	m.sessions[s.ID] = &copied
	return nil
}

// Get retrieves a session by ID, evicting it if expired.
func (m *MemoryStore) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	if s.IsExpired() {
		delete(m.sessions, id)
		return nil, nil
	}

	copied := *s
	return &copied, nil
}

// Renew slides a live session's expiry to now + d and returns it.
func (m *MemoryStore) Renew(id string, d time.Duration) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	if s.IsExpired() {
		delete(m.sessions, id)
		return nil, nil
	}

	s.ExpiresAt = time.Now().Add(d)

	copied := *s
	return &copied, nil
}

// Delete removes a session by ID.
func (m *MemoryStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
