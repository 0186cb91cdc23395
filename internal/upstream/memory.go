package upstream

import (
	"context"
	"sync"

	"github.com/kailas-cloud/aigate/internal/domain"
)

// Memory is an in-memory implementation of all three upstream contracts,
// used in tests and local development.
type Memory struct {
	mu     sync.RWMutex
	users  map[string]User
	files  map[string]FileContent
	grants map[string]map[string]bool // userID -> kbID -> allowed
}

// NewMemory creates an empty in-memory upstream.
func NewMemory() *Memory {
	return &Memory{
		users:  make(map[string]User),
		files:  make(map[string]FileContent),
		grants: make(map[string]map[string]bool),
	}
}

// PutUser registers a user.
func (m *Memory) PutUser(u User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.TierName = u.Tier.String()
	m.users[u.ID] = u
}

// PutFile registers a file.
func (m *Memory) PutFile(fc FileContent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[fc.ID] = fc
}

// Grant allows a user to query a knowledge base.
func (m *Memory) Grant(userID, kbID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.grants[userID] == nil {
		m.grants[userID] = make(map[string]bool)
	}
	m.grants[userID][kbID] = true
}

// Lookup implements UserDirectory.
func (m *Memory) Lookup(_ context.Context, userID string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	if !ok {
		return User{}, domain.ErrUserNotFound
	}
	return u, nil
}

// Content implements FileReader.
func (m *Memory) Content(_ context.Context, fileID string) (FileContent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fc, ok := m.files[fileID]
	if !ok {
		return FileContent{}, domain.ErrFileNotFound
	}
	return fc, nil
}

// CanQuery implements Access.
func (m *Memory) CanQuery(_ context.Context, userID, kbID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.grants[userID][kbID], nil
}
