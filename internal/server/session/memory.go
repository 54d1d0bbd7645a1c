package session

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore keeps sessions in a bounded, expiring LRU inside the process.
// When full, the least recently used session is evicted (that user has to
// log in again). Sessions do not survive a restart.
type MemoryStore struct {
	cache *expirable.LRU[string, *Session]
}

// NewMemoryStore creates a store holding at most maxSize sessions, each
// dropped ttl after it was saved.
func NewMemoryStore(maxSize int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{cache: expirable.NewLRU[string, *Session](maxSize, nil, ttl)}
}

func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	m.cache.Add(s.Token, s)
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, token string) (*Session, error) {
	s, ok := m.cache.Get(token)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (m *MemoryStore) Delete(ctx context.Context, token string) error {
	m.cache.Remove(token)
	return nil
}

// Len returns the number of sessions currently held.
func (m *MemoryStore) Len() int {
	return m.cache.Len()
}
