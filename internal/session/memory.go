package session

import (
	"context"
	"sync"
	"time"
)

type memEntry struct {
	sess     Session
	deadline time.Time
}

// MemoryStore is a mutex-guarded in-process session store.  It is the
// fallback when Redis is unavailable and the store used in tests.  Expired
// entries are dropped lazily on read and on write.
type MemoryStore struct {
	mu sync.Mutex
	m  map[string]memEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{m: make(map[string]memEntry)}
}

func (s *MemoryStore) Create(_ context.Context, sess Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()
	s.m[sess.ID] = memEntry{sess: sess, deadline: time.Now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[id]
	if !ok || time.Now().After(e.deadline) {
		delete(s.m, id)
		return Session{}, ErrNotFound
	}
	return e.sess, nil
}

func (s *MemoryStore) Refresh(_ context.Context, id string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[id]
	if !ok || time.Now().After(e.deadline) {
		delete(s.m, id)
		return ErrNotFound
	}
	e.deadline = time.Now().Add(ttl)
	s.m[id] = e
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, id)
	return nil
}

// prune drops expired entries; called with the lock held.
func (s *MemoryStore) prune() {
	now := time.Now()
	for id, e := range s.m {
		if now.After(e.deadline) {
			delete(s.m, id)
		}
	}
}
