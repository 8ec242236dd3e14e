// Package memory is a trivial expiring in-memory store for the cache middleware.
package memory

import (
	"sync"
	"time"
)

type entry struct {
	content   []byte
	expiresAt time.Time
}

// Storage ...
type Storage struct {
	mu sync.RWMutex
	m  map[string]entry
}

// NewStorage creates new instance of Storage.
func NewStorage() *Storage {
	return &Storage{
		m: map[string]entry{},
	}
}

// Get returns stored content or nil when the key is absent or expired.
func (s *Storage) Get(key string) []byte {
	s.mu.RLock()
	e, ok := s.m[key]
	s.mu.RUnlock()

	if !ok {
		return nil
	}

	if time.Now().After(e.expiresAt) {
		s.mu.Lock()
		delete(s.m, key)
		s.mu.Unlock()

		return nil
	}

	return e.content
}

// Set stores content for the given ttl.
func (s *Storage) Set(key string, content []byte, ttl time.Duration) {
	s.mu.Lock()
	s.m[key] = entry{
		content:   content,
		expiresAt: time.Now().Add(ttl),
	}
	s.mu.Unlock()
}
