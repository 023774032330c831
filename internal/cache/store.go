// Package cache is the TTL key/value memo shared by every upstream lookup.
// It knows nothing about what it stores; keys are composed by callers.
package cache

import (
	"context"
	"sync"
	"time"
)

// Store is a TTL key/value store. A Get after expiry is a miss.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process Store. Expired entries are evicted lazily on
// read; there is no background sweep.
type Memory struct {
	mu  sync.RWMutex
	m   map[string]entry
	now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{m: make(map[string]entry, 1024), now: time.Now}
}

// WithClock replaces the time source (tests).
func (s *Memory) WithClock(now func() time.Time) *Memory {
	s.now = now
	return s
}

func (s *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	s.mu.RLock()
	e, ok := s.m[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if s.now().After(e.expiresAt) {
		s.mu.Lock()
		// запись могли перезаписать между RUnlock и Lock
		if cur, ok := s.m[key]; ok && s.now().After(cur.expiresAt) {
			delete(s.m, key)
		}
		s.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

func (s *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	s.mu.Lock()
	s.m[key] = entry{value: value, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
}

// Len counts stored entries, expired ones included until they are read.
func (s *Memory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
