package storage

import (
	"context"
	"sync"
)

// Memory keeps every scope in process memory.  It is the default backend for
// local development and tests; contents are lost on restart.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string]string)}
}

func (m *Memory) Scope(sessionID string) Storage {
	return &memoryScope{m: m, id: sessionID}
}

func (m *Memory) Close() error { return nil }

type memoryScope struct {
	m  *Memory
	id string
}

func (s *memoryScope) Get(_ context.Context, key string) (string, bool, error) {
	if s.id == "" {
		return "", false, ErrEmptyScope
	}
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	v, ok := s.m.data[s.id][key]
	return v, ok, nil
}

func (s *memoryScope) Set(_ context.Context, values map[string]string) error {
	if s.id == "" {
		return ErrEmptyScope
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	bucket, ok := s.m.data[s.id]
	if !ok {
		bucket = make(map[string]string, len(values))
		s.m.data[s.id] = bucket
	}
	for k, v := range values {
		bucket[k] = v
	}
	return nil
}

func (s *memoryScope) Delete(_ context.Context, keys ...string) error {
	if s.id == "" {
		return ErrEmptyScope
	}
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	bucket := s.m.data[s.id]
	for _, k := range keys {
		delete(bucket, k)
	}
	if len(bucket) == 0 {
		delete(s.m.data, s.id)
	}
	return nil
}
