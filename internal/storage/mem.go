package storage

import (
	"context"
	"sort"
	"sync"
)

// MemStore keeps everything in process memory. Nothing survives a restart.
type MemStore struct {
	notifier

	mu     sync.RWMutex
	data   map[string]map[string]string
	closed bool
}

func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string]map[string]string)}
}

func (s *MemStore) Get(_ context.Context, scope, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return "", false, ErrClosed
	}
	v, ok := s.data[scope][key]
	return v, ok, nil
}

func (s *MemStore) SetMany(_ context.Context, scope string, values map[string]string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	m := s.data[scope]
	if m == nil {
		m = make(map[string]string)
		s.data[scope] = m
	}
	keys := make([]string, 0, len(values))
	for k, v := range values {
		m[k] = v
		keys = append(keys, k)
	}
	s.mu.Unlock()

	sort.Strings(keys)
	s.notifyKeys(scope, OriginLocal, keys)
	return nil
}

func (s *MemStore) Delete(_ context.Context, scope string, keys ...string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	var removed []string
	for _, k := range keys {
		if _, ok := s.data[scope][k]; ok {
			delete(s.data[scope], k)
			removed = append(removed, k)
		}
	}
	if len(s.data[scope]) == 0 {
		delete(s.data, scope)
	}
	s.mu.Unlock()

	if len(removed) > 0 {
		s.notify(Change{Scope: scope, Origin: OriginLocal})
	}
	return nil
}

func (s *MemStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
