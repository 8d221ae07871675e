// Package favorites keeps the set of favorite recipe keys of one browsing
// context together with the display data (title, image) of each key.
//
// Two storage keys are used, as in the original page: KeysKey holds a JSON
// array of keys and MetaKey a JSON object key -> {title, image}. Both are
// written in one transaction before the change notification is published.
package favorites

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"recetas/internal/events"
	"recetas/internal/storage"
	"recetas/pkg/models"
)

const (
	KeysKey = "favoritos"
	MetaKey = "favoritos_detalle"
)

// Service hands out scoped stores that share one write lock, so concurrent
// toggles on the same scope cannot interleave their read-modify-write.
type Service struct {
	KV  storage.Store
	Bus *events.Bus

	mu sync.Mutex
}

func NewService(kv storage.Store, bus *events.Bus) *Service {
	return &Service{KV: kv, Bus: bus}
}

func (svc *Service) Scope(scope string) *Store {
	return &Store{kv: svc.KV, scope: scope, bus: svc.Bus, mu: &svc.mu}
}

type Store struct {
	kv    storage.Store
	scope string
	bus   *events.Bus
	mu    *sync.Mutex
}

// New returns a store for a single scope with its own write lock.
func New(kv storage.Store, scope string, bus *events.Bus) *Store {
	return &Store{kv: kv, scope: scope, bus: bus, mu: &sync.Mutex{}}
}

func (s *Store) IsFavorite(ctx context.Context, key string) bool {
	for _, k := range s.readKeys(ctx) {
		if k == key {
			return true
		}
	}
	return false
}

// Toggle removes key when it is a favorite and adds it otherwise, and returns
// the resulting membership. Added entries take meta.Title (or key) and
// meta.Image (or "") as display data.
func (s *Store) Toggle(ctx context.Context, key string, meta models.FavoriteMeta) (bool, error) {
	member, count, err := s.toggle(ctx, key, meta)
	if err != nil {
		return member, err
	}
	s.publish(count)
	return member, nil
}

func (s *Store) toggle(ctx context.Context, key string, meta models.FavoriteMeta) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.readKeys(ctx)
	det := s.readMeta(ctx)

	idx := indexOf(keys, key)
	member := idx < 0
	if member {
		keys = append(keys, key)
		det[key] = withFallback(key, meta)
	} else {
		keys = append(keys[:idx], keys[idx+1:]...)
		delete(det, key)
	}

	if err := s.save(ctx, keys, det); err != nil {
		return !member, 0, err
	}
	return member, len(keys), nil
}

// Remove drops key if present. It reports whether anything was removed.
func (s *Store) Remove(ctx context.Context, key string) (bool, error) {
	removed, count, err := s.remove(ctx, key)
	if err != nil || !removed {
		return false, err
	}
	s.publish(count)
	return true, nil
}

func (s *Store) remove(ctx context.Context, key string) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.readKeys(ctx)
	idx := indexOf(keys, key)
	if idx < 0 {
		return false, 0, nil
	}

	det := s.readMeta(ctx)
	keys = append(keys[:idx], keys[idx+1:]...)
	delete(det, key)

	if err := s.save(ctx, keys, det); err != nil {
		return false, 0, err
	}
	return true, len(keys), nil
}

// Clear empties the collection.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	err := s.kv.Delete(ctx, s.scope, KeysKey, MetaKey)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("clear favorites: %w", err)
	}
	s.publish(0)
	return nil
}

// List returns every favorite in the order it was added.
func (s *Store) List(ctx context.Context) []models.FavoriteEntry {
	keys := s.readKeys(ctx)
	det := s.readMeta(ctx)

	out := make([]models.FavoriteEntry, 0, len(keys))
	for _, k := range keys {
		m := withFallback(k, det[k])
		out = append(out, models.FavoriteEntry{Key: k, Title: m.Title, Image: m.Image})
	}
	return out
}

func (s *Store) Count(ctx context.Context) int {
	return len(s.readKeys(ctx))
}

// Get returns the entry for key when it is a favorite.
func (s *Store) Get(ctx context.Context, key string) (models.FavoriteEntry, bool) {
	if !s.IsFavorite(ctx, key) {
		return models.FavoriteEntry{}, false
	}
	m := withFallback(key, s.readMeta(ctx)[key])
	return models.FavoriteEntry{Key: key, Title: m.Title, Image: m.Image}, true
}

// save writes both structures, dropping metadata whose key is no longer in
// the set. Callers hold s.mu and publish once it is released.
func (s *Store) save(ctx context.Context, keys []string, det map[string]models.FavoriteMeta) error {
	clean := make(map[string]models.FavoriteMeta, len(keys))
	for _, k := range keys {
		clean[k] = withFallback(k, det[k])
	}

	kb, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("encode favorites: %w", err)
	}
	mb, err := json.Marshal(clean)
	if err != nil {
		return fmt.Errorf("encode favorites detail: %w", err)
	}

	if err := s.kv.SetMany(ctx, s.scope, map[string]string{
		KeysKey: string(kb),
		MetaKey: string(mb),
	}); err != nil {
		return fmt.Errorf("save favorites: %w", err)
	}
	return nil
}

func (s *Store) publish(count int) {
	if s.bus != nil {
		s.bus.Publish(events.FavoritesChange, events.FavoritesChanged{Scope: s.scope, Count: count})
	}
}

// readKeys never fails: missing, unreadable or malformed data is an empty
// set. Duplicates are dropped, first occurrence kept.
func (s *Store) readKeys(ctx context.Context) []string {
	raw, ok, err := s.kv.Get(ctx, s.scope, KeysKey)
	if err != nil {
		log.Printf("[favorites] read %s/%s: %v", s.scope, KeysKey, err)
		return []string{}
	}
	if !ok || raw == "" {
		return []string{}
	}

	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return []string{}
	}

	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func (s *Store) readMeta(ctx context.Context) map[string]models.FavoriteMeta {
	raw, ok, err := s.kv.Get(ctx, s.scope, MetaKey)
	if err != nil {
		log.Printf("[favorites] read %s/%s: %v", s.scope, MetaKey, err)
		return map[string]models.FavoriteMeta{}
	}
	if !ok || raw == "" {
		return map[string]models.FavoriteMeta{}
	}

	det := map[string]models.FavoriteMeta{}
	if err := json.Unmarshal([]byte(raw), &det); err != nil || det == nil {
		return map[string]models.FavoriteMeta{}
	}
	return det
}

func withFallback(key string, m models.FavoriteMeta) models.FavoriteMeta {
	if m.Title == "" {
		m.Title = key
	}
	return m
}

func indexOf(keys []string, key string) int {
	for i, k := range keys {
		if k == key {
			return i
		}
	}
	return -1
}
