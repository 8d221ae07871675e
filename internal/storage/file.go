package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/natefinch/atomic"
)

// FileStore keeps every scope in one JSON document:
//
//	{"<scope>": {"favoritos": "[...]", "favoritos_detalle": "{...}"}}
//
// Writes replace the file atomically. Watch picks up edits made by other
// processes sharing the file.
type FileStore struct {
	notifier

	path string

	mu     sync.Mutex
	data   map[string]map[string]string
	disk   []byte // file content data was last read from or written as
	closed bool
}

// OpenFile loads path, creating its directory if needed. A missing file is an
// empty store; an unreadable document is logged and treated as empty.
func OpenFile(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}

	raw, err := readRaw(path)
	if err != nil {
		return nil, err
	}
	data, err := decodeDocument(raw)
	if err != nil {
		log.Printf("[storage] %s is not a valid store document, starting empty: %v", path, err)
		data = make(map[string]map[string]string)
	}
	return &FileStore{path: path, data: data, disk: raw}, nil
}

func (s *FileStore) Get(_ context.Context, scope, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", false, ErrClosed
	}
	v, ok := s.data[scope][key]
	return v, ok, nil
}

func (s *FileStore) SetMany(_ context.Context, scope string, values map[string]string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	next := cloneDocument(s.data)
	m := next[scope]
	if m == nil {
		m = make(map[string]string)
		next[scope] = m
	}
	keys := make([]string, 0, len(values))
	for k, v := range values {
		m[k] = v
		keys = append(keys, k)
	}

	if err := s.writeLocked(next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	sort.Strings(keys)
	s.notifyKeys(scope, OriginLocal, keys)
	return nil
}

func (s *FileStore) Delete(_ context.Context, scope string, keys ...string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	next := cloneDocument(s.data)
	removed := 0
	for _, k := range keys {
		if _, ok := next[scope][k]; ok {
			delete(next[scope], k)
			removed++
		}
	}
	if removed == 0 {
		s.mu.Unlock()
		return nil
	}
	if len(next[scope]) == 0 {
		delete(next, scope)
	}

	if err := s.writeLocked(next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.notify(Change{Scope: scope, Origin: OriginLocal})
	return nil
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// writeLocked persists next and makes it the current document. s.mu must be held.
func (s *FileStore) writeLocked(next map[string]map[string]string) error {
	b, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(b)); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	s.data = next
	s.disk = b
	return nil
}

// Reload re-reads the file and reports every scope whose content differs from
// what the store held as an external change. Content this store wrote itself
// is skipped. A document that does not parse (for instance one caught halfway
// through a non-atomic write) is ignored and the store keeps its data.
func (s *FileStore) Reload() ([]string, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}

	raw, err := readRaw(s.path)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if bytes.Equal(raw, s.disk) {
		s.mu.Unlock()
		return nil, nil
	}
	fresh, err := decodeDocument(raw)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("reload %s: %w", s.path, err)
	}

	changed := diffScopes(s.data, fresh)
	s.data = fresh
	s.disk = raw
	s.mu.Unlock()

	for _, scope := range changed {
		s.notify(Change{Scope: scope, Origin: OriginExternal})
	}
	return changed, nil
}

// Watch reloads the store whenever the backing file changes on disk, until ctx
// is done. The parent directory is watched so atomic renames are seen.
func (s *FileStore) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}

	target := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			if changed, err := s.Reload(); err != nil {
				log.Printf("[storage] reload %s: %v", s.path, err)
			} else if len(changed) > 0 {
				log.Printf("[storage] external change in %d scope(s)", len(changed))
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("[storage] watcher error: %v", err)
		}
	}
}

// readRaw returns the file content, or nil when the file does not exist.
func readRaw(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b, nil
}

func decodeDocument(raw []byte) (map[string]map[string]string, error) {
	data := make(map[string]map[string]string)
	if raw == nil {
		return data, nil
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, errors.New("empty document")
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	if data == nil {
		data = make(map[string]map[string]string)
	}
	return data, nil
}

func cloneDocument(src map[string]map[string]string) map[string]map[string]string {
	out := make(map[string]map[string]string, len(src))
	for scope, m := range src {
		out[scope] = maps.Clone(m)
	}
	return out
}

func diffScopes(old, fresh map[string]map[string]string) []string {
	var changed []string
	for scope, m := range fresh {
		if !maps.Equal(old[scope], m) {
			changed = append(changed, scope)
		}
	}
	for scope := range old {
		if _, ok := fresh[scope]; !ok {
			changed = append(changed, scope)
		}
	}
	sort.Strings(changed)
	return changed
}
