package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jmoiron/sqlx"

	"recetas/pkg/database"
)

// SQLStore persists scopes in the sqlite kv table. Other processes may share
// the database file; Watch reports their writes as external changes.
type SQLStore struct {
	notifier

	DB *sqlx.DB

	path string

	// mu orders local writes against Rescan. seen mirrors the table once
	// Rescan has run and is kept current by local writes.
	mu   sync.Mutex
	seen map[string]map[string]string
}

// OpenSQL opens (and migrates) the sqlite database described by cfg.
func OpenSQL(cfg database.Config) (*SQLStore, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	s := NewSQLStore(db)
	s.path = cfg.Path
	return s, nil
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{DB: sqlx.NewDb(db, "sqlite3")}
}

func (s *SQLStore) Get(ctx context.Context, scope, key string) (string, bool, error) {
	var value string
	err := s.DB.GetContext(ctx, &value, `
		SELECT value FROM kv
		WHERE scope = ? AND key = ?
	`, scope, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get %s/%s: %w", scope, key, err)
	}
	return value, true, nil
}

func (s *SQLStore) SetMany(ctx context.Context, scope string, values map[string]string) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	s.mu.Lock()
	err := s.upsert(ctx, scope, keys, values)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.notifyKeys(scope, OriginLocal, keys)
	return nil
}

// upsert writes values in one transaction. Callers hold s.mu.
func (s *SQLStore) upsert(ctx context.Context, scope string, keys []string, values map[string]string) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO kv (scope, key, value, updated_at)
			VALUES (?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(scope, key) DO UPDATE SET
				value = excluded.value,
				updated_at = CURRENT_TIMESTAMP
		`, scope, k, values[k]); err != nil {
			return fmt.Errorf("upsert %s/%s: %w", scope, k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	if s.seen != nil {
		m := s.seen[scope]
		if m == nil {
			m = make(map[string]string, len(values))
			s.seen[scope] = m
		}
		for k, v := range values {
			m[k] = v
		}
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, scope string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`DELETE FROM kv WHERE scope = ? AND key IN (?)`, scope, keys)
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	s.mu.Lock()
	res, err := s.DB.ExecContext(ctx, s.DB.Rebind(query), args...)
	if err == nil {
		if m := s.seen[scope]; m != nil {
			for _, k := range keys {
				delete(m, k)
			}
			if len(m) == 0 {
				delete(s.seen, scope)
			}
		}
	}
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("delete %s: %w", scope, err)
	}

	if n, _ := res.RowsAffected(); n > 0 {
		s.notify(Change{Scope: scope, Origin: OriginLocal})
	}
	return nil
}

type kvRow struct {
	Scope string `db:"scope"`
	Key   string `db:"key"`
	Value string `db:"value"`
}

// Rescan reads the whole table and reports every scope that differs from what
// this store last saw as an external change. The first call only records the
// current content.
func (s *SQLStore) Rescan(ctx context.Context) ([]string, error) {
	s.mu.Lock()

	var rows []kvRow
	if err := s.DB.SelectContext(ctx, &rows, `SELECT scope, key, value FROM kv`); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("scan kv: %w", err)
	}
	fresh := make(map[string]map[string]string)
	for _, r := range rows {
		m := fresh[r.Scope]
		if m == nil {
			m = make(map[string]string)
			fresh[r.Scope] = m
		}
		m[r.Key] = r.Value
	}

	primed := s.seen != nil
	var changed []string
	if primed {
		changed = diffScopes(s.seen, fresh)
	}
	s.seen = fresh
	s.mu.Unlock()

	for _, scope := range changed {
		s.notify(Change{Scope: scope, Origin: OriginExternal})
	}
	return changed, nil
}

// Watch rescans the table whenever the database or its WAL changes on disk,
// until ctx is done. Bursts of events collapse into one rescan.
func (s *SQLStore) Watch(ctx context.Context) error {
	if s.path == "" {
		return errors.New("watch: store has no database path")
	}
	if _, err := s.Rescan(ctx); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer w.Close()

	dir := filepath.Dir(s.path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	db := filepath.Clean(s.path)
	targets := map[string]bool{db: true, db + "-wal": true, db + "-journal": true}

	var (
		timer  *time.Timer
		rescan <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !targets[filepath.Clean(ev.Name)] || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(50 * time.Millisecond)
			} else {
				timer.Reset(50 * time.Millisecond)
			}
			rescan = timer.C
		case <-rescan:
			rescan = nil
			if changed, err := s.Rescan(ctx); err != nil {
				log.Printf("[storage] rescan %s: %v", s.path, err)
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

func (s *SQLStore) Close() error {
	if err := s.DB.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}
	return nil
}
