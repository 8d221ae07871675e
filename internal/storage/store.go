// Package storage is the durable key-value store scoped to a browsing
// context. A scope plays the role of a browser origin: favorites written under
// one scope are invisible to every other.
package storage

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("storage: store closed")

const (
	OriginLocal    = "local"    // written through this Store
	OriginExternal = "external" // detected on disk, written by someone else
)

// Change is reported after a write is committed. Key is empty when the whole
// scope may have changed.
type Change struct {
	Scope  string `json:"scope"`
	Key    string `json:"key,omitempty"`
	Origin string `json:"origin"`
}

type Store interface {
	Get(ctx context.Context, scope, key string) (string, bool, error)
	// SetMany writes all values in one transaction.
	SetMany(ctx context.Context, scope string, values map[string]string) error
	Delete(ctx context.Context, scope string, keys ...string) error
	// OnChange registers fn to be called after every committed change.
	OnChange(fn func(Change))
	Close() error
}

// Watcher is implemented by stores whose backing file other processes can
// write. Watch blocks until ctx is done and reports their writes as
// OriginExternal changes.
type Watcher interface {
	Watch(ctx context.Context) error
}

var (
	_ Watcher = (*FileStore)(nil)
	_ Watcher = (*SQLStore)(nil)
)

func Set(ctx context.Context, s Store, scope, key, value string) error {
	return s.SetMany(ctx, scope, map[string]string{key: value})
}

// notifier is embedded by the stores to fan out Change values.
type notifier struct {
	mu  sync.Mutex
	fns []func(Change)
}

func (n *notifier) OnChange(fn func(Change)) {
	if fn == nil {
		return
	}
	n.mu.Lock()
	n.fns = append(n.fns, fn)
	n.mu.Unlock()
}

func (n *notifier) notify(c Change) {
	n.mu.Lock()
	fns := n.fns
	n.mu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

func (n *notifier) notifyKeys(scope, origin string, keys []string) {
	for _, k := range keys {
		n.notify(Change{Scope: scope, Key: k, Origin: origin})
	}
}
