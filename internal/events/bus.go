// Package events is the in-process notification channel between the
// favorites store, the detail view and whatever display logic listens.
//
// A Bus is constructed explicitly and handed to the components that publish
// or subscribe; there is no package-level instance.
package events

import "sync"

const (
	// FavoritesChange is published after a favorites mutation is persisted.
	// Payload: FavoritesChanged.
	FavoritesChange = "favorites:change"
	// RecipeOpenRequest asks for a recipe detail view. Payload: RecipeOpen.
	RecipeOpenRequest = "recipe:open"
)

type FavoritesChanged struct {
	Scope string `json:"scope"`
	Count int    `json:"count"`
}

// RecipeOpen carries the key plus the display data the caller already has,
// used when the catalog does not know the recipe.
type RecipeOpen struct {
	Scope string `json:"scope,omitempty"`
	Key   string `json:"key"`
	Title string `json:"title"`
	Image string `json:"image"`
	// Request, when set, lets the publisher collect the view built for this
	// very request.
	Request string `json:"request,omitempty"`
}

type Handler func(payload any)

type subscription struct {
	id int
	fn Handler
}

type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[string][]subscription
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string][]subscription)}
}

// Subscribe registers fn for name and returns a func that removes it.
func (b *Bus) Subscribe(name string, fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[name] = append(b.subs[name], subscription{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(name, id) })
	}
}

func (b *Bus) remove(name string, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[name]
	for i, s := range list {
		if s.id != id {
			continue
		}
		out := make([]subscription, 0, len(list)-1)
		out = append(out, list[:i]...)
		out = append(out, list[i+1:]...)
		if len(out) == 0 {
			delete(b.subs, name)
		} else {
			b.subs[name] = out
		}
		return
	}
}

// Publish calls every current subscriber of name, in subscription order, on
// the caller's goroutine. Events nobody listens to are dropped.
func (b *Bus) Publish(name string, payload any) {
	b.mu.Lock()
	list := b.subs[name]
	b.mu.Unlock()

	// list is never mutated in place, so iterating the old slice is safe
	for _, s := range list {
		s.fn(payload)
	}
}

// Subscribers reports how many handlers are registered for name.
func (b *Bus) Subscribers(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[name])
}
