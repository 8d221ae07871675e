package sync

import (
	"log"

	"recetas/internal/events"
	"recetas/internal/storage"
)

// Bridge forwards favorites notifications to the hub so every open context of
// a scope hears about a change made in any of them. It returns a function that
// detaches the bus subscription.
func Bridge(hub *Hub, bus *events.Bus, kv storage.Store) (detach func()) {
	detach = func() {}
	if bus != nil {
		detach = bus.Subscribe(events.FavoritesChange, func(payload any) {
			ev, ok := payload.(events.FavoritesChanged)
			if !ok {
				return
			}
			hub.FavoritesChanged(ev.Scope, ev.Count)
		})
	}

	if kv != nil {
		kv.OnChange(func(c storage.Change) {
			if c.Origin != storage.OriginExternal {
				return
			}
			log.Printf("[sync] external change in scope %q", c.Scope)
			hub.Resync(c.Scope, c.Origin)
		})
	}
	return detach
}
