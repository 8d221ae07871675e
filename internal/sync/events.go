package sync

import "time"

const (
	TypeFavoritesChange = "favorites.change"
	TypeFavoritesResync = "favorites.resync"
	TypeCatalogReload   = "catalog.reload"
)

type FavoritesEvent struct {
	Type   string    `json:"type"` // "favorites.change" or "favorites.resync"
	Scope  string    `json:"scope"`
	Count  int       `json:"count,omitempty"`
	Origin string    `json:"origin,omitempty"`
	At     time.Time `json:"at"`
}

type CatalogEvent struct {
	Type    string    `json:"type"` // "catalog.reload"
	Recipes int       `json:"recipes"`
	Error   string    `json:"error,omitempty"`
	At      time.Time `json:"at"`
}

// subscribeMessage is the first line a TCP client sends to pick its scope.
type subscribeMessage struct {
	Type  string `json:"type"` // "subscribe"
	Scope string `json:"scope"`
}
