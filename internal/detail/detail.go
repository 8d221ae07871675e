// Package detail builds the recipe detail view shown when a card is opened.
package detail

import (
	"context"
	"sync"

	"recetas/internal/events"
	"recetas/pkg/models"
)

const (
	NoIngredients = "Ingredientes no disponibles."
	NoSteps       = "Pasos no disponibles."
)

type Catalog interface {
	GetByID(id string) (models.Recipe, bool)
	GetByTitle(title string) (models.Recipe, bool)
}

type FavoriteChecker interface {
	IsFavorite(ctx context.Context, key string) bool
}

type View struct {
	Key             string   `json:"key"`
	Title           string   `json:"title"`
	Image           string   `json:"image"`
	Category        string   `json:"category,omitempty"`
	Ingredients     []string `json:"ingredients"`
	Steps           []string `json:"steps"`
	IngredientsNote string   `json:"ingredients_note,omitempty"`
	StepsNote       string   `json:"steps_note,omitempty"`
	Favorite        bool     `json:"favorite"`
	// Found is false when the catalog did not know the recipe and the view was
	// built from the caller's display data alone.
	Found bool `json:"found"`
}

// Build resolves req against the catalog, by key first and then by title.
// When neither matches, the title and image the caller sent are used.
func Build(ctx context.Context, catalog Catalog, favs FavoriteChecker, req events.RecipeOpen) View {
	v := View{Key: req.Key, Title: req.Title, Image: req.Image}

	if r, ok := lookup(catalog, req); ok {
		v.Found = true
		if v.Key == "" {
			v.Key = r.ID
		}
		if r.Title != "" {
			v.Title = r.Title
		}
		if r.Image != "" {
			v.Image = r.Image
		}
		v.Category = r.Category
		v.Ingredients = r.Ingredients
		v.Steps = r.Steps
	}

	if v.Title == "" {
		v.Title = v.Key
	}
	if len(v.Ingredients) == 0 {
		v.Ingredients = []string{}
		v.IngredientsNote = NoIngredients
	}
	if len(v.Steps) == 0 {
		v.Steps = []string{}
		v.StepsNote = NoSteps
	}
	if favs != nil && v.Key != "" {
		v.Favorite = favs.IsFavorite(ctx, v.Key)
	}
	return v
}

func lookup(catalog Catalog, req events.RecipeOpen) (models.Recipe, bool) {
	if catalog == nil {
		return models.Recipe{}, false
	}
	if req.Key != "" {
		if r, ok := catalog.GetByID(req.Key); ok {
			return r, true
		}
	}
	if req.Title != "" {
		return catalog.GetByTitle(req.Title)
	}
	return models.Recipe{}, false
}

// Opener listens for recipe:open requests and keeps the last view built for
// each scope, the way a page keeps one modal open.
type Opener struct {
	Catalog   Catalog
	Favorites func(scope string) FavoriteChecker

	mu      sync.Mutex
	last    map[string]View
	pending map[string]View // by RecipeOpen.Request, until taken
}

func NewOpener(catalog Catalog, favorites func(scope string) FavoriteChecker) *Opener {
	return &Opener{
		Catalog:   catalog,
		Favorites: favorites,
		last:      make(map[string]View),
		pending:   make(map[string]View),
	}
}

// Attach subscribes o to bus and returns the unsubscribe func.
func (o *Opener) Attach(bus *events.Bus) func() {
	return bus.Subscribe(events.RecipeOpenRequest, func(payload any) {
		req, ok := payload.(events.RecipeOpen)
		if !ok {
			return
		}
		o.Open(context.Background(), req)
	})
}

func (o *Opener) Open(ctx context.Context, req events.RecipeOpen) View {
	var favs FavoriteChecker
	if o.Favorites != nil {
		favs = o.Favorites(req.Scope)
	}
	v := Build(ctx, o.Catalog, favs, req)

	o.mu.Lock()
	o.last[req.Scope] = v
	if req.Request != "" {
		o.pending[req.Request] = v
	}
	o.mu.Unlock()
	return v
}

// Take returns and forgets the view built for request id.
func (o *Opener) Take(id string) (View, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	v, ok := o.pending[id]
	delete(o.pending, id)
	return v, ok
}

// Current returns the view last opened in scope.
func (o *Opener) Current(scope string) (View, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	v, ok := o.last[scope]
	return v, ok
}

// Close forgets the open view of scope.
func (o *Opener) Close(scope string) {
	o.mu.Lock()
	delete(o.last, scope)
	o.mu.Unlock()
}
