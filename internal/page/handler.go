package page

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"recetas/internal/favorites"
	"recetas/internal/filter"
	"recetas/internal/session"
)

// Handler reports, for every card of the host page, whether the current filter
// shows it and whether it is a favorite of the caller's context.
type Handler struct {
	Path      string
	Favorites *favorites.Service
}

func NewHandler(path string, favs *favorites.Service) *Handler {
	return &Handler{Path: path, Favorites: favs}
}

// RegisterRoutes expects rg to run behind session.Middleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/page/cards", h.cards) // GET /page/cards?category=&q=
}

type CardState struct {
	filter.Card
	Visible  bool `json:"visible"`
	Favorite bool `json:"favorite"`
}

func (h *Handler) cards(c *gin.Context) {
	scope := session.Scope(c)
	if scope == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	p, err := ParseFile(h.Path)
	if err != nil {
		log.Printf("[page] %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "page unavailable"})
		return
	}

	sel := filter.FromQuery(c.Query("category"))
	q := c.Query("q")

	states := Sync(c.Request.Context(), p, h.Favorites.Scope(scope), sel, q)
	resp := gin.H{
		"category":   sel.String(),
		"q":          q,
		"categories": p.Categories,
		"items":      states,
		"search":     p.HasSearch,
	}
	if p.FavoritesNav != "" {
		resp["favorites_nav"] = p.FavoritesNav
		resp["favorites"] = h.Favorites.Scope(scope).Count(c.Request.Context())
	}
	c.JSON(http.StatusOK, resp)
}
