package recipes

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"recetas/internal/filter"
	"recetas/pkg/models"
)

type Handler struct {
	Index *Index
}

func NewHandler(index *Index) *Handler {
	return &Handler{Index: index}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/recipes", h.list)                // GET /recipes?category=&q=
	rg.GET("/recipes/by-title", h.getByTitle) // GET /recipes/by-title?title=
	rg.GET("/recipes/:id", h.getByID)         // GET /recipes/:id
	rg.GET("/categories", h.categories)       // GET /categories
}

func (h *Handler) list(c *gin.Context) {
	sel := filter.FromQuery(c.Query("category"))
	q := c.Query("q")

	all := h.Index.All()
	items := make([]models.Recipe, 0, len(all))
	for _, r := range all {
		if filter.Match(Card(r), sel, q) {
			items = append(items, r)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"total":    len(items),
		"category": sel.String(),
		"q":        q,
		"items":    items,
	})
}

func (h *Handler) getByID(c *gin.Context) {
	r, ok := h.Index.GetByID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *Handler) getByTitle(c *gin.Context) {
	title := c.Query("title")
	if strings.TrimSpace(title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title required"})
		return
	}
	r, ok := h.Index.GetByTitle(title)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, r)
}

func (h *Handler) categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"items": Categories(h.Index.All())})
}

// Card is the filterable view of a recipe.
func Card(r models.Recipe) filter.Card {
	return filter.Card{ID: r.ID, Title: r.Title, Image: r.Image, Category: r.Category}
}

// Categories returns the distinct non-empty categories, sorted.
func Categories(items []models.Recipe) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range items {
		if r.Category == "" {
			continue
		}
		if _, ok := seen[r.Category]; ok {
			continue
		}
		seen[r.Category] = struct{}{}
		out = append(out, r.Category)
	}
	sort.Strings(out)
	return out
}
