package favorites

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"recetas/internal/export"
	"recetas/internal/session"
	"recetas/pkg/models"
)

// Catalog supplies display data for keys toggled without any.
type Catalog interface {
	GetByID(id string) (models.Recipe, bool)
}

type Handler struct {
	Service *Service
	Catalog Catalog
}

func NewHandler(svc *Service, catalog Catalog) *Handler {
	return &Handler{Service: svc, Catalog: catalog}
}

// RegisterRoutes expects rg to run behind session.Middleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/favorites", h.list)                // GET /favorites
	rg.DELETE("/favorites", h.clear)            // DELETE /favorites
	rg.GET("/favorites/export", h.export)       // GET /favorites/export?format=csv|xlsx
	rg.GET("/favorites/:key", h.getOne)         // GET /favorites/:key
	rg.POST("/favorites/:key/toggle", h.toggle) // POST /favorites/:key/toggle
	rg.DELETE("/favorites/:key", h.remove)      // DELETE /favorites/:key
}

type toggleReq struct {
	Title string `json:"title"`
	Image string `json:"image"`
}

func (h *Handler) store(c *gin.Context) *Store {
	scope := session.Scope(c)
	if scope == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil
	}
	return h.Service.Scope(scope)
}

func (h *Handler) list(c *gin.Context) {
	s := h.store(c)
	if s == nil {
		return
	}
	items := s.List(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"total": len(items), "items": items})
}

func (h *Handler) getOne(c *gin.Context) {
	s := h.store(c)
	if s == nil {
		return
	}
	entry, ok := s.Get(c.Request.Context(), c.Param("key"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not a favorite"})
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *Handler) toggle(c *gin.Context) {
	s := h.store(c)
	if s == nil {
		return
	}

	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key required"})
		return
	}

	// the body is optional
	var req toggleReq
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}

	meta := models.FavoriteMeta{Title: req.Title, Image: req.Image}
	if h.Catalog != nil && (meta.Title == "" || meta.Image == "") {
		if r, ok := h.Catalog.GetByID(key); ok {
			if meta.Title == "" {
				meta.Title = r.Title
			}
			if meta.Image == "" {
				meta.Image = r.Image
			}
		}
	}

	ctx := c.Request.Context()
	on, err := s.Toggle(ctx, key, meta)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "favorite": on, "count": s.Count(ctx)})
}

func (h *Handler) remove(c *gin.Context) {
	s := h.store(c)
	if s == nil {
		return
	}
	removed, err := s.Remove(c.Request.Context(), c.Param("key"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "not a favorite"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) clear(c *gin.Context) {
	s := h.store(c)
	if s == nil {
		return
	}
	if err := s.Clear(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

var contentTypes = map[string]string{
	"csv":  "text/csv; charset=utf-8",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

func (h *Handler) export(c *gin.Context) {
	s := h.store(c)
	if s == nil {
		return
	}

	format := strings.ToLower(c.DefaultQuery("format", "csv"))
	write, err := export.Format(format)
	if err != nil || contentTypes[format] == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or xlsx"})
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, s.List(c.Request.Context())); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "export failed"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="favoritos.`+format+`"`)
	c.Data(http.StatusOK, contentTypes[format], buf.Bytes())
}
