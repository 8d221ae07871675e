package detail

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"recetas/internal/events"
	"recetas/internal/session"
)

// Handler publishes recipe:open for the caller's context and answers with the
// view the Opener built for it.
type Handler struct {
	Bus    *events.Bus
	Opener *Opener
}

func NewHandler(bus *events.Bus, opener *Opener) *Handler {
	return &Handler{Bus: bus, Opener: opener}
}

// RegisterRoutes expects rg to run behind session.Middleware.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/recipes/:id/detail", h.open) // GET /recipes/:id/detail?title=&image=
	rg.GET("/detail", h.current)          // GET /detail
	rg.DELETE("/detail", h.close)         // DELETE /detail
}

func (h *Handler) open(c *gin.Context) {
	scope := session.Scope(c)
	req := events.RecipeOpen{
		Scope: scope,
		Key:   c.Param("id"),
		Title: c.Query("title"),
		Image: c.Query("image"),
	}

	if h.Bus != nil {
		req.Request = uuid.NewString()
		h.Bus.Publish(events.RecipeOpenRequest, req)
		if v, ok := h.Opener.Take(req.Request); ok {
			c.JSON(http.StatusOK, v)
			return
		}
	}

	// nobody is listening on the bus; build it here
	req.Request = ""
	v := h.Opener.Open(c.Request.Context(), req)
	c.JSON(http.StatusOK, v)
}

func (h *Handler) current(c *gin.Context) {
	v, ok := h.Opener.Current(session.Scope(c))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no recipe open"})
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) close(c *gin.Context) {
	h.Opener.Close(session.Scope(c))
	c.Status(http.StatusNoContent)
}
