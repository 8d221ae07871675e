package session

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Tokens TokenService
}

func NewHandler(tokens TokenService) *Handler {
	return &Handler{Tokens: tokens}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.create)                                // POST /session
	rg.GET("", Middleware(h.Tokens), h.current)          // GET /session
	rg.POST("/refresh", Middleware(h.Tokens), h.refresh) // POST /session/refresh
}

// create starts a new browsing context with an empty favorites scope.
func (h *Handler) create(c *gin.Context) {
	h.issue(c, http.StatusCreated, NewScope())
}

// refresh extends the current context without changing its scope.
func (h *Handler) refresh(c *gin.Context) {
	claims := MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	h.issue(c, http.StatusOK, claims.Scope)
}

func (h *Handler) current(c *gin.Context) {
	claims := MustGetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	resp := gin.H{"scope": claims.Scope}
	if claims.ExpiresAt != nil {
		resp["expires_at"] = claims.ExpiresAt.UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) issue(c *gin.Context, status int, scope string) {
	token, exp, err := h.Tokens.Sign(scope)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token failed"})
		return
	}
	c.JSON(status, gin.H{
		"scope":      scope,
		"token":      token,
		"expires_at": exp.UTC().Format(time.RFC3339),
	})
}
