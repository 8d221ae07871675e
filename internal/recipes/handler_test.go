package recipes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recetas/pkg/models"
)

const menuCatalog = `{"recetas": [
	{"title": "Chocotorta", "categoria": "Postres", "imagen": "choco.jpg"},
	{"title": "Chocolate dip", "categoria": "Entradas"},
	{"title": "Flan", "categoria": "Postres"},
	{"title": "Pollo al Limón"}
]}`

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	idx := NewIndex()
	require.NoError(t, idx.Load(context.Background(), writeCatalog(t, menuCatalog)))

	r := gin.New()
	NewHandler(idx).RegisterRoutes(r.Group(""))
	return r
}

func get(t *testing.T, r http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestHandler_ListFilters(t *testing.T) {
	r := setupRouter(t)

	w := get(t, r, "/recipes?category=Postres&q=choc")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Total    int             `json:"total"`
		Category string          `json:"category"`
		Items    []models.Recipe `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Total)
	assert.Equal(t, "Postres", body.Category)
	assert.Equal(t, "chocotorta", body.Items[0].ID)

	w = get(t, r, "/recipes?category=Todos")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 4, body.Total)
}

func TestHandler_GetByID(t *testing.T) {
	r := setupRouter(t)

	w := get(t, r, "/recipes/flan")
	require.Equal(t, http.StatusOK, w.Code)

	var got models.Recipe
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Flan", got.Title)

	w = get(t, r, "/recipes/no-existe")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_GetByTitle(t *testing.T) {
	r := setupRouter(t)

	w := get(t, r, "/recipes/by-title?title="+url.QueryEscape("  POLLO AL LIMON "))
	require.Equal(t, http.StatusOK, w.Code)

	var got models.Recipe
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "pollo-al-limon", got.ID)

	assert.Equal(t, http.StatusBadRequest, get(t, r, "/recipes/by-title").Code)
	assert.Equal(t, http.StatusNotFound, get(t, r, "/recipes/by-title?title=guiso").Code)
}

func TestHandler_Categories(t *testing.T) {
	r := setupRouter(t)

	w := get(t, r, "/categories")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Items []string `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []string{"Entradas", "Postres"}, body.Items)
}
