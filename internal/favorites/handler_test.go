package favorites

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"recetas/internal/events"
	"recetas/internal/session"
	"recetas/internal/storage"
	"recetas/pkg/models"
)

type catalogStub map[string]models.Recipe

func (c catalogStub) GetByID(id string) (models.Recipe, bool) {
	r, ok := c[id]
	return r, ok
}

type client struct {
	t      *testing.T
	router http.Handler
	token  string
}

func (cl client) do(method, target, body string) *httptest.ResponseRecorder {
	cl.t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.token != "" {
		req.Header.Set("Authorization", "Bearer "+cl.token)
	}
	w := httptest.NewRecorder()
	cl.router.ServeHTTP(w, req)
	return w
}

func setup(t *testing.T) (*gin.Engine, session.TokenService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tokens := session.TokenService{Secret: []byte("test-secret"), Issuer: "recetas", Duration: time.Hour}
	svc := NewService(storage.NewMemStore(), events.NewBus())
	catalog := catalogStub{
		"flan": {ID: "flan", Title: "Flan", Image: "flan.jpg"},
	}

	r := gin.New()
	protected := r.Group("")
	protected.Use(session.Middleware(tokens))
	NewHandler(svc, catalog).RegisterRoutes(protected)
	return r, tokens
}

func newClient(t *testing.T, r http.Handler, tokens session.TokenService) client {
	t.Helper()
	tok, _, err := tokens.Sign(session.NewScope())
	require.NoError(t, err)
	return client{t: t, router: r, token: tok}
}

func TestHandler_ToggleAndList(t *testing.T) {
	r, tokens := setup(t)
	cl := newClient(t, r, tokens)

	w := cl.do(http.MethodPost, "/favorites/pollo-al-limon/toggle", `{"title":"Pollo al Limón","image":"p.jpg"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Key      string `json:"key"`
		Favorite bool   `json:"favorite"`
		Count    int    `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Favorite)
	assert.Equal(t, 1, res.Count)

	w = cl.do(http.MethodGet, "/favorites", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Total int                    `json:"total"`
		Items []models.FavoriteEntry `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, []models.FavoriteEntry{{Key: "pollo-al-limon", Title: "Pollo al Limón", Image: "p.jpg"}}, list.Items)

	w = cl.do(http.MethodPost, "/favorites/pollo-al-limon/toggle", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.False(t, res.Favorite)
	assert.Equal(t, 0, res.Count)
}

func TestHandler_ToggleFillsFromCatalog(t *testing.T) {
	r, tokens := setup(t)
	cl := newClient(t, r, tokens)

	require.Equal(t, http.StatusOK, cl.do(http.MethodPost, "/favorites/flan/toggle", "").Code)
	require.Equal(t, http.StatusOK, cl.do(http.MethodPost, "/favorites/misterio/toggle", "").Code)

	w := cl.do(http.MethodGet, "/favorites/flan", "")
	require.Equal(t, http.StatusOK, w.Code)
	var e models.FavoriteEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	assert.Equal(t, models.FavoriteEntry{Key: "flan", Title: "Flan", Image: "flan.jpg"}, e)

	w = cl.do(http.MethodGet, "/favorites/misterio", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	assert.Equal(t, "misterio", e.Title, "unknown keys fall back to the key")
}

func TestHandler_ToggleRejectsBadJSON(t *testing.T) {
	r, tokens := setup(t)
	cl := newClient(t, r, tokens)

	assert.Equal(t, http.StatusBadRequest, cl.do(http.MethodPost, "/favorites/flan/toggle", `{"title":`).Code)
}

func TestHandler_RemoveAndClear(t *testing.T) {
	r, tokens := setup(t)
	cl := newClient(t, r, tokens)

	cl.do(http.MethodPost, "/favorites/flan/toggle", "")
	cl.do(http.MethodPost, "/favorites/budin/toggle", "")

	assert.Equal(t, http.StatusNoContent, cl.do(http.MethodDelete, "/favorites/flan", "").Code)
	assert.Equal(t, http.StatusNotFound, cl.do(http.MethodDelete, "/favorites/flan", "").Code)
	assert.Equal(t, http.StatusNotFound, cl.do(http.MethodGet, "/favorites/flan", "").Code)

	assert.Equal(t, http.StatusNoContent, cl.do(http.MethodDelete, "/favorites", "").Code)
	w := cl.do(http.MethodGet, "/favorites", "")
	assert.JSONEq(t, `{"total":0,"items":[]}`, w.Body.String())
}

func TestHandler_ScopesAreIsolated(t *testing.T) {
	r, tokens := setup(t)
	a := newClient(t, r, tokens)
	b := newClient(t, r, tokens)

	a.do(http.MethodPost, "/favorites/flan/toggle", "")

	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/favorites/flan", "").Code)
	assert.Equal(t, http.StatusNotFound, b.do(http.MethodGet, "/favorites/flan", "").Code)
}

func TestHandler_Export(t *testing.T) {
	r, tokens := setup(t)
	cl := newClient(t, r, tokens)
	cl.do(http.MethodPost, "/favorites/flan/toggle", "")

	w := cl.do(http.MethodGet, "/favorites/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "key,title,image\nflan,Flan,flan.jpg\n", w.Body.String())

	w = cl.do(http.MethodGet, "/favorites/export?format=xlsx", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "favoritos.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Favoritos")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	assert.Equal(t, http.StatusBadRequest, cl.do(http.MethodGet, "/favorites/export?format=pdf", "").Code)
}

func TestHandler_RequiresSession(t *testing.T) {
	r, _ := setup(t)
	anon := client{t: t, router: r}

	assert.Equal(t, http.StatusUnauthorized, anon.do(http.MethodGet, "/favorites", "").Code)
}
