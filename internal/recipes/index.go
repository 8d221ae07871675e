package recipes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"recetas/internal/text"
	"recetas/pkg/models"
)

const DefaultSource = "assets/data/recetas.json"

var ErrBadStatus = errors.New("catalog fetch: unexpected status")

// snapshot is one fully built pair of lookup tables. It is never mutated after
// it has been published.
type snapshot struct {
	byID     map[string]models.Recipe
	byTitle  map[string]models.Recipe
	order    []string // ids in first-seen document order
	loadedAt time.Time
	err      error
}

var emptySnapshot = &snapshot{
	byID:    map[string]models.Recipe{},
	byTitle: map[string]models.Recipe{},
}

// Index answers recipe lookups by slug and by normalized title. Load builds a
// new snapshot off to the side and swaps it in, so readers never observe a
// half-built index.
type Index struct {
	Client *http.Client
	// OnLoad, when set, is called after every Load with the recipe count and
	// the load error (nil on success).
	OnLoad func(count int, err error)

	cur atomic.Pointer[snapshot]
}

func NewIndex() *Index {
	idx := &Index{Client: &http.Client{Timeout: 12 * time.Second}}
	idx.cur.Store(emptySnapshot)
	return idx
}

// Load fetches source (http(s) URL, file:// URL or local path) and replaces
// the index with its content. On any failure the index is left empty, the
// failure is logged, and the error is returned.
func (idx *Index) Load(ctx context.Context, source string) error {
	if source == "" {
		source = DefaultSource
	}

	data, err := idx.fetch(ctx, source)
	if err == nil {
		var entries []entry
		entries, err = decode(data)
		if err == nil {
			snap := build(entries)
			idx.cur.Store(snap)
			idx.loaded(len(snap.byID), nil)
			return nil
		}
	}

	log.Printf("[recipes] could not load catalog %s: %v", source, err)
	idx.cur.Store(&snapshot{
		byID:     map[string]models.Recipe{},
		byTitle:  map[string]models.Recipe{},
		loadedAt: time.Now().UTC(),
		err:      err,
	})
	idx.loaded(0, err)
	return err
}

func (idx *Index) loaded(n int, err error) {
	if idx.OnLoad != nil {
		idx.OnLoad(n, err)
	}
}

// build indexes entries in document order; later entries overwrite earlier
// ones that share an id or a normalized title.
func build(entries []entry) *snapshot {
	snap := &snapshot{
		byID:     make(map[string]models.Recipe, len(entries)),
		byTitle:  make(map[string]models.Recipe, len(entries)),
		loadedAt: time.Now().UTC(),
	}

	for _, e := range entries {
		title := e.title()
		id := text.Slugify(firstNonEmpty(e.ID, title))

		r := models.Recipe{
			ID:          id,
			Title:       title,
			Image:       e.image(),
			Category:    strings.TrimSpace(e.category()),
			Ingredients: e.ingredients(),
			Steps:       e.steps(),
		}

		if id != "" {
			if _, seen := snap.byID[id]; !seen {
				snap.order = append(snap.order, id)
			}
			snap.byID[id] = r
		}
		if title != "" {
			snap.byTitle[text.Normalize(title)] = r
		}
	}
	return snap
}

// GetByID is an exact lookup; key must already be a slug.
func (idx *Index) GetByID(key string) (models.Recipe, bool) {
	r, ok := idx.cur.Load().byID[key]
	return r, ok
}

// GetByTitle looks title up after normalizing it, so accents, case and
// surrounding spaces do not matter.
func (idx *Index) GetByTitle(title string) (models.Recipe, bool) {
	r, ok := idx.cur.Load().byTitle[text.Normalize(title)]
	return r, ok
}

// All returns the recipes that have an id, in the order their id first
// appeared in the catalog.
func (idx *Index) All() []models.Recipe {
	snap := idx.cur.Load()
	out := make([]models.Recipe, 0, len(snap.order))
	for _, id := range snap.order {
		out = append(out, snap.byID[id])
	}
	return out
}

func (idx *Index) Len() int {
	return len(idx.cur.Load().byID)
}

// Status reports when the current snapshot was built and the error of the
// load that produced it. A zero time means nothing was loaded yet.
func (idx *Index) Status() (time.Time, error) {
	snap := idx.cur.Load()
	return snap.loadedAt, snap.err
}

func (idx *Index) fetch(ctx context.Context, source string) ([]byte, error) {
	u, err := url.Parse(source)
	if err == nil {
		switch u.Scheme {
		case "http", "https":
			return idx.fetchHTTP(ctx, source)
		case "file":
			return os.ReadFile(u.Path)
		}
	}

	b, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return b, nil
}

func (idx *Index) fetchHTTP(ctx context.Context, source string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := idx.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrBadStatus, resp.StatusCode)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read catalog body: %w", err)
	}
	return b, nil
}
