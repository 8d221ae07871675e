// Package page reads the host page the recipe cards are rendered into. The
// page is only read: layout and styling belong to the page itself.
package page

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"recetas/internal/filter"
	"recetas/internal/text"
)

const (
	CardSelector      = ".recipe-card"
	TitleSelector     = ".recipe-title"
	CategorySelector  = ".category-btn"
	FavoritesSelector = `[data-role="favorites"]`
	SearchSelector    = "#searchInput"
)

type Page struct {
	Cards      []filter.Card
	Categories []string
	// FavoritesNav is the text of the favorites entry point, "" when the page
	// has none. Without it the favorites display is not mounted.
	FavoritesNav string
	HasSearch    bool
}

func Parse(r io.Reader) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Page{}, fmt.Errorf("parse page: %w", err)
	}

	var p Page
	doc.Find(CardSelector).Each(func(_ int, s *goquery.Selection) {
		p.Cards = append(p.Cards, card(s))
	})

	doc.Find(CategorySelector).Each(func(_ int, s *goquery.Selection) {
		name := condense(s.Text())
		if v, ok := s.Attr("data-category"); ok && strings.TrimSpace(v) != "" {
			name = strings.TrimSpace(v)
		}
		if name != "" {
			p.Categories = append(p.Categories, name)
		}
	})

	if nav := doc.Find(FavoritesSelector).First(); nav.Length() != 0 {
		p.FavoritesNav = condense(nav.Text())
		if p.FavoritesNav == "" {
			p.FavoritesNav = "favoritos"
		}
	}
	p.HasSearch = doc.Find(SearchSelector).Length() != 0

	return p, nil
}

func ParseFile(path string) (Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return Page{}, err
	}
	defer f.Close()
	return Parse(f)
}

func card(s *goquery.Selection) filter.Card {
	c := filter.Card{Title: condense(s.Find(TitleSelector).First().Text())}

	if img := s.Find("img[src]").First(); img.Length() != 0 {
		c.Image, _ = img.Attr("src")
	}
	if v, ok := s.Attr("data-category"); ok {
		c.Category = strings.TrimSpace(v)
	}

	if v, ok := s.Attr("data-id"); ok && strings.TrimSpace(v) != "" {
		c.ID = text.Slugify(v)
	} else {
		c.ID = text.Slugify(c.Title)
	}
	return c
}

func condense(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
