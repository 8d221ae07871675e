// Package filter decides which recipe cards are visible for a category
// selection and a search text.
package filter

import (
	"strings"

	"recetas/internal/text"
)

// AllCategories is the label clients send for "no category filter".
const AllCategories = "Todos"

type Card struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Image    string `json:"image"`
	Category string `json:"category,omitempty"`
}

// Selection is the category filter state: either no filter or exactly one
// selected category. The zero value is NoFilter.
type Selection struct {
	category string
	set      bool
}

var NoFilter = Selection{}

func Select(category string) Selection {
	return Selection{category: category, set: true}
}

// FromQuery maps a request parameter to a selection; "" and AllCategories
// mean no filter.
func FromQuery(category string) Selection {
	category = strings.TrimSpace(category)
	if category == "" || category == AllCategories {
		return NoFilter
	}
	return Select(category)
}

// Click is the category button transition: clicking the selected category
// clears the filter, clicking any other selects it instead.
func (s Selection) Click(category string) Selection {
	if s.set && s.category == category {
		return NoFilter
	}
	return Select(category)
}

// Category returns the selected category, or false with no filter.
func (s Selection) Category() (string, bool) {
	return s.category, s.set
}

func (s Selection) String() string {
	if !s.set {
		return AllCategories
	}
	return s.category
}

// Match reports whether card is visible: its category equals the selection
// (when one is set) and its title contains search, ignoring case.
func Match(card Card, sel Selection, search string) bool {
	if sel.set && card.Category != sel.category {
		return false
	}
	if search == "" {
		return true
	}
	return strings.Contains(text.Fold(card.Title), text.Fold(search))
}

// Apply returns the visible cards in their original order.
func Apply(cards []Card, sel Selection, search string) []Card {
	out := make([]Card, 0, len(cards))
	for _, c := range cards {
		if Match(c, sel, search) {
			out = append(out, c)
		}
	}
	return out
}

// Visibility returns one flag per card, index-aligned with cards.
func Visibility(cards []Card, sel Selection, search string) []bool {
	out := make([]bool, len(cards))
	for i, c := range cards {
		out[i] = Match(c, sel, search)
	}
	return out
}
