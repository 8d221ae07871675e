package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch_CategoryAndSearch(t *testing.T) {
	sel := Select("Postres")

	assert.True(t, Match(Card{Title: "Chocotorta", Category: "Postres"}, sel, "choc"))
	assert.False(t, Match(Card{Title: "Chocolate dip", Category: "Entradas"}, sel, "choc"), "category mismatch")
	assert.False(t, Match(Card{Title: "Flan", Category: "Postres"}, sel, "choc"), "text mismatch")
}

func TestMatch_NoFilter(t *testing.T) {
	cards := []Card{
		{Title: "Chocotorta", Category: "Postres"},
		{Title: "Empanadas", Category: "Entradas"},
		{Title: "Sin categoria"},
	}

	assert.Equal(t, cards, Apply(cards, NoFilter, ""))
	assert.Equal(t, []bool{false, true, false}, Visibility(cards, NoFilter, "EMPA"))
}

func TestMatch_SearchIsCaseInsensitive(t *testing.T) {
	card := Card{Title: "Pollo al Limón"}

	assert.True(t, Match(card, NoFilter, "LIMÓN"))
	assert.True(t, Match(card, NoFilter, "pollo al"))
	assert.False(t, Match(card, NoFilter, "limon"), "accents are not folded by the search")
}

func TestSelection_Click(t *testing.T) {
	s := NoFilter
	_, set := s.Category()
	assert.False(t, set)

	s = s.Click("Postres")
	c, set := s.Category()
	assert.True(t, set)
	assert.Equal(t, "Postres", c)

	s = s.Click("Entradas")
	c, _ = s.Category()
	assert.Equal(t, "Entradas", c, "a different category replaces the selection")

	s = s.Click("Entradas")
	assert.Equal(t, NoFilter, s, "clicking the selected category clears it")
	assert.Equal(t, AllCategories, s.String())
}

func TestFromQuery(t *testing.T) {
	assert.Equal(t, NoFilter, FromQuery(""))
	assert.Equal(t, NoFilter, FromQuery(" Todos "))
	assert.Equal(t, Select("Postres"), FromQuery("Postres"))
}

func TestApply_PreservesOrder(t *testing.T) {
	cards := []Card{
		{ID: "b", Title: "Budin", Category: "Postres"},
		{ID: "e", Title: "Empanadas", Category: "Entradas"},
		{ID: "a", Title: "Alfajores", Category: "Postres"},
	}

	got := Apply(cards, Select("Postres"), "")
	assert.Equal(t, []string{"b", "a"}, []string{got[0].ID, got[1].ID})
}
