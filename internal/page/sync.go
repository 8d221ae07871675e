package page

import (
	"context"

	"recetas/internal/filter"
)

// FavoriteChecker is the part of favorites.Store the card sync needs.
type FavoriteChecker interface {
	IsFavorite(ctx context.Context, key string) bool
}

// Sync marks every card of p with its visibility under sel/search and its
// favorite state.
func Sync(ctx context.Context, p Page, favs FavoriteChecker, sel filter.Selection, search string) []CardState {
	vis := filter.Visibility(p.Cards, sel, search)
	out := make([]CardState, len(p.Cards))
	for i, c := range p.Cards {
		out[i] = CardState{Card: c, Visible: vis[i]}
		if favs != nil && c.ID != "" {
			out[i].Favorite = favs.IsFavorite(ctx, c.ID)
		}
	}
	return out
}
