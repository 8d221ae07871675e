package models

// FavoriteMeta is the display data kept next to a favorite key.
type FavoriteMeta struct {
	Title string `json:"title"`
	Image string `json:"image"`
}

type FavoriteEntry struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Image string `json:"image"`
}
