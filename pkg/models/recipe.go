package models

// Recipe is one catalog entry as served by the API.
// ID is always the slug; it is derived from the title when the catalog omits it.
type Recipe struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Image       string   `json:"image"`
	Category    string   `json:"category,omitempty"`
	Ingredients []string `json:"ingredients"`
	Steps       []string `json:"steps"`
}
