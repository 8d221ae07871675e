package recipes

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tailscale/hujson"
)

var ErrUnsupportedDocument = errors.New("catalog must be an array or an object with a recetas field")

// entry is the catalog item as written by hand. Both the Spanish field names
// of the original data files and English ones are accepted.
type entry struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Titulo   string `json:"titulo"`
	Image    string `json:"image"`
	Imagen   string `json:"imagen"`
	Category string `json:"category"`
	Categ    string `json:"categoria"`

	Ingredientes json.RawMessage `json:"ingredientes"`
	Ingredients  json.RawMessage `json:"ingredients"`
	Pasos        json.RawMessage `json:"pasos"`
	Steps        json.RawMessage `json:"steps"`
}

func (e entry) title() string    { return firstNonEmpty(e.Title, e.Titulo) }
func (e entry) image() string    { return firstNonEmpty(e.Image, e.Imagen) }
func (e entry) category() string { return firstNonEmpty(e.Category, e.Categ) }

func (e entry) ingredients() []string {
	if l := stringList(e.Ingredientes); l != nil {
		return l
	}
	return stringList(e.Ingredients)
}

func (e entry) steps() []string {
	if l := stringList(e.Pasos); l != nil {
		return l
	}
	return stringList(e.Steps)
}

// decode parses a catalog document. The document may carry comments and
// trailing commas; it is standardized to plain JSON first. Items that are not
// objects are skipped rather than failing the whole document.
func decode(data []byte) ([]entry, error) {
	std, err := hujson.Standardize(bytes.Clone(data))
	if err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	std = bytes.TrimSpace(std)
	if len(std) == 0 {
		return nil, fmt.Errorf("parse catalog: empty document")
	}

	var items []json.RawMessage
	switch std[0] {
	case '[':
		if err := json.Unmarshal(std, &items); err != nil {
			return nil, fmt.Errorf("parse catalog: %w", err)
		}
	case '{':
		var wrapper struct {
			Recetas json.RawMessage `json:"recetas"`
			Recipes json.RawMessage `json:"recipes"`
		}
		if err := json.Unmarshal(std, &wrapper); err != nil {
			return nil, fmt.Errorf("parse catalog: %w", err)
		}
		raw := wrapper.Recetas
		if len(raw) == 0 || string(raw) == "null" {
			raw = wrapper.Recipes
		}
		if len(raw) == 0 || string(raw) == "null" {
			return nil, nil
		}
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("parse catalog: %w", err)
		}
	default:
		return nil, ErrUnsupportedDocument
	}

	out := make([]entry, 0, len(items))
	for _, it := range items {
		var e entry
		if err := json.Unmarshal(it, &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// stringList returns the strings of a JSON array, or nil when raw is missing
// or not an array. Non-string members are dropped.
func stringList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		var s string
		if err := json.Unmarshal(it, &s); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
