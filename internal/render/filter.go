package render

import (
	"strings"

	"github.com/starford/itemdesk/internal/models"
)

// Filter returns the items whose name, description, category or any tag
// contains query, case-insensitively, in their original order. An empty query
// returns items unchanged. The input slice is never modified.
func Filter(items []models.Item, query string) []models.Item {
	if query == "" {
		return items
	}
	q := strings.ToLower(query)
	out := make([]models.Item, 0, len(items))
	for _, it := range items {
		if matches(it, q) {
			out = append(out, it)
		}
	}
	return out
}

func matches(it models.Item, q string) bool {
	if contains(it.Name, q) || contains(it.Description, q) || contains(it.Category, q) {
		return true
	}
	for _, tag := range it.Tags {
		if contains(tag, q) {
			return true
		}
	}
	return false
}

func contains(field, q string) bool {
	return field != "" && strings.Contains(strings.ToLower(field), q)
}
