package render

import (
	"strings"

	"github.com/starford/itemdesk/internal/models"
)

// FormState is the create/edit form as the user filled it in. Tags is the raw
// comma-separated input. A non-empty ID selects update over create.
type FormState struct {
	ID          string
	Name        string
	Description string
	Category    string
	Tags        string
}

// IsEdit reports whether the form targets an existing item.
func (f FormState) IsEdit() bool {
	return f.ID != ""
}

// Title is the heading shown above the form.
func (f FormState) Title() string {
	if f.IsEdit() {
		return "Edit Item"
	}
	return "Create New Item"
}

// Draft converts the form into the request body. Empty category and tags
// are left out.
func (f FormState) Draft() models.Draft {
	return models.Draft{
		Name:        f.Name,
		Description: f.Description,
		Category:    f.Category,
		Tags:        ParseTags(f.Tags),
	}
}

// FormFromItem prefills the edit form.
func FormFromItem(it models.Item) FormState {
	return FormState{
		ID:          it.ID,
		Name:        it.Name,
		Description: it.Description,
		Category:    it.Category,
		Tags:        strings.Join(it.Tags, ", "),
	}
}

// ParseTags splits raw on commas, trims each entry and drops empty ones.
// It returns nil when nothing is left.
func ParseTags(raw string) []string {
	var tags []string
	for _, part := range strings.Split(raw, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
