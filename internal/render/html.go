// Package render turns items into markup and filters them. Functions here are
// pure: they write to an io.Writer and never touch session or network state.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/starford/itemdesk/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

// DateLayout matches a short locale date followed by a locale time.
const DateLayout = "1/2/2006 3:04:05 PM"

// Banner is the notification shown at the top of the page.
type Banner struct {
	Level   string
	Message string
}

// PageData is everything the full page needs.
type PageData struct {
	Authenticated bool
	Username      string
	// AuthUsername prefills the sign-in form. The password is never echoed.
	AuthUsername  string
	Banner        *Banner
	Query         string
	FormOpen      bool
	Form          FormState
	Items         []models.Item
	DismissMillis int64
}

// Options configures an HTML renderer.
type Options struct {
	// Location timestamps are shown in. Defaults to time.Local.
	Location *time.Location
}

// HTML renders pages and item lists. It is safe for concurrent use.
type HTML struct {
	tmpl *template.Template
	loc  *time.Location
}

// NewHTML parses the embedded templates.
func NewHTML(opts Options) (*HTML, error) {
	h := &HTML{loc: opts.Location}
	if h.loc == nil {
		h.loc = time.Local
	}
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"formatDate": h.formatDate,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("render: parse templates: %w", err)
	}
	h.tmpl = tmpl
	return h, nil
}

// Items writes one card per item, or the empty placeholder. All user text is
// escaped by html/template.
func (h *HTML) Items(w io.Writer, items []models.Item) error {
	if err := h.tmpl.ExecuteTemplate(w, "items", items); err != nil {
		return fmt.Errorf("render: items: %w", err)
	}
	return nil
}

// Page writes the full document.
func (h *HTML) Page(w io.Writer, data PageData) error {
	if data.DismissMillis <= 0 {
		data.DismissMillis = 3000
	}
	if err := h.tmpl.ExecuteTemplate(w, "page", data); err != nil {
		return fmt.Errorf("render: page: %w", err)
	}
	return nil
}

func (h *HTML) formatDate(ts models.Timestamp) string {
	return FormatDate(ts, h.loc)
}

// FormatDate renders ts in loc, or "N/A" when unset.
func FormatDate(ts models.Timestamp, loc *time.Location) string {
	if ts.IsZero() {
		return "N/A"
	}
	if loc == nil {
		loc = time.Local
	}
	return ts.In(loc).Format(DateLayout)
}
