package render

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/starford/itemdesk/internal/models"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	tagStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	cardStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1)
)

// Terminal renders items and notifications for the CLI.
type Terminal struct {
	Location *time.Location
}

// Items writes one bordered card per item, or the empty placeholder.
func (t Terminal) Items(w io.Writer, items []models.Item) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, mutedStyle.Render("No items found"))
		return err
	}
	for _, it := range items {
		if _, err := fmt.Fprintln(w, cardStyle.Render(t.card(it))); err != nil {
			return err
		}
	}
	return nil
}

// Item writes a single card.
func (t Terminal) Item(w io.Writer, it models.Item) error {
	_, err := fmt.Fprintln(w, cardStyle.Render(t.card(it)))
	return err
}

func (t Terminal) card(it models.Item) string {
	lines := []string{
		titleStyle.Render(it.Name),
		mutedStyle.Render(fmt.Sprintf("ID: %s  Created: %s  Updated: %s",
			it.ID, FormatDate(it.CreatedAt, t.Location), FormatDate(it.UpdatedAt, t.Location))),
	}
	if it.Category != "" {
		lines = append(lines, mutedStyle.Render("Category: "+it.Category))
	}
	lines = append(lines, it.Description)
	if len(it.Tags) > 0 {
		chips := make([]string, len(it.Tags))
		for i, tag := range it.Tags {
			chips[i] = tagStyle.Render("#" + tag)
		}
		lines = append(lines, strings.Join(chips, " "))
	}
	return strings.Join(lines, "\n")
}

// Notification writes one status line styled by level.
func (t Terminal) Notification(w io.Writer, level, msg string) {
	switch level {
	case "success":
		fmt.Fprintln(w, successStyle.Render("✔ "+msg))
	case "error":
		fmt.Fprintln(w, errorStyle.Render("✖ "+msg))
	default:
		fmt.Fprintln(w, infoStyle.Render("• "+msg))
	}
}
