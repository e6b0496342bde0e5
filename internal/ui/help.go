package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderHelp renders the help overlay.
func (m Model) renderHelp() string {
	styles := m.theme.Styles()

	sections := []helpSection{
		{
			title: "Endpoints",
			items: []helpItem{
				{"enter", "Connect and list programs"},
				{"r/R", "Refresh selected/all"},
				{"a/e/d", "Add/edit/remove"},
				{"K/J", "Move up/down"},
			},
		},
		{
			title: "Programs",
			items: []helpItem{
				{"enter", "Open in editor"},
				{"r", "Refresh listing"},
				{"esc", "Back to endpoints"},
			},
		},
		{
			title: "Editor",
			items: []helpItem{
				{"ctrl+s", "Save to endpoint"},
				{"ctrl+r", "Reload from endpoint"},
				{"esc", "Back to programs"},
			},
		},
		{
			title: "General",
			items: []helpItem{
				{"j/k", "Move up/down"},
				{"g/G", "Go to top/bottom"},
				{"T", "Cycle theme"},
				{"?", "Toggle help"},
				{"q/ctrl+c", "Quit"},
			},
		},
	}

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Keyboard Shortcuts"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 30)))
	b.WriteString("\n\n")

	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color(m.theme.Warning)).
		Width(12)
	for i, section := range sections {
		b.WriteString(styles.AccentText.Bold(true).Render(section.title))
		b.WriteString("\n")
		for _, item := range section.items {
			b.WriteString(keyStyle.Render(item.key))
			b.WriteString(styles.Text.Render(item.desc))
			b.WriteString("\n")
		}
		if i < len(sections)-1 {
			b.WriteString("\n")
		}
	}

	return placeModal(m.theme, m.width, m.height, b.String())
}

type helpSection struct {
	title string
	items []helpItem
}

type helpItem struct {
	key  string
	desc string
}
