package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) handleProgramsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.currentView = ViewEndpoints
	case key.Matches(msg, m.keys.Up):
		m.programIdx = clamp(m.programIdx-1, len(m.programs))
	case key.Matches(msg, m.keys.Down):
		m.programIdx = clamp(m.programIdx+1, len(m.programs))
	case key.Matches(msg, m.keys.Top):
		m.programIdx = 0
	case key.Matches(msg, m.keys.Bottom):
		m.programIdx = clamp(len(m.programs)-1, len(m.programs))

	case key.Matches(msg, m.keys.Refresh):
		m.busy = true
		m.setStatus("Refreshing " + m.current.Name + "...")
		return m, connectCmd(m.ctx, m.ws, m.current, false)

	case key.Matches(msg, m.keys.Open):
		p, ok := m.selectedProgram()
		if !ok {
			return m, nil
		}
		m.busy = true
		m.setStatus("Opening " + p.FullName() + "...")
		return m, openCmd(m.ctx, m.ws, m.current.ID, p.ID, false)
	}
	return m, nil
}

func (m Model) renderPrograms() string {
	styles := m.theme.Styles()
	height := m.bodyHeight()
	if len(m.programs) == 0 {
		return styles.MutedText.Render("\n  No programs on " + m.current.Name + ". Press r to refresh.")
	}

	compact := m.width < LayoutCompactWidth
	modW := 16
	idW := 24
	nameW := m.width - modW - idW - 6
	if compact {
		nameW = m.width - modW - 4
	}

	var lines []string
	head := " " + padRight("NAME", nameW) + " " + padRight("MODIFIED", modW)
	if !compact {
		head += " ID"
	}
	lines = append(lines, styles.FaintText.Bold(true).Render(head))

	rows := height - 1
	start := windowStart(m.programIdx, len(m.programs), rows)
	now := time.Now()
	for i := start; i < len(m.programs) && i-start < rows; i++ {
		p := m.programs[i]
		name := p.FullName()
		if doc, ok := m.ws.Document(m.docKey(p.ID)); ok && doc.Dirty() {
			name = "● " + name
		}
		line := " " + padRight(truncate(name, nameW), nameW) + " " +
			padRight(formatModified(p.ModifiedAt(), now), modW)
		if !compact {
			line += " " + truncate(p.ID, idW)
		}
		if i == m.programIdx {
			lines = append(lines, styles.Selected.Width(m.width).Render(line))
		} else {
			lines = append(lines, styles.Text.Render(line))
		}
	}
	return strings.Join(lines, "\n")
}
