package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/remedit/internal/endpoint"
	"github.com/five82/remedit/internal/session"
)

func (m Model) handleEndpointsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.endpointIdx = clamp(m.endpointIdx-1, len(m.endpoints))
	case key.Matches(msg, m.keys.Down):
		m.endpointIdx = clamp(m.endpointIdx+1, len(m.endpoints))
	case key.Matches(msg, m.keys.Top):
		m.endpointIdx = 0
	case key.Matches(msg, m.keys.Bottom):
		m.endpointIdx = clamp(len(m.endpoints)-1, len(m.endpoints))

	case key.Matches(msg, m.keys.Open), key.Matches(msg, m.keys.Refresh):
		ep, ok := m.selectedEndpoint()
		if !ok {
			return m, nil
		}
		m.busy = true
		m.setStatus("Connecting to " + ep.Name + "...")
		return m, connectCmd(m.ctx, m.ws, ep, key.Matches(msg, m.keys.Open))

	case key.Matches(msg, m.keys.RefreshAll):
		if len(m.endpoints) == 0 {
			return m, nil
		}
		m.busy = true
		m.setStatus("Refreshing all endpoints...")
		return m, refreshAllCmd(m.ctx, m.ws)

	case key.Matches(msg, m.keys.AddEndpoint):
		m.modal = newEndpointForm(nil)
	case key.Matches(msg, m.keys.EditEndpoint):
		if ep, ok := m.selectedEndpoint(); ok {
			m.modal = newEndpointForm(&ep)
		}
	case key.Matches(msg, m.keys.MoveUp):
		m.moveEndpoint(-1)
	case key.Matches(msg, m.keys.MoveDown):
		m.moveEndpoint(1)
	case key.Matches(msg, m.keys.RemoveEndpoint):
		if ep, ok := m.selectedEndpoint(); ok {
			m.modal = &confirmModal{
				title:    "Remove Endpoint",
				question: fmt.Sprintf("Remove %q and its stored password?", ep.Name),
				onYes:    removeEndpointCmd(m.ws, ep),
			}
		}
	}
	return m, nil
}

// moveEndpoint reorders the selected endpoint and keeps it selected.
func (m *Model) moveEndpoint(delta int) {
	ep, ok := m.selectedEndpoint()
	if !ok {
		return
	}
	if err := m.ws.Registry().Move(ep.ID, delta); err != nil {
		m.setError("Could not move "+ep.Name, err)
		return
	}
	m.loadEndpoints()
	for i, e := range m.endpoints {
		if e.ID == ep.ID {
			m.endpointIdx = i
		}
	}
}

func (m Model) handlePrograms(msg programsMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	m.loadEndpoints()
	if msg.err != nil {
		m.setError("Could not list "+msg.endpoint.Name, msg.err)
		return m, nil
	}
	m.setStatus(fmt.Sprintf("%s: %d programs", msg.endpoint.Name, len(msg.programs)))
	if msg.enter {
		if m.current.ID != msg.endpoint.ID {
			m.programIdx = 0
		}
		m.current = msg.endpoint
		m.lastEP = msg.endpoint.ID
		m.currentView = ViewPrograms
		m.savePrefs()
	}
	m.loadPrograms()
	return m, nil
}

func (m Model) renderEndpoints() string {
	styles := m.theme.Styles()
	height := m.bodyHeight()
	if len(m.endpoints) == 0 {
		return styles.MutedText.Render("\n  No endpoints configured. Press a to add one.")
	}

	compact := m.width < LayoutCompactWidth
	nameW := 20
	statusW := 18
	urlW := m.width - nameW - statusW - 6
	if compact {
		urlW = 0
	}

	var lines []string
	head := " " + padRight("NAME", nameW) + " " + padRight("STATUS", statusW)
	if !compact {
		head += " URL"
	}
	lines = append(lines, styles.FaintText.Bold(true).Render(head))

	rows := height - 1
	start := windowStart(m.endpointIdx, len(m.endpoints), rows)
	now := time.Now()
	for i := start; i < len(m.endpoints) && i-start < rows; i++ {
		ep := m.endpoints[i]
		status := m.ws.Cache().Status(ep.ID)
		line := " " + padRight(truncate(ep.Name, nameW), nameW) + " " +
			padRight(endpointStatus(status, now), statusW)
		if !compact {
			line += " " + truncate(endpointURL(ep), urlW)
		}
		switch {
		case i == m.endpointIdx:
			lines = append(lines, styles.Selected.Width(m.width).Render(line))
		case status.LastError != nil:
			lines = append(lines, styles.WarningText.Render(line))
		default:
			lines = append(lines, styles.Text.Render(line))
		}
	}
	return strings.Join(lines, "\n")
}

// endpointStatus summarizes the cached listing state of an endpoint.
func endpointStatus(s session.Status, now time.Time) string {
	switch {
	case s.IsOffline():
		return "offline"
	case s.LastError != nil:
		return "error"
	case s.LastRefreshed.IsZero():
		return "not connected"
	default:
		return fmt.Sprintf("%d · %s", s.Programs, formatModified(s.LastRefreshed, now))
	}
}

func endpointURL(ep endpoint.Endpoint) string {
	if ep.Username == "" {
		return ep.URL
	}
	return ep.Username + " @ " + ep.URL
}
