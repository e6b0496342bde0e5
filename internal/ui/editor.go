package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/remedit/internal/document"
)

func (m Model) docKey(programID string) string {
	return document.Key(m.current.ID, programID)
}

// handleEditorKey intercepts editor commands and forwards everything else to
// the text area, mirroring changes into the document buffer.
func (m Model) handleEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.doc == nil {
		m.currentView = ViewPrograms
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Back):
		m.editor.Blur()
		m.currentView = ViewPrograms
		m.loadPrograms()
		return m, nil
	case key.Matches(msg, m.keys.Save):
		m.busy = true
		m.setStatus("Saving " + m.doc.Name() + "...")
		return m, saveCmd(m.ctx, m.ws, m.doc)
	case key.Matches(msg, m.keys.Reload):
		if m.doc.Dirty() {
			doc := m.doc
			m.modal = &confirmModal{
				title:    "Reload Program",
				question: "Discard unsaved changes to " + doc.Program().FullName() + "?",
				onYes:    openCmd(m.ctx, m.ws, doc.Endpoint().ID, doc.Program().ID, true),
			}
			return m, nil
		}
		m.busy = true
		return m, openCmd(m.ctx, m.ws, m.doc.Endpoint().ID, m.doc.Program().ID, true)
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	if text := m.editor.Value(); text != string(m.doc.Read()) {
		m.doc.Write([]byte(text))
	}
	return m, cmd
}

func (m Model) handleOpened(msg openedMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	if msg.err != nil {
		m.setError("Could not open program", msg.err)
		return m, nil
	}
	m.doc = msg.doc
	m.editor.SetValue(string(msg.doc.Read()))
	m.currentView = ViewEditor
	m.resizeEditor()
	m.setStatus("Opened " + msg.doc.Name())
	cmd := m.editor.Focus()
	return m, cmd
}

func (m Model) handleSaved(msg savedMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	if msg.err != nil {
		m.setError("Save failed", msg.err)
		return m, nil
	}
	m.loadPrograms()
	if m.doc == nil || m.doc.Key() != msg.key {
		m.setStatus("Saved")
		return m, nil
	}
	// The server may normalize content; show it unless newer edits exist.
	if !m.doc.Dirty() {
		if text := string(m.doc.Read()); text != m.editor.Value() {
			m.editor.SetValue(text)
		}
	}
	m.setStatus("Saved " + m.doc.Name())
	return m, nil
}

func (m Model) renderDocInfo() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)

	parts := make([]string, 0, 4)
	if m.doc.Dirty() {
		parts = append(parts, bg.Render("● modified", styles.Modified))
	} else {
		parts = append(parts, bg.Render("saved", styles.SuccessText))
	}
	parts = append(parts,
		bg.Render(fmt.Sprintf("rev %d", m.doc.ModCount()), styles.FaintText),
		bg.Render(formatBytes(m.doc.Len()), styles.FaintText),
		bg.Render(formatModified(m.doc.LastModified(), time.Now()), styles.FaintText),
	)
	return bg.Join(parts, " · ")
}
