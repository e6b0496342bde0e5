package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/remedit/internal/document"
	"github.com/five82/remedit/internal/endpoint"
	"github.com/five82/remedit/internal/logging"
	"github.com/five82/remedit/internal/prefs"
	"github.com/five82/remedit/internal/remote"
	"github.com/five82/remedit/internal/workspace"
)

// View represents the current active view.
type View int

const (
	ViewEndpoints View = iota
	ViewPrograms
	ViewEditor
)

// Options configures the UI.
type Options struct {
	Context      context.Context
	Workspace    *workspace.Workspace
	Tick         time.Duration
	ThemeName    string
	PrefsPath    string
	LastEndpoint string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	ws        *workspace.Workspace
	prefsPath string
	lastEP    string
	tick      time.Duration
	keys      keyMap

	// UI state
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool
	modal       Modal

	// Endpoints view
	endpoints   []endpoint.Endpoint
	endpointIdx int
	current     endpoint.Endpoint

	// Programs view
	programs   []remote.Program
	programIdx int

	// Editor view
	doc    *document.Document
	editor textarea.Model

	// Status line
	status    string
	statusErr bool
	hint      string
	statusAt  time.Time
	busy      bool
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	tick := opts.Tick
	if tick == 0 {
		tick = DefaultUIInterval
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Nightfox"
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	m := Model{
		ctx:         ctx,
		ws:          opts.Workspace,
		prefsPath:   prefsPath,
		lastEP:      opts.LastEndpoint,
		tick:        tick,
		keys:        DefaultKeyMap(),
		theme:       GetTheme(themeName),
		currentView: ViewEndpoints,
		editor:      newEditor(),
	}
	m.applyEditorTheme()
	m.loadEndpoints()
	for i, ep := range m.endpoints {
		if ep.ID == opts.LastEndpoint {
			m.endpointIdx = i
			break
		}
	}
	return m
}

func newEditor() textarea.Model {
	ta := textarea.New()
	ta.ShowLineNumbers = true
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.Prompt = " "
	ta.Placeholder = ""
	return ta
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd(m.tick)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeEditor()
		return m, nil

	case tickMsg:
		return m.handleTick(time.Time(msg))

	case programsMsg:
		return m.handlePrograms(msg)

	case openedMsg:
		return m.handleOpened(msg)

	case savedMsg:
		return m.handleSaved(msg)

	case refreshedMsg:
		m.busy = false
		m.loadEndpoints()
		m.loadPrograms()
		if msg.err != nil {
			m.setError("Refresh failed for some endpoints", msg.err)
			return m, nil
		}
		m.setStatus("Refreshed all endpoints")
		return m, nil

	case endpointFormMsg:
		return m, applyEndpointCmd(m.ws, msg)

	case endpointChangedMsg:
		m.loadEndpoints()
		if msg.err != nil {
			m.setError("Could not "+msg.action+" endpoint", msg.err)
			return m, nil
		}
		m.setStatus(endpointActionDone[msg.action] + " " + msg.name)
		return m, nil
	}

	if m.modal != nil {
		var cmd tea.Cmd
		var closed bool
		m.modal, cmd, closed = m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
		}
		return m, cmd
	}
	if m.currentView == ViewEditor {
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	return m.renderMain()
}

// handleKey routes keyboard input. Overlays consume keys before views do,
// and the editor consumes keys before global bindings so typing works.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	if m.modal != nil {
		var cmd tea.Cmd
		var closed bool
		m.modal, cmd, closed = m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
		}
		return m, cmd
	}

	if m.currentView == ViewEditor {
		return m.handleEditorKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.applyEditorTheme()
		m.savePrefs()
		return m, nil
	}

	switch m.currentView {
	case ViewEndpoints:
		return m.handleEndpointsKey(msg)
	case ViewPrograms:
		return m.handleProgramsKey(msg)
	}
	return m, nil
}

func (m Model) handleTick(now time.Time) (tea.Model, tea.Cmd) {
	m.loadEndpoints()
	if m.current.ID != "" {
		if ep, err := m.ws.Registry().Get(m.current.ID); err != nil {
			m.endpointGone()
		} else {
			m.current = ep
			m.loadPrograms()
		}
	}
	if m.status != "" && !m.statusErr && now.Sub(m.statusAt) > StatusTTL {
		m.status = ""
	}
	return m, tickCmd(m.tick)
}

// endpointGone returns to the endpoint list after the current endpoint was
// removed, possibly by another process editing the registry file.
func (m *Model) endpointGone() {
	name := m.current.Name
	m.current = endpoint.Endpoint{}
	m.programs = nil
	m.doc = nil
	m.editor.Blur()
	m.currentView = ViewEndpoints
	m.setStatus("Endpoint " + name + " was removed")
}

func (m *Model) loadEndpoints() {
	if m.ws == nil {
		return
	}
	m.endpoints = m.ws.Endpoints()
	m.endpointIdx = clamp(m.endpointIdx, len(m.endpoints))
}

func (m *Model) loadPrograms() {
	if m.ws == nil || m.current.ID == "" {
		return
	}
	m.programs = m.ws.Programs(m.current.ID)
	m.programIdx = clamp(m.programIdx, len(m.programs))
}

func (m *Model) selectedEndpoint() (endpoint.Endpoint, bool) {
	if len(m.endpoints) == 0 {
		return endpoint.Endpoint{}, false
	}
	return m.endpoints[clamp(m.endpointIdx, len(m.endpoints))], true
}

func (m *Model) selectedProgram() (remote.Program, bool) {
	if len(m.programs) == 0 {
		return remote.Program{}, false
	}
	return m.programs[clamp(m.programIdx, len(m.programs))], true
}

func (m *Model) setStatus(text string) {
	m.status = text
	m.statusErr = false
	m.hint = ""
	m.statusAt = time.Now()
}

func (m *Model) setError(text string, err error) {
	m.status = text + ": " + err.Error()
	m.statusErr = true
	m.hint = remote.Hint(err)
	m.statusAt = time.Now()
}

func (m *Model) savePrefs() {
	p := prefs.Prefs{Theme: m.theme.Name, LastEndpoint: m.lastEP}
	if err := prefs.Save(m.prefsPath, p); err != nil {
		logging.Warn("save preferences failed",
			logging.String("path", m.prefsPath),
			logging.Err(err),
		)
	}
}

func (m *Model) applyEditorTheme() {
	focused, blurred := textarea.DefaultStyles()
	focused.Base = lipgloss.NewStyle()
	focused.Text = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Text))
	focused.CursorLine = lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.CursorLine)).
		Foreground(lipgloss.Color(m.theme.Text))
	focused.LineNumber = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.LineNumber))
	focused.CursorLineNumber = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Accent))
	focused.EndOfBuffer = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Faint))
	blurred.Text = focused.Text
	blurred.LineNumber = focused.LineNumber
	m.editor.FocusedStyle = focused
	m.editor.BlurredStyle = blurred
}

func (m *Model) resizeEditor() {
	m.editor.SetWidth(max(m.width, 10))
	m.editor.SetHeight(max(m.bodyHeight(), 1))
}

func (m Model) bodyHeight() int {
	return m.height - LayoutChromeHeight
}

// renderMain renders header, the active view and the footer.
func (m Model) renderMain() string {
	var body string
	switch m.currentView {
	case ViewPrograms:
		body = m.renderPrograms()
	case ViewEditor:
		body = m.editor.View()
	default:
		body = m.renderEndpoints()
	}
	body = lipgloss.NewStyle().Height(max(m.bodyHeight(), 0)).MaxHeight(max(m.bodyHeight(), 0)).Render(body)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderStatus(),
		m.renderFooter(),
	)
}

func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)

	parts := []string{bg.Render("remedit", styles.Logo)}
	if m.current.ID != "" && m.currentView != ViewEndpoints {
		parts = append(parts, bg.Render(m.current.Name, styles.AccentText))
	}
	if m.doc != nil && m.currentView == ViewEditor {
		parts = append(parts, bg.Render(m.doc.Program().FullName(), styles.Text))
	}
	left := bg.Join(parts, " › ")
	right := bg.Render(m.theme.Name, styles.FaintText)

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	line := left + bg.FillLine("", gap) + right
	return styles.Header.Width(m.width).Render(line)
}

func (m Model) renderStatus() string {
	styles := m.theme.Styles()
	if m.busy && m.status == "" {
		return styles.InfoText.Render(" working...")
	}
	if m.status == "" {
		return ""
	}
	if !m.statusErr {
		return styles.SuccessText.Render(" " + truncate(m.status, m.width-2))
	}
	text := m.status
	if m.hint != "" {
		text += " · " + m.hint
	}
	return styles.DangerText.Render(" " + truncate(text, m.width-2))
}

func (m Model) renderFooter() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)

	var hints []string
	switch m.currentView {
	case ViewEndpoints:
		hints = []string{"enter connect", "a add", "e edit", "d remove", "K/J move", "R refresh all"}
	case ViewPrograms:
		hints = []string{"enter open", "r refresh", "esc back"}
	case ViewEditor:
		hints = []string{"ctrl+s save", "ctrl+r reload", "esc back"}
	}
	hints = append(hints, "? help")

	left := bg.Render(strings.Join(hints, " · "), styles.MutedText)
	if m.currentView == ViewEditor && m.doc != nil {
		left = bg.Join([]string{m.renderDocInfo(), left}, "  ")
	}
	return styles.Footer.Width(m.width).Render(left)
}

// Messages

type tickMsg time.Time

type programsMsg struct {
	endpoint endpoint.Endpoint
	programs []remote.Program
	enter    bool
	err      error
}

type openedMsg struct {
	doc *document.Document
	err error
}

type savedMsg struct {
	key string
	err error
}

type refreshedMsg struct {
	err error
}

var endpointActionDone = map[string]string{
	"add":    "Added",
	"update": "Updated",
	"remove": "Removed",
}

type endpointChangedMsg struct {
	action string
	name   string
	err    error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func connectCmd(ctx context.Context, ws *workspace.Workspace, ep endpoint.Endpoint, enter bool) tea.Cmd {
	return func() tea.Msg {
		programs, err := ws.Connect(ctx, ep.ID)
		return programsMsg{endpoint: ep, programs: programs, enter: enter, err: err}
	}
}

func refreshAllCmd(ctx context.Context, ws *workspace.Workspace) tea.Cmd {
	return func() tea.Msg {
		_, err := ws.RefreshAll(ctx)
		return refreshedMsg{err: err}
	}
}

// openCmd opens a program. An already open document with unsaved edits is
// reused as is so leaving the editor never loses work.
func openCmd(ctx context.Context, ws *workspace.Workspace, endpointID, programID string, force bool) tea.Cmd {
	return func() tea.Msg {
		if !force {
			if doc, ok := ws.Document(document.Key(endpointID, programID)); ok && doc.Dirty() {
				return openedMsg{doc: doc}
			}
		}
		doc, err := ws.Open(ctx, endpointID, programID)
		return openedMsg{doc: doc, err: err}
	}
}

func saveCmd(ctx context.Context, ws *workspace.Workspace, doc *document.Document) tea.Cmd {
	return func() tea.Msg {
		return savedMsg{key: doc.Key(), err: ws.Save(ctx, doc)}
	}
}

func applyEndpointCmd(ws *workspace.Workspace, msg endpointFormMsg) tea.Cmd {
	return func() tea.Msg {
		action := "add"
		var err error
		if msg.editing {
			action = "update"
			err = ws.Registry().Update(msg.endpoint)
		} else {
			err = ws.Registry().Add(msg.endpoint)
		}
		if err == nil && msg.password != "" {
			err = ws.Credentials().SetPassword(msg.endpoint.ID, msg.password)
		}
		return endpointChangedMsg{action: action, name: msg.endpoint.Name, err: err}
	}
}

func removeEndpointCmd(ws *workspace.Workspace, ep endpoint.Endpoint) tea.Cmd {
	return func() tea.Msg {
		err := ws.Registry().Remove(ep.ID)
		return endpointChangedMsg{action: "remove", name: ep.Name, err: err}
	}
}

// Run starts the Bubble Tea program and blocks until it exits.
func Run(opts Options) error {
	m := New(opts)
	programOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if opts.Context != nil {
		programOpts = append(programOpts, tea.WithContext(opts.Context))
	}
	p := tea.NewProgram(m, programOpts...)
	_, err := p.Run()
	return err
}
