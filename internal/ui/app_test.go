package ui

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/remedit/internal/credential"
	"github.com/five82/remedit/internal/endpoint"
	"github.com/five82/remedit/internal/session"
	"github.com/five82/remedit/internal/workspace"
)

type fakeServer struct {
	mu      sync.Mutex
	content string
	status  int
}

func (s *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != 0 {
		http.Error(w, "denied", s.status)
		return
	}
	program := map[string]any{"id": "p1", "name": "hello", "extension": "py", "lastModified": 1}
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/":
		_ = json.NewEncoder(w).Encode(map[string]any{"programs": []any{program}})
	case r.Method == http.MethodGet && r.URL.Path == "/p1":
		program["content"] = s.content
		_ = json.NewEncoder(w).Encode(map[string]any{"program": program})
	case r.Method == http.MethodPut && r.URL.Path == "/p1":
		var body struct {
			Content string `json:"content"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.content = body.Content
		program["content"] = s.content
		program["lastModified"] = 2
		_ = json.NewEncoder(w).Encode(map[string]any{"program": program})
	default:
		http.NotFound(w, r)
	}
}

func newTestModel(t *testing.T, srv *fakeServer) (Model, *workspace.Workspace) {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	dir := t.TempDir()
	reg, err := endpoint.Open(filepath.Join(dir, "endpoints.toml"))
	if err != nil {
		t.Fatalf("open registry: %v", err)
	}
	if err := reg.Add(endpoint.New("local", ts.URL, "")); err != nil {
		t.Fatalf("add endpoint: %v", err)
	}
	ws := workspace.New(reg, credential.NewMemory(), session.New(), workspace.Options{})

	m := New(Options{Workspace: ws, PrefsPath: filepath.Join(dir, "prefs.toml")})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return updated.(Model), ws
}

// press sends a key and feeds the model's own result messages back in until
// no further work is pending. Cursor blinks and other component messages
// end the chain.
func press(t *testing.T, m Model, msg tea.KeyMsg) Model {
	t.Helper()
	updated, cmd := m.Update(msg)
	m = updated.(Model)
	for cmd != nil {
		next := cmd()
		if !isModelMsg(next) {
			break
		}
		updated, cmd = m.Update(next)
		m = updated.(Model)
	}
	return m
}

func isModelMsg(msg tea.Msg) bool {
	switch msg.(type) {
	case programsMsg, openedMsg, savedMsg, refreshedMsg, endpointFormMsg, endpointChangedMsg:
		return true
	}
	return false
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_ConnectOpenEditSave(t *testing.T) {
	srv := &fakeServer{content: "print(1)"}
	m, ws := newTestModel(t, srv)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.currentView != ViewPrograms {
		t.Fatalf("view = %v, want programs (status %q)", m.currentView, m.status)
	}
	if len(m.programs) != 1 || m.programs[0].FullName() != "hello.py" {
		t.Fatalf("programs = %+v", m.programs)
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.currentView != ViewEditor || m.doc == nil {
		t.Fatalf("view = %v, want editor (status %q)", m.currentView, m.status)
	}
	if got := m.editor.Value(); got != "print(1)" {
		t.Fatalf("editor = %q", got)
	}

	m = press(t, m, runes("q"))
	if m.currentView != ViewEditor {
		t.Fatalf("typing q left the editor")
	}
	if !m.doc.Dirty() {
		t.Fatalf("document should be dirty after typing")
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if m.statusErr {
		t.Fatalf("save failed: %s", m.status)
	}
	if m.doc.Dirty() {
		t.Fatalf("document still dirty after save")
	}
	srv.mu.Lock()
	saved := srv.content
	srv.mu.Unlock()
	if saved != "print(1)q" {
		t.Fatalf("server content = %q", saved)
	}
	ep := ws.Endpoints()[0]
	cached, ok := ws.Lookup(ep.ID, "p1")
	if !ok || cached.LastModified != 2 {
		t.Fatalf("cache = %+v, %v", cached, ok)
	}

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.currentView != ViewPrograms {
		t.Fatalf("esc should return to programs, got %v", m.currentView)
	}
}

func TestModel_ConnectFailureShowsHint(t *testing.T) {
	srv := &fakeServer{status: http.StatusUnauthorized}
	m, _ := newTestModel(t, srv)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.currentView != ViewEndpoints {
		t.Fatalf("view = %v, want endpoints", m.currentView)
	}
	if !m.statusErr {
		t.Fatalf("expected error status, got %q", m.status)
	}
	if !strings.Contains(m.hint, "Authentication failed") {
		t.Fatalf("hint = %q", m.hint)
	}
}

func TestModel_RemoveEndpointAfterConfirm(t *testing.T) {
	m, ws := newTestModel(t, &fakeServer{})

	m = press(t, m, runes("d"))
	if _, ok := m.modal.(*confirmModal); !ok {
		t.Fatalf("expected confirm modal, got %T", m.modal)
	}
	m = press(t, m, runes("n"))
	if m.modal != nil || len(ws.Endpoints()) != 1 {
		t.Fatalf("cancel should keep the endpoint")
	}

	m = press(t, m, runes("d"))
	m = press(t, m, runes("y"))
	if len(ws.Endpoints()) != 0 {
		t.Fatalf("endpoint not removed")
	}
	if len(m.endpoints) != 0 {
		t.Fatalf("model still lists %d endpoints", len(m.endpoints))
	}
}

func TestModel_MoveEndpointKeepsSelection(t *testing.T) {
	m, ws := newTestModel(t, &fakeServer{})
	second := endpoint.New("second", "https://second.example.com", "")
	if err := ws.Registry().Add(second); err != nil {
		t.Fatalf("add endpoint: %v", err)
	}
	m.loadEndpoints()
	m = press(t, m, runes("G"))

	m = press(t, m, runes("K"))
	if got := ws.Endpoints()[0].ID; got != second.ID {
		t.Fatalf("first endpoint = %s, want %s", got, second.ID)
	}
	if m.endpointIdx != 0 || m.endpoints[0].ID != second.ID {
		t.Fatalf("selection did not follow the moved endpoint (idx %d)", m.endpointIdx)
	}

	m = press(t, m, runes("J"))
	if got := ws.Endpoints()[1].ID; got != second.ID {
		t.Fatalf("second endpoint = %s, want %s", got, second.ID)
	}
	if m.endpointIdx != 1 {
		t.Fatalf("endpointIdx = %d, want 1", m.endpointIdx)
	}
}

func TestModel_QuitOutsideEditor(t *testing.T) {
	m, _ := newTestModel(t, &fakeServer{})
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}

func TestModel_HelpClosesOnAnyKey(t *testing.T) {
	m, _ := newTestModel(t, &fakeServer{})
	m = press(t, m, runes("?"))
	if !m.showHelp {
		t.Fatalf("help not shown")
	}
	if !strings.Contains(m.View(), "Keyboard Shortcuts") {
		t.Fatalf("help overlay not rendered")
	}
	m = press(t, m, runes("x"))
	if m.showHelp {
		t.Fatalf("help should close")
	}
}

func TestEndpointForm_ValidatesBeforeSubmit(t *testing.T) {
	keys := DefaultKeyMap()
	f := newEndpointForm(nil)

	_, cmd, closed := f.Update(tea.KeyMsg{Type: tea.KeyEnter}, keys)
	if closed || cmd != nil {
		t.Fatalf("empty form must not submit")
	}
	if f.err == "" {
		t.Fatalf("expected validation message")
	}

	f.inputs[fieldName].SetValue("prod")
	f.inputs[fieldURL].SetValue("ftp://example.com")
	if _, _, closed = f.Update(tea.KeyMsg{Type: tea.KeyEnter}, keys); closed {
		t.Fatalf("non-http URL must not submit")
	}

	f.inputs[fieldURL].SetValue("https://example.com/api")
	f.inputs[fieldPassword].SetValue("secret")
	_, cmd, closed = f.Update(tea.KeyMsg{Type: tea.KeyEnter}, keys)
	if !closed || cmd == nil {
		t.Fatalf("valid form should submit")
	}
	msg, ok := cmd().(endpointFormMsg)
	if !ok {
		t.Fatalf("unexpected message type")
	}
	if msg.editing || msg.endpoint.Name != "prod" || msg.password != "secret" || msg.endpoint.ID == "" {
		t.Fatalf("unexpected submission %+v", msg)
	}
}

func TestEndpointForm_EditKeepsIdentity(t *testing.T) {
	ep := endpoint.New("prod", "https://example.com", "bob")
	f := newEndpointForm(&ep)
	f.inputs[fieldName].SetValue("production")

	_, cmd, closed := f.Update(tea.KeyMsg{Type: tea.KeyEnter}, DefaultKeyMap())
	if !closed {
		t.Fatalf("form should close, err %q", f.err)
	}
	msg := cmd().(endpointFormMsg)
	if !msg.editing || msg.endpoint.ID != ep.ID || msg.endpoint.Name != "production" || msg.endpoint.Username != "bob" {
		t.Fatalf("unexpected submission %+v", msg)
	}
}

func TestEndpointForm_TabCyclesFocus(t *testing.T) {
	f := newEndpointForm(nil)
	keys := DefaultKeyMap()
	for i := 0; i < fieldCount; i++ {
		f.Update(tea.KeyMsg{Type: tea.KeyTab}, keys)
	}
	if f.focus != fieldName {
		t.Fatalf("focus = %d, want wrap to name", f.focus)
	}
	f.Update(tea.KeyMsg{Type: tea.KeyShiftTab}, keys)
	if f.focus != fieldPassword {
		t.Fatalf("focus = %d, want password", f.focus)
	}
}
