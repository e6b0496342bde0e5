package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/remedit/internal/endpoint"
)

const (
	fieldName = iota
	fieldURL
	fieldUsername
	fieldPassword
	fieldCount
)

var fieldLabels = [fieldCount]string{"Name", "URL", "Username", "Password"}

// endpointFormMsg carries a validated form submission.
type endpointFormMsg struct {
	editing  bool
	endpoint endpoint.Endpoint
	password string
}

// endpointForm adds or edits an endpoint. Submission is blocked until the
// name and URL validate.
type endpointForm struct {
	editing bool
	id      string
	inputs  [fieldCount]textinput.Model
	focus   int
	err     string
}

func newEndpointForm(existing *endpoint.Endpoint) *endpointForm {
	f := &endpointForm{}
	for i := range f.inputs {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 2048
		in.Width = LayoutModalWidth - 16
		f.inputs[i] = in
	}
	f.inputs[fieldName].Placeholder = "production"
	f.inputs[fieldURL].Placeholder = "https://api.example.com/programs"
	f.inputs[fieldUsername].Placeholder = "optional"
	f.inputs[fieldPassword].EchoMode = textinput.EchoPassword
	f.inputs[fieldPassword].EchoCharacter = '•'

	if existing != nil {
		f.editing = true
		f.id = existing.ID
		f.inputs[fieldName].SetValue(existing.Name)
		f.inputs[fieldURL].SetValue(existing.URL)
		f.inputs[fieldUsername].SetValue(existing.Username)
		f.inputs[fieldPassword].Placeholder = "unchanged"
	} else {
		f.inputs[fieldPassword].Placeholder = "optional"
	}
	f.inputs[fieldName].Focus()
	return f
}

// validate builds the endpoint described by the form.
func (f *endpointForm) validate() (endpoint.Endpoint, error) {
	name := f.inputs[fieldName].Value()
	rawURL := f.inputs[fieldURL].Value()
	username := f.inputs[fieldUsername].Value()

	ep := endpoint.New(name, rawURL, username)
	if f.editing {
		ep.ID = f.id
	}
	if err := ep.Validate(); err != nil {
		return endpoint.Endpoint{}, err
	}
	return ep, nil
}

func (f *endpointForm) setFocus(idx int) tea.Cmd {
	f.inputs[f.focus].Blur()
	f.focus = (idx + fieldCount) % fieldCount
	return f.inputs[f.focus].Focus()
}

func (f *endpointForm) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, keys.Back):
			return f, nil, true
		case key.Matches(keyMsg, keys.NextField):
			return f, f.setFocus(f.focus + 1), false
		case key.Matches(keyMsg, keys.PrevField):
			return f, f.setFocus(f.focus - 1), false
		case key.Matches(keyMsg, keys.Confirm):
			ep, err := f.validate()
			if err != nil {
				f.err = strings.TrimPrefix(err.Error(), endpoint.ErrInvalid.Error()+": ")
				return f, nil, false
			}
			out := endpointFormMsg{
				editing:  f.editing,
				endpoint: ep,
				password: f.inputs[fieldPassword].Value(),
			}
			return f, func() tea.Msg { return out }, true
		}
	}

	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	f.err = ""
	return f, cmd, false
}

func (f *endpointForm) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	title := "Add Endpoint"
	if f.editing {
		title = "Edit Endpoint"
	}

	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render(title))
	b.WriteString("\n\n")
	for i, in := range f.inputs {
		label := padRight(fieldLabels[i], 10)
		if i == f.focus {
			b.WriteString(styles.WarningText.Render(label))
		} else {
			b.WriteString(styles.MutedText.Render(label))
		}
		b.WriteString(" ")
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	if f.err != "" {
		b.WriteString(styles.DangerText.Render(f.err))
		b.WriteString("\n")
	}
	b.WriteString(styles.MutedText.Render("enter save · tab next · esc cancel"))
	return placeModal(theme, width, height, b.String())
}
