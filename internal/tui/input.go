package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrAborted is returned when the operator leaves a form.
var ErrAborted = errors.New("input aborted")

// Field is one value collected from the operator.
type Field struct {
	Key         string
	Label       string
	Placeholder string
	Secret      bool
	// Validate rejects a value; the operator stays on the field.
	Validate func(string) error
}

// Ask collects every field in order and returns the values by key.
func Ask(ctx context.Context, in io.Reader, out io.Writer, fields []Field) (map[string]string, error) {
	if len(fields) == 0 {
		return map[string]string{}, nil
	}
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if in != nil {
		opts = append(opts, tea.WithInput(in))
	}
	if out != nil {
		opts = append(opts, tea.WithOutput(out))
	}

	final, err := tea.NewProgram(newFormModel(fields), opts...).Run()
	if err != nil {
		return nil, fmt.Errorf("prompt: %w", err)
	}
	m := final.(formModel)
	if m.aborted {
		return nil, ErrAborted
	}
	return m.values(), nil
}

type formModel struct {
	fields  []Field
	inputs  []textinput.Model
	focus   int
	err     error
	done    bool
	aborted bool
}

func newFormModel(fields []Field) formModel {
	m := formModel{fields: fields, inputs: make([]textinput.Model, len(fields))}
	for i, f := range fields {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = f.Placeholder
		if f.Secret {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		m.inputs[i] = ti
	}
	m.inputs[0].Focus()
	return m
}

func (m formModel) Init() tea.Cmd { return textinput.Blink }

func (m formModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.aborted = true
			return m, tea.Quit
		case tea.KeyEnter:
			value := strings.TrimSpace(m.inputs[m.focus].Value())
			if validate := m.fields[m.focus].Validate; validate != nil {
				if err := validate(value); err != nil {
					m.err = err
					return m, nil
				}
			}
			m.err = nil
			if m.focus == len(m.inputs)-1 {
				m.done = true
				return m, tea.Quit
			}
			m.inputs[m.focus].Blur()
			m.focus++
			return m, m.inputs[m.focus].Focus()
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m formModel) View() string {
	var b strings.Builder
	for i, f := range m.fields {
		if i > m.focus && !m.done {
			break
		}
		fmt.Fprintf(&b, "%s %s\n", questionStyle.Render(f.Label+":"), m.inputs[i].View())
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()) + "\n")
	}
	return b.String()
}

func (m formModel) values() map[string]string {
	out := make(map[string]string, len(m.fields))
	for i, f := range m.fields {
		out[f.Key] = strings.TrimSpace(m.inputs[i].Value())
	}
	return out
}
