package tui

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/zbxproxy/internal/ports"
)

// Canned answers every question the same way. It backs --yes and
// non-interactive runs.
type Canned struct {
	Answer bool
}

var _ ports.Prompter = Canned{}

func (c Canned) Confirm(ctx context.Context, _ string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return c.Answer, nil
}

// Terminal asks yes/no questions on an interactive terminal. The default
// answer is no.
type Terminal struct {
	In  io.Reader
	Out io.Writer
}

var _ ports.Prompter = Terminal{}

func (t Terminal) Confirm(ctx context.Context, question string) (bool, error) {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if t.In != nil {
		opts = append(opts, tea.WithInput(t.In))
	}
	if t.Out != nil {
		opts = append(opts, tea.WithOutput(t.Out))
	}

	final, err := tea.NewProgram(confirmModel{question: question}, opts...).Run()
	if err != nil {
		return false, fmt.Errorf("prompt: %w", err)
	}
	m := final.(confirmModel)
	return m.answer, nil
}

type confirmModel struct {
	question string
	answer   bool
	done     bool
}

func (m confirmModel) Init() tea.Cmd { return nil }

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "y", "Y":
		m.answer, m.done = true, true
	case "n", "N", "enter", "esc", "ctrl+c":
		m.answer, m.done = false, true
	default:
		return m, nil
	}
	return m, tea.Quit
}

func (m confirmModel) View() string {
	if m.done {
		answer := "no"
		if m.answer {
			answer = "yes"
		}
		return fmt.Sprintf("%s %s\n", questionStyle.Render(m.question), answer)
	}
	return fmt.Sprintf("%s [y/N] ", questionStyle.Render(m.question))
}
