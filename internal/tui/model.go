package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
	"github.com/alexisbeaulieu97/zbxproxy/internal/tui/components"
)

// StepStartMsg indicates a step has started executing.
type StepStartMsg struct {
	Name string
}

// StepCompleteMsg reports that a step has finished execution.
type StepCompleteMsg struct {
	Result reconcile.StepResult
}

// VerifiedMsg carries the verification summary.
type VerifiedMsg struct {
	Summary reconcile.VerificationSummary
}

// DoneMsg ends the program once the run has returned.
type DoneMsg struct {
	Report reconcile.Report
}

type tickMsg struct{}

// Model contains the Bubbletea state for the live progress view.
type Model struct {
	title        string
	dryRun       bool
	steps        map[string]components.StepState
	order        []string
	total        int
	completed    int
	verification *reconcile.VerificationSummary
	failure      string
	finished     bool
	cancelled    bool
	cancel       func()
}

// NewModel tracks the named steps in order. cancel is called when the
// operator interrupts the run and may be nil.
func NewModel(title string, steps []string, dryRun bool, cancel func()) Model {
	m := Model{
		title:  title,
		dryRun: dryRun,
		steps:  make(map[string]components.StepState),
		order:  make([]string, 0, len(steps)),
		cancel: cancel,
	}
	for _, name := range steps {
		m.ensureStep(name)
	}
	return m
}

// Init starts the Bubbletea program.
func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Millisecond, func(time.Time) tea.Msg { return tickMsg{} })
}

// TotalSteps returns the total number of steps tracked by the model.
func (m Model) TotalSteps() int {
	return m.total
}

// CompletedSteps returns the number of completed steps.
func (m Model) CompletedSteps() int {
	return m.completed
}

// IsFinished reports whether the run has completed.
func (m Model) IsFinished() bool {
	return m.finished
}

func (m *Model) ensureStep(name string) {
	if name == "" {
		return
	}
	if _, exists := m.steps[name]; !exists {
		m.steps[name] = components.StepState{Name: name, Status: components.StatusPending}
		m.order = append(m.order, name)
		m.total++
	}
}

func (m *Model) complete(state components.StepState) {
	m.ensureStep(state.Name)
	existing := m.steps[state.Name]
	done := existing.Status != components.StatusPending && existing.Status != components.StatusRunning
	m.steps[state.Name] = state
	if !done {
		m.completed++
	}
}
