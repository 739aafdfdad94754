package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
	"github.com/alexisbeaulieu97/zbxproxy/internal/engine"
	"github.com/alexisbeaulieu97/zbxproxy/internal/tui/components"
)

// Update handles Bubbletea messages and updates model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		return m, nil
	case StepStartMsg:
		m.ensureStep(msg.Name)
		step := m.steps[msg.Name]
		step.Status = components.StatusRunning
		m.steps[msg.Name] = step
		return m, nil
	case StepCompleteMsg:
		res := msg.Result
		if res.Step == "" {
			return m, nil
		}
		m.complete(components.StepState{
			Name:     res.Step,
			Status:   string(res.Outcome),
			Detail:   res.Reason,
			Duration: res.Duration,
		})
		return m, nil
	case VerifiedMsg:
		summary := msg.Summary
		m.verification = &summary
		status := string(reconcile.CheckPass)
		detail := ""
		if !summary.OK() {
			status = string(reconcile.OutcomeFailed)
			detail = "failed checks: " + strings.Join(summary.FailedChecks(), ", ")
		}
		m.complete(components.StepState{Name: engine.VerifyStep, Status: status, Detail: detail})
		return m, nil
	case DoneMsg:
		m.finished = true
		if msg.Report.Err != nil {
			m.failure = msg.Report.Err.Error()
		}
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancelled = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
	case tea.QuitMsg:
		m.finished = true
		return m, nil
	}

	return m, nil
}
