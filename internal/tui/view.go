package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
	"github.com/alexisbeaulieu97/zbxproxy/internal/tui/components"
)

// View renders the current state of the model.
func (m Model) View() string {
	var sections []string

	sections = append(sections, titleStyle.Render(m.heading()))

	progress := components.Progress{Total: m.total, Completed: m.completed, Current: m.running()}.View()
	sections = append(sections, sectionStyle.Render("Progress"), progress)

	entries := components.NewStepList(m.order, m.steps).Entries()
	if len(entries) > 0 {
		sections = append(sections, sectionStyle.Render("Steps"))
		sections = append(sections, renderStepEntries(entries))
	}

	summary := components.NewSummary(m.summaryData()).View()
	if strings.TrimSpace(summary) != "" {
		sections = append(sections, sectionStyle.Render("Summary"), summaryStyle.Render(summary))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

// running returns the first step still in flight.
func (m Model) running() string {
	for _, name := range m.order {
		if m.steps[name].Status == components.StatusRunning {
			return name
		}
	}
	return ""
}

func (m Model) summaryData() components.SummaryData {
	data := components.SummaryData{
		Total:     m.total,
		Completed: m.completed,
		Finished:  m.finished,
		Cancelled: m.cancelled,
		DryRun:    m.dryRun,
		Failure:   m.failure,
	}
	if m.verification != nil {
		for _, r := range m.verification.Results {
			data.Checks = append(data.Checks, components.CheckStatus{Name: r.Check, Passed: r.Passed(), Detail: r.Detail})
		}
	}
	return data
}

func renderStepEntries(entries []components.StepEntry) string {
	var lines []string
	for _, entry := range entries {
		state := entry.State
		line := fmt.Sprintf(" %s %-13s", StatusIcon(state.Status), entry.Name)
		if strings.TrimSpace(state.Detail) != "" {
			line = fmt.Sprintf("%s %s", line, detailStyle.Render(state.Detail))
		}
		if state.Duration > 0 {
			line = fmt.Sprintf("%s (%s)", line, state.Duration.Truncate(10*time.Millisecond))
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) heading() string {
	title := m.title
	if strings.TrimSpace(title) == "" {
		title = "Zabbix proxy"
	}
	if m.dryRun {
		return title + " • plan"
	}
	return title + " • install"
}

// StatusIcon returns the glyph representing a step status.
func StatusIcon(status string) string {
	switch status {
	case string(reconcile.OutcomeApplied), string(reconcile.CheckPass):
		return successStyle.Render("✓")
	case string(reconcile.OutcomeAlreadySatisfied):
		return satisfiedStyle.Render("=")
	case components.StatusRunning:
		return runningStyle.Render("⏳")
	case string(reconcile.OutcomeFailed):
		return failureStyle.Render("✗")
	case string(reconcile.OutcomeSkipped):
		return skippedStyle.Render("⊘")
	case string(reconcile.OutcomeWouldApply):
		return pendingStyle.Render("✱")
	default:
		return pendingStyle.Render("…")
	}
}
