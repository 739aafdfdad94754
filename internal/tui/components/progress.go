package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

const defaultBarWidth = 30

var (
	countStyle   = lipgloss.NewStyle().Bold(true)
	currentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
)

// Progress describes how far a run has come.
type Progress struct {
	Total     int
	Completed int
	// Current is the step in flight, if any.
	Current string
	Width   int
}

// Ratio is the completed share of the run, capped at one.
func (p Progress) Ratio() float64 {
	if p.Total <= 0 {
		return 0
	}
	return min(1.0, float64(p.Completed)/float64(p.Total))
}

// View renders the step count, the bar and the step in flight.
func (p Progress) View() string {
	width := p.Width
	if width <= 0 {
		width = defaultBarWidth
	}
	bar := progress.New(progress.WithScaledGradient("#7D56F4", "#04B575"), progress.WithWidth(width))

	parts := []string{
		countStyle.Render(fmt.Sprintf("%d/%d", p.Completed, p.Total)),
		" ",
		bar.ViewAs(p.Ratio()),
	}
	if p.Current != "" {
		parts = append(parts, " ", currentStyle.Render("→ "+p.Current))
	}
	return lipgloss.JoinHorizontal(lipgloss.Left, parts...)
}
