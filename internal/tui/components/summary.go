package components

import (
	"fmt"
	"strings"
)

// CheckStatus represents a verification check for summary rendering.
type CheckStatus struct {
	Name   string
	Passed bool
	Detail string
}

// SummaryData aggregates counts for rendering summaries.
type SummaryData struct {
	Total     int
	Completed int
	Finished  bool
	Cancelled bool
	DryRun    bool
	// Failure is the error that stopped the run, if any.
	Failure string
	Checks  []CheckStatus
}

// Summary renders a textual run summary.
type Summary struct {
	data SummaryData
}

// NewSummary creates a new Summary component.
func NewSummary(data SummaryData) Summary {
	return Summary{data: data}
}

// View renders the summary.
func (s Summary) View() string {
	var lines []string
	if s.data.Total > 0 {
		lines = append(lines, fmt.Sprintf("Steps: %d/%d completed", s.data.Completed, s.data.Total))
	}

	switch {
	case s.data.Cancelled:
		lines = append(lines, "Run cancelled")
	case s.data.Failure != "":
		lines = append(lines, "Run stopped: "+s.data.Failure)
	case s.data.Finished && s.data.DryRun:
		lines = append(lines, "Plan complete, nothing was changed")
	case s.data.Finished && s.data.Total > 0:
		lines = append(lines, "Proxy installed and verified")
	}

	if len(s.data.Checks) > 0 {
		lines = append(lines, "Checks:")
		for _, c := range s.data.Checks {
			status := "✗"
			if c.Passed {
				status = "✓"
			}
			line := fmt.Sprintf("  %s %s", status, c.Name)
			if c.Detail != "" {
				line += ": " + c.Detail
			}
			lines = append(lines, line)
		}
	}

	return strings.Join(lines, "\n")
}
