package components

import "time"

// Step statuses that precede an outcome.
const (
	StatusPending = "pending"
	StatusRunning = "running"
)

// StepState is the rendered state of one step.
type StepState struct {
	Name     string
	Status   string
	Detail   string
	Duration time.Duration
}

// StepEntry represents a single step for rendering.
type StepEntry struct {
	Name  string
	State StepState
}

// StepList renders a list of steps with their current status.
type StepList struct {
	entries []StepEntry
}

// NewStepList constructs a step list component.
func NewStepList(order []string, steps map[string]StepState) StepList {
	entries := make([]StepEntry, 0, len(order))
	for _, name := range order {
		entries = append(entries, StepEntry{Name: name, State: steps[name]})
	}
	return StepList{entries: entries}
}

// Entries returns the ordered step entries.
func (s StepList) Entries() []StepEntry {
	clone := make([]StepEntry, len(s.entries))
	copy(clone, s.entries)
	return clone
}
