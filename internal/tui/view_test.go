package tui

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
	"github.com/alexisbeaulieu97/zbxproxy/internal/tui/components"
)

func TestViewRendersBasicLayout(t *testing.T) {
	m := NewModel("proxy-01", []string{"requirements", "repository"}, false, nil)
	m.steps["requirements"] = components.StepState{Name: "requirements", Status: "applied", Detail: "installed wget"}
	m.steps["repository"] = components.StepState{Name: "repository", Status: components.StatusRunning}
	m.completed = 1

	view := m.View()
	require.Contains(t, view, "proxy-01 • install")
	require.Contains(t, view, "requirements")
	require.Contains(t, view, "repository")
	require.Contains(t, view, "installed wget")
	require.Contains(t, view, "1/2")
}

func TestViewShowsPlanHeading(t *testing.T) {
	view := NewModel("", []string{"config"}, true, nil).View()
	require.Contains(t, view, "Zabbix proxy • plan")
}

func TestViewShowsChecks(t *testing.T) {
	m := NewModel("", []string{"service"}, false, nil)
	m.verification = &reconcile.VerificationSummary{Results: []reconcile.VerificationResult{
		{Check: "database", Status: reconcile.CheckPass},
	}}
	m.finished = true

	view := m.View()
	require.Contains(t, view, "Checks:")
	require.Contains(t, view, "✓ database")
}

func TestStatusIcon(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   string
		expected string
	}{
		{"applied shows checkmark", "applied", "✓"},
		{"pass shows checkmark", "pass", "✓"},
		{"satisfied shows equals", "already_satisfied", "="},
		{"running shows hourglass", components.StatusRunning, "⏳"},
		{"failed shows cross", "failed", "✗"},
		{"skipped shows circle-slash", "skipped", "⊘"},
		{"would apply shows star", "would_apply", "✱"},
		{"pending shows ellipsis", components.StatusPending, "…"},
		{"empty shows ellipsis", "", "…"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Contains(t, StatusIcon(tt.status), tt.expected)
		})
	}
}
