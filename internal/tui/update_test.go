package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
	"github.com/alexisbeaulieu97/zbxproxy/internal/engine"
	"github.com/alexisbeaulieu97/zbxproxy/internal/tui/components"
)

func TestUpdateTracksStepLifecycle(t *testing.T) {
	m := NewModel("", []string{"requirements"}, false, nil)

	updated, _ := m.Update(StepStartMsg{Name: "requirements"})
	m = updated.(Model)
	require.Equal(t, components.StatusRunning, m.steps["requirements"].Status)

	res := reconcile.Applied("requirements", "installed wget")
	res.Duration = 2 * time.Second
	updated, _ = m.Update(StepCompleteMsg{Result: res})
	m = updated.(Model)
	require.Equal(t, "applied", m.steps["requirements"].Status)
	require.Equal(t, "installed wget", m.steps["requirements"].Detail)
	require.Equal(t, 1, m.CompletedSteps())

	updated, _ = m.Update(StepCompleteMsg{Result: res})
	require.Equal(t, 1, updated.(Model).CompletedSteps())
}

func TestUpdateIgnoresAnonymousResults(t *testing.T) {
	m := NewModel("", nil, false, nil)
	updated, _ := m.Update(StepCompleteMsg{Result: reconcile.StepResult{}})
	require.Zero(t, updated.(Model).TotalSteps())
}

func TestUpdateRecordsVerification(t *testing.T) {
	m := NewModel("", []string{"service", engine.VerifyStep}, false, nil)

	var summary reconcile.VerificationSummary
	summary.Add(reconcile.VerificationResult{Check: engine.CheckServiceActive, Status: reconcile.CheckPass})
	summary.Add(reconcile.VerificationResult{Check: engine.CheckListener, Status: reconcile.CheckFail, Detail: "nothing listening"})

	updated, _ := m.Update(VerifiedMsg{Summary: summary})
	m = updated.(Model)
	require.Equal(t, "failed", m.steps[engine.VerifyStep].Status)
	require.Contains(t, m.steps[engine.VerifyStep].Detail, engine.CheckListener)
	require.Equal(t, 1, m.CompletedSteps())
}

func TestUpdateDoneQuits(t *testing.T) {
	m := NewModel("", nil, false, nil)

	updated, cmd := m.Update(DoneMsg{Report: reconcile.Report{Err: errors.New("repository: download failed")}})
	require.NotNil(t, cmd)
	m = updated.(Model)
	require.True(t, m.IsFinished())
	require.Equal(t, "repository: download failed", m.failure)
}

func TestUpdateCtrlCCancelsRun(t *testing.T) {
	cancelled := false
	m := NewModel("", nil, false, func() { cancelled = true })

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.Nil(t, cmd)
	require.True(t, updated.(Model).cancelled)
	require.True(t, cancelled)
}
