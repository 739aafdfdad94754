package tui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
	"github.com/alexisbeaulieu97/zbxproxy/internal/engine"
)

// Observer forwards run progress to a Bubbletea program.
type Observer struct {
	send func(tea.Msg)
}

var _ engine.Observer = (*Observer)(nil)

// NewObserver returns an Observer that sends to program.
func NewObserver(program *tea.Program) *Observer {
	return &Observer{send: program.Send}
}

func (o *Observer) StepStarted(name string) {
	o.send(StepStartMsg{Name: name})
}

func (o *Observer) StepFinished(result reconcile.StepResult) {
	o.send(StepCompleteMsg{Result: result})
}

func (o *Observer) Verified(summary reconcile.VerificationSummary) {
	o.send(VerifiedMsg{Summary: summary})
}

// RunFunc executes a run, reporting progress to obs.
type RunFunc func(ctx context.Context, obs engine.Observer) reconcile.Report

// ProgressOptions configures RunWithProgress.
type ProgressOptions struct {
	Title  string
	Steps  []string
	DryRun bool
	Input  io.Reader
	Output io.Writer
}

// RunWithProgress shows the live progress view while run executes and
// returns the run's report. Ctrl+C cancels the run's context.
func RunWithProgress(ctx context.Context, opts ProgressOptions, run RunFunc) (reconcile.Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	programOpts := []tea.ProgramOption{}
	if opts.Input != nil {
		programOpts = append(programOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		programOpts = append(programOpts, tea.WithOutput(opts.Output))
	}
	program := tea.NewProgram(NewModel(opts.Title, opts.Steps, opts.DryRun, cancel), programOpts...)

	var report reconcile.Report
	done := make(chan struct{})
	go func() {
		defer close(done)
		report = run(ctx, NewObserver(program))
		program.Send(DoneMsg{Report: report})
	}()

	_, err := program.Run()
	if err != nil {
		cancel()
	}
	<-done
	return report, err
}
