package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
	"github.com/alexisbeaulieu97/zbxproxy/internal/ports"
	zerrors "github.com/alexisbeaulieu97/zbxproxy/pkg/errors"
)

// VerifyStep is the name under which verification is reported.
const VerifyStep = "verify"

// Sequencer runs reconciliation steps strictly in order.
type Sequencer struct {
	steps    []ports.Step
	verifier *Verifier
	prompter ports.Prompter
	logger   ports.Logger
	observer Observer
	now      func() time.Time
}

// Observer is notified as a run progresses. Calls happen on the run's
// goroutine, in order.
type Observer interface {
	StepStarted(name string)
	StepFinished(result reconcile.StepResult)
	Verified(summary reconcile.VerificationSummary)
}

// Option customises a Sequencer.
type Option func(*Sequencer)

// WithClock replaces the wall clock used for durations and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Sequencer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithObserver registers an observer for run progress.
func WithObserver(o Observer) Option {
	return func(s *Sequencer) {
		s.observer = o
	}
}

// NewSequencer builds a sequencer. verifier may be nil, in which case runs
// end after the last step.
func NewSequencer(steps []ports.Step, verifier *Verifier, prompter ports.Prompter, logger ports.Logger, opts ...Option) *Sequencer {
	s := &Sequencer{
		steps:    append([]ports.Step(nil), steps...),
		verifier: verifier,
		prompter: prompter,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Steps returns the step names in execution order.
func (s *Sequencer) Steps() []string {
	names := make([]string, len(s.steps))
	for i, step := range s.steps {
		names[i] = step.Name()
	}
	return names
}

// Run converges the system onto desired. A failed fatal step, a declined
// checkpoint or a failed verification stops the run and is reported in
// Report.Err.
func (s *Sequencer) Run(ctx context.Context, desired reconcile.DesiredState) reconcile.Report {
	return s.run(ctx, desired, false)
}

// Plan evaluates every step without applying anything.
func (s *Sequencer) Plan(ctx context.Context, desired reconcile.DesiredState) reconcile.Report {
	return s.run(ctx, desired, true)
}

func (s *Sequencer) run(ctx context.Context, desired reconcile.DesiredState, dryRun bool) reconcile.Report {
	report := reconcile.Report{
		RunID:   uuid.NewString(),
		DryRun:  dryRun,
		Started: s.now(),
	}
	defer func() { report.Finished = s.now() }()

	s.info("reconciliation started", "run_id", report.RunID, "version", desired.ZabbixVersion, "dry_run", dryRun, "steps", len(s.steps))

	for _, step := range s.steps {
		if err := ctx.Err(); err != nil {
			report.Err = err
			s.error(err, "reconciliation cancelled", "step", step.Name())
			return report
		}

		result, halt := s.runStep(ctx, step, desired, dryRun)
		report.Results = append(report.Results, result)
		if halt != nil {
			report.Err = halt
			s.error(halt, "reconciliation halted", "run_id", report.RunID, "step", step.Name())
			return report
		}
	}

	if dryRun || s.verifier == nil {
		s.info("reconciliation finished", "run_id", report.RunID, "dry_run", dryRun)
		return report
	}

	if s.observer != nil {
		s.observer.StepStarted(VerifyStep)
	}
	summary := s.verifier.Verify(ctx, desired)
	report.Verification = &summary
	if s.observer != nil {
		s.observer.Verified(summary)
	}
	if !summary.OK() {
		report.Err = zerrors.NewVerificationError(summary.FailedChecks(), summary.Err())
		s.error(report.Err, "verification failed", "run_id", report.RunID)
		return report
	}

	s.info("reconciliation succeeded", "run_id", report.RunID, "checks", summary.Passed)
	return report
}

// runStep evaluates and, when needed, applies one step. A non-nil error
// means the run must stop.
func (s *Sequencer) runStep(ctx context.Context, step ports.Step, desired reconcile.DesiredState, dryRun bool) (reconcile.StepResult, error) {
	name := step.Name()
	start := s.now()
	finish := func(result reconcile.StepResult) reconcile.StepResult {
		result.Step = name
		result.Duration = s.now().Sub(start)
		s.logResult(result)
		if s.observer != nil {
			s.observer.StepFinished(result)
		}
		return result
	}
	if s.observer != nil {
		s.observer.StepStarted(name)
	}

	s.debug("evaluating step", "step", name)
	eval, err := step.Evaluate(ctx, desired)
	if err != nil {
		result := finish(reconcile.Failed(name, asCollaboratorError(name, err)))
		return result, s.afterFailure(ctx, step, desired, result, dryRun)
	}
	if eval == nil {
		eval = &reconcile.Evaluation{}
	}

	if eval.Skipped() {
		return finish(reconcile.Skipped(name, eval.SkipReason)), nil
	}

	if len(eval.Warnings) > 0 && !dryRun {
		for _, warning := range eval.Warnings {
			s.warn("step reported a warning", "step", name, "warning", warning)
		}
		question := fmt.Sprintf("%s: %s. Continue anyway?", name, strings.Join(eval.Warnings, "; "))
		if !s.confirm(ctx, question) {
			declined := zerrors.NewDeclinedError(name, nil)
			return finish(reconcile.Failed(name, declined)), declined
		}
	}

	if eval.Satisfied {
		result := reconcile.AlreadySatisfied(name, eval.Message)
		result.Diff = eval.Diff
		return finish(result), nil
	}

	if dryRun {
		return finish(reconcile.StepResult{Outcome: reconcile.OutcomeWouldApply, Reason: eval.Message, Diff: eval.Diff}), nil
	}

	s.info("applying step", "step", name, "reason", eval.Message)
	result := step.Apply(ctx, desired, eval)
	if result.Outcome == "" {
		result.Outcome = reconcile.OutcomeApplied
	}
	if result.IsFailure() {
		result.Err = asCollaboratorError(name, result.Err)
		if result.Reason == "" && result.Err != nil {
			result.Reason = result.Err.Error()
		}
	}
	result = finish(result)
	if result.IsFailure() {
		return result, s.afterFailure(ctx, step, desired, result, dryRun)
	}
	return result, nil
}

// afterFailure applies the halt-or-continue policy for a failed step.
func (s *Sequencer) afterFailure(ctx context.Context, step ports.Step, desired reconcile.DesiredState, result reconcile.StepResult, dryRun bool) error {
	if step.Fatal(desired) {
		return result.Err
	}
	if dryRun {
		return nil
	}
	s.warn("non-fatal step failed", "step", result.Step, "error", result.Reason)
	if s.confirm(ctx, fmt.Sprintf("%s failed: %s. Continue anyway?", result.Step, result.Reason)) {
		return nil
	}
	return zerrors.NewDeclinedError(result.Step, result.Err)
}

func (s *Sequencer) confirm(ctx context.Context, question string) bool {
	if s.prompter == nil {
		return false
	}
	ok, err := s.prompter.Confirm(ctx, question)
	if err != nil {
		s.error(err, "prompt failed", "question", question)
		return false
	}
	s.info("checkpoint answered", "question", question, "continue", ok)
	return ok
}

func (s *Sequencer) logResult(result reconcile.StepResult) {
	fields := []any{"step", result.Step, "outcome", string(result.Outcome), "duration", result.Duration}
	if result.Reason != "" {
		fields = append(fields, "detail", result.Reason)
	}
	if result.IsFailure() {
		s.error(result.Err, "step failed", fields...)
		return
	}
	s.info("step finished", fields...)
}

func asCollaboratorError(step string, err error) error {
	if err == nil {
		return zerrors.NewCollaboratorError(step, "", fmt.Errorf("step failed without a cause"))
	}
	switch err.(type) {
	case *zerrors.CollaboratorError, *zerrors.DeclinedError, *zerrors.ValidationError:
		return err
	}
	return zerrors.NewCollaboratorError(step, "", err)
}

func (s *Sequencer) debug(msg string, fields ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, fields...)
	}
}

func (s *Sequencer) info(msg string, fields ...any) {
	if s.logger != nil {
		s.logger.Info(msg, fields...)
	}
}

func (s *Sequencer) warn(msg string, fields ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, fields...)
	}
}

func (s *Sequencer) error(err error, msg string, fields ...any) {
	if s.logger != nil {
		s.logger.Error(err, msg, fields...)
	}
}
