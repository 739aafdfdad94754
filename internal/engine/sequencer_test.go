package engine

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
	"github.com/alexisbeaulieu97/zbxproxy/internal/ports"
	"github.com/alexisbeaulieu97/zbxproxy/internal/ports/portstest"
	zerrors "github.com/alexisbeaulieu97/zbxproxy/pkg/errors"
)

type fakeStep struct {
	name      string
	fatal     bool
	eval      *reconcile.Evaluation
	evalErr   error
	applyErr  error
	evaluated int
	applied   int
	trace     *[]string
}

func (f *fakeStep) Name() string                      { return f.name }
func (f *fakeStep) Fatal(reconcile.DesiredState) bool { return f.fatal }

func (f *fakeStep) Evaluate(context.Context, reconcile.DesiredState) (*reconcile.Evaluation, error) {
	f.evaluated++
	if f.trace != nil {
		*f.trace = append(*f.trace, "evaluate:"+f.name)
	}
	return f.eval, f.evalErr
}

func (f *fakeStep) Apply(context.Context, reconcile.DesiredState, *reconcile.Evaluation) reconcile.StepResult {
	f.applied++
	if f.trace != nil {
		*f.trace = append(*f.trace, "apply:"+f.name)
	}
	if f.applyErr != nil {
		return reconcile.Failed(f.name, f.applyErr)
	}
	return reconcile.Applied(f.name, "done")
}

type staticCheck struct {
	name   string
	status reconcile.CheckStatus
	runs   int
}

func (c *staticCheck) Name() string { return c.name }
func (c *staticCheck) Run(context.Context, reconcile.DesiredState) reconcile.VerificationResult {
	c.runs++
	return reconcile.VerificationResult{Status: c.status, Detail: "static"}
}

func needsWork() *reconcile.Evaluation {
	return &reconcile.Evaluation{Message: "needs work"}
}

func steps(list ...*fakeStep) []ports.Step {
	out := make([]ports.Step, len(list))
	for i, s := range list {
		out[i] = s
	}
	return out
}

func TestSequencer_RunsStepsInOrderThenVerifies(t *testing.T) {
	var trace []string
	a := &fakeStep{name: "a", eval: needsWork(), trace: &trace}
	b := &fakeStep{name: "b", eval: &reconcile.Evaluation{Satisfied: true}, trace: &trace}
	c := &fakeStep{name: "c", eval: &reconcile.Evaluation{SkipReason: "not requested"}, trace: &trace}
	check := &staticCheck{name: "check", status: reconcile.CheckPass}

	seq := NewSequencer(steps(a, b, c), NewVerifier(nil, check), nil, &portstest.Logger{})
	report := seq.Run(context.Background(), reconcile.DesiredState{})

	require.NoError(t, report.Err)
	require.Equal(t, []string{"evaluate:a", "apply:a", "evaluate:b", "evaluate:c"}, trace)
	require.Equal(t, []string{"applied", "already_satisfied", "skipped", "pass"}, report.Outcomes())
	require.NotEmpty(t, report.RunID)
	require.Equal(t, 1, check.runs)
	require.Equal(t, []string{"a", "b", "c"}, seq.Steps())
}

func TestSequencer_FatalFailureHaltsImmediately(t *testing.T) {
	a := &fakeStep{name: "a", fatal: true, eval: needsWork(), applyErr: errors.New("E: Unable to locate package")}
	b := &fakeStep{name: "b", eval: needsWork()}
	check := &staticCheck{name: "check", status: reconcile.CheckPass}
	sys := portstest.NewSystem()
	sys.DefaultAnswer = true

	report := NewSequencer(steps(a, b), NewVerifier(nil, check), sys, nil).Run(context.Background(), reconcile.DesiredState{})

	require.Error(t, report.Err)
	require.Equal(t, []string{"failed"}, report.Outcomes())
	require.Zero(t, b.evaluated)
	require.Zero(t, check.runs)
	require.Empty(t, sys.Questions)

	var collab *zerrors.CollaboratorError
	require.ErrorAs(t, report.Err, &collab)
	require.Equal(t, "a", collab.Step)
	require.Contains(t, report.Err.Error(), "Unable to locate package")
	require.Equal(t, zerrors.ExitStepFailed, zerrors.ExitCode(report.Err))
}

func TestSequencer_EvaluateErrorOnFatalStepHalts(t *testing.T) {
	a := &fakeStep{name: "a", fatal: true, evalErr: errors.New("connection refused")}
	b := &fakeStep{name: "b", eval: needsWork()}

	report := NewSequencer(steps(a, b), nil, nil, nil).Run(context.Background(), reconcile.DesiredState{})

	require.Error(t, report.Err)
	require.Zero(t, a.applied)
	require.Zero(t, b.evaluated)
}

func TestSequencer_NonFatalFailureAsksToContinue(t *testing.T) {
	a := &fakeStep{name: "a", eval: needsWork(), applyErr: errors.New("low disk")}
	b := &fakeStep{name: "b", eval: needsWork()}
	sys := portstest.NewSystem()
	sys.Answers = []bool{true}
	logger := &portstest.Logger{}

	report := NewSequencer(steps(a, b), nil, sys, logger).Run(context.Background(), reconcile.DesiredState{})

	require.NoError(t, report.Err)
	require.Equal(t, []string{"failed", "applied"}, report.Outcomes())
	require.Len(t, sys.Questions, 1)
	require.Contains(t, sys.Questions[0], "Continue anyway?")
	require.True(t, logger.Has("warn", "non-fatal step failed"))
}

func TestSequencer_NonFatalFailureDeclinedStops(t *testing.T) {
	a := &fakeStep{name: "a", eval: needsWork(), applyErr: errors.New("low disk")}
	b := &fakeStep{name: "b", eval: needsWork()}
	sys := portstest.NewSystem()

	report := NewSequencer(steps(a, b), nil, sys, nil).Run(context.Background(), reconcile.DesiredState{})

	require.Error(t, report.Err)
	require.Zero(t, b.evaluated)
	require.Equal(t, zerrors.ExitDeclined, zerrors.ExitCode(report.Err))
}

func TestSequencer_WarningsNeedConfirmation(t *testing.T) {
	a := &fakeStep{name: "a", eval: &reconcile.Evaluation{Warnings: []string{"only 512MB of memory"}}}
	b := &fakeStep{name: "b", eval: needsWork()}
	sys := portstest.NewSystem()

	report := NewSequencer(steps(a, b), nil, sys, nil).Run(context.Background(), reconcile.DesiredState{})

	require.Error(t, report.Err)
	require.Equal(t, zerrors.ExitDeclined, zerrors.ExitCode(report.Err))
	require.Zero(t, a.applied)
	require.Zero(t, b.evaluated)
	require.Contains(t, sys.Questions[0], "only 512MB of memory")

	sys.Answers = []bool{true}
	report = NewSequencer(steps(a, b), nil, sys, nil).Run(context.Background(), reconcile.DesiredState{})
	require.NoError(t, report.Err)
	require.Equal(t, 1, a.applied)
}

func TestSequencer_PlanNeverApplies(t *testing.T) {
	a := &fakeStep{name: "a", fatal: true, eval: &reconcile.Evaluation{Message: "config differs", Diff: "-a\n+b\n"}}
	b := &fakeStep{name: "b", evalErr: errors.New("cannot inspect")}
	c := &fakeStep{name: "c", eval: &reconcile.Evaluation{Satisfied: true}}
	check := &staticCheck{name: "check", status: reconcile.CheckFail}
	sys := portstest.NewSystem()

	report := NewSequencer(steps(a, b, c), NewVerifier(nil, check), sys, nil).Plan(context.Background(), reconcile.DesiredState{})

	require.NoError(t, report.Err)
	require.True(t, report.DryRun)
	require.Equal(t, []string{"would_apply", "failed", "already_satisfied"}, report.Outcomes())
	require.Zero(t, a.applied)
	require.Zero(t, check.runs)
	require.Empty(t, sys.Questions)

	res, ok := report.Result("a")
	require.True(t, ok)
	require.Equal(t, "-a\n+b\n", res.Diff)
}

func TestSequencer_VerificationFailure(t *testing.T) {
	a := &fakeStep{name: "a", eval: &reconcile.Evaluation{Satisfied: true}}
	good := &staticCheck{name: "good", status: reconcile.CheckPass}
	bad := &staticCheck{name: "bad", status: reconcile.CheckFail}

	report := NewSequencer(steps(a), NewVerifier(nil, bad, good), nil, nil).Run(context.Background(), reconcile.DesiredState{})

	require.Error(t, report.Err)
	require.Equal(t, 1, good.runs, "a failing check must not stop later checks")
	require.Equal(t, []string{"already_satisfied", "fail"}, report.Outcomes())

	var verr *zerrors.VerificationError
	require.ErrorAs(t, report.Err, &verr)
	require.Equal(t, []string{"bad"}, verr.Failed)
	require.Equal(t, zerrors.ExitVerificationFailed, zerrors.ExitCode(report.Err))
}

func TestSequencer_CancelledContextStops(t *testing.T) {
	a := &fakeStep{name: "a", eval: needsWork()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := NewSequencer(steps(a), nil, nil, nil).Run(ctx, reconcile.DesiredState{})

	require.ErrorIs(t, report.Err, context.Canceled)
	require.Zero(t, a.evaluated)
}

type recordingObserver struct {
	events []string
}

func (r *recordingObserver) StepStarted(name string) { r.events = append(r.events, "start:"+name) }
func (r *recordingObserver) StepFinished(result reconcile.StepResult) {
	r.events = append(r.events, "finish:"+result.Step+":"+string(result.Outcome))
}
func (r *recordingObserver) Verified(summary reconcile.VerificationSummary) {
	r.events = append(r.events, "verified:"+strconv.FormatBool(summary.OK()))
}

func TestSequencer_NotifiesObserver(t *testing.T) {
	a := &fakeStep{name: "a", eval: needsWork()}
	b := &fakeStep{name: "b", eval: &reconcile.Evaluation{SkipReason: "off"}}
	check := &staticCheck{name: "check", status: reconcile.CheckPass}
	observer := &recordingObserver{}

	seq := NewSequencer(steps(a, b), NewVerifier(nil, check), nil, nil, WithObserver(observer))
	report := seq.Run(context.Background(), reconcile.DesiredState{})

	require.NoError(t, report.Err)
	require.Equal(t, []string{
		"start:a", "finish:a:applied",
		"start:b", "finish:b:skipped",
		"start:verify", "verified:true",
	}, observer.events)
}
