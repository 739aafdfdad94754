package ports

import (
	"context"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
)

// Step is one reconciliation step.
//
// Evaluate must not mutate system state: it queries collaborators and
// reports whether the step is satisfied, skipped, or needs Apply. Apply is
// only called after an Evaluate in the same run and must be idempotent.
type Step interface {
	Name() string
	// Fatal reports whether a failure of this step halts the run.
	Fatal(desired reconcile.DesiredState) bool
	Evaluate(ctx context.Context, desired reconcile.DesiredState) (*reconcile.Evaluation, error)
	Apply(ctx context.Context, desired reconcile.DesiredState, eval *reconcile.Evaluation) reconcile.StepResult
}
