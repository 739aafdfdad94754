package reconcile

import (
	"time"

	"github.com/hashicorp/go-multierror"
)

// Outcome tags the result of one step invocation.
type Outcome string

const (
	OutcomeApplied          Outcome = "applied"
	OutcomeAlreadySatisfied Outcome = "already_satisfied"
	OutcomeSkipped          Outcome = "skipped"
	OutcomeFailed           Outcome = "failed"
	// OutcomeWouldApply is only produced by dry runs.
	OutcomeWouldApply Outcome = "would_apply"
)

// StepResult captures the outcome of a single step.
type StepResult struct {
	Step     string
	Outcome  Outcome
	Reason   string
	Err      error
	Diff     string
	Duration time.Duration
}

// Applied builds a result for a step that changed the system.
func Applied(step, message string) StepResult {
	return StepResult{Step: step, Outcome: OutcomeApplied, Reason: message}
}

// AlreadySatisfied builds a result for a step whose precondition held.
func AlreadySatisfied(step, message string) StepResult {
	return StepResult{Step: step, Outcome: OutcomeAlreadySatisfied, Reason: message}
}

// Skipped builds a result for a step that did not apply to this run.
func Skipped(step, reason string) StepResult {
	return StepResult{Step: step, Outcome: OutcomeSkipped, Reason: reason}
}

// Failed builds a result carrying the failure cause.
func Failed(step string, err error) StepResult {
	result := StepResult{Step: step, Outcome: OutcomeFailed, Err: err}
	if err != nil {
		result.Reason = err.Error()
	}
	return result
}

// IsFailure reports whether the step failed.
func (r StepResult) IsFailure() bool {
	return r.Outcome == OutcomeFailed
}

// Evaluation is what a step found when checking current system state
// against the desired state. It never implies that anything was changed.
type Evaluation struct {
	Satisfied  bool
	SkipReason string
	// Warnings need operator confirmation before the step proceeds.
	Warnings []string
	Message  string
	Diff     string
	// Data carries step-private findings from Evaluate to Apply.
	Data any
}

// Skipped reports whether the step does not apply to this run.
func (e *Evaluation) Skipped() bool {
	return e != nil && e.SkipReason != ""
}

// CheckStatus is the outcome of one verification check.
type CheckStatus string

const (
	CheckPass CheckStatus = "pass"
	CheckFail CheckStatus = "fail"
)

// VerificationResult captures one post-run check.
type VerificationResult struct {
	Check  string
	Status CheckStatus
	Detail string
	Err    error
}

// Passed reports whether the check passed.
func (v VerificationResult) Passed() bool {
	return v.Status == CheckPass
}

// VerificationSummary aggregates check results.
type VerificationSummary struct {
	Results []VerificationResult
	Passed  int
	Failed  int
}

// Add appends a result and updates counters.
func (s *VerificationSummary) Add(result VerificationResult) {
	s.Results = append(s.Results, result)
	if result.Passed() {
		s.Passed++
	} else {
		s.Failed++
	}
}

// OK reports whether every check passed.
func (s VerificationSummary) OK() bool {
	return s.Failed == 0
}

// FailedChecks lists the names of failing checks in run order.
func (s VerificationSummary) FailedChecks() []string {
	var names []string
	for _, r := range s.Results {
		if !r.Passed() {
			names = append(names, r.Check)
		}
	}
	return names
}

// Err aggregates the failing checks, or nil when all passed.
func (s VerificationSummary) Err() error {
	var result *multierror.Error
	for _, r := range s.Results {
		if r.Passed() {
			continue
		}
		err := r.Err
		if err == nil {
			err = checkError{check: r.Check, detail: r.Detail}
		}
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

type checkError struct {
	check  string
	detail string
}

func (e checkError) Error() string {
	return e.check + ": " + e.detail
}

// Report is the outcome of a whole run.
type Report struct {
	RunID        string
	DryRun       bool
	Results      []StepResult
	Verification *VerificationSummary
	// Err is the first fatal error, declined checkpoint or verification
	// failure. Nil means the run succeeded.
	Err      error
	Started  time.Time
	Finished time.Time
}

// Succeeded reports whether the run converged and verified.
func (r Report) Succeeded() bool {
	return r.Err == nil
}

// Outcomes lists step outcomes in order followed by the verification
// status, when verification ran.
func (r Report) Outcomes() []string {
	out := make([]string, 0, len(r.Results)+1)
	for _, res := range r.Results {
		out = append(out, string(res.Outcome))
	}
	if r.Verification != nil {
		if r.Verification.OK() {
			out = append(out, string(CheckPass))
		} else {
			out = append(out, string(CheckFail))
		}
	}
	return out
}

// Result returns the result recorded for a step, if any.
func (r Report) Result(step string) (StepResult, bool) {
	for _, res := range r.Results {
		if res.Step == step {
			return res, true
		}
	}
	return StepResult{}, false
}
