package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Process exit codes returned by the CLI for each error class.
const (
	ExitOK                 = 0
	ExitStepFailed         = 1
	ExitInvalidInput       = 2
	ExitVerificationFailed = 3
	ExitDeclined           = 4
)

// ValidationError reports malformed operator input. It never follows a
// system mutation.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
	Err    error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s %q: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("validation error: %q: %s", e.Value, e.Reason)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// CollaboratorError wraps a failure returned by an external collaborator
// (package manager, database, service manager, network) while running a step.
type CollaboratorError struct {
	Step         string
	Collaborator string
	Err          error
}

// NewCollaboratorError constructs a CollaboratorError.
func NewCollaboratorError(step, collaborator string, err error) error {
	return &CollaboratorError{Step: step, Collaborator: collaborator, Err: err}
}

func (e *CollaboratorError) Error() string {
	if e == nil {
		return ""
	}
	if e.Collaborator != "" {
		return fmt.Sprintf("step %s: %s: %v", e.Step, e.Collaborator, e.Err)
	}
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

// Unwrap exposes the raw collaborator error.
func (e *CollaboratorError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// VerificationError signals that every step ran but the post-run checks
// did not pass.
type VerificationError struct {
	Failed []string
	Err    error
}

// NewVerificationError constructs a VerificationError for the failed checks.
func NewVerificationError(failed []string, err error) error {
	return &VerificationError{Failed: append([]string(nil), failed...), Err: err}
}

func (e *VerificationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("verification failed: %s", strings.Join(e.Failed, ", "))
}

// Unwrap exposes the aggregated check failures.
func (e *VerificationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// DeclinedError records that the operator (or the non-interactive default)
// refused to continue at a checkpoint.
type DeclinedError struct {
	Checkpoint string
	Err        error
}

// NewDeclinedError constructs a DeclinedError. cause may be nil.
func NewDeclinedError(checkpoint string, cause error) error {
	return &DeclinedError{Checkpoint: checkpoint, Err: cause}
}

func (e *DeclinedError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("declined to continue at %s: %v", e.Checkpoint, e.Err)
	}
	return fmt.Sprintf("declined to continue at %s", e.Checkpoint)
}

// Unwrap exposes the condition that triggered the checkpoint.
func (e *DeclinedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ExitCode maps an error onto the process exit code. Declined checkpoints
// take precedence over the failure that caused them.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var declined *DeclinedError
	if errors.As(err, &declined) {
		return ExitDeclined
	}
	var validation *ValidationError
	if errors.As(err, &validation) {
		return ExitInvalidInput
	}
	var verification *VerificationError
	if errors.As(err, &verification) {
		return ExitVerificationFailed
	}
	return ExitStepFailed
}
