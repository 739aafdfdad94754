package engine

import (
	"context"
	"time"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
	"github.com/alexisbeaulieu97/zbxproxy/internal/ports"
)

// Check is one independent, read-only post-run check.
type Check interface {
	Name() string
	Run(ctx context.Context, desired reconcile.DesiredState) reconcile.VerificationResult
}

// Verifier runs every check and aggregates the outcome. A failing check
// never prevents later checks from running.
type Verifier struct {
	checks []Check
	logger ports.Logger
	now    func() time.Time
}

// NewVerifier builds a verifier over the given checks.
func NewVerifier(logger ports.Logger, checks ...Check) *Verifier {
	return &Verifier{checks: append([]Check(nil), checks...), logger: logger, now: time.Now}
}

// Checks returns the check names in run order.
func (v *Verifier) Checks() []string {
	names := make([]string, len(v.checks))
	for i, c := range v.checks {
		names[i] = c.Name()
	}
	return names
}

// Verify runs all checks against the live system.
func (v *Verifier) Verify(ctx context.Context, desired reconcile.DesiredState) reconcile.VerificationSummary {
	var summary reconcile.VerificationSummary
	for _, check := range v.checks {
		start := v.now()
		result := check.Run(ctx, desired)
		if result.Check == "" {
			result.Check = check.Name()
		}
		summary.Add(result)

		if v.logger == nil {
			continue
		}
		fields := []any{"check", result.Check, "status", string(result.Status), "detail", result.Detail, "duration", v.now().Sub(start)}
		if result.Passed() {
			v.logger.Info("verification check passed", fields...)
		} else {
			v.logger.Warn("verification check failed", fields...)
		}
	}
	return summary
}
