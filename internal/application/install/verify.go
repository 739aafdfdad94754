package install

import (
	"context"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
	"github.com/alexisbeaulieu97/zbxproxy/internal/engine"
	"github.com/alexisbeaulieu97/zbxproxy/internal/steps"
	"github.com/alexisbeaulieu97/zbxproxy/internal/validation"
	zerrors "github.com/alexisbeaulieu97/zbxproxy/pkg/errors"
)

// Verify runs only the post-run checks against the current host.
func (s *Service) Verify(ctx context.Context, desired reconcile.DesiredState) reconcile.Report {
	if err := validation.ValidateDesiredState(desired, s.now()); err != nil {
		return s.failedReport(err, false)
	}

	report := s.failedReport(nil, false)
	verifier := engine.NewVerifier(s.logger, steps.Checks(s.deps, s.settings)...)
	summary := verifier.Verify(ctx, desired)
	report.Verification = &summary
	report.Finished = s.now()
	if !summary.OK() {
		report.Err = zerrors.NewVerificationError(summary.FailedChecks(), summary.Err())
		s.error(report.Err, "verification failed", "run_id", report.RunID)
		return report
	}
	s.info("verification passed", "run_id", report.RunID, "checks", summary.Passed)
	return report
}
