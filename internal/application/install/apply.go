package install

import (
	"context"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
	"github.com/alexisbeaulieu97/zbxproxy/internal/engine"
)

// Apply prepares desired and converges the host onto it. obs may be nil.
func (s *Service) Apply(ctx context.Context, desired reconcile.DesiredState, obs engine.Observer) reconcile.Report {
	s.info("applying desired state", "version", desired.ZabbixVersion, "hostname", desired.ProxyHostname)

	prepared, err := s.Prepare(ctx, desired, true)
	if err != nil {
		return s.failedReport(err, false)
	}
	report := s.sequencer(obs).Run(ctx, prepared)
	if report.Err != nil {
		s.error(report.Err, "apply failed", "run_id", report.RunID)
		return report
	}
	s.info("apply complete", "run_id", report.RunID, "version", prepared.ZabbixVersion)
	return report
}

// Plan prepares desired and evaluates every step without changing the
// host.
func (s *Service) Plan(ctx context.Context, desired reconcile.DesiredState, obs engine.Observer) reconcile.Report {
	prepared, err := s.Prepare(ctx, desired, false)
	if err != nil {
		return s.failedReport(err, true)
	}
	return s.sequencer(obs).Plan(ctx, prepared)
}
