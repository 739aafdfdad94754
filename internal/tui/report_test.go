package tui

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
	"github.com/alexisbeaulieu97/zbxproxy/internal/engine"
)

func sampleReport() reconcile.Report {
	config := reconcile.Applied("config", "wrote /etc/zabbix/zabbix_proxy.conf")
	config.Diff = "-Server=127.0.0.1\n+Server=10.0.0.1\n"
	config.Duration = 1500 * time.Millisecond
	return reconcile.Report{
		Results: []reconcile.StepResult{
			reconcile.AlreadySatisfied("requirements", "all base packages installed"),
			reconcile.Skipped("network", "network configuration not requested"),
			config,
		},
		Verification: &reconcile.VerificationSummary{
			Results: []reconcile.VerificationResult{{Check: "service-active", Status: reconcile.CheckPass, Detail: "zabbix-proxy is active"}},
			Passed:  1,
		},
	}
}

func TestWriteReport(t *testing.T) {
	var buf bytes.Buffer
	WriteReport(&buf, sampleReport(), ReportOptions{Diffs: true})

	out := buf.String()
	require.Contains(t, out, "STEP")
	require.Contains(t, out, "already_satisfied")
	require.Contains(t, out, "skipped")
	require.Contains(t, out, "1.5s")
	require.Contains(t, out, "service-active")
	require.Contains(t, out, "+Server=10.0.0.1")
	require.Contains(t, out, "OK: 1 applied, 1 already satisfied")
	require.NotContains(t, out, "\x1b[")
}

func TestWriteReportWithoutDiffs(t *testing.T) {
	var buf bytes.Buffer
	WriteReport(&buf, sampleReport(), ReportOptions{})
	require.NotContains(t, buf.String(), "+Server=10.0.0.1")
}

func TestWriteReportFailureAndPlan(t *testing.T) {
	failed := sampleReport()
	failed.Err = errors.New("repository: download failed")
	var buf bytes.Buffer
	WriteReport(&buf, failed, ReportOptions{})
	require.Contains(t, buf.String(), "FAILED: repository: download failed")

	plan := reconcile.Report{DryRun: true, Results: []reconcile.StepResult{{Step: "config", Outcome: reconcile.OutcomeWouldApply}}}
	buf.Reset()
	WriteReport(&buf, plan, ReportOptions{})
	require.Contains(t, buf.String(), "PLAN: 1 step(s) would change the system")
}

func TestRunWithProgressReturnsReport(t *testing.T) {
	var in, out bytes.Buffer
	want := sampleReport()

	report, err := RunWithProgress(context.Background(), ProgressOptions{
		Title:  "proxy-01",
		Steps:  []string{"requirements", "network", "config", engine.VerifyStep},
		Input:  &in,
		Output: &out,
	}, func(ctx context.Context, obs engine.Observer) reconcile.Report {
		for _, res := range want.Results {
			obs.StepStarted(res.Step)
			obs.StepFinished(res)
		}
		obs.Verified(*want.Verification)
		return want
	})

	require.NoError(t, err)
	require.Equal(t, want.Outcomes(), report.Outcomes())
	require.Contains(t, out.String(), "proxy-01")
}
