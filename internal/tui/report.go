package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
)

// ReportOptions controls the static report.
type ReportOptions struct {
	Color bool
	// Diffs prints each step's diff below the table.
	Diffs bool
}

// WriteReport prints the step table, the verification table and a final
// status line.
func WriteReport(w io.Writer, report reconcile.Report, opts ReportOptions) {
	steps := newTable(w)
	steps.AppendHeader(table.Row{"STEP", "OUTCOME", "DETAIL", "DURATION"})
	for _, res := range report.Results {
		steps.AppendRow(table.Row{
			res.Step,
			colorOutcome(string(res.Outcome), opts.Color),
			res.Reason,
			formatDuration(res.Duration),
		})
	}
	steps.Render()

	if report.Verification != nil && len(report.Verification.Results) > 0 {
		fmt.Fprintln(w)
		WriteVerification(w, *report.Verification, opts)
	}

	if opts.Diffs {
		for _, res := range report.Results {
			if strings.TrimSpace(res.Diff) == "" {
				continue
			}
			fmt.Fprintf(w, "\n%s:\n%s", res.Step, res.Diff)
			if !strings.HasSuffix(res.Diff, "\n") {
				fmt.Fprintln(w)
			}
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, statusLine(report, opts.Color))
}

// WriteVerification prints one row per check.
func WriteVerification(w io.Writer, summary reconcile.VerificationSummary, opts ReportOptions) {
	checks := newTable(w)
	checks.AppendHeader(table.Row{"CHECK", "STATUS", "DETAIL"})
	for _, r := range summary.Results {
		checks.AppendRow(table.Row{r.Check, colorOutcome(string(r.Status), opts.Color), r.Detail})
	}
	checks.Render()
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "DETAIL", WidthMax: 64, WidthMaxEnforcer: text.WrapSoft},
	})
	return t
}

func statusLine(report reconcile.Report, color bool) string {
	switch {
	case report.Err != nil:
		return paint(color, text.FgRed, "FAILED: "+report.Err.Error())
	case report.DryRun:
		return paint(color, text.FgYellow, fmt.Sprintf("PLAN: %d step(s) would change the system", countOutcome(report, reconcile.OutcomeWouldApply)))
	default:
		return paint(color, text.FgGreen, fmt.Sprintf("OK: %d applied, %d already satisfied", countOutcome(report, reconcile.OutcomeApplied), countOutcome(report, reconcile.OutcomeAlreadySatisfied)))
	}
}

func countOutcome(report reconcile.Report, outcome reconcile.Outcome) int {
	n := 0
	for _, res := range report.Results {
		if res.Outcome == outcome {
			n++
		}
	}
	return n
}

func colorOutcome(status string, color bool) string {
	switch status {
	case string(reconcile.OutcomeApplied), string(reconcile.CheckPass):
		return paint(color, text.FgGreen, status)
	case string(reconcile.OutcomeAlreadySatisfied):
		return paint(color, text.FgCyan, status)
	case string(reconcile.OutcomeFailed), string(reconcile.CheckFail):
		return paint(color, text.FgRed, status)
	case string(reconcile.OutcomeWouldApply):
		return paint(color, text.FgYellow, status)
	default:
		return paint(color, text.FgHiBlack, status)
	}
}

func paint(enabled bool, c text.Color, s string) string {
	if !enabled {
		return s
	}
	return c.Sprint(s)
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Truncate(time.Millisecond).String()
}
