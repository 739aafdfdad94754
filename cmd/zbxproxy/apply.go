package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
	"github.com/alexisbeaulieu97/zbxproxy/internal/engine"
	"github.com/alexisbeaulieu97/zbxproxy/internal/tui"
)

const progressTitle = "Zabbix proxy"

func newApplyCmd(env *environment, root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Install or converge the Zabbix proxy",
		Long: `Apply runs every step in order, changing only what differs from the
declared state, then verifies the running proxy.

Exit codes: 0 success, 1 a step failed, 2 invalid input,
3 verification failed, 4 a confirmation was declined.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd, env, root, false)
		},
	}

	return cmd
}

func newPlanCmd(env *environment, root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what apply would change without changing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(cmd, env, root, true)
		},
	}

	return cmd
}

func runReconcile(cmd *cobra.Command, env *environment, root *rootFlags, dryRun bool) error {
	app, err := newAppContext(cmd, env, root, appOptions{validate: true})
	if err != nil {
		return err
	}
	defer app.Close()

	desired := app.Config.Desired()
	run := func(ctx context.Context, obs engine.Observer) reconcile.Report {
		if dryRun {
			return app.Service.Plan(ctx, desired, obs)
		}
		return app.Service.Apply(ctx, desired, obs)
	}

	var report reconcile.Report
	if app.Progress {
		report, err = tui.RunWithProgress(cmd.Context(), tui.ProgressOptions{
			Title:  progressTitle,
			Steps:  app.Service.Steps(!dryRun),
			DryRun: dryRun,
			Input:  env.in,
			Output: env.out,
		}, run)
		if err != nil {
			return err
		}
	} else {
		report = run(cmd.Context(), nil)
	}

	tui.WriteReport(env.out, report, app.reportOptions(dryRun || root.verbose))
	return report.Err
}
