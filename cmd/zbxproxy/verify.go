package main

import (
	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/zbxproxy/internal/tui"
)

func newVerifyCmd(env *environment, root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the running proxy without changing anything",
		Long: `Verify runs the post-install checks only: service state, listener,
database schema and configuration file.

Exit codes: 0 all checks passed, 2 invalid input, 3 a check failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppContext(cmd, env, root, appOptions{validate: true})
			if err != nil {
				return err
			}
			defer app.Close()

			report := app.Service.Verify(cmd.Context(), app.Config.Desired())
			if report.Verification != nil {
				tui.WriteVerification(env.out, *report.Verification, app.reportOptions(false))
			}
			return report.Err
		},
	}

	return cmd
}
