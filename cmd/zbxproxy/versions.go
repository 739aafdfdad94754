package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newVersionsCmd(env *environment, root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "versions",
		Short: "List the Zabbix versions published upstream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAppContext(cmd, env, root, appOptions{})
			if err != nil {
				return err
			}
			defer app.Close()

			versions, err := app.Service.AvailableVersions(cmd.Context())
			if err != nil {
				return err
			}
			for i, v := range versions {
				if i == len(versions)-1 {
					fmt.Fprintf(env.out, "%s (latest)\n", v)
					continue
				}
				fmt.Fprintln(env.out, v)
			}
			return nil
		},
	}

	return cmd
}
