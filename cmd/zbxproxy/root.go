package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configFile string
	envFile    string
	verbose    bool
	plain      bool
}

func newRootCmd(env *environment) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "zbxproxy",
		Short: "zbxproxy installs and converges a Zabbix proxy on Debian hosts",
		Long: `zbxproxy brings a Debian host to a declared Zabbix proxy state: upstream
repository, packages, database, runtime directories, configuration and
service. Every step checks before it acts, so repeated runs are safe.

Values come from flags, ZBXPROXY_* environment variables, an optional
dotenv file and an optional zbxproxy.yaml, in that order of precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "Path to a zbxproxy.yaml file")
	cmd.PersistentFlags().StringVar(&flags.envFile, "env-file", "", "Path to a dotenv file with secrets")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&flags.plain, "plain", false, "Disable colors and the live progress view")
	addStateFlags(cmd)

	cmd.AddCommand(newApplyCmd(env, flags))
	cmd.AddCommand(newPlanCmd(env, flags))
	cmd.AddCommand(newVerifyCmd(env, flags))
	cmd.AddCommand(newValidateCmd(env, flags))
	cmd.AddCommand(newVersionsCmd(env, flags))
	cmd.AddCommand(newHistoryCmd(env, flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
