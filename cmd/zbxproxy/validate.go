package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/zbxproxy/internal/validation"
)

func newValidateCmd(env *environment, root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration without touching the host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, root)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := validation.ValidateDesiredState(cfg.Desired(), time.Now()); err != nil {
				return err
			}

			source := cfg.Source
			if source == "" {
				source = "flags and environment"
			}
			fmt.Fprintf(env.out, "Configuration is valid (%s)\n", source)
			return nil
		},
	}

	return cmd
}
