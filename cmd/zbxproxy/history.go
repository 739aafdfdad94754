package main

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/zbxproxy/internal/infrastructure/history"
)

func newHistoryCmd(env *environment, root *rootFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List previously rendered proxy configurations",
		Long: `History lists the revisions of the proxy configuration recorded by
earlier runs. Inspect a revision with git in the history directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, root)
			if err != nil {
				return err
			}

			entries, err := history.New(cfg.History.Dir).Log(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintf(env.out, "No configuration history in %s\n", cfg.History.Dir)
				return nil
			}

			t := table.NewWriter()
			t.SetOutputMirror(env.out)
			t.SetStyle(table.StyleRounded)
			t.AppendHeader(table.Row{"REVISION", "WHEN", "MESSAGE"})
			for _, e := range entries {
				t.AppendRow(table.Row{e.Hash, e.When.Local().Format(time.DateTime), e.Message})
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of revisions to list")

	return cmd
}
