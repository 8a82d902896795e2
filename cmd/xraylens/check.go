package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that the configured model is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(global)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			svc, err := buildService(ctx, cfg, global, false)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := svc.CheckConnectivity(ctx); err != nil {
				fmt.Fprintf(out, "%s (%s): unreachable\n", cfg.Provider, cfg.Model)
				return err
			}
			fmt.Fprintf(out, "%s (%s): connected\n", cfg.Provider, cfg.Model)
			return nil
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}
