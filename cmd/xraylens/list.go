package main

import (
	"fmt"

	"github.com/oukeidos/xraylens/internal/language"
	"github.com/oukeidos/xraylens/internal/metadata"
	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List supported response languages",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Supported Languages:")
			for _, l := range language.Supported() {
				fmt.Fprintf(out, "  %-12s [%s] %s\n", l.Name, l.Code, l.ID)
			}
		},
	}
	cmd.SetUsageTemplate(envUsageTemplate)
	cmd.AddCommand(newListModelsCmd())
	return cmd
}

func newListModelsCmd() *cobra.Command {
	var provider string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List known models and their pricing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			providers := metadata.Providers
			if provider != "" {
				p, err := metadata.ParseProvider(provider)
				if err != nil {
					return err
				}
				providers = []metadata.Provider{p}
			}
			out := cmd.OutOrStdout()
			for _, p := range providers {
				fmt.Fprintf(out, "%s Models:\n", providerLabel(p))
				def := metadata.DefaultModel(p)
				for _, m := range metadata.Models(p) {
					marker := " "
					if m.ID == def {
						marker = "*"
					}
					fmt.Fprintf(out, " %s %-24s $%.2f in / $%.2f out per 1M tokens\n", marker, m.ID, m.InputPerMillion, m.OutputPerMillion)
				}
			}
			return nil
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	cmd.Flags().StringVar(&provider, "provider", "", "Only list models for this provider (gemini or openai)")
	return cmd
}
