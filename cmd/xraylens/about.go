package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAboutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "about",
		Short: "Show a short description and link",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "xraylens: X-ray image analysis with multimodal language models")
			fmt.Fprintln(out, "Output is model-generated and is not a medical diagnosis. See 'xraylens disclaimer'.")
			fmt.Fprintln(out, "https://github.com/oukeidos/xraylens")
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}
