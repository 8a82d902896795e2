package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/oukeidos/xraylens/internal/analysis"
	"github.com/spf13/cobra"
)

type translateOptions struct {
	language  string
	inputPath string
	stats     bool
}

func newTranslateCmd(global *globalOptions) *cobra.Command {
	opts := &translateOptions{}
	cmd := &cobra.Command{
		Use:   "translate [text]",
		Short: "Translate an analysis into another language",
		Long: `Translate asks the model for the given text in another language. The text
comes from the arguments, --input, or stdin when neither is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readTranslateInput(cmd, args, opts.inputPath)
			if err != nil {
				return err
			}
			return runTranslate(cmd, global, opts, text)
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)

	flags := cmd.Flags()
	flags.StringVarP(&opts.language, "language", "l", "", "Target language (required)")
	flags.StringVarP(&opts.inputPath, "input", "i", "", "Read the text from a file")
	flags.BoolVar(&opts.stats, "stats", false, "Print timing, token usage and cost estimate to stderr")
	_ = cmd.MarkFlagRequired("language")
	return cmd
}

func readTranslateInput(cmd *cobra.Command, args []string, inputPath string) (string, error) {
	if len(args) > 0 && inputPath != "" {
		return "", fmt.Errorf("pass the text as arguments or --input, not both")
	}
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	var r io.Reader = cmd.InOrStdin()
	if inputPath != "" {
		f, err := os.Open(inputPath)
		if err != nil {
			return "", fmt.Errorf("failed to open input %s: %w", inputPath, err)
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(io.LimitReader(r, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return string(data), nil
}

func runTranslate(cmd *cobra.Command, global *globalOptions, opts *translateOptions, text string) error {
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
	res, err := svc.AnalyzeDetailed(ctx, analysis.Request{Prompt: text, Language: opts.language})
	if err != nil {
		return err
	}
	if err := writeReport(cmd, "", res.Text); err != nil {
		return err
	}
	if opts.stats {
		printUsageStats(cmd.ErrOrStderr(), res, cfg.ProviderID())
	}
	return nil
}
