package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/oukeidos/xraylens/internal/analysis"
	"github.com/oukeidos/xraylens/internal/files"
	"github.com/oukeidos/xraylens/internal/logger"
	"github.com/oukeidos/xraylens/internal/prompt"
	"github.com/spf13/cobra"
)

type analyzeOptions struct {
	prompt     string
	language   string
	outputPath string
	yes        bool
	stats      bool
}

func newAnalyzeCmd(global *globalOptions) *cobra.Command {
	opts := &analyzeOptions{}
	cmd := &cobra.Command{
		Use:   "analyze [image]",
		Short: "Analyze an X-ray image (path, URL or data URL)",
		Long: `Analyze sends an X-ray image and a prompt to the configured model and
prints the markdown reply. Without an image the prompt is answered as text.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image := ""
			if len(args) == 1 {
				image = args[0]
			}
			return runAnalyze(cmd, global, opts, analysis.Request{
				ImageSource: image,
				Prompt:      opts.prompt,
				Language:    opts.language,
			})
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)

	flags := cmd.Flags()
	flags.StringVarP(&opts.prompt, "prompt", "p", "", "Question or instruction for the model")
	flags.StringVarP(&opts.language, "language", "l", "", "Response language (see 'xraylens list')")
	flags.StringVarP(&opts.outputPath, "output", "o", "", "Write the markdown report to a file")
	flags.BoolVarP(&opts.yes, "yes", "y", false, "Replace an existing output file without asking")
	flags.BoolVar(&opts.stats, "stats", false, "Print timing, token usage and cost estimate to stderr")
	return cmd
}

func runAnalyze(cmd *cobra.Command, global *globalOptions, opts *analyzeOptions, req analysis.Request) error {
	cfg, err := loadConfig(global)
	if err != nil {
		return err
	}
	if strings.TrimSpace(req.Language) == "" {
		req.Language = cfg.Language
	}

	outputPath := opts.outputPath
	if outputPath != "" {
		if outputPath, err = resolveOutputPath(cmd, outputPath, opts.yes); err != nil {
			return err
		}
	}

	ctx, stop := signalContext()
	defer stop()

	svc, err := buildService(ctx, cfg, global, true)
	if err != nil {
		return err
	}
	res, err := svc.AnalyzeDetailed(ctx, req)
	if err != nil {
		return err
	}

	if err := writeReport(cmd, outputPath, res.Text); err != nil {
		return err
	}
	if opts.stats {
		printUsageStats(cmd.ErrOrStderr(), res, cfg.ProviderID())
	}
	return nil
}

// resolveOutputPath confirms replacement of an existing report, or picks a
// free sibling name when the user declines.
func resolveOutputPath(cmd *cobra.Command, path string, yes bool) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return path, files.RejectSymlinkPath(path)
	}
	confirmer := prompt.DefaultConfirmer(cmd.ErrOrStderr())
	confirmer.IsInteractive = func() bool { return isTerminal(int(os.Stdin.Fd())) }
	ok, err := confirmer.ConfirmReplace(path, yes)
	if err != nil {
		return "", err
	}
	if ok {
		return path, files.RejectSymlinkPath(path)
	}
	safe, changed, err := files.SafePath(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve output path: %w", err)
	}
	if changed {
		logger.Warn("Output path adjusted to avoid overwrite", "original", path, "effective", safe)
	}
	return safe, files.RejectSymlinkPath(safe)
}

func writeReport(cmd *cobra.Command, path, text string) error {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if path == "" {
		_, err := fmt.Fprint(cmd.OutOrStdout(), text)
		return err
	}
	if err := files.AtomicWrite(path, []byte(text), 0600); err != nil {
		return err
	}
	logger.Info("Report saved", "path", path)
	return nil
}
