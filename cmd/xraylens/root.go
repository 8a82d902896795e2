package main

import (
	"fmt"
	"os"
	"time"

	"github.com/oukeidos/xraylens/internal/cleanup"
	"github.com/oukeidos/xraylens/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func execute() {
	cmd := newRootCmd()
	err := cmd.Execute()
	if cleanupErr := cleanup.RunAll(); cleanupErr != nil {
		fmt.Fprintln(os.Stderr, cleanupErr)
		if err == nil {
			err = cleanupErr
		}
	}
	if err != nil {
		os.Exit(1)
	}
}

// globalOptions are persistent flags shared by every command that talks to
// the model. Zero values defer to the config file.
type globalOptions struct {
	configPath  string
	provider    string
	model       string
	baseURL     string
	maxAttempts int
	baseDelay   time.Duration
	logFilePath string
	allowEnv    bool
	envOnly     bool
	debug       bool
}

func (o *globalOptions) register(flags *pflag.FlagSet) {
	flags.StringVar(&o.configPath, "config", "", "Path to YAML config file (default: user config dir)")
	flags.StringVar(&o.provider, "provider", "", "Model provider: gemini or openai")
	flags.StringVar(&o.model, "model", "", "Model name (default depends on provider)")
	flags.StringVar(&o.baseURL, "base-url", "", "OpenAI-compatible API base URL")
	flags.IntVar(&o.maxAttempts, "max-attempts", 0, "Maximum model attempts per request (default 5)")
	flags.DurationVar(&o.baseDelay, "base-delay", 0, "Base retry delay, doubled on each retry (default 2s)")
	flags.StringVar(&o.logFilePath, "log-file", "", "Path to save machine-readable JSONL logs")
	flags.BoolVar(&o.allowEnv, "allow-env", false, "Allow reading API key from environment variables")
	flags.BoolVar(&o.envOnly, "env-only", false, "Use only environment variables for API keys")
	flags.BoolVar(&o.debug, "debug", false, "Enable debug logging")
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "xraylens",
		Short: "X-ray image analysis with multimodal language models",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				_ = cmd.Usage()
				return fmt.Errorf("unknown command %q for %q", args[0], cmd.CommandPath())
			}
			return cmd.Help()
		},
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
	}

	cmd.Version = version.Info()
	cmd.SetVersionTemplate("{{.Version}}\n")
	cmd.SetUsageTemplate(rootUsageTemplate)

	opts.register(cmd.PersistentFlags())

	cmd.AddCommand(
		newAboutCmd(),
		newDisclaimerCmd(),
		newAnalyzeCmd(opts),
		newTranslateCmd(opts),
		newCheckCmd(opts),
		newServeCmd(opts),
		newListCmd(),
		newEnvCmd(),
	)

	cmd.InitDefaultCompletionCmd()
	for _, sub := range cmd.Commands() {
		if sub.Name() == "completion" {
			sub.SetUsageTemplate(subcommandUsageTemplate)
			break
		}
	}

	return cmd
}
