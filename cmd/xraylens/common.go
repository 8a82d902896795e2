package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/oukeidos/xraylens/internal/analysis"
	"github.com/oukeidos/xraylens/internal/auth"
	"github.com/oukeidos/xraylens/internal/cleanup"
	"github.com/oukeidos/xraylens/internal/config"
	"github.com/oukeidos/xraylens/internal/files"
	"github.com/oukeidos/xraylens/internal/gemini"
	"github.com/oukeidos/xraylens/internal/httpclient"
	"github.com/oukeidos/xraylens/internal/imaging"
	"github.com/oukeidos/xraylens/internal/llm"
	"github.com/oukeidos/xraylens/internal/logger"
	"github.com/oukeidos/xraylens/internal/metadata"
	"github.com/oukeidos/xraylens/internal/openai"
	"golang.org/x/term"
)

var (
	isTerminal   = term.IsTerminal
	getKey       = auth.GetKey
	getEnvKey    = auth.GetEnvKey
	getStatus    = auth.GetStatus
	saveKey      = auth.SaveKey
	deleteKey    = auth.DeleteKey
	promptForKey = func(prompt string) (string, error) {
		return auth.PromptForAPIKey(os.Stderr, prompt)
	}
	newGenerator = defaultGenerator
)

// resolveAPIKey handles the logic for finding the API key.
func resolveAPIKey(p metadata.Provider, allowEnv, envOnly bool) (string, auth.Source, error) {
	if envOnly {
		if key, ok := getEnvKey(p); ok {
			return key, auth.SourceEnv, nil
		}
		return "", auth.SourceNone, fmt.Errorf("env-only set but %s is not set", auth.EnvVar(p))
	}

	if key, source := getKey(p, false); key != "" {
		return key, source, nil
	}

	if allowEnv {
		if key, ok := getEnvKey(p); ok {
			return key, auth.SourceEnv, nil
		}
	}

	interactive := isTerminal(int(os.Stdin.Fd()))
	if interactive {
		key, err := promptForKey(fmt.Sprintf("%s API Key (press Enter to skip): ", providerLabel(p)))
		if err != nil {
			return "", auth.SourceNone, fmt.Errorf("error reading API key: %w", err)
		}
		if key = strings.TrimSpace(key); key != "" {
			return key, auth.SourcePrompt, nil
		}
	}

	if !interactive {
		return "", auth.SourceNone, fmt.Errorf("no API key available (non-interactive shell); set keychain or use --allow-env")
	}
	if allowEnv {
		return "", auth.SourceNone, fmt.Errorf("API key is required; not found in keychain or environment")
	}
	return "", auth.SourceNone, fmt.Errorf("API key is required; not found in keychain (environment disabled by default; use --allow-env)")
}

func providerLabel(p metadata.Provider) string {
	if p == metadata.ProviderOpenAI {
		return "OpenAI"
	}
	return "Gemini"
}

// loadConfig reads the config file and applies flag overrides. An explicit
// --config path must exist; the default location is optional.
func loadConfig(opts *globalOptions) (config.Config, error) {
	path := opts.configPath
	required := path != ""
	if !required {
		if p, err := config.DefaultPath(); err == nil {
			path = p
		}
	}
	cfg, err := config.Load(path, required)
	if err != nil {
		return cfg, err
	}

	if opts.provider != "" {
		cfg.Provider = opts.provider
		if opts.model == "" {
			cfg.Model = ""
		}
	}
	if opts.model != "" {
		cfg.Model = opts.model
	}
	if opts.baseURL != "" {
		cfg.BaseURL = opts.baseURL
	}
	if opts.maxAttempts != 0 {
		cfg.Retry.MaxAttempts = opts.maxAttempts
	}
	if opts.baseDelay != 0 {
		cfg.Retry.BaseDelay = opts.baseDelay
	}
	if opts.logFilePath != "" {
		cfg.LogFile = opts.logFilePath
	}
	if opts.allowEnv {
		cfg.AllowEnv = true
	}
	if opts.debug {
		cfg.Debug = true
	}

	cfg, notes := cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	setupLogging(cfg)
	for _, note := range notes {
		logger.Warn("Config adjusted", "detail", note)
	}
	return cfg, nil
}

func setupLogging(cfg config.Config) {
	level := logger.LevelInfo
	if cfg.Debug {
		level = logger.LevelDebug
	}
	var logFile io.Writer
	if cfg.LogFile != "" {
		f, err := files.OpenAppend(cfg.LogFile)
		if err != nil {
			logger.Init(level, nil)
			logger.Warn("Log file disabled", "path", cfg.LogFile, "error", err)
			return
		}
		cleanup.Register("log file", f.Close)
		logFile = f
	}
	logger.Init(level, logFile)
}

func defaultGenerator(ctx context.Context, cfg config.Config, apiKey string) (llm.Generator, func() error, error) {
	switch cfg.ProviderID() {
	case metadata.ProviderOpenAI:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = openai.DefaultBaseURL
		}
		hc := httpclient.NewClient(cfg.HTTPTimeout)
		return openai.NewClientWithHTTPClient(apiKey, cfg.Model, baseURL, hc), func() error { return nil }, nil
	default:
		client, err := gemini.NewClient(ctx, apiKey, cfg.Model)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		client.SetTimeout(cfg.HTTPTimeout)
		return client, client.Close, nil
	}
}

// buildService resolves the key, connects the configured provider and wires
// the analysis service. Local image paths and internal hosts are only honored
// for CLI callers.
func buildService(ctx context.Context, cfg config.Config, opts *globalOptions, allowLocalFiles bool) (*analysis.Service, error) {
	p := cfg.ProviderID()
	key, source, err := resolveAPIKey(p, cfg.AllowEnv, opts.envOnly)
	if err != nil {
		return nil, err
	}
	logger.Info("Using API Key", "service", string(p), "source", string(source))

	gen, closeFn, err := newGenerator(ctx, cfg, key)
	if err != nil {
		return nil, err
	}
	cleanup.Register("model client", closeFn)

	loader := imaging.NewFetcher(cfg.MaxImageBytes, allowLocalFiles)
	loader.Client = httpclient.NewClient(cfg.HTTPTimeout)
	svc := analysis.NewService(gen, loader, cfg.RetryPolicy())
	svc.MaxPromptGraphemes = cfg.MaxPromptChars
	svc.MaxOutputTokens = cfg.MaxOutputTokens
	return svc, nil
}

func printUsageStats(w io.Writer, res *analysis.Result, p metadata.Provider) {
	fmt.Fprintln(w, "\n--- Execution Stats ---")
	fmt.Fprintf(w, "Time: %s\n", res.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Model: %s\n", res.Model)
	fmt.Fprintf(w, "Attempts: %d\n", res.Attempts)
	u := res.Usage
	if u.TotalTokens <= 0 {
		return
	}
	fmt.Fprintf(w, "Tokens: In=%d, Out=%d, Total=%d\n", u.PromptTokens, u.CompletionTokens, u.TotalTokens)

	// Gemini reports thinking tokens only in the total; they bill as output.
	out := u.CompletionTokens
	model, known := metadata.Pricing(p, res.Model)
	if model.ReasoningBilledAsOutput {
		if reasoning := u.TotalTokens - (u.PromptTokens + u.CompletionTokens); reasoning > 0 {
			out += reasoning
		}
	}
	suffix := ""
	if !known {
		suffix = " (default pricing)"
	}
	fmt.Fprintf(w, "Estimated Cost: $%.5f%s\n", model.EstimateCost(u.PromptTokens, out), suffix)
}

func signalContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("Cancellation requested")
			cancel()
		case <-ctx.Done():
		}
	}()
	stop := func() {
		signal.Stop(sigCh)
		cancel()
	}
	return ctx, stop
}
