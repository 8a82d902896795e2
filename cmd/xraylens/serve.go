package main

import (
	"github.com/oukeidos/xraylens/internal/logger"
	"github.com/oukeidos/xraylens/internal/server"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	addr        string
	corsOrigins []string
	skipProbe   bool
}

// serveHTTP is replaced in tests.
var serveHTTP = server.Serve

func newServeCmd(global *globalOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(global, opts)
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)

	flags := cmd.Flags()
	flags.StringVar(&opts.addr, "addr", "", "Listen address (default from config, 127.0.0.1:8080)")
	flags.StringSliceVar(&opts.corsOrigins, "cors-origin", nil, "Allowed CORS origin; repeat for several")
	flags.BoolVar(&opts.skipProbe, "skip-probe", false, "Do not probe the model at startup")
	return cmd
}

func runServe(global *globalOptions, opts *serveOptions) error {
	cfg, err := loadConfig(global)
	if err != nil {
		return err
	}
	addr := cfg.Server.Addr
	if opts.addr != "" {
		addr = opts.addr
	}

	ctx, stop := signalContext()
	defer stop()

	// Remote callers never get local file access.
	svc, err := buildService(ctx, cfg, global, false)
	if err != nil {
		return err
	}

	if !opts.skipProbe {
		if _, err := svc.CheckConnectivity(ctx); err != nil {
			logger.Warn("Model unreachable at startup; serving anyway", "provider", cfg.Provider, "model", cfg.Model, "error", err)
		} else {
			logger.Info("Model reachable", "provider", cfg.Provider, "model", cfg.Model)
		}
	}

	handler := server.NewRouter(svc, server.Options{
		AllowedOrigins: opts.corsOrigins,
		MaxBodyBytes:   (cfg.MaxImageBytes+2)/3*4 + 64*1024,
		RequestTimeout: cfg.Server.RequestTimeout,
	})
	return serveHTTP(ctx, addr, handler)
}
