package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/oukeidos/xraylens/internal/analysis"
	"github.com/oukeidos/xraylens/internal/imaging"
	"github.com/oukeidos/xraylens/internal/logger"
	"github.com/oukeidos/xraylens/internal/metrics"
)

// Analyzer is the part of analysis.Service the HTTP API needs.
type Analyzer interface {
	AnalyzeDetailed(ctx context.Context, req analysis.Request) (*analysis.Result, error)
	CheckConnectivity(ctx context.Context) (bool, error)
}

var _ Analyzer = (*analysis.Service)(nil)

type Options struct {
	// AllowedOrigins enables CORS for browser front ends. Empty disables it.
	AllowedOrigins []string
	// MaxBodyBytes caps request bodies; data URIs inflate images by a third.
	MaxBodyBytes int64
	// RequestTimeout bounds a single analysis including retries.
	RequestTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = imaging.MaxImageBytes/3*4 + 64*1024
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 5 * time.Minute
	}
	return o
}

type Router struct {
	svc  Analyzer
	opts Options
}

// NewRouter builds the HTTP API.
func NewRouter(svc Analyzer, opts Options) http.Handler {
	r := &Router{svc: svc, opts: opts.withDefaults()}
	mux := chi.NewRouter()
	mux.Use(requestLogger)
	mux.Use(middleware.Recoverer)
	if len(r.opts.AllowedOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: r.opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", requestIDHeader},
			ExposedHeaders: []string{requestIDHeader},
			MaxAge:         300,
		}))
	}

	mux.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Method(http.MethodGet, "/metrics", metrics.Handler())

	mux.Route("/v1", func(rt chi.Router) {
		rt.Get("/connectivity", r.wrap(r.handleConnectivity))
		rt.Get("/languages", r.wrap(r.handleLanguages))
		rt.Group(func(rt chi.Router) {
			rt.Use(middleware.Timeout(r.opts.RequestTimeout))
			rt.Post("/analyze", r.wrap(r.handleAnalyze))
			rt.Post("/translate", r.wrap(r.handleTranslate))
		})
	})
	return mux
}

// Serve runs the API on addr until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
