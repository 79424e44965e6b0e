package cmd

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-faster/errors"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/spiffcs/devpulse/config"
	"github.com/spiffcs/devpulse/internal/apperr"
	"github.com/spiffcs/devpulse/internal/constants"
	"github.com/spiffcs/devpulse/internal/log"
	"github.com/spiffcs/devpulse/internal/service"
	"github.com/spiffcs/devpulse/internal/telemetry"
	"github.com/spiffcs/devpulse/internal/tools"
)

type serveOptions struct {
	HTTPAddr    string
	MetricsAddr string
	Watch       bool
	EnvFile     string
	Verbosity   int
	ProfileOptions
}

// NewCmdServe creates the serve command.
func NewCmdServe() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP tool server",
		Long: `Serves the activity tools to MCP clients over stdio (default) or
streamable HTTP. Only integrations with credentials are exposed.

With --http the MCP endpoint is /mcp, Prometheus metrics are at /metrics and
a health check at /healthz.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.HTTPAddr, "http", "", "Serve streamable HTTP on this address instead of stdio (e.g. :8080)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&opts.Watch, "watch", true, "Reload config files when they change")
	cmd.Flags().StringVar(&opts.EnvFile, "env-file", ".env", "Load credentials from this file when it exists")
	cmd.Flags().CountVarP(&opts.Verbosity, "verbose", "v", "Increase verbosity (-v info, -vv debug, -vvv trace)")
	addProfileFlags(cmd, &opts.ProfileOptions)

	return cmd
}

func runServe(ctx context.Context, opts *serveOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stdout carries the stdio transport, so logs always go to stderr.
	log.Initialize(opts.Verbosity, os.Stderr)

	profiler := NewProfiler(opts.ProfileOptions)
	if err := profiler.Start(); err != nil {
		return err
	}
	defer profiler.Stop()

	env, err := loadEnvironment(opts.EnvFile)
	if err != nil {
		return err
	}
	svc, err := buildService(ctx, env.cfg, env.creds)
	if err != nil {
		return err
	}
	if len(tools.Registered(svc)) == 0 {
		return apperr.Configuration("", "no integration is configured: set GITHUB_TOKEN, JIRA_* or CONFLUENCE_* variables")
	}

	var current atomic.Pointer[service.Service]
	current.Store(svc)
	active := config.NewCurrent(env.cfg)
	server := tools.NewServer(current.Load, version)

	g, ctx := errgroup.WithContext(ctx)

	if opts.Watch {
		g.Go(func() error {
			return config.Watch(ctx, config.ConfigPath(), config.LocalConfigPath(), func(cfg *config.Config) {
				next, err := buildService(ctx, cfg, env.creds)
				if err != nil {
					log.Error("config: keeping previous settings", "error", err)
					return
				}
				active.Store(cfg)
				current.Store(next)
			})
		})
	}

	if opts.MetricsAddr != "" {
		r := chi.NewRouter()
		r.Method(http.MethodGet, "/metrics", telemetry.Default.Handler())
		g.Go(func() error {
			return listen(ctx, opts.MetricsAddr, r)
		})
	}

	g.Go(func() error {
		defer stop()
		if opts.HTTPAddr != "" {
			return listen(ctx, opts.HTTPAddr, newRouter(server, current.Load, active.Load))
		}
		log.Info("serving MCP over stdio", "tools", tools.Registered(svc))
		return server.Run(ctx, &mcp.StdioTransport{})
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newRouter mounts the MCP handler next to metrics and health endpoints.
func newRouter(server *mcp.Server, current func() *service.Service, cfg func() *config.Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Handle("/mcp", tools.HTTPHandler(server))
	r.Method(http.MethodGet, "/metrics", telemetry.Default.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		svc := current()
		integrations := map[string]bool{}
		for _, name := range []string{constants.IntegrationGitHub, constants.IntegrationJira, constants.IntegrationConfluence} {
			integrations[name] = svc.Configured(name)
		}
		w.Header().Set("Content-Type", "application/json")
		settings := cfg().GetFetchSettings()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":       "ok",
			"version":      version,
			"integrations": integrations,
			"fetch": map[string]any{
				"item_cap":    settings.ItemCap,
				"concurrency": settings.Concurrency,
				"timeout":     settings.Timeout.String(),
			},
		})
	})
	return r
}

// listen serves handler on addr until ctx is done, then shuts down gracefully.
func listen(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", addr)
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

	log.Info("shutting down http server", "addr", addr)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}
