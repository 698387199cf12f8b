package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/matzehuels/gitlanes/pkg/buildinfo"
	"github.com/matzehuels/gitlanes/pkg/core/walk"
	"github.com/matzehuels/gitlanes/pkg/errors"
	"github.com/matzehuels/gitlanes/pkg/observability"
	"github.com/matzehuels/gitlanes/pkg/observability/prom"
	"github.com/matzehuels/gitlanes/pkg/pipeline"
)

const (
	defaultServeAddr = "127.0.0.1:8080"
	shutdownTimeout  = 10 * time.Second
)

// serveCommand creates the serve command, which answers graph requests over
// HTTP for the repositories named in the config file or on the command line.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
		rf      repoFlags
	)

	cmd := &cobra.Command{
		Use:   "serve [repository...]",
		Short: "Serve commit graphs over HTTP",
		Long: `Serve commit graphs over HTTP.

Repositories come from the [server.repos] table of the config file and from
the arguments, which are registered under their directory names.

Endpoints:
  GET  /healthz
  GET  /metrics
  GET  /repos
  GET  /repos/{name}/graph.{format}    format: ` + strings.Join(sortedFormats(), ", ") + `
  POST /repos/{name}/fetch             ?remote=origin
  POST /repos/{name}/checkout/{ref}

Graph queries accept row_start, row_limit, only_local, primary_first,
hide_complex, hide_messages, interactive, highlight, style and primary.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.config.Server.Addr
			}
			if addr == "" {
				addr = defaultServeAddr
			}
			return c.runServe(cmd.Context(), addr, args, rf, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default "+defaultServeAddr+")")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	rf.register(cmd)

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, args []string, rf repoFlags, noCache bool) error {
	logger := loggerFromContext(ctx)

	repos, err := c.serveRepos(ctx, args, rf)
	if err != nil {
		return err
	}
	if len(repos) == 0 {
		return fmt.Errorf("no repositories to serve")
	}

	m := prom.New(prometheus.DefaultRegisterer)
	observability.SetPipelineHooks(m)
	observability.SetCacheHooks(m)
	observability.SetServerHooks(m)
	defer observability.Reset()

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	var defaults pipeline.Options
	c.config.applyTo(&defaults)
	if defaults.RowLimit == 0 {
		defaults.RowLimit = pipeline.DefaultRowLimit
	}
	if defaults.MaxCommits == 0 {
		defaults.MaxCommits = pipeline.DefaultMaxCommits
	}

	s := newServer(runner, repos, defaults, c.config.fetchTimeout(), logger)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr, "repos", len(repos), "version", buildinfo.Short())
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// serveRepos opens the configured repositories plus those named in args.
// An argument's name is its directory (or snapshot file) name.
func (c *CLI) serveRepos(ctx context.Context, args []string, rf repoFlags) (map[string]walk.Repository, error) {
	paths := make(map[string]string, len(c.config.Server.Repos)+len(args))
	for name, path := range c.config.Server.Repos {
		paths[name] = path
	}
	for _, path := range args {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		base := filepath.Base(abs)
		paths[strings.TrimSuffix(base, filepath.Ext(base))] = path
	}

	repos := make(map[string]walk.Repository, len(paths))
	for name, path := range paths {
		if err := errors.ValidateRepoName(name); err != nil {
			return nil, fmt.Errorf("repository %q: %w", name, err)
		}
		r, err := openRepository(ctx, path, rf)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		repos[name] = r
	}
	return repos, nil
}
