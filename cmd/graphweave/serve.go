// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/graphweave/graphweave/internal/issue"
	"github.com/graphweave/graphweave/internal/server"
	"github.com/graphweave/graphweave/internal/watch"
)

type serveFlagValues struct {
	addr      string
	watch     bool
	cacheSize int
}

func newServeCommand(app *App, flags *rootFlagValues) *cobra.Command {
	serveFlags := &serveFlagValues{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve aggregates over HTTP",
		Long: `Serve aggregates over HTTP until interrupted.

  GET /schema?partial=<selector>[&partial=...]   aggregate document
  GET /schema?partials=a,b                       same, comma-separated
  GET /partials                                  discovered partials as JSON
  GET /health                                    liveness probe

With --watch, partial files are re-scanned whenever they change and new
requests see the new set; requests in flight finish on the old one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, app, flags, serveFlags)
		},
	}
	cmd.Flags().StringVar(&serveFlags.addr, "addr", "", "listen address (default from server.address)")
	cmd.Flags().BoolVar(&serveFlags.watch, "watch", false, "re-scan partial roots when files change (default from watch.enabled)")
	cmd.Flags().IntVar(&serveFlags.cacheSize, "cache-size", -1, "aggregates kept in memory, 0 disables (default from server.cache_size)")

	return cmd
}

func runServe(cmd *cobra.Command, app *App, flags *rootFlagValues, serveFlags *serveFlagValues) error {
	ctx := cmd.Context()
	sess, err := app.openSession(ctx, flags)
	if err != nil {
		return err
	}
	cfg := sess.cfg
	if serveFlags.addr != "" {
		cfg.Server.Address = serveFlags.addr
	}
	if cmd.Flags().Changed("cache-size") {
		cfg.Server.CacheSize = serveFlags.cacheSize
	}
	if cmd.Flags().Changed("watch") {
		cfg.Watch.Enabled = serveFlags.watch
	}

	srv, err := server.New(sess.registry, sess.service, server.FromConfig(cfg), server.WithLogger(sess.logger))
	if err != nil {
		return err
	}
	if err := srv.Start(ctx); err != nil {
		return issue.NewErrorContext().
			WithOperation("start HTTP server").
			WithResource(cfg.Server.Address).
			WithSuggestion("Pick another address with --addr or server.address").
			WithIssue(issue.ServerStartFailedId).
			Wrap(err).
			BuildError()
	}
	fmt.Fprintf(app.stdout, "%s %s (%d partials)\n", SuccessStyle.Render("Serving on"), NameStyle.Render(srv.URL()), sess.registry.Snapshot().Len())

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	watchErr := make(chan error, 1)
	if cfg.Watch.Enabled {
		w, err := watch.New(watch.Config{
			Roots:    cfg.Roots,
			Patterns: cfg.Patterns,
			Ignore:   cfg.Ignore,
			Debounce: cfg.Watch.Debounce,
			Logger:   sess.logger,
			OnChange: func(ctx context.Context, changed []string) error {
				sess.logger.Debug("Partial files changed", "files", changed)
				if _, _, err := sess.registry.Reload(ctx, sess.discovery); err != nil {
					return err
				}
				srv.InvalidateCache()
				return nil
			},
		})
		if err != nil {
			_ = srv.Stop()
			return fmt.Errorf("start watcher: %w", err)
		}
		go func() { watchErr <- w.Run(watchCtx) }()
	}

	var runErr error
	select {
	case <-ctx.Done():
		sess.logger.Info("Shutting down")
	case err, ok := <-srv.Err():
		if ok {
			runErr = err
		}
	case err := <-watchErr:
		if err != nil {
			runErr = err
		}
	}

	stopWatch()
	stopErr := srv.Stop()
	return errors.Join(runErr, stopErr)
}
