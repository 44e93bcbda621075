package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/ReviewGoat/internal/api"
	"github.com/IshaanNene/ReviewGoat/internal/monitor"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

var (
	servePort int
	runNow    bool
)

// serveCmd creates the "serve" subcommand.
func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (and the watcher when enabled)",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().IntVarP(&servePort, "port", "p", 0, "API port (default from config)")
	return cmd
}

// watchCmd creates the "watch" subcommand.
func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-analyze watched products on a schedule",
		Long: `Run every URL in watch.urls on watch.schedule and log how reviews and
sentiment changed since the previous run.`,
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
	cmd.Flags().BoolVar(&runNow, "now", false, "run every watched URL once before waiting for the schedule")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.Close()

	var opts []api.Option
	if a.history != nil {
		opts = append(opts, api.WithHistory(a.history))
	}
	if a.metrics != nil && cfg.Metrics.Port == cfg.Server.Port {
		opts = append(opts, api.WithMetricsHandler(cfg.Metrics.Path, a.metrics.Handler()))
	}
	server := api.NewServer(a.engine, cfg.Server, logger, opts...)

	var watcher *monitor.Watcher
	if cfg.Server.WatchEnabled && len(cfg.Watch.URLs) > 0 {
		watcher, err = monitor.NewWatcher(a.engine, cfg.Watch, logger,
			monitor.WithOnRun(func(run *types.Run, _ *monitor.Delta) { server.SetLatest(run) }))
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return server.ListenAndServe(gctx) })

	if a.metrics != nil && cfg.Metrics.Port != cfg.Server.Port {
		ms := a.metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := ms.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	if watcher != nil {
		g.Go(func() error {
			watcher.Start()
			<-gctx.Done()
			<-watcher.Stop().Done()
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if len(cfg.Watch.URLs) == 0 {
		return fmt.Errorf("watch.urls is empty: nothing to watch")
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := newApp(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.metrics != nil {
		ms := a.metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path)
		defer ms.Close()
	}

	w, err := monitor.NewWatcher(a.engine, cfg.Watch, logger,
		monitor.WithOnRun(func(run *types.Run, d *monitor.Delta) {
			if d.Changed() {
				fmt.Printf("%s  %s: +%d / -%d reviews, positive %+.1f pts\n",
					time.Now().Format(time.RFC3339), d.URL, d.NewReviews, d.RemovedReviews, d.PositiveShift)
			}
		}))
	if err != nil {
		return err
	}

	if runNow {
		if err := w.RunAll(ctx); err != nil {
			logger.Warn("initial watch run finished with errors", "error", err)
		}
	}

	w.Start()
	for _, j := range w.Jobs() {
		logger.Info("next watch run", "url", j.URL, "at", j.NextRun)
	}

	<-ctx.Done()
	<-w.Stop().Done()
	return nil
}
