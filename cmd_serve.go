package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"GoModelRouter/pkg/adaptive"
	"GoModelRouter/pkg/api"
	"GoModelRouter/pkg/schedule"
)

const shutdownTimeout = 10 * time.Second

var serveFlags struct {
	noScheduler bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the daily scheduler and the adaptive throttle",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveFlags.noScheduler, "no-scheduler", false, "Do not run the daily generation job")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var monitor *adaptive.Monitor
	if a.limiter != nil {
		source, err := a.healthSource()
		if err != nil {
			return err
		}
		monitor = adaptive.NewMonitor(a.limiter, source, a.cfg.Adaptive, a.log)
	}

	handler := api.NewHandler(a.orch, a.store, a.refresher, a.log)
	srv := &http.Server{
		Addr:              a.cfg.Server.Addr(),
		Handler:           api.NewRouter(handler, a.cfg.Server.MetricsPath),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		a.log.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if a.cfg.Scheduler.Enabled && !serveFlags.noScheduler {
		sched := schedule.New(a.orch, a.cfg.Scheduler, a.log)
		g.Go(func() error { return sched.Run(gCtx) })
	}
	if monitor != nil {
		g.Go(func() error { return monitor.Run(gCtx) })
	}

	err = g.Wait()
	a.log.Info("router stopped")
	return err
}
