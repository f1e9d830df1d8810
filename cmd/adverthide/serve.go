package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/adverthide/internal/server"
	"github.com/alfredjeanlab/adverthide/internal/updater"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the HTTP server that ticks the updater on every request",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		hub := server.NewEventHub()
		rt, err := newRuntime(context.Background(), cfg, logger, hub)
		if err != nil {
			return err
		}
		defer rt.Close()

		if cfg.AdminToken == "" {
			logger.Warn("no admin token configured, admin-only settings will never tick from requests")
		}

		srv := server.New(rt.updater, hub, logger)
		if cfg.RateLimit > 0 {
			srv.SetRateLimit(cfg.RateLimit, cfg.RateLimitBurst)
			logger.Info("API rate limit enabled", "rps", cfg.RateLimit, "burst", cfg.RateLimitBurst)
		}
		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           srv.NewHTTPHandler(cfg.AdminToken, nil),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		var scheduler *updater.Scheduler
		if cfg.ScheduleInterval > 0 {
			scheduler = updater.NewScheduler(rt.updater, cfg.ScheduleInterval, logger)
			scheduler.Start()
			logger.Info("tick scheduler started", "interval", cfg.ScheduleInterval)
		}

		logger.Info("adverthide server started",
			"http_addr", cfg.HTTPAddr,
			"driver", cfg.DBDriver,
			"element", cfg.PluginElement,
		)

		// Wait for SIGINT or SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		if scheduler != nil {
			scheduler.Stop()
			logger.Info("tick scheduler stopped")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		logger.Info("shutdown complete")
		return nil
	},
}
