package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/pairwish/internal/config"
	"github.com/dukerupert/pairwish/internal/database"
	"github.com/dukerupert/pairwish/internal/logging"
	"github.com/dukerupert/pairwish/internal/server"
)

const (
	cleanupInterval = time.Hour
	shutdownTimeout = 10 * time.Second
)

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if flagPort != "" {
		cfg.Port = flagPort
	}
	if flagDBPath != "" {
		cfg.DBPath = flagDBPath
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	srv := server.New(db, cfg, logger)

	if !cfg.PushConfigured() {
		logger.Warn("push notifications disabled, run `pairwish vapid-keys` to create keys")
	}
	if !cfg.S3.Configured() {
		logger.Info("image uploads disabled, S3 is not configured")
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("pairwish running", "addr", httpServer.Addr, "base_url", cfg.BaseURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if sched := srv.PushScheduler(); sched != nil {
		g.Go(func() error {
			return sched.Run(gctx)
		})
	}

	g.Go(func() error {
		return runCleanup(gctx, srv, logger)
	})

	err = g.Wait()

	// Let queued push deliveries finish before the database closes.
	if n := srv.Notifier(); n != nil {
		n.Wait()
	}
	return err
}

func runCleanup(ctx context.Context, srv *server.Server, logger *slog.Logger) error {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			logger.Debug("running cleanup")
			srv.Cleanup()
		}
	}
}
