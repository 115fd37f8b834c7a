// Package main is the entry point for the auto-settle daemon.
// The daemon keeps a warm cache of OpenBook/Serum markets for a local
// wallet and periodically settles free open-orders balances back to it.
//
// Startup sequence:
// 1. Load configuration from environment variables (.env supported)
// 2. Initialize logging
// 3. Wire dependencies via the DI container (database, repositories, services, jobs)
// 4. Connect the wallet session if configured to do so
// 5. Start the HTTP server and the job scheduler
// 6. Wait for a shutdown signal and stop everything gracefully
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/autosettle/internal/config"
	"github.com/aristath/autosettle/internal/di"
	"github.com/aristath/autosettle/internal/server"
	"github.com/aristath/autosettle/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("rpc", cfg.RPCURL).
		Str("data_dir", cfg.DataDir).
		Msg("Starting auto-settle daemon")

	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	// A local keypair needs no user approval, so the session can come up connected
	if cfg.AutoConnect && container.WalletSession.Adapter() != nil {
		if err := container.WalletSession.Connect(); err != nil {
			log.Error().Err(err).Msg("Failed to connect wallet")
		} else if err := container.AutoSettle.RefreshTokenAccounts(); err != nil {
			log.Warn().Err(err).Msg("Initial token account load failed")
		}
	}

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Container: container,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start server in goroutine
	go func() {
		if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()
	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	container.Scheduler.Start()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Abort running ticks, then wait for the scheduler to drain
	container.AutoSettle.Close()
	if err := container.Scheduler.Stop(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("Background jobs still running at shutdown")
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
