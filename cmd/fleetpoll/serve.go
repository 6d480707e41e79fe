package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nmslite/fleetpoll/internal/api"
	"github.com/nmslite/fleetpoll/internal/auth"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve fleet reports over HTTP",
		Long: `Start the HTTP API.

Every GET /api/v1/report polls the configured devices and returns the report
as CSV or JSON. Only one poll runs at a time. The sector mapping is loaded
once at startup.

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  fleetpoll serve -c config.yaml`,
		RunE: runServe,
	}

	cmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, logger, closer, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	defer closer.Close()

	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	devices, err := cfg.Inventory.Targets()
	if err != nil {
		return fmt.Errorf("invalid device list: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	authService, err := auth.NewService(
		cfg.Auth.JWTSecret,
		cfg.Auth.AdminUsername,
		cfg.Auth.AdminPasswordHash,
		cfg.Auth.JWTExpiry(),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize auth service: %w", err)
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	readiness := map[string]api.Checker{}
	if a.pool != nil {
		readiness["database"] = a.pool.Ping
	}

	router := api.NewRouter(api.Dependencies{
		Auth:      authService,
		Tokens:    authService,
		Fleet:     a.fleet,
		Prober:    a.prober,
		Sectors:   a.sectors,
		Devices:   devices,
		CORS:      cfg.CORS,
		Readiness: readiness,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout(),
		WriteTimeout: cfg.Server.WriteTimeout(),
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening",
			slog.String("addr", srv.Addr),
			slog.Int("devices", len(devices)),
			slog.String("version", version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", slog.Any("error", err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}
