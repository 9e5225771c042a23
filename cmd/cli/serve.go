// Package cli provides command-line interface commands for the scansage
// sanitized ingestion service. This file implements the serve command with
// graceful shutdown handling.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/scansage/scansage/internal/api"
	"github.com/scansage/scansage/internal/audit"
	"github.com/scansage/scansage/internal/config"
	"github.com/scansage/scansage/internal/ingest"
	"github.com/scansage/scansage/internal/logging"
	"github.com/scansage/scansage/internal/store"
)

const serveShutdownTimeout = 15 * time.Second

// Serve command flags.
var (
	serveHost string
	servePort int
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ingestion API server",
	Long: `Run the scansage API server in the foreground.

The server accepts sanitized Nmap XML ingestion over HTTP, retains a
bounded ring of ingestion records, and exposes health and metrics
endpoints. SIGINT or SIGTERM triggers a graceful shutdown.`,
	Example: `  scansage serve
  scansage serve --host 0.0.0.0 --port 8080
  scansage serve --config ./scansage.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Override server listen address")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Override server port")
}

// runServe handles the serve command.
func runServe(_ *cobra.Command, _ []string) error {
	logger := logging.Default()

	cfg, err := setupServeConfig()
	if err != nil {
		return err
	}

	apiServer, err := buildServer(cfg, logger)
	if err != nil {
		return err
	}

	fmt.Printf("Starting scansage API server %s\n", getVersion())
	logger.InfoServer("Starting scansage API server",
		"version", version,
		"commit", commit,
		"build_time", buildTime,
		"address", cfg.GetServerAddress())

	return waitForShutdown(apiServer, cfg, logger)
}

// setupServeConfig loads configuration and applies flag overrides.
func setupServeConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	if serveHost != "" {
		cfg.Server.ListenAddr = serveHost
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// buildServer wires the store, audit sink, and ingestion service into an
// API server.
func buildServer(cfg *config.Config, logger *logging.Logger) (*api.Server, error) {
	records := store.New(cfg.Storage.Directory, logger, nil)
	auditSink := audit.NewSink(cfg.GetAuditConfig(), logger, nil)
	service := ingest.NewService(records, auditSink, logger, cfg.GetIngestLookup())

	apiServer, err := api.New(cfg, service, records, auditSink, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create API server: %w", err)
	}
	return apiServer, nil
}

// waitForShutdown runs the server until a shutdown signal or server
// failure.
func waitForShutdown(apiServer *api.Server, cfg *config.Config, logger *logging.Logger) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- apiServer.Start(serverCtx)
	}()

	fmt.Printf("API server listening on %s\n", cfg.GetServerAddress())
	fmt.Printf("Health check: http://%s/api/v1/health\n", cfg.GetServerAddress())
	fmt.Printf("Metrics: http://%s/metrics\n", cfg.GetServerAddress())

	select {
	case sig := <-sigChan:
		logger.InfoServer("Received shutdown signal", "signal", sig.String())
		fmt.Printf("\nReceived %s signal, shutting down gracefully...\n", sig.String())
	case err := <-serverErrChan:
		if err != nil {
			logger.ErrorServer("API server error", err)
			return fmt.Errorf("API server error: %w", err)
		}
		return nil
	}

	// Cancel the server context; Start stops the listener and returns.
	cancel()

	select {
	case err := <-serverErrChan:
		if err != nil {
			logger.ErrorServer("Server shutdown error", err)
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		fmt.Println("Server stopped successfully")
	case <-time.After(serveShutdownTimeout):
		logger.Warn("Shutdown timeout exceeded, exiting")
		return fmt.Errorf("shutdown timeout exceeded")
	}

	return nil
}
