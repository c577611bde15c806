package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/docfs/internal/infrastructure/config"
	"github.com/GriffinCanCode/docfs/internal/infrastructure/logging"
	"github.com/GriffinCanCode/docfs/internal/infrastructure/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "docfs: %v\n", err)
		os.Exit(1)
	}

	// Flags override environment
	flag.StringVar(&cfg.Server.Port, "port", cfg.Server.Port, "Server port")
	flag.StringVar(&cfg.Server.Host, "host", cfg.Server.Host, "Server host")
	flag.StringVar(&cfg.Storage.Root, "root", cfg.Storage.Root, "Directory request paths are resolved against")
	flag.StringVar(&cfg.Server.FrontPage, "front-page", cfg.Server.FrontPage, "HTML file served at /")
	flag.StringVar(&cfg.Packager.Command, "packager", cfg.Packager.Command, "External mkdocx command (empty uses the built-in packager)")
	flag.StringVar(&cfg.Metrics.Address, "metrics-addr", cfg.Metrics.Address, "Address for /metrics and /health")
	flag.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "Log level (debug, info, warn, error)")
	flag.BoolVar(&cfg.Logging.Development, "dev", cfg.Logging.Development, "Development mode (colored console logs, debug level)")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "docfs: %v\n", err)
		os.Exit(1)
	}

	logger := logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development)

	srv, err := server.NewServer(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	select {
	case sig := <-sigChan:
		logger.Info("Shutting down gracefully", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Error during shutdown", zap.Error(err))
		}
	case err := <-errChan:
		if err != nil {
			logger.Fatal("Server error", zap.Error(err))
		}
	}
}
