package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newthinker/folio/internal/api"
	"github.com/newthinker/folio/internal/app"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the folio API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := newLogger(cfg)
	defer log.Sync()

	if cfgFile == "" {
		log.Warn("no config file specified, using defaults and environment")
	}

	a, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("creating app: %w", err)
	}

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	server, err := api.NewServer(api.Config{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		CORSOrigins: cfg.Server.CORSOrigins,
		MetricsPath: metricsPath,
		Version:     Version,
	}, api.Dependencies{
		Suggester:     a.Service(),
		Catalog:       a.Catalog(),
		Metrics:       a.Metrics(),
		MinInvestment: cfg.Portfolio.MinInvestment,
	}, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	log.Info("starting folio server",
		zap.String("addr", server.Addr()),
		zap.Any("stats", a.GetStats()),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background jobs
	go func() {
		if err := a.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("app error", zap.Error(err))
		}
	}()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("shutting down folio server")
	case err := <-serverErr:
		cancel()
		return err
	}

	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	return server.Shutdown(shutdownCtx)
}
