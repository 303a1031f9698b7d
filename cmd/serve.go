package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/suteetoe/salescrm/internal/server"
	"github.com/suteetoe/salescrm/pkg/database"
	"github.com/suteetoe/salescrm/prometheus"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	appConfig, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting salescrm", appConfig.LogConfig()...)

	metrics := prometheus.New(appConfig.Metrics.Prefix, promclient.DefaultRegisterer)
	log.Info("Prometheus metrics initialized", zap.String("metrics_prefix", appConfig.Metrics.Prefix))

	db, err := openDB(appConfig, log)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close(db) }()

	created, err := database.Bootstrap(db, &appConfig.Bootstrap)
	if err != nil {
		return err
	}
	if created {
		log.Info("Bootstrapped admin user", zap.String("username", appConfig.Bootstrap.AdminUsername))
	}

	e := server.New(server.Deps{
		Config:   appConfig,
		DB:       db,
		Logger:   log,
		Metrics:  metrics,
		Gatherer: promclient.DefaultGatherer,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("port", appConfig.Server.Port))
		errCh <- e.Start(":" + appConfig.Server.Port)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
		return err
	}
	return nil
}
