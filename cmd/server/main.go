package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"zap-backend/internal/app"
	"zap-backend/internal/config"
	"zap-backend/internal/handlers"
	"zap-backend/internal/router"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(level)
	}

	if err := config.LoadConfig(*configPath); err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	cfg := config.AppConfig
	logger.WithFields(logrus.Fields{
		"mode":         cfg.Blockchain.Mode,
		"home_network": cfg.Blockchain.HomeNetwork,
	}).Info("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := app.InitializeContainer(ctx, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize services")
	}
	defer container.Cleanup()

	zapHandler := handlers.NewZapHandler(container.Engine, logger)
	vaultsHandler := handlers.NewVaultsHandler(container.VaultRegistry)
	adminAuthHandler := handlers.NewAdminAuthHandler(logger)
	adminZapHandler := handlers.NewAdminZapHandler(container.Engine, logger)

	r := router.SetupRouter(zapHandler, vaultsHandler, adminAuthHandler, adminZapHandler, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.WithField("addr", addr).Info("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Forced shutdown")
	}
	logger.Info("Server stopped")
}
