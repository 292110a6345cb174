package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dom/crusade-tracker/internal/api"
	"github.com/dom/crusade-tracker/internal/config"
	"github.com/dom/crusade-tracker/internal/crusade"
	"github.com/dom/crusade-tracker/internal/repository/postgres"
	"github.com/dom/crusade-tracker/internal/rules"
	"github.com/dom/crusade-tracker/internal/service"
	"github.com/dom/crusade-tracker/internal/snapshot"
	"github.com/dom/crusade-tracker/internal/websocket"
)

func main() {
	log := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	if cfg.Environment == "production" {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	r, err := rules.Load(cfg.RulesPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load rules config")
	}

	// Initialize database
	db, err := postgres.NewConnection(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	repos := postgres.NewRepositories(db)

	// Snapshot ring: files by default, the database when no directory
	// is configured.
	var store snapshot.Store
	if cfg.SnapshotDir != "" {
		store, err = snapshot.NewFileStore(cfg.SnapshotDir)
		if err != nil {
			log.WithError(err).Fatal("failed to open snapshot directory")
		}
	} else {
		store = snapshot.NewDBStore(repos.Snapshot)
	}

	calc := crusade.NewCalculator(r)
	validator := crusade.NewValidator(r, calc)
	coordinator := snapshot.NewCoordinator(store, validator, cfg.SnapshotRetention, log)

	// Initialize WebSocket hub
	hub := websocket.NewHub(log)
	go hub.Run()
	defer hub.Stop()

	// Initialize services
	services := service.NewServices(repos, cfg, r, coordinator, hub, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	services.Campaign.StartAutosave(ctx, cfg.AutosaveInterval)

	// Initialize router
	router := api.NewRouter(services, hub, log)

	// Create server
	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.WithField("port", cfg.Port).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server stopped")
}
