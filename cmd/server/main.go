package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/santai/backend/internal/config"
	"github.com/santai/backend/internal/db"
	"github.com/santai/backend/internal/logger"
	"github.com/santai/backend/internal/metrics"
	"github.com/santai/backend/internal/routes"
)

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		logger.Fatal("Failed to load configuration", map[string]interface{}{
			"error": err.Error(),
		})
	}

	logger.Initialize(cfg.Logging.Level, cfg.Logging.File)
	if envErr != nil {
		logger.Warn("No .env file found, using environment variables", nil)
	}

	// Connect to database
	database, err := db.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if err := db.AutoMigrate(database); err != nil {
		logger.Fatal("Database migration failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Register(registry); err != nil {
		logger.Fatal("Failed to register metrics", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if cfg.Server.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := routes.NewRouter(cfg)
	routes.SetupRoutes(r, cfg, database, registry)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	logger.Info("Starting SantAI triage server", map[string]interface{}{
		"port":          cfg.Server.Port,
		"gin_mode":      gin.Mode(),
		"detector_url":  cfg.Detector.URL,
		"text_model":    cfg.ModelArk.TextModel,
		"auth_required": cfg.Auth.Required,
	})

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	<-ctx.Done()
	logger.Warn("Received shutdown signal, shutting down server gracefully...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", map[string]interface{}{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	if sqlDB, err := database.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("Server exited gracefully", nil)
}
