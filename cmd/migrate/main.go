package main

import (
	"github.com/joho/godotenv"
	"github.com/santai/backend/internal/config"
	"github.com/santai/backend/internal/db"
	"github.com/santai/backend/internal/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file found, using system environment variables", nil)
	}

	cfg, err := config.LoadRaw("")
	if err != nil {
		logger.Fatal("Failed to load configuration", map[string]interface{}{"error": err.Error()})
	}
	logger.Initialize(cfg.Logging.Level, cfg.Logging.File)

	database, err := db.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", map[string]interface{}{"error": err.Error()})
	}

	logger.Info("Running database migrations...", nil)
	if err := db.AutoMigrate(database); err != nil {
		logger.Fatal("Database migration failed", map[string]interface{}{"error": err.Error()})
	}
}
