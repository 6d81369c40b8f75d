package db

import (
	"fmt"

	"github.com/santai/backend/internal/config"
	"github.com/santai/backend/internal/logger"
	"github.com/santai/backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Connect opens the Postgres connection described by cfg.
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	conn, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Error),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Info("Database connected successfully", map[string]interface{}{
		"host": cfg.Host,
		"name": cfg.Name,
	})
	return conn, nil
}

// Models lists every table the backend owns, in migration order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.KnowledgeExample{},
		&models.TriageAudit{},
	}
}

// AutoMigrate creates or updates the backend's tables.
func AutoMigrate(conn *gorm.DB) error {
	for _, model := range Models() {
		if err := conn.AutoMigrate(model); err != nil {
			return fmt.Errorf("migrate %T: %w", model, err)
		}
		logger.Debug("Table migrated", map[string]interface{}{"model": fmt.Sprintf("%T", model)})
	}
	logger.Info("All database migrations completed successfully", nil)
	return nil
}
