package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/santai/backend/internal/config"
	"github.com/santai/backend/internal/db"
	"github.com/santai/backend/internal/logger"
	"github.com/santai/backend/internal/services"
	"gorm.io/gorm"
)

// UserData represents the structure of users in the JSON file
type UserData struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}

// KnowledgeData is one curated triage example.
type KnowledgeData struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// SeedData represents the structure of the seed file
type SeedData struct {
	Users     []UserData      `json:"users"`
	Knowledge []KnowledgeData `json:"knowledge"`
}

func main() {
	seedFile := flag.String("file", "data/seed.json", "path to the seed JSON file")
	flag.Parse()

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
	if err := db.AutoMigrate(database); err != nil {
		logger.Fatal("Database migration failed", map[string]interface{}{"error": err.Error()})
	}

	data, err := readSeedFile(*seedFile)
	if err != nil {
		logger.Fatal("Failed to read seed file", map[string]interface{}{"error": err.Error(), "file": *seedFile})
	}

	ctx := context.Background()
	seedUsers(ctx, services.NewUserService(database), data.Users)
	if err := seedKnowledge(ctx, database, data.Knowledge); err != nil {
		logger.Error("Error seeding knowledge base", map[string]interface{}{"error": err.Error()})
	}

	logger.Info("Database seeding completed successfully", nil)
}

func readSeedFile(path string) (*SeedData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data SeedData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &data, nil
}

func seedUsers(ctx context.Context, users *services.UserService, entries []UserData) {
	for _, u := range entries {
		role := services.ParseRole(u.Role)
		created, err := users.EnsureUser(ctx, u.Username, u.Password, u.FullName, role)
		if err != nil {
			logger.Error("Error creating user", map[string]interface{}{"username": u.Username, "error": err.Error()})
			continue
		}
		if created {
			logger.Info("Created user", map[string]interface{}{"username": u.Username, "role": role})
		} else {
			logger.Warn("User already exists", map[string]interface{}{"username": u.Username})
		}
	}
}

// seedKnowledge only fills an empty knowledge base so reruns do not duplicate
// examples.
func seedKnowledge(ctx context.Context, database *gorm.DB, entries []KnowledgeData) error {
	knowledge := services.NewKnowledgeService(database)
	existing, err := knowledge.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		logger.Warn("Knowledge base already populated, skipping", map[string]interface{}{"count": len(existing)})
		return nil
	}
	for _, k := range entries {
		if _, err := knowledge.Create(ctx, k.Input, k.Output, nil); err != nil {
			return err
		}
	}
	return nil
}
