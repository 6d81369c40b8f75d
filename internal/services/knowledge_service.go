package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/santai/backend/internal/logger"
	"github.com/santai/backend/internal/models"
	"gorm.io/gorm"
)

// KnowledgeService stores the curated knowledge examples.
type KnowledgeService struct {
	db *gorm.DB
}

func NewKnowledgeService(db *gorm.DB) *KnowledgeService {
	return &KnowledgeService{db: db}
}

// List returns every example in insertion order.
func (ks *KnowledgeService) List(ctx context.Context) ([]models.KnowledgeExample, error) {
	var examples []models.KnowledgeExample
	if err := ks.db.WithContext(ctx).Order("id ASC").Find(&examples).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch knowledge examples: %w", err)
	}
	return examples, nil
}

// Create appends a new example. Both fields are trimmed and required.
func (ks *KnowledgeService) Create(ctx context.Context, input, output string, createdBy *uint) (*models.KnowledgeExample, error) {
	input = strings.TrimSpace(input)
	output = strings.TrimSpace(output)
	if input == "" || output == "" {
		return nil, ErrInvalidKnowledge
	}

	example := models.KnowledgeExample{Input: input, Output: output, CreatedBy: createdBy}
	if err := ks.db.WithContext(ctx).Create(&example).Error; err != nil {
		return nil, fmt.Errorf("failed to create knowledge example: %w", err)
	}

	logger.Info("Knowledge example added", map[string]interface{}{
		"id":         example.ID,
		"created_by": createdBy,
	})
	return &example, nil
}

// Delete removes an example by id.
func (ks *KnowledgeService) Delete(ctx context.Context, id uint) error {
	result := ks.db.WithContext(ctx).Delete(&models.KnowledgeExample{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete knowledge example: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrKnowledgeNotFound
	}

	logger.Info("Knowledge example deleted", map[string]interface{}{"id": id})
	return nil
}

// SnapshotJSON serializes the stored examples in the same shape browsers
// send. A read failure yields an empty payload so triage can continue.
func (ks *KnowledgeService) SnapshotJSON(ctx context.Context) string {
	examples, err := ks.List(ctx)
	if err != nil {
		logger.WithError(err, "knowledge_service").Warn("Failed to load stored knowledge, continuing without examples")
		return ""
	}
	return EncodeKnowledge(examples)
}
