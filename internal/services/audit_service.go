package services

import (
	"context"
	"fmt"

	"github.com/santai/backend/internal/models"
	"gorm.io/gorm"
)

// AuditRecorder persists triage audit rows.
type AuditRecorder interface {
	Record(ctx context.Context, audit *models.TriageAudit) error
}

// AuditService writes and reads triage audit rows.
type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

func (as *AuditService) Record(ctx context.Context, audit *models.TriageAudit) error {
	if err := as.db.WithContext(ctx).Create(audit).Error; err != nil {
		return fmt.Errorf("failed to record triage audit: %w", err)
	}
	return nil
}

// Recent returns the newest audit rows first.
func (as *AuditService) Recent(ctx context.Context, limit, offset int) ([]models.TriageAudit, int64, error) {
	var audits []models.TriageAudit
	if err := as.db.WithContext(ctx).Order("created_at DESC").Offset(offset).Limit(limit).Find(&audits).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch triage audits: %w", err)
	}

	var total int64
	if err := as.db.WithContext(ctx).Model(&models.TriageAudit{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count triage audits: %w", err)
	}
	return audits, total, nil
}
